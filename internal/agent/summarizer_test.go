// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-navigator/internal/runtime/session"
	"policy-navigator/pkg/log"
)

func sessionWithMessages(n int) *session.Session {
	sess := session.New("sess-test")
	for i := 0; i < n; i++ {
		role := session.RoleUser
		if i%2 == 1 {
			role = session.RoleAssistant
		}
		sess.AddMessage(role, fmt.Sprintf("message %d", i))
	}
	return sess
}

func TestSummarizerBelowTrigger(t *testing.T) {
	stub := &scriptedLLM{responses: []string{"should not be used"}}
	sum := NewSummarizer(stub, 10, 2, 0, log.Default())

	// 恰好等于阈值不触发
	sess := sessionWithMessages(10)
	require.NoError(t, sum.MaybeCompact(context.Background(), sess))

	assert.Equal(t, 10, sess.Len())
	assert.Equal(t, 0, stub.callCount())
}

func TestSummarizerCompactsAboveTrigger(t *testing.T) {
	stub := &scriptedLLM{responses: []string{"The user asked about several statutes and got answers."}}
	sum := NewSummarizer(stub, 10, 2, 0, log.Default())

	sess := sessionWithMessages(11)
	require.NoError(t, sum.MaybeCompact(context.Background(), sess))

	msgs := sess.CopyMessages()
	require.Len(t, msgs, 3)

	assert.Equal(t, session.RoleSystem, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[0].Content, SummaryPrefix))
	assert.Contains(t, msgs[0].Content, "several statutes")

	// 最近两条原样保留
	assert.Equal(t, "message 9", msgs[1].Content)
	assert.Equal(t, "message 10", msgs[2].Content)

	// 摘要输入只包含较早的 9 条
	require.Equal(t, 1, stub.callCount())
	assert.Contains(t, stub.prompts[0], "message 0")
	assert.Contains(t, stub.prompts[0], "message 8")
	assert.NotContains(t, stub.prompts[0], "message 9")
	assert.NotContains(t, stub.prompts[0], "message 10")
}

func TestSummarizerLLMError(t *testing.T) {
	stub := &scriptedLLM{} // 返回错误
	sum := NewSummarizer(stub, 10, 2, 0, log.Default())

	sess := sessionWithMessages(12)
	err := sum.MaybeCompact(context.Background(), sess)
	require.Error(t, err)

	// 失败时会话保持原样
	assert.Equal(t, 12, sess.Len())
}
