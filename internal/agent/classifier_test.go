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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-navigator/pkg/log"
)

func TestClassifierClassify(t *testing.T) {
	cases := []struct {
		raw  string
		want Intent
	}{
		{"simplify", IntentSimplify},
		{"extract-entities", IntentExtractEntities},
		{"compare\n", IntentCompare},
		{"general-answer", IntentGeneralAnswer},
	}
	for _, c := range cases {
		stub := &scriptedLLM{responses: []string{c.raw}}
		cls := NewClassifier(stub, 0, log.Default())

		got, err := cls.Classify(context.Background(), "some question")
		require.NoError(t, err, "raw=%q", c.raw)
		assert.Equal(t, c.want, got)
		require.Equal(t, 1, stub.callCount())
		assert.Contains(t, stub.prompts[0], "some question")
	}
}

func TestClassifierUnrecognizedLabel(t *testing.T) {
	stub := &scriptedLLM{responses: []string{"joke"}}
	cls := NewClassifier(stub, 0, log.Default())

	_, err := cls.Classify(context.Background(), "tell me a joke")
	require.Error(t, err)

	var clsErr *ClassificationError
	require.True(t, errors.As(err, &clsErr))
	assert.Equal(t, "joke", clsErr.Raw)
}

func TestClassifierLLMError(t *testing.T) {
	stub := &scriptedLLM{} // 无脚本响应即返回错误
	cls := NewClassifier(stub, 0, log.Default())

	_, err := cls.Classify(context.Background(), "anything")
	require.Error(t, err)

	var clsErr *ClassificationError
	assert.False(t, errors.As(err, &clsErr))
}
