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
	"time"

	"policy-navigator/internal/model/llm"
	"policy-navigator/internal/runtime/session"
	"policy-navigator/pkg/log"
	"policy-navigator/pkg/tracing"
)

const (
	defaultSummarizeTimeout = 30 * time.Second
	defaultHistoryTrigger   = 10
	defaultKeepRecent       = 2
)

// Summarizer 会话历史压缩器。历史长度超过阈值时，把较早的消息
// 摘要成一条 system 消息放到会话头部，只保留最近几条原文。
type Summarizer struct {
	client     llm.Client
	trigger    int
	keepRecent int
	timeout    time.Duration
	logger     *log.Logger
}

// NewSummarizer 创建压缩器。trigger/keepRecent/timeout 非正值时使用默认 10/2/30s。
func NewSummarizer(client llm.Client, trigger, keepRecent int, timeout time.Duration, logger *log.Logger) *Summarizer {
	if trigger <= 0 {
		trigger = defaultHistoryTrigger
	}
	if keepRecent <= 0 {
		keepRecent = defaultKeepRecent
	}
	if timeout <= 0 {
		timeout = defaultSummarizeTimeout
	}
	return &Summarizer{client: client, trigger: trigger, keepRecent: keepRecent, timeout: timeout, logger: logger}
}

// MaybeCompact 在长度超过阈值时压缩会话，否则不做任何修改。
// 长度恰好等于阈值不触发。压缩后会话为一条摘要加最近 keepRecent 条原文。
func (s *Summarizer) MaybeCompact(ctx context.Context, sess *session.Session) error {
	if sess.Len() <= s.trigger {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := tracing.StartModelSpan(ctx, "summarize", s.client.Model())
	defer span.End()

	msgs := sess.CopyMessages()
	older := msgs[:len(msgs)-s.keepRecent]

	text, err := s.client.GenerateWithContext(ctx, renderSummaryPrompt(renderHistory(older)), llm.GenerateOptions{
		Temperature: 0,
	})
	if err != nil {
		return fmt.Errorf("agent: 历史摘要调用失败: %w", err)
	}

	removeIDs := make([]string, 0, len(older))
	for _, m := range older {
		removeIDs = append(removeIDs, m.ID)
	}
	summary := session.NewMessage(session.RoleSystem, SummaryPrefix+strings.TrimSpace(text))
	sess.Compact(summary, removeIDs)

	s.logger.Info("会话历史已压缩",
		"session_id", sess.ID,
		"summarized", len(older),
		"remaining", sess.Len(),
	)
	return nil
}
