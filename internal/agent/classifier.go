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
	"time"

	"policy-navigator/internal/model/llm"
	"policy-navigator/pkg/log"
	"policy-navigator/pkg/metrics"
	"policy-navigator/pkg/tracing"
)

const defaultClassifyTimeout = 15 * time.Second

// Classifier 基于 LLM 的意图分类器
type Classifier struct {
	client  llm.Client
	timeout time.Duration
	logger  *log.Logger
}

// NewClassifier 创建分类器，timeout<=0 使用默认 15s
func NewClassifier(client llm.Client, timeout time.Duration, logger *log.Logger) *Classifier {
	if timeout <= 0 {
		timeout = defaultClassifyTimeout
	}
	return &Classifier{client: client, timeout: timeout, logger: logger}
}

// Classify 对用户问题做意图分类。标签不在枚举内时返回 *ClassificationError，
// 调用方不应继续进入生成阶段。
func (c *Classifier) Classify(ctx context.Context, query string) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := tracing.StartModelSpan(ctx, "classify", c.client.Model())
	defer span.End()

	raw, err := c.client.GenerateWithContext(ctx, renderClassifierPrompt(query), llm.GenerateOptions{
		Temperature: 0,
		MaxTokens:   16,
	})
	if err != nil {
		return "", fmt.Errorf("agent: 意图分类调用失败: %w", err)
	}

	intent, err := ParseIntent(raw)
	if err != nil {
		c.logger.Warn("意图分类输出无法识别", "raw", raw)
		return "", err
	}
	metrics.IntentTotal.WithLabelValues(string(intent)).Inc()
	return intent, nil
}
