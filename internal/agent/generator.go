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

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"policy-navigator/pkg/log"
	"policy-navigator/pkg/metrics"
	"policy-navigator/pkg/tracing"
)

const defaultGenerateTimeout = 60 * time.Second

// Generator 答案生成器。构造时把检索与搜索工具绑定到对话模型上，
// 并校验意图模板表是完整的。
type Generator struct {
	chatModel model.ToolCallingChatModel
	modelName string
	timeout   time.Duration
	logger    *log.Logger
}

// NewGenerator 创建生成器，timeout<=0 使用默认 60s。
// 模板表不完整时直接报错，避免运行期才发现缺意图。
func NewGenerator(chatModel model.ToolCallingChatModel, modelName string, timeout time.Duration, logger *log.Logger) (*Generator, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("agent: 对话模型不能为空")
	}
	if err := validatePrompts(); err != nil {
		return nil, err
	}
	bound, err := chatModel.WithTools(toolInfos())
	if err != nil {
		return nil, fmt.Errorf("agent: 绑定工具失败: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &Generator{chatModel: bound, modelName: modelName, timeout: timeout, logger: logger}, nil
}

// Prompt 渲染指定意图的生成提示词
func (g *Generator) Prompt(intent Intent, history string) (string, error) {
	return renderIntentPrompt(intent, history)
}

// Generate 调用模型产出一条回复。返回的消息可能携带工具调用请求，
// 由调用方决定是否进入工具往返。
func (g *Generator) Generate(ctx context.Context, transcript []*schema.Message) (*schema.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ctx, span := tracing.StartModelSpan(ctx, "generate", g.modelName)
	defer span.End()

	msg, err := g.chatModel.Generate(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("agent: 生成调用失败: %w", err)
	}

	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		metrics.LLMTokensTotal.WithLabelValues("prompt").Add(float64(msg.ResponseMeta.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues("completion").Add(float64(msg.ResponseMeta.Usage.CompletionTokens))
	}
	return msg, nil
}
