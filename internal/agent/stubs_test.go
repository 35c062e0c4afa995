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
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"policy-navigator/internal/model/llm"
	"policy-navigator/internal/websearch"
	"policy-navigator/pkg/auth"
)

// scriptedLLM 按脚本顺序返回响应的轻量客户端替身
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
}

func (s *scriptedLLM) GenerateWithContext(ctx context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.responses) == 0 {
		return "", errors.New("scripted llm: no responses left")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedLLM) Generate(prompt string, opts llm.GenerateOptions) (string, error) {
	return s.GenerateWithContext(context.Background(), prompt, opts)
}

func (s *scriptedLLM) ChatWithContext(ctx context.Context, messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	var prompt string
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}
	return s.GenerateWithContext(ctx, prompt, opts)
}

func (s *scriptedLLM) Chat(messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	return s.ChatWithContext(context.Background(), messages, opts)
}

func (s *scriptedLLM) Model() string    { return "scripted" }
func (s *scriptedLLM) Provider() string { return "test" }

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// scriptedChatModel 按脚本顺序返回消息的生成模型替身
type scriptedChatModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	inputs  [][]*schema.Message
	tools   []*schema.ToolInfo
}

func (m *scriptedChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	if len(m.replies) == 0 {
		return nil, errors.New("scripted chat model: no replies left")
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

func (m *scriptedChatModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("scripted chat model: stream not supported")
}

func (m *scriptedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.tools = tools
	return m, nil
}

func (m *scriptedChatModel) generateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// repeatingChatModel 每次调用都返回同一条消息，用于触发轮次上限
type repeatingChatModel struct {
	scriptedChatModel
	reply *schema.Message
}

func (m *repeatingChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	return m.reply, nil
}

func (m *repeatingChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.tools = tools
	return m, nil
}

// stubRetriever 固定返回一组文档或错误
type stubRetriever struct {
	docs    []*schema.Document
	err     error
	queries []string
}

func (r *stubRetriever) Retrieve(ctx context.Context, query string, _ ...einoretriever.Option) ([]*schema.Document, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	return r.docs, nil
}

// stubSearcher 固定返回一组搜索结果或错误
type stubSearcher struct {
	results []websearch.Result
	err     error
	queries []string
	creds   []string
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]websearch.Result, error) {
	s.queries = append(s.queries, query)
	s.creds = append(s.creds, auth.GetCredential(ctx))
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func toolCall(id, name, query string) schema.ToolCall {
	return schema.ToolCall{
		ID:   id,
		Type: "function",
		Function: schema.FunctionCall{
			Name:      name,
			Arguments: fmt.Sprintf(`{"query": %q}`, query),
		},
	}
}
