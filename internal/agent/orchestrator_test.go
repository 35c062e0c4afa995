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
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-navigator/internal/runtime/session"
	"policy-navigator/internal/websearch"
	"policy-navigator/pkg/config"
	"policy-navigator/pkg/log"
)

func newTestOrchestrator(t *testing.T, cm model.ToolCallingChatModel, llmStub *scriptedLLM, ret *stubRetriever, search *stubSearcher, mgr session.SessionManager, maxRounds int) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(config.AgentConfig{MaxToolRounds: maxRounds}, Deps{
		ChatModel: cm,
		ModelName: "scripted",
		LLM:       llmStub,
		Retriever: ret,
		Searcher:  search,
		Sessions:  mgr,
		Logger:    log.Default(),
	})
	require.NoError(t, err)
	return o
}

func assistantToolCallMsg(calls ...schema.ToolCall) *schema.Message {
	return &schema.Message{Role: schema.Assistant, ToolCalls: calls}
}

func TestOrchestratorEndToEnd(t *testing.T) {
	cm := &scriptedChatModel{replies: []*schema.Message{
		assistantToolCallMsg(toolCall("call-1", ToolContextRetriever, "clean air act")),
		{Role: schema.Assistant, Content: "The Clean Air Act regulates air emissions. See 42 U.S.C. 7401."},
	}}
	llmStub := &scriptedLLM{responses: []string{"general-answer"}}
	ret := &stubRetriever{docs: []*schema.Document{{ID: "d1", Content: "42 U.S.C. 7401 air pollution prevention"}}}
	mgr := session.NewManager(session.NewMemoryStore())

	o := newTestOrchestrator(t, cm, llmStub, ret, &stubSearcher{}, mgr, 5)

	reply, sessID, err := o.RunTurn(context.Background(), "", "What is the Clean Air Act?", "")
	require.NoError(t, err)
	assert.Contains(t, reply, "Clean Air Act")
	require.NotEmpty(t, sessID)

	// 会话已落库：用户消息、工具结果、助手回复
	sess, err := mgr.Get(context.Background(), sessID)
	require.NoError(t, err)
	msgs := sess.CopyMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, session.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is the Clean Air Act?", msgs[0].Content)
	assert.Equal(t, session.RoleTool, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "42 U.S.C. 7401")
	assert.Equal(t, session.RoleAssistant, msgs[2].Role)

	// 第二次生成的 transcript 含工具结果
	require.Equal(t, 2, cm.generateCount())
	second := cm.inputs[1]
	require.Len(t, second, 3)
	assert.Equal(t, schema.Tool, second[2].Role)
	assert.Equal(t, "call-1", second[2].ToolCallID)
}

func TestOrchestratorIntentTemplates(t *testing.T) {
	cases := []struct {
		label  string
		marker string
	}{
		{"simplify", "Simple Law Explainer"},
		{"extract-entities", "Legal Entity Extractor"},
		{"compare", "Comparison Workflow"},
		{"general-answer", "Execution Workflow"},
	}
	for _, c := range cases {
		cm := &scriptedChatModel{replies: []*schema.Message{
			{Role: schema.Assistant, Content: "done"},
		}}
		llmStub := &scriptedLLM{responses: []string{c.label}}
		mgr := session.NewManager(session.NewMemoryStore())
		o := newTestOrchestrator(t, cm, llmStub, &stubRetriever{}, &stubSearcher{}, mgr, 5)

		_, _, err := o.RunTurn(context.Background(), "", "a question", "")
		require.NoError(t, err, "label=%s", c.label)

		require.Equal(t, 1, cm.generateCount(), "label=%s", c.label)
		prompt := cm.inputs[0][0].Content
		assert.Contains(t, prompt, c.marker, "label=%s", c.label)
		assert.Contains(t, prompt, "a question", "label=%s", c.label)
	}
}

func TestOrchestratorClassificationError(t *testing.T) {
	cm := &scriptedChatModel{replies: []*schema.Message{
		{Role: schema.Assistant, Content: "should never be produced"},
	}}
	llmStub := &scriptedLLM{responses: []string{"joke"}}
	mgr := session.NewManager(session.NewMemoryStore())
	o := newTestOrchestrator(t, cm, llmStub, &stubRetriever{}, &stubSearcher{}, mgr, 5)

	_, sessID, err := o.RunTurn(context.Background(), "", "tell me a joke", "")
	require.Error(t, err)

	var clsErr *ClassificationError
	require.True(t, errors.As(err, &clsErr))
	assert.Equal(t, "joke", clsErr.Raw)

	// 分类失败不进入生成阶段
	assert.Equal(t, 0, cm.generateCount())

	// 用户消息仍然落库
	sess, err := mgr.Get(context.Background(), sessID)
	require.NoError(t, err)
	require.Equal(t, 1, sess.Len())
}

func TestOrchestratorToolRoundsExceeded(t *testing.T) {
	cm := &repeatingChatModel{reply: assistantToolCallMsg(toolCall("call-x", ToolWebSearch, "again"))}
	llmStub := &scriptedLLM{responses: []string{"general-answer"}}
	search := &stubSearcher{results: []websearch.Result{{Content: "partial info"}}}
	mgr := session.NewManager(session.NewMemoryStore())
	o := newTestOrchestrator(t, cm, llmStub, &stubRetriever{}, search, mgr, 2)

	_, _, err := o.RunTurn(context.Background(), "", "never converges", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolRoundsExceeded))

	// 两轮工具往返后第三次生成命中上限
	assert.Equal(t, 3, cm.generateCount())
	assert.Len(t, search.queries, 2)
}

func TestOrchestratorCompactsLongHistory(t *testing.T) {
	cm := &scriptedChatModel{replies: []*schema.Message{
		{Role: schema.Assistant, Content: "short answer"},
	}}
	llmStub := &scriptedLLM{responses: []string{
		"general-answer",
		"Earlier the user asked about several statutes and got sourced answers.",
	}}
	mgr := session.NewManager(session.NewMemoryStore())

	// 预置 10 条历史，本轮用户消息是第 11 条
	sess, err := mgr.GetOrCreate(context.Background(), "sess-long")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		role := session.RoleUser
		if i%2 == 1 {
			role = session.RoleAssistant
		}
		sess.AddMessage(role, fmt.Sprintf("history %d", i))
	}
	require.NoError(t, mgr.Save(context.Background(), sess))

	o := newTestOrchestrator(t, cm, llmStub, &stubRetriever{}, &stubSearcher{}, mgr, 5)
	reply, _, err := o.RunTurn(context.Background(), "sess-long", "one more question", "")
	require.NoError(t, err)
	assert.Equal(t, "short answer", reply)

	stored, err := mgr.Get(context.Background(), "sess-long")
	require.NoError(t, err)
	msgs := stored.CopyMessages()
	require.Len(t, msgs, 4)
	assert.Equal(t, session.RoleSystem, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[0].Content, SummaryPrefix))
	assert.Equal(t, "history 9", msgs[1].Content)
	assert.Equal(t, "one more question", msgs[2].Content)
	assert.Equal(t, session.RoleAssistant, msgs[3].Role)

	// 生成提示词基于压缩后的历史
	require.Equal(t, 1, cm.generateCount())
	prompt := cm.inputs[0][0].Content
	assert.Contains(t, prompt, SummaryPrefix)
	assert.NotContains(t, prompt, "history 0")
}

func TestOrchestratorThreadsCredential(t *testing.T) {
	cm := &scriptedChatModel{replies: []*schema.Message{
		assistantToolCallMsg(toolCall("call-1", ToolWebSearch, "latest guidance")),
		{Role: schema.Assistant, Content: "answer"},
	}}
	llmStub := &scriptedLLM{responses: []string{"general-answer"}}
	search := &stubSearcher{results: []websearch.Result{{Content: "fresh info"}}}
	mgr := session.NewManager(session.NewMemoryStore())
	o := newTestOrchestrator(t, cm, llmStub, &stubRetriever{}, search, mgr, 5)

	_, _, err := o.RunTurn(context.Background(), "", "question", "caller-key")
	require.NoError(t, err)
	require.Equal(t, []string{"caller-key"}, search.creds)
}

func TestOrchestratorSecondTurnSeesHistory(t *testing.T) {
	mgr := session.NewManager(session.NewMemoryStore())

	first := &scriptedChatModel{replies: []*schema.Message{
		{Role: schema.Assistant, Content: "FMLA provides unpaid leave."},
	}}
	o1 := newTestOrchestrator(t, first, &scriptedLLM{responses: []string{"general-answer"}}, &stubRetriever{}, &stubSearcher{}, mgr, 5)
	_, sessID, err := o1.RunTurn(context.Background(), "", "What is FMLA?", "")
	require.NoError(t, err)

	second := &scriptedChatModel{replies: []*schema.Message{
		{Role: schema.Assistant, Content: "It was enacted in 1993."},
	}}
	o2 := newTestOrchestrator(t, second, &scriptedLLM{responses: []string{"general-answer"}}, &stubRetriever{}, &stubSearcher{}, mgr, 5)
	_, _, err = o2.RunTurn(context.Background(), sessID, "When was it enacted?", "")
	require.NoError(t, err)

	require.Equal(t, 1, second.generateCount())
	prompt := second.inputs[0][0].Content
	assert.Contains(t, prompt, "What is FMLA?")
	assert.Contains(t, prompt, "FMLA provides unpaid leave.")
	assert.Contains(t, prompt, "When was it enacted?")

	stored, err := mgr.Get(context.Background(), sessID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Len())
}

func TestOrchestratorDocumentTurn(t *testing.T) {
	cm := &scriptedChatModel{replies: []*schema.Message{
		{Role: schema.Assistant, Content: "The document grants 12 workweeks of leave."},
	}}
	llmStub := &scriptedLLM{}
	mgr := session.NewManager(session.NewMemoryStore())
	o := newTestOrchestrator(t, cm, llmStub, &stubRetriever{}, &stubSearcher{}, mgr, 5)

	docText := "Section 102. Eligible employees are entitled to 12 workweeks of leave."
	reply, sessID, err := o.RunDocumentTurn(context.Background(), "", docText, "How many weeks of leave?", "")
	require.NoError(t, err)
	assert.Contains(t, reply, "12 workweeks")
	require.NotEmpty(t, sessID)

	// 文档轮次不做意图分类
	assert.Equal(t, 0, llmStub.callCount())

	// 提示词走文档模板，且携带文档正文与提问
	require.Equal(t, 1, cm.generateCount())
	prompt := cm.inputs[0][0].Content
	assert.Contains(t, prompt, "analyzes legal or policy documents")
	assert.Contains(t, prompt, "Section 102")
	assert.Contains(t, prompt, "How many weeks of leave?")

	// 会话：文档、提问、回复
	sess, err := mgr.Get(context.Background(), sessID)
	require.NoError(t, err)
	msgs := sess.CopyMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, session.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Section 102")
	assert.Equal(t, session.RoleUser, msgs[1].Role)
	assert.Equal(t, session.RoleAssistant, msgs[2].Role)
}

func TestOrchestratorDocumentTurnContinuation(t *testing.T) {
	first := &scriptedChatModel{replies: []*schema.Message{
		{Role: schema.Assistant, Content: "It covers family leave."},
	}}
	mgr := session.NewManager(session.NewMemoryStore())
	o1 := newTestOrchestrator(t, first, &scriptedLLM{}, &stubRetriever{}, &stubSearcher{}, mgr, 5)

	_, sessID, err := o1.RunDocumentTurn(context.Background(), "", "The act covers family and medical leave.", "What does it cover?", "")
	require.NoError(t, err)

	// 续聊不带文档，历史里仍有文档正文
	second := &scriptedChatModel{replies: []*schema.Message{
		{Role: schema.Assistant, Content: "Employees with 12 months of service."},
	}}
	o2 := newTestOrchestrator(t, second, &scriptedLLM{}, &stubRetriever{}, &stubSearcher{}, mgr, 5)
	_, _, err = o2.RunDocumentTurn(context.Background(), sessID, "", "Who is eligible?", "")
	require.NoError(t, err)

	prompt := second.inputs[0][0].Content
	assert.Contains(t, prompt, "family and medical leave")
	assert.Contains(t, prompt, "Who is eligible?")

	// 新会话必须携带文档
	_, _, err = o2.RunDocumentTurn(context.Background(), "", "", "Who is eligible?", "")
	require.Error(t, err)
}
