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

// Package agent 实现政策问答的单轮对话编排：
// 意图分类 -> 历史压缩 -> 带工具往返的生成 -> 回复落库。
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"policy-navigator/internal/model/llm"
	"policy-navigator/internal/runtime/session"
	"policy-navigator/internal/websearch"
	"policy-navigator/pkg/auth"
	"policy-navigator/pkg/config"
	"policy-navigator/pkg/log"
	"policy-navigator/pkg/metrics"
	"policy-navigator/pkg/tracing"
)

const (
	nodeClassify  = "classify"
	nodeSummarize = "summarize"
	nodeGenerate  = "generate"
	nodeTools     = "tools"

	defaultMaxToolRounds = 5
)

// Deps 编排器的外部依赖，全部由调用方注入，便于测试替换
type Deps struct {
	// ChatModel 带工具调用能力的生成模型
	ChatModel model.ToolCallingChatModel
	// ModelName 生成模型名，仅用于日志和追踪
	ModelName string
	// LLM 分类与摘要使用的轻量客户端
	LLM llm.Client
	// Retriever 本地向量库检索
	Retriever einoretriever.Retriever
	// Searcher 联网搜索
	Searcher websearch.Searcher
	// Sessions 会话存取
	Sessions session.SessionManager
	Logger   *log.Logger
}

// TurnState 单轮对话在编排图中流转的状态
type TurnState struct {
	SessionID string
	Query     string
	Intent    Intent
	Reply     string

	sess       *session.Session
	transcript []*schema.Message
	pending    []schema.ToolCall
	rounds     int
}

// Orchestrator 单轮对话编排器。对同一会话的并发调用由会话锁串行化。
type Orchestrator struct {
	classifier *Classifier
	summarizer *Summarizer
	generator  *Generator
	tools      *ToolRunner
	sessions   session.SessionManager
	logger     *log.Logger

	maxRounds int
	runner    compose.Runnable[*TurnState, *TurnState]
}

// NewOrchestrator 按配置构建编排图并编译。依赖缺失或模板表不完整时报错。
func NewOrchestrator(cfg config.AgentConfig, deps Deps) (*Orchestrator, error) {
	if deps.ChatModel == nil || deps.LLM == nil {
		return nil, fmt.Errorf("agent: 缺少模型依赖")
	}
	if deps.Retriever == nil || deps.Searcher == nil {
		return nil, fmt.Errorf("agent: 缺少工具依赖")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("agent: 缺少会话存储")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}

	generator, err := NewGenerator(deps.ChatModel, deps.ModelName, parseDuration(cfg.GenerateTimeout), logger)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		classifier: NewClassifier(deps.LLM, parseDuration(cfg.ClassifyTimeout), logger),
		summarizer: NewSummarizer(deps.LLM, cfg.HistoryTrigger, cfg.KeepRecent, parseDuration(cfg.SummarizeTimeout), logger),
		generator:  generator,
		tools:      NewToolRunner(deps.Retriever, deps.Searcher, parseDuration(cfg.ToolTimeout), logger),
		sessions:   deps.Sessions,
		logger:     logger,
		maxRounds:  maxRounds,
	}

	runner, err := o.compile(context.Background())
	if err != nil {
		return nil, err
	}
	o.runner = runner
	return o, nil
}

// compile 组装 classify -> summarize -> generate (-> tools -> generate) 的编排图
func (o *Orchestrator) compile(ctx context.Context) (compose.Runnable[*TurnState, *TurnState], error) {
	g := compose.NewGraph[*TurnState, *TurnState]()

	if err := g.AddLambdaNode(nodeClassify, compose.InvokableLambda(o.classifyNode)); err != nil {
		return nil, fmt.Errorf("agent: 添加节点 %s 失败: %w", nodeClassify, err)
	}
	if err := g.AddLambdaNode(nodeSummarize, compose.InvokableLambda(o.summarizeNode)); err != nil {
		return nil, fmt.Errorf("agent: 添加节点 %s 失败: %w", nodeSummarize, err)
	}
	if err := g.AddLambdaNode(nodeGenerate, compose.InvokableLambda(o.generateNode)); err != nil {
		return nil, fmt.Errorf("agent: 添加节点 %s 失败: %w", nodeGenerate, err)
	}
	if err := g.AddLambdaNode(nodeTools, compose.InvokableLambda(o.toolsNode)); err != nil {
		return nil, fmt.Errorf("agent: 添加节点 %s 失败: %w", nodeTools, err)
	}

	if err := g.AddEdge(compose.START, nodeClassify); err != nil {
		return nil, fmt.Errorf("agent: 连接 START 失败: %w", err)
	}
	if err := g.AddEdge(nodeClassify, nodeSummarize); err != nil {
		return nil, fmt.Errorf("agent: 连接 classify->summarize 失败: %w", err)
	}
	if err := g.AddEdge(nodeSummarize, nodeGenerate); err != nil {
		return nil, fmt.Errorf("agent: 连接 summarize->generate 失败: %w", err)
	}

	branch := compose.NewGraphBranch(o.route, map[string]bool{
		nodeTools:   true,
		compose.END: true,
	})
	if err := g.AddBranch(nodeGenerate, branch); err != nil {
		return nil, fmt.Errorf("agent: 添加生成分支失败: %w", err)
	}
	if err := g.AddEdge(nodeTools, nodeGenerate); err != nil {
		return nil, fmt.Errorf("agent: 连接 tools->generate 失败: %w", err)
	}

	// classify + summarize + 每轮工具往返两步，留少量余量
	runnable, err := g.Compile(ctx, compose.WithMaxRunSteps(4+2*o.maxRounds))
	if err != nil {
		return nil, fmt.Errorf("agent: 编排图编译失败: %w", err)
	}
	return runnable, nil
}

func (o *Orchestrator) classifyNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	intent, err := o.classifier.Classify(ctx, st.Query)
	if err != nil {
		return nil, err
	}
	st.Intent = intent
	return st, nil
}

func (o *Orchestrator) summarizeNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	if err := o.summarizer.MaybeCompact(ctx, st.sess); err != nil {
		return nil, err
	}
	prompt, err := o.generator.Prompt(st.Intent, renderHistory(st.sess.CopyMessages()))
	if err != nil {
		return nil, err
	}
	st.transcript = []*schema.Message{schema.UserMessage(prompt)}
	return st, nil
}

func (o *Orchestrator) generateNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	msg, err := o.generator.Generate(ctx, st.transcript)
	if err != nil {
		return nil, err
	}
	st.transcript = append(st.transcript, msg)

	if len(msg.ToolCalls) == 0 {
		st.Reply = msg.Content
		st.pending = nil
		return st, nil
	}
	if st.rounds >= o.maxRounds {
		return nil, ErrToolRoundsExceeded
	}
	st.pending = msg.ToolCalls
	return st, nil
}

func (o *Orchestrator) toolsNode(ctx context.Context, st *TurnState) (*TurnState, error) {
	results := o.tools.Execute(ctx, st.pending)
	for _, res := range results {
		st.transcript = append(st.transcript, res)
		st.sess.AddToolMessage(res.ToolCallID, res.ToolName, res.Content)
	}
	st.rounds++
	st.pending = nil
	return st, nil
}

func (o *Orchestrator) route(ctx context.Context, st *TurnState) (string, error) {
	if len(st.pending) > 0 {
		return nodeTools, nil
	}
	return compose.END, nil
}

// RunTurn 执行一轮对话：取会话并加锁，追加用户消息，跑编排图，
// 最后把回复落库。返回回复文本与会话 ID（新会话时由这里生成）。
func (o *Orchestrator) RunTurn(ctx context.Context, sessionID, query, credential string) (string, string, error) {
	if strings.TrimSpace(query) == "" {
		return "", sessionID, fmt.Errorf("agent: 问题不能为空")
	}

	sess, err := o.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return "", sessionID, fmt.Errorf("agent: 获取会话失败: %w", err)
	}
	unlock := o.sessions.Lock(sess.ID)
	defer unlock()

	ctx = auth.WithSessionID(ctx, sess.ID)
	ctx = auth.WithCredential(ctx, credential)
	ctx, span := tracing.StartTurnSpan(ctx, sess.ID, "")
	defer span.End()

	start := time.Now()
	sess.AddMessage(session.RoleUser, query)

	st := &TurnState{SessionID: sess.ID, Query: query, sess: sess}
	out, err := o.runner.Invoke(ctx, st)
	if err != nil {
		metrics.TurnTotal.WithLabelValues("failed").Inc()
		// 用户消息已追加，失败也尽量落库，便于下一轮带上上下文
		if saveErr := o.sessions.Save(ctx, sess); saveErr != nil {
			o.logger.Error("失败轮次落库失败", "session_id", sess.ID, "error", saveErr)
		}
		return "", sess.ID, err
	}

	sess.AddMessage(session.RoleAssistant, out.Reply)
	if err := o.sessions.Save(ctx, sess); err != nil {
		metrics.TurnTotal.WithLabelValues("failed").Inc()
		return "", sess.ID, fmt.Errorf("agent: 会话落库失败: %w", err)
	}

	metrics.TurnDuration.WithLabelValues(string(out.Intent)).Observe(time.Since(start).Seconds())
	metrics.TurnTotal.WithLabelValues("completed").Inc()
	o.logger.Info("对话轮次完成",
		"session_id", sess.ID,
		"intent", out.Intent,
		"tool_rounds", out.rounds,
	)
	return out.Reply, sess.ID, nil
}

// RunDocumentTurn 执行一轮文档对话：docText 非空时把抽取的正文追加进会话，
// 回答只依据文档内容。文档轮次不经过意图分类，也不做历史压缩，
// 压缩会把文档正文摘要掉。
func (o *Orchestrator) RunDocumentTurn(ctx context.Context, sessionID, docText, query, credential string) (string, string, error) {
	if strings.TrimSpace(query) == "" {
		return "", sessionID, fmt.Errorf("agent: 问题不能为空")
	}

	sess, err := o.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return "", sessionID, fmt.Errorf("agent: 获取会话失败: %w", err)
	}
	unlock := o.sessions.Lock(sess.ID)
	defer unlock()

	if strings.TrimSpace(docText) != "" {
		sess.AddMessage(session.RoleSystem, "DOCUMENT:\n"+docText)
	} else if len(sess.CopyMessages()) == 0 {
		return "", sess.ID, fmt.Errorf("agent: 文档对话缺少文档内容")
	}

	ctx = auth.WithSessionID(ctx, sess.ID)
	ctx = auth.WithCredential(ctx, credential)
	ctx, span := tracing.StartTurnSpan(ctx, sess.ID, "document")
	defer span.End()

	start := time.Now()
	sess.AddMessage(session.RoleUser, query)

	reply, rounds, err := o.runDocumentLoop(ctx, sess)
	if err != nil {
		metrics.TurnTotal.WithLabelValues("failed").Inc()
		if saveErr := o.sessions.Save(ctx, sess); saveErr != nil {
			o.logger.Error("失败轮次落库失败", "session_id", sess.ID, "error", saveErr)
		}
		return "", sess.ID, err
	}

	sess.AddMessage(session.RoleAssistant, reply)
	if err := o.sessions.Save(ctx, sess); err != nil {
		metrics.TurnTotal.WithLabelValues("failed").Inc()
		return "", sess.ID, fmt.Errorf("agent: 会话落库失败: %w", err)
	}

	metrics.TurnDuration.WithLabelValues("document").Observe(time.Since(start).Seconds())
	metrics.TurnTotal.WithLabelValues("completed").Inc()
	o.logger.Info("文档对话轮次完成", "session_id", sess.ID, "tool_rounds", rounds)
	return reply, sess.ID, nil
}

// runDocumentLoop 文档模式的生成与工具往返，与编排图的 generate/tools 节点同一套语义
func (o *Orchestrator) runDocumentLoop(ctx context.Context, sess *session.Session) (string, int, error) {
	prompt := renderDocumentPrompt(renderHistory(sess.CopyMessages()))
	transcript := []*schema.Message{schema.UserMessage(prompt)}

	rounds := 0
	for {
		msg, err := o.generator.Generate(ctx, transcript)
		if err != nil {
			return "", rounds, err
		}
		transcript = append(transcript, msg)

		if len(msg.ToolCalls) == 0 {
			return msg.Content, rounds, nil
		}
		if rounds >= o.maxRounds {
			return "", rounds, ErrToolRoundsExceeded
		}
		for _, res := range o.tools.Execute(ctx, msg.ToolCalls) {
			transcript = append(transcript, res)
			sess.AddToolMessage(res.ToolCallID, res.ToolName, res.Content)
		}
		rounds++
	}
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
