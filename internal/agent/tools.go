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
	"encoding/json"
	"strings"
	"time"

	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"policy-navigator/internal/websearch"
	"policy-navigator/pkg/log"
	"policy-navigator/pkg/metrics"
	"policy-navigator/pkg/tracing"
)

const (
	// ToolContextRetriever 本地向量库检索工具名
	ToolContextRetriever = "context_retriever"
	// ToolWebSearch 联网搜索工具名
	ToolWebSearch = "web_search"

	// NoResultsMarker 工具失败或无结果时写回对话的占位文本
	NoResultsMarker = "no results"

	defaultToolTimeout = 10 * time.Second
)

// toolInfos 返回绑定到生成模型上的工具描述
func toolInfos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolContextRetriever,
			Desc: "Searches a curated local vector database of U.S. legal and policy documents. Use this tool first.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Key legal concepts, statutes or regulations to look up",
					Required: true,
				},
			}),
		},
		{
			Name: ToolWebSearch,
			Desc: "Searches the public internet for authoritative sources. Use this only when the local context is insufficient.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Search query, prefer official .gov sources and CFR/USC sections",
					Required: true,
				},
			}),
		},
	}
}

type toolArgs struct {
	Query string `json:"query"`
}

// ToolRunner 顺序执行模型请求的工具调用。
// 结果顺序与请求顺序一致；单个工具失败不会中断本轮，
// 对应位置写入 NoResultsMarker 占位结果。
type ToolRunner struct {
	retriever einoretriever.Retriever
	searcher  websearch.Searcher
	timeout   time.Duration
	logger    *log.Logger
}

// NewToolRunner 创建工具执行器，timeout<=0 使用默认 10s
func NewToolRunner(ret einoretriever.Retriever, searcher websearch.Searcher, timeout time.Duration, logger *log.Logger) *ToolRunner {
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	return &ToolRunner{retriever: ret, searcher: searcher, timeout: timeout, logger: logger}
}

// Execute 按请求顺序执行全部工具调用，返回对应顺序的 tool 消息
func (r *ToolRunner) Execute(ctx context.Context, calls []schema.ToolCall) []*schema.Message {
	results := make([]*schema.Message, 0, len(calls))
	for _, call := range calls {
		content := r.runOne(ctx, call)
		results = append(results, &schema.Message{
			Role:       schema.Tool,
			Content:    content,
			ToolCallID: call.ID,
			ToolName:   call.Function.Name,
		})
	}
	return results
}

func (r *ToolRunner) runOne(ctx context.Context, call schema.ToolCall) string {
	name := call.Function.Name
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx, span := tracing.StartToolSpan(ctx, name, call.ID)
	defer span.End()

	var args toolArgs
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || strings.TrimSpace(args.Query) == "" {
		r.logger.Warn("工具参数解析失败", "tool", name, "args", call.Function.Arguments)
		metrics.ToolFailTotal.WithLabelValues(name).Inc()
		return NoResultsMarker
	}

	var (
		content string
		err     error
	)
	switch name {
	case ToolContextRetriever:
		content, err = r.retrieve(ctx, args.Query)
	case ToolWebSearch:
		content, err = r.search(ctx, args.Query)
	default:
		r.logger.Warn("模型请求了未知工具", "tool", name)
		metrics.ToolFailTotal.WithLabelValues(name).Inc()
		return NoResultsMarker
	}

	metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		r.logger.Warn("工具调用失败", "tool", name, "query", args.Query, "error", err)
		metrics.ToolFailTotal.WithLabelValues(name).Inc()
		return NoResultsMarker
	}
	if strings.TrimSpace(content) == "" {
		return NoResultsMarker
	}
	return content
}

func (r *ToolRunner) retrieve(ctx context.Context, query string) (string, error) {
	start := time.Now()
	docs, err := r.retriever.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())

	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(doc.Content)
	}
	return b.String(), nil
}

func (r *ToolRunner) search(ctx context.Context, query string) (string, error) {
	results, err := r.searcher.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return websearch.FormatResults(results), nil
}
