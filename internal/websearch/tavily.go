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

// Package websearch 提供联网搜索客户端（Tavily 兼容接口）
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"policy-navigator/pkg/auth"
)

// Result 单条搜索结果
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher 联网搜索接口，便于测试替换
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// TavilyClient Tavily 搜索客户端
type TavilyClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	client     *resty.Client
}

var _ Searcher = (*TavilyClient)(nil)

// Config Tavily 客户端配置
type Config struct {
	APIKey     string
	BaseURL    string        // 空则用官方端点
	MaxResults int           // <=0 使用默认 3
	Timeout    time.Duration // <=0 使用默认 10s
}

// NewTavilyClient 创建 Tavily 客户端
func NewTavilyClient(cfg Config) (*TavilyClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tavily api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)

	return &TavilyClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		maxResults: maxResults,
		client:     client,
	}, nil
}

// Search 执行搜索，返回至多 maxResults 条结果。
// context 中携带 per-request 凭证时用它覆盖配置的 api key。
func (c *TavilyClient) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}

	apiKey := c.apiKey
	if cred := auth.GetCredential(ctx); cred != "" {
		apiKey = cred
	}

	request := map[string]interface{}{
		"api_key":     apiKey,
		"query":       query,
		"max_results": c.maxResults,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post(c.baseURL + "/search")

	if err != nil {
		return nil, fmt.Errorf("调用搜索 API failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("搜索 API 返回错误: %s", response.String())
	}

	var result struct {
		Results []Result `json:"results"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析搜索响应failed: %w", err)
	}

	if len(result.Results) > c.maxResults {
		result.Results = result.Results[:c.maxResults]
	}
	return result.Results, nil
}

// FormatResults 将搜索结果格式化为供 LLM 使用的纯文本
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var buf strings.Builder
	for i, r := range results {
		if i > 0 {
			buf.WriteString("\n\n")
		}
		if r.Title != "" {
			buf.WriteString(r.Title)
			buf.WriteString("\n")
		}
		if r.URL != "" {
			buf.WriteString(r.URL)
			buf.WriteString("\n")
		}
		buf.WriteString(r.Content)
	}
	return buf.String()
}
