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

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	einoembed "github.com/cloudwego/eino/components/embedding"
	"github.com/go-resty/resty/v2"
)

// OpenAIEmbedder OpenAI 兼容 Embedding 客户端，实现 eino/components/embedding.Embedder
type OpenAIEmbedder struct {
	model     string
	apiKey    string
	baseURL   string
	dimension int
	client    *resty.Client
}

var _ einoembed.Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder 创建 Embedding 客户端；baseURL 为空时用默认或 OPENAI_BASE_URL
func NewOpenAIEmbedder(model, apiKey, baseURL string, dimension int) (*OpenAIEmbedder, error) {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimension <= 0 {
		dimension = 1536
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
		if envURL := os.Getenv("OPENAI_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetRetryMaxWaitTime(5 * time.Second)

	return &OpenAIEmbedder{
		model:     model,
		apiKey:    apiKey,
		baseURL:   baseURL,
		dimension: dimension,
		client:    client,
	}, nil
}

// Model 返回模型名称
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Dimension 返回向量维度
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// EmbedStrings 实现 eino/components/embedding.Embedder，返回与 texts 一一对应的向量
func (e *OpenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]interface{}{
		"model": e.model,
		"input": texts,
	}

	response, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+e.apiKey).
		SetBody(request).
		Post(e.baseURL + "/embeddings")

	if err != nil {
		return nil, fmt.Errorf("调用 Embedding API failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("Embedding API 返回错误: %s", response.String())
	}

	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 Embedding 响应failed: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("Embedding 返回数量不匹配: got %d, want %d", len(result.Data), len(texts))
	}

	// 按 index 归位，接口不保证返回顺序
	out := make([][]float64, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("Embedding 返回非法 index: %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
