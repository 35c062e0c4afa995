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

// Package query 面向 API 的向量库检索服务
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	einoretriever "github.com/cloudwego/eino/components/retriever"

	"policy-navigator/internal/pipeline/ingest"
	"policy-navigator/internal/storage/cache"
	"policy-navigator/pkg/log"
	"policy-navigator/pkg/metrics"
)

const defaultCacheTTL = 5 * time.Minute

// Hit 单条检索命中
type Hit struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source,omitempty"`
}

// Service 向量库检索服务，供文档检索 API 使用
type Service struct {
	retriever einoretriever.Retriever
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *log.Logger
}

// NewService 创建检索服务
func NewService(ret einoretriever.Retriever, logger *log.Logger) (*Service, error) {
	if ret == nil {
		return nil, fmt.Errorf("query: retriever 不能为空")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{retriever: ret, logger: logger}, nil
}

// SetCache 启用查询结果缓存，ttl<=0 使用默认 5 分钟
func (s *Service) SetCache(c cache.Store, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	s.cache = c
	s.cacheTTL = ttl
}

// Search 按相似度检索政策文档切片
func (s *Service) Search(ctx context.Context, q string) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("query: 检索词不能为空")
	}

	if s.cache != nil {
		var cached []Hit
		if err := s.cache.Get(ctx, q, &cached); err == nil {
			return cached, nil
		}
	}

	start := time.Now()
	docs, err := s.retriever.Retrieve(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query: 检索failed: %w", err)
	}
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())

	hits := make([]Hit, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		hit := Hit{
			ID:      doc.ID,
			Content: doc.Content,
			Score:   doc.Score(),
		}
		if src, ok := doc.MetaData[ingest.MetaSource].(string); ok {
			hit.Source = src
		}
		hits = append(hits, hit)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, q, hits, s.cacheTTL); err != nil {
			s.logger.Warn("写入检索缓存失败", "error", err)
		}
	}
	return hits, nil
}
