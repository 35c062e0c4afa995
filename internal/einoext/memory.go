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

package einoext

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	einoembed "github.com/cloudwego/eino/components/embedding"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// MemoryVectorStore 进程内向量存储，同时实现 Eino 的 Indexer 与 Retriever。
// 仅用于开发和测试，数据不落盘，进程退出即丢失。
type MemoryVectorStore struct {
	embedder einoembed.Embedder
	topK     int

	mu   sync.RWMutex
	docs map[string]*memoryEntry
}

type memoryEntry struct {
	doc    *schema.Document
	vector []float64
}

// NewMemoryVectorStore 创建内存向量存储，topK<=0 使用默认 5
func NewMemoryVectorStore(embedder einoembed.Embedder, topK int) (*MemoryVectorStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("memory vector store: 缺少 embedder")
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	return &MemoryVectorStore{
		embedder: embedder,
		topK:     topK,
		docs:     make(map[string]*memoryEntry),
	}, nil
}

// Store 向量化并写入文档，返回写入的文档 ID
func (s *MemoryVectorStore) Store(ctx context.Context, docs []*schema.Document, _ ...einoindexer.Option) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Content)
	}
	vectors, err := s.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("memory vector store: 向量化failed: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("memory vector store: 向量数 %d 与文档数 %d 不一致", len(vectors), len(docs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(docs))
	for i, doc := range docs {
		s.docs[doc.ID] = &memoryEntry{doc: doc, vector: vectors[i]}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// Retrieve 按余弦相似度检索 topK 条文档
func (s *MemoryVectorStore) Retrieve(ctx context.Context, query string, _ ...einoretriever.Option) ([]*schema.Document, error) {
	vectors, err := s.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("memory vector store: 查询向量化failed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("memory vector store: 查询向量数异常 %d", len(vectors))
	}
	qv := vectors[0]

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   *schema.Document
		score float64
	}
	results := make([]scored, 0, len(s.docs))
	for _, entry := range s.docs {
		results = append(results, scored{doc: entry.doc, score: cosineSimilarity(qv, entry.vector)})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > s.topK {
		results = results[:s.topK]
	}

	out := make([]*schema.Document, 0, len(results))
	for _, r := range results {
		doc := *r.doc
		out = append(out, doc.WithScore(r.score))
	}
	return out, nil
}

// Len 当前文档数，测试用
func (s *MemoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	dot := 0.0
	normA := 0.0
	normB := 0.0
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
