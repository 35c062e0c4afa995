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
	"sync"

	redisindexer "github.com/cloudwego/eino-ext/components/indexer/redis"
	redisretriever "github.com/cloudwego/eino-ext/components/retriever/redis"
	einoembed "github.com/cloudwego/eino/components/embedding"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/redis/go-redis/v9"

	"policy-navigator/pkg/config"
)

const (
	defaultBatchSize = 100
	defaultTopK      = 5
	defaultIndex     = "policy_docs"
	defaultKeyPrefix = "polnav:doc:"
)

// memory 类型的存储按索引名共享一个实例，indexer 与 retriever 才能看到同一份数据
var (
	memoryStoresMu sync.Mutex
	memoryStores   = make(map[string]*MemoryVectorStore)
)

func memoryStoreFor(cfg config.VectorConfig, embedder einoembed.Embedder) (*MemoryVectorStore, error) {
	name := cfg.Index
	if name == "" {
		name = defaultIndex
	}
	memoryStoresMu.Lock()
	defer memoryStoresMu.Unlock()
	if s, ok := memoryStores[name]; ok {
		return s, nil
	}
	s, err := NewMemoryVectorStore(embedder, cfg.TopK)
	if err != nil {
		return nil, err
	}
	memoryStores[name] = s
	return s, nil
}

// NewIndexer 根据 VectorConfig 创建 Eino Indexer（redis 用 eino-ext 组件，memory 用进程内实现）
func NewIndexer(ctx context.Context, cfg config.VectorConfig, embedder einoembed.Embedder) (einoindexer.Indexer, error) {
	t := cfg.Type
	if t == "" {
		t = "redis"
	}
	if t == "memory" {
		return memoryStoreFor(cfg, embedder)
	}
	if t != "redis" {
		return nil, fmt.Errorf("unsupported vector type: %s", t)
	}

	opts, err := RedisOptionsFromVectorConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("redis options: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	idx, err := redisindexer.NewIndexer(ctx, &redisindexer.IndexerConfig{
		Client:    client,
		KeyPrefix: keyPrefix,
		BatchSize: defaultBatchSize,
		Embedding: embedder,
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis indexer: %w", err)
	}
	return idx, nil
}

// NewRetriever 根据 VectorConfig 创建 Eino Retriever（redis 用 eino-ext 组件，memory 用进程内实现）
func NewRetriever(ctx context.Context, cfg config.VectorConfig, embedder einoembed.Embedder) (einoretriever.Retriever, error) {
	t := cfg.Type
	if t == "" {
		t = "redis"
	}
	if t == "memory" {
		return memoryStoreFor(cfg, embedder)
	}
	if t != "redis" {
		return nil, fmt.Errorf("unsupported vector type: %s", t)
	}

	opts, err := RedisOptionsFromVectorConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("redis options: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	indexName := cfg.Index
	if indexName == "" {
		indexName = defaultIndex
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	ret, err := redisretriever.NewRetriever(ctx, &redisretriever.RetrieverConfig{
		Client:    client,
		Index:     indexName,
		TopK:      topK,
		Embedding: embedder,
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis retriever: %w", err)
	}
	return ret, nil
}
