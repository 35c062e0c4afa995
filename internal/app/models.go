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

package app

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/jackc/pgx/v5/pgxpool"

	"policy-navigator/internal/ingestqueue"
	"policy-navigator/internal/model/embedding"
	"policy-navigator/internal/model/llm"
	"policy-navigator/internal/runtime/session"
	"policy-navigator/pkg/config"
)

// resolveProvider 返回 defaults 指定的 provider 配置与首个模型名
func resolveProvider(providers map[string]config.ProviderConfig, name string) (config.ProviderConfig, string, error) {
	pc, ok := providers[name]
	if !ok {
		return config.ProviderConfig{}, "", fmt.Errorf("app: 未配置 provider %q", name)
	}
	for _, info := range pc.Models {
		return pc, info.Name, nil
	}
	return pc, "", nil
}

// NewLLMClientFromConfig 按 defaults.llm 创建分类/摘要用的 LLM 客户端，
// 并套上 provider 维度的限流
func NewLLMClientFromConfig(cfg *config.Config) (llm.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: 配置为空")
	}
	providerName := cfg.Model.Defaults.LLM
	pc, modelName, err := resolveProvider(cfg.Model.LLM.Providers, providerName)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(providerName, modelName, pc.APIKey, pc.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("app: 创建 LLM 客户端failed: %w", err)
	}

	limits := make(map[string]llm.LLMLimitConfig, len(cfg.RateLimits.LLM))
	for name, rl := range cfg.RateLimits.LLM {
		limits[name] = llm.LLMLimitConfig{
			TokensPerMinute:   rl.TokensPerMinute,
			RequestsPerMinute: rl.RequestsPerMinute,
			MaxConcurrent:     rl.MaxConcurrent,
		}
	}
	limiter := llm.NewLLMRateLimiter(limits, nil)
	return llm.NewRateLimitedClient(client, limiter), nil
}

// NewChatModelFromConfig 创建生成用的工具调用模型（eino-ext OpenAI 兼容实现），
// 返回模型实例与模型名
func NewChatModelFromConfig(ctx context.Context, cfg *config.Config) (einomodel.ToolCallingChatModel, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("app: 配置为空")
	}
	providerName := cfg.Model.Defaults.LLM
	pc, modelName, err := resolveProvider(cfg.Model.LLM.Providers, providerName)
	if err != nil {
		return nil, "", err
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	mcfg := &einoopenai.ChatModelConfig{
		Model:  modelName,
		APIKey: pc.APIKey,
	}
	if pc.BaseURL != "" {
		mcfg.BaseURL = pc.BaseURL
	}
	cm, err := einoopenai.NewChatModel(ctx, mcfg)
	if err != nil {
		return nil, "", fmt.Errorf("app: 创建对话模型failed: %w", err)
	}
	return cm, modelName, nil
}

// NewEmbedderFromConfig 按 defaults.embedding 创建向量化客户端
func NewEmbedderFromConfig(cfg *config.Config) (*embedding.OpenAIEmbedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: 配置为空")
	}
	providerName := cfg.Model.Defaults.Embedding
	pc, ok := cfg.Model.Embedding.Providers[providerName]
	if !ok {
		return nil, fmt.Errorf("app: 未配置 embedding provider %q", providerName)
	}
	modelName := ""
	dimension := 0
	for _, info := range pc.Models {
		modelName = info.Name
		dimension = info.Dimension
		break
	}
	return embedding.NewOpenAIEmbedder(modelName, pc.APIKey, pc.BaseURL, dimension)
}

// NewSessionManagerFromConfig 按 session.type 创建会话管理器，
// 返回的 cleanup 在进程退出时调用
func NewSessionManagerFromConfig(ctx context.Context, cfg *config.Config) (session.SessionManager, func(), error) {
	noop := func() {}
	if cfg == nil || cfg.Session.Type == "" || cfg.Session.Type == "memory" {
		return session.NewManager(session.NewMemoryStore()), noop, nil
	}
	if cfg.Session.Type != "postgres" {
		return nil, nil, fmt.Errorf("app: 不支持的会话存储类型 %q", cfg.Session.Type)
	}
	if cfg.Session.DSN == "" {
		return nil, nil, fmt.Errorf("app: session.type=postgres 需要 dsn")
	}

	store, err := session.NewPostgresStore(ctx, cfg.Session.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("app: 初始化会话存储failed: %w", err)
	}
	cleanup := noop
	if closer, ok := store.(interface{ Close() }); ok {
		cleanup = closer.Close
	}
	return session.NewManager(store), cleanup, nil
}

// NewIngestQueueFromConfig 按 storage.queue 创建入库队列，
// 返回的 cleanup 在进程退出时调用
func NewIngestQueueFromConfig(ctx context.Context, cfg *config.Config) (ingestqueue.Queue, func(), error) {
	noop := func() {}
	qc := cfg.Storage.Queue
	switch qc.Type {
	case "", "memory":
		return ingestqueue.NewMemoryQueue(), noop, nil
	case "postgres":
		if qc.DSN == "" {
			return nil, nil, fmt.Errorf("app: queue.type=postgres 需要 dsn")
		}
		pool, err := pgxpool.New(ctx, qc.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("app: 初始化入库队列failed: %w", err)
		}
		return ingestqueue.NewPgQueue(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("app: 不支持的队列类型 %q", qc.Type)
	}
}
