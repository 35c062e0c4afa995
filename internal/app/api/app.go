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

// Package api 装配 API 进程：模型、检索、会话、编排器与 HTTP 服务
package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"policy-navigator/internal/agent"
	"policy-navigator/internal/api/http"
	"policy-navigator/internal/api/http/middleware"
	"policy-navigator/internal/app"
	"policy-navigator/internal/einoext"
	"policy-navigator/internal/ingestqueue"
	"policy-navigator/internal/pipeline/ingest"
	"policy-navigator/internal/pipeline/query"
	"policy-navigator/internal/storage/archive"
	"policy-navigator/internal/storage/cache"
	"policy-navigator/internal/storage/catalog"
	"policy-navigator/internal/websearch"
)

// otelProviderShutdown 优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用
type App struct {
	bootstrap      *app.Bootstrap
	router         *http.Router
	hertz          *server.Hertz
	otelProvider   otelProviderShutdown
	sessionCleanup func()
	queueCleanup   func()
	worker         *ingestqueue.Worker
	workerCancel   context.CancelFunc
}

// NewApp 装配 API 应用（由 cmd/api 调用）
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	if bootstrap == nil || bootstrap.Config == nil {
		return nil, fmt.Errorf("api: 缺少配置")
	}
	cfg := bootstrap.Config
	logger := bootstrap.Logger
	ctx := context.Background()

	if err := bootstrap.ResolveModelSecrets(ctx); err != nil {
		return nil, err
	}

	llmClient, err := app.NewLLMClientFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	chatModel, modelName, err := app.NewChatModelFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := app.NewEmbedderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	retriever, err := einoext.NewRetriever(ctx, cfg.Storage.Vector, embedder)
	if err != nil {
		return nil, fmt.Errorf("api: 初始化检索器failed: %w", err)
	}
	indexer, err := einoext.NewIndexer(ctx, cfg.Storage.Vector, embedder)
	if err != nil {
		return nil, fmt.Errorf("api: 初始化索引器failed: %w", err)
	}

	searchKey, err := bootstrap.ResolveSecret(ctx, cfg.WebSearch.APIKey)
	if err != nil {
		return nil, err
	}
	searcher, err := websearch.NewTavilyClient(websearch.Config{
		APIKey:     searchKey,
		BaseURL:    cfg.WebSearch.BaseURL,
		MaxResults: cfg.WebSearch.MaxResults,
		Timeout:    parseDuration(cfg.WebSearch.Timeout, 10*time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("api: 初始化搜索客户端failed: %w", err)
	}

	sessions, sessionCleanup, err := app.NewSessionManagerFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	orchestrator, err := agent.NewOrchestrator(cfg.Agent, agent.Deps{
		ChatModel: chatModel,
		ModelName: modelName,
		LLM:       llmClient,
		Retriever: retriever,
		Searcher:  searcher,
		Sessions:  sessions,
		Logger:    logger,
	})
	if err != nil {
		sessionCleanup()
		return nil, err
	}

	ingestion, err := ingest.NewPipeline(indexer, ingest.Config{
		ChunkSize:    cfg.Storage.Ingest.ChunkSize,
		ChunkOverlap: cfg.Storage.Ingest.ChunkOverlap,
		BatchSize:    cfg.Storage.Ingest.BatchSize,
	}, logger)
	if err != nil {
		sessionCleanup()
		return nil, err
	}
	searchSvc, err := query.NewService(retriever, logger)
	if err != nil {
		sessionCleanup()
		return nil, err
	}
	if cfg.Storage.Cache.Enable {
		queryCache, err := cache.NewCache(cfg.Storage.Cache.Type)
		if err != nil {
			sessionCleanup()
			return nil, err
		}
		searchSvc.SetCache(queryCache, parseDuration(cfg.Storage.Cache.TTL, 5*time.Minute))
	}

	handler := http.NewHandler(orchestrator, ingestion, searchSvc, logger)
	if cfg.Storage.Archive.Type != "" {
		docArchive, err := archive.NewStore(cfg.Storage.Archive.Type, cfg.Storage.Archive.Dir)
		if err != nil {
			sessionCleanup()
			return nil, err
		}
		handler.SetArchive(docArchive)
	}
	if cfg.Storage.Catalog.Enable {
		docCatalog, err := catalog.NewStore(cfg.Storage.Catalog.Type)
		if err != nil {
			sessionCleanup()
			return nil, err
		}
		ingestion.SetCatalog(docCatalog)
		handler.SetCatalog(docCatalog)
	}

	a := &App{
		bootstrap:      bootstrap,
		sessionCleanup: sessionCleanup,
	}

	if cfg.Storage.Queue.Enable {
		queue, queueCleanup, err := app.NewIngestQueueFromConfig(ctx, cfg)
		if err != nil {
			sessionCleanup()
			return nil, err
		}
		handler.SetQueue(queue)
		a.queueCleanup = queueCleanup

		// memory 队列没有独立 Worker 进程，随 API 进程内消费
		if cfg.Storage.Queue.Type == "" || cfg.Storage.Queue.Type == "memory" {
			worker, err := ingestqueue.NewWorker(queue, ingestion,
				parseDuration(cfg.Storage.Queue.PollInterval, 2*time.Second), logger)
			if err != nil {
				sessionCleanup()
				queueCleanup()
				return nil, err
			}
			a.worker = worker
		}
	}
	router := http.NewRouter(handler, middleware.NewMiddleware(logger))

	if cfg.API.Middleware.Auth && cfg.API.Middleware.JWTKey != "" {
		accessKey, err := bootstrap.ResolveSecret(ctx, "secret://api_access_key")
		if err != nil || accessKey == "" {
			accessKey = os.Getenv("API_ACCESS_KEY")
		}
		jwtAuth, err := middleware.NewJWTAuth(
			[]byte(cfg.API.Middleware.JWTKey),
			accessKey,
			parseDuration(cfg.API.Middleware.JWTTimeout, time.Hour),
			parseDuration(cfg.API.Middleware.JWTMaxRefresh, time.Hour),
		)
		if err != nil {
			logger.Warn("JWT 初始化失败，将跳过认证", "error", err)
		} else {
			router.SetJWT(jwtAuth)
			logger.Info("JWT 认证已启用")
		}
	}

	a.router = router
	return a, nil
}

// Run 启动 HTTP 服务，addr 如 ":8080"
func (a *App) Run(addr string) error {
	cfg := a.bootstrap.Config
	a.bootstrap.Logger.Info("API 服务启动", "addr", addr)

	// Hertz 日志切到 slog 扩展，与进程日志配置对齐
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	switch cfg.Log.Level {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	if cfg.Monitoring.Tracing.Enable {
		serviceName := cfg.Monitoring.Tracing.ServiceName
		if serviceName == "" {
			serviceName = "policy-navigator"
		}
		endpoint := cfg.Monitoring.Tracing.ExportEndpoint
		if endpoint == "" {
			endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if endpoint != "" {
			opts := []provider.Option{
				provider.WithServiceName(serviceName),
				provider.WithExportEndpoint(endpoint),
			}
			if cfg.Monitoring.Tracing.Insecure {
				opts = append(opts, provider.WithInsecure())
			}
			a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
			tracerOpt, tracerCfg := hertztracing.NewServerTracer()
			a.hertz = a.router.Build(addr, tracerOpt)
			a.hertz.Use(hertztracing.ServerMiddleware(tracerCfg))
			a.bootstrap.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", endpoint)
		}
	}
	if a.hertz == nil {
		a.hertz = a.router.Build(addr)
	}

	if a.worker != nil {
		workerCtx, cancel := context.WithCancel(context.Background())
		a.workerCancel = cancel
		go func() {
			_ = a.worker.Run(workerCtx)
		}()
	}

	return a.hertz.Run()
}

// Shutdown 优雅关闭
func (a *App) Shutdown(ctx context.Context) error {
	if a.workerCancel != nil {
		a.workerCancel()
	}
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	if a.queueCleanup != nil {
		a.queueCleanup()
	}
	if a.sessionCleanup != nil {
		a.sessionCleanup()
	}
	return nil
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
