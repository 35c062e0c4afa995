// 独立入库 Worker：轮询 PostgreSQL 队列，执行文档入库流水线。
// API 进程负责入队，Worker 可以水平扩展。
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"policy-navigator/internal/app"
	"policy-navigator/internal/einoext"
	"policy-navigator/internal/ingestqueue"
	"policy-navigator/internal/pipeline/ingest"
	"policy-navigator/pkg/config"
)

func main() {
	cfg, err := config.LoadAPIConfigWithModel()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if !cfg.Storage.Queue.Enable || cfg.Storage.Queue.Type != "postgres" {
		log.Fatal("独立 Worker 需要 storage.queue.type=postgres")
	}

	bootstrap, err := app.NewBootstrap(cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bootstrap.ResolveModelSecrets(ctx); err != nil {
		log.Fatalf("解析模型密钥失败: %v", err)
	}
	embedder, err := app.NewEmbedderFromConfig(cfg)
	if err != nil {
		log.Fatalf("初始化向量模型失败: %v", err)
	}
	indexer, err := einoext.NewIndexer(ctx, cfg.Storage.Vector, embedder)
	if err != nil {
		log.Fatalf("初始化索引器失败: %v", err)
	}
	pipeline, err := ingest.NewPipeline(indexer, ingest.Config{
		ChunkSize:    cfg.Storage.Ingest.ChunkSize,
		ChunkOverlap: cfg.Storage.Ingest.ChunkOverlap,
		BatchSize:    cfg.Storage.Ingest.BatchSize,
	}, bootstrap.Logger)
	if err != nil {
		log.Fatalf("初始化入库流水线失败: %v", err)
	}

	queue, queueCleanup, err := app.NewIngestQueueFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化队列失败: %v", err)
	}
	defer queueCleanup()

	var interval time.Duration
	if cfg.Storage.Queue.PollInterval != "" {
		interval, _ = time.ParseDuration(cfg.Storage.Queue.PollInterval)
	}
	worker, err := ingestqueue.NewWorker(queue, pipeline, interval, bootstrap.Logger)
	if err != nil {
		log.Fatalf("创建 Worker 失败: %v", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Worker 异常退出: %v", err)
	}
	log.Println("Worker 已关闭")
}
