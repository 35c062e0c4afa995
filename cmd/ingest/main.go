// 批量导入政策文档到向量库，配置读 configs/api.yaml 与 configs/model.yaml。
//
// 用法:
//
//	ingest -dir ./docs
//	ingest -file ./docs/fmla.pdf
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"policy-navigator/internal/app"
	"policy-navigator/internal/einoext"
	"policy-navigator/internal/pipeline/ingest"
	"policy-navigator/pkg/config"
)

func main() {
	dir := flag.String("dir", "", "要导入的目录（递归，只处理支持的扩展名）")
	file := flag.String("file", "", "要导入的单个文件")
	flag.Parse()

	if *dir == "" && *file == "" {
		fmt.Fprintln(os.Stderr, "需要 -dir 或 -file")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadAPIConfigWithModel()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	bootstrap, err := app.NewBootstrap(cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	ctx := context.Background()
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

	if *file != "" {
		chunks, err := pipeline.IngestFile(ctx, *file)
		if err != nil {
			log.Fatalf("导入 %s 失败: %v", *file, err)
		}
		fmt.Printf("已导入 %s，共 %d 个切片\n", *file, chunks)
		return
	}

	files, chunks, err := pipeline.IngestDir(ctx, *dir)
	if err != nil {
		log.Fatalf("导入目录 %s 失败: %v", *dir, err)
	}
	fmt.Printf("已导入 %d 个文件，共 %d 个切片\n", files, chunks)
}
