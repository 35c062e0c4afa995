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

package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	einodoc "github.com/cloudwego/eino/components/document"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"policy-navigator/internal/storage/catalog"
	"policy-navigator/pkg/log"
)

// Pipeline 文档入库流水线：loader -> splitter -> indexer 分批写入
type Pipeline struct {
	loader    einodoc.Loader
	splitter  einodoc.Transformer
	indexer   einoindexer.Indexer
	catalog   catalog.Store
	batchSize int
	logger    *log.Logger
}

// Config 流水线构造参数
type Config struct {
	// ChunkSize / ChunkOverlap 切片粒度，非正值用默认 2000/200
	ChunkSize    int
	ChunkOverlap int
	// BatchSize 单批写入向量库的切片数，<=0 使用默认 100
	BatchSize int
}

// NewPipeline 创建入库流水线
func NewPipeline(indexer einoindexer.Indexer, cfg Config, logger *log.Logger) (*Pipeline, error) {
	if indexer == nil {
		return nil, fmt.Errorf("ingest: indexer 不能为空")
	}
	if logger == nil {
		logger = log.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Pipeline{
		loader:    NewFileLoader(),
		splitter:  NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		indexer:   indexer,
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

// SetCatalog 启用文档登记，之后每次 IngestFile 都会写入一条登记记录
func (p *Pipeline) SetCatalog(c catalog.Store) {
	p.catalog = c
}

// IngestFile 加载单个文件，切片后写入向量库，返回写入的切片数
func (p *Pipeline) IngestFile(ctx context.Context, path string) (int, error) {
	stored, err := p.ingestFile(ctx, path)
	p.register(ctx, path, stored, err)
	return stored, err
}

func (p *Pipeline) ingestFile(ctx context.Context, path string) (int, error) {
	docs, err := p.loader.Load(ctx, einodoc.Source{URI: path})
	if err != nil {
		return 0, err
	}
	chunks, err := p.splitter.Transform(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("ingest: 切片 %s failed: %w", path, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	stored := 0
	for i := 0; i < len(chunks); i += p.batchSize {
		end := i + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		ids, err := p.indexer.Store(ctx, chunks[i:end])
		if err != nil {
			return stored, fmt.Errorf("ingest: 写入向量库 failed: %w", err)
		}
		stored += len(ids)
	}

	p.logger.Info("文档入库完成", "path", path, "chunks", stored)
	return stored, nil
}

// register 登记入库结果，登记失败只记日志不影响入库返回值
func (p *Pipeline) register(ctx context.Context, path string, chunks int, ingestErr error) {
	if p.catalog == nil {
		return
	}
	rec := &catalog.Record{
		ID:     uuid.NewString(),
		Name:   filepath.Base(path),
		Source: path,
		Status: catalog.StatusIngested,
		Chunks: chunks,
	}
	if ingestErr != nil {
		rec.Status = catalog.StatusFailed
		rec.Error = ingestErr.Error()
	}
	if err := p.catalog.Put(ctx, rec); err != nil {
		p.logger.Warn("文档登记失败", "path", path, "error", err)
	}
}

// IngestDir 遍历目录入库全部受支持的文件，返回文件数与切片总数。
// 单个文件失败记录日志后继续。
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (files, chunks int, err error) {
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		n, err := p.IngestFile(ctx, path)
		if err != nil {
			p.logger.Warn("文件入库失败，跳过", "path", path, "error", err)
			return nil
		}
		files++
		chunks += n
		return nil
	})
	if walkErr != nil {
		return files, chunks, fmt.Errorf("ingest: 遍历 %s failed: %w", dir, walkErr)
	}
	return files, chunks, nil
}

// IngestDocuments 直接入库已构造好的文档（如 API 上传的文本），返回切片数
func (p *Pipeline) IngestDocuments(ctx context.Context, docs []*schema.Document) (int, error) {
	chunks, err := p.splitter.Transform(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("ingest: 切片failed: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	ids, err := p.indexer.Store(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("ingest: 写入向量库 failed: %w", err)
	}
	return len(ids), nil
}
