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

// Package ingest 政策文档入库流水线：加载、切片、向量化写入
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	einodoc "github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// MetaSource 文档元数据中记录来源路径的键
const MetaSource = "source"

// SupportedExtensions 加载器能处理的文件后缀
var SupportedExtensions = []string{".pdf", ".txt", ".md"}

// FileLoader 实现 Eino document.Loader，从本地文件加载政策文档。
// PDF 逐页抽取正文，txt/md 原样读取。
type FileLoader struct{}

// NewFileLoader 创建文件加载器
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Supported 判断路径后缀是否可加载
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ExtractText 抽取文档正文。PDF 逐页解析，txt/md 原样返回。
// filename 只用于判断类型与报错，data 为文件内容。
func ExtractText(filename string, data []byte) (string, error) {
	var text string
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		extracted, err := extractPDFText(data)
		if err != nil {
			return "", fmt.Errorf("ingest: 解析 %s failed: %w", filename, err)
		}
		text = extracted
	} else {
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("ingest: %s 无正文内容", filename)
	}
	return text, nil
}

// Load 实现 github.com/cloudwego/eino/components/document.Loader，
// Source.URI 为本地路径或 file:// 前缀路径。
func (l *FileLoader) Load(ctx context.Context, src einodoc.Source, _ ...einodoc.LoaderOption) ([]*schema.Document, error) {
	path := strings.TrimSpace(src.URI)
	if path == "" {
		return nil, fmt.Errorf("ingest: Source.URI 为空")
	}
	if strings.HasPrefix(strings.ToLower(path), "file://") {
		path = path[7:]
	}
	if !Supported(path) {
		return nil, fmt.Errorf("ingest: 不支持的文件类型 %s", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: 读取 %s failed: %w", path, err)
	}

	text, err := ExtractText(path, data)
	if err != nil {
		return nil, err
	}

	return []*schema.Document{{
		ID:      uuid.NewString(),
		Content: text,
		MetaData: map[string]any{
			MetaSource: path,
		},
	}}, nil
}
