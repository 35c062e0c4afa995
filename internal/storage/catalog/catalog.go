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

// Package catalog 记录已入库政策文档的登记信息，供文档列表接口查询
package catalog

import (
	"context"
	"fmt"
)

// 文档登记状态
const (
	StatusPending  = "pending"
	StatusIngested = "ingested"
	StatusFailed   = "failed"
)

// Record 一份已上传政策文档的登记条目
type Record struct {
	ID        string `json:"id"`
	Name      string `json:"name"`       // 文件名
	Source    string `json:"source"`     // 原始路径或 URI
	Status    string `json:"status"`     // pending | ingested | failed
	Chunks    int    `json:"chunks"`     // 写入向量库的切片数
	Error     string `json:"error,omitempty"`
	CreatedAt int64  `json:"created_at"` // Unix 秒
	UpdatedAt int64  `json:"updated_at"`
}

// Filter 列表过滤条件
type Filter struct {
	Status []string // 为空则不过滤
	Search string   // 精确匹配 Name 或 Source
}

// Pagination 分页参数
type Pagination struct {
	Offset int
	Limit  int
}

// Store 文档登记存储接口
type Store interface {
	// Put 登记文档，ID 已存在则报错
	Put(ctx context.Context, rec *Record) error
	// Get 按 ID 查询
	Get(ctx context.Context, id string) (*Record, error)
	// Update 覆盖已有条目
	Update(ctx context.Context, rec *Record) error
	// Delete 按 ID 删除
	Delete(ctx context.Context, id string) error
	// List 按过滤条件列出，按 CreatedAt 倒序
	List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*Record, error)
	// Count 统计条目数
	Count(ctx context.Context, filter *Filter) (int64, error)
	Close() error
}

// NewStore 根据类型创建登记存储（当前仅支持 memory）
func NewStore(storeType string) (Store, error) {
	switch storeType {
	case "", "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("不支持的文档登记存储类型: %s", storeType)
	}
}
