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

// Package archive 保存上传的政策文档原件，入库流水线从这里读取
package archive

import (
	"context"
	"fmt"
	"io"
)

// Entry 归档文件信息
type Entry struct {
	Name      string `json:"name"`       // 归档内的文件名
	Path      string `json:"path"`       // 可供读取的路径，memory 实现为空
	Size      int64  `json:"size"`
	CreatedAt int64  `json:"created_at"` // Unix 秒
}

// Store 原件归档接口。Put 返回可交给入库流水线的路径
type Store interface {
	Put(ctx context.Context, name string, data io.Reader) (*Entry, error)
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*Entry, error)
	Exists(ctx context.Context, name string) (bool, error)
	Close() error
}

// NewStore 根据类型创建归档，disk 需要根目录
func NewStore(storeType, dir string) (Store, error) {
	switch storeType {
	case "", "disk":
		return NewDiskStore(dir)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("不支持的归档存储类型: %s", storeType)
	}
}
