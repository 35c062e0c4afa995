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

// Package cache 带过期时间的 KV 缓存，检索服务用它缓存热点查询结果
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss 键不存在或已过期
var ErrMiss = errors.New("cache: miss")

// Store 缓存存储接口
type Store interface {
	// Set 设置缓存，expiration<=0 表示不过期
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get 获取缓存并反序列化到 dest，未命中返回 ErrMiss
	Get(ctx context.Context, key string, dest interface{}) error
	// Delete 删除缓存
	Delete(ctx context.Context, key string) error
	// Exists 检查键是否存在且未过期
	Exists(ctx context.Context, key string) (bool, error)
	// Clear 清除所有缓存
	Clear(ctx context.Context) error
	Close() error
}

// NewCache 根据类型创建缓存（当前仅支持 memory）
func NewCache(cacheType string) (Store, error) {
	switch cacheType {
	case "", "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("不支持的缓存类型: %s", cacheType)
	}
}
