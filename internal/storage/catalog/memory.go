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

package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore 内存文档登记实现
type MemoryStore struct {
	records map[string]*Record
	mu      sync.RWMutex
}

// NewMemoryStore 创建内存文档登记
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Put 登记文档
func (s *MemoryStore) Put(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("document %s already registered", rec.ID)
	}

	now := time.Now().Unix()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

// Get 按 ID 查询
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[id]
	if !exists {
		return nil, fmt.Errorf("document %s not found", id)
	}
	clone := *rec
	return &clone, nil
}

// Update 覆盖已有条目
func (s *MemoryStore) Update(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.records[rec.ID]
	if !exists {
		return fmt.Errorf("document %s not found", rec.ID)
	}

	rec.CreatedAt = old.CreatedAt
	rec.UpdatedAt = time.Now().Unix()
	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

// Delete 按 ID 删除
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return fmt.Errorf("document %s not found", id)
	}
	delete(s.records, id)
	return nil
}

// List 按过滤条件列出，按 CreatedAt 倒序
func (s *MemoryStore) List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Record
	for _, rec := range s.records {
		if !matches(rec, filter) {
			continue
		}
		clone := *rec
		results = append(results, &clone)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt != results[j].CreatedAt {
			return results[i].CreatedAt > results[j].CreatedAt
		}
		return results[i].ID < results[j].ID
	})

	if pagination != nil {
		start := pagination.Offset
		if start >= len(results) {
			return []*Record{}, nil
		}
		end := start + pagination.Limit
		if pagination.Limit <= 0 || end > len(results) {
			end = len(results)
		}
		results = results[start:end]
	}

	return results, nil
}

// Count 统计条目数
func (s *MemoryStore) Count(ctx context.Context, filter *Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, rec := range s.records {
		if matches(rec, filter) {
			count++
		}
	}
	return count, nil
}

// Close 关闭存储连接
func (s *MemoryStore) Close() error {
	return nil
}

func matches(rec *Record, filter *Filter) bool {
	if filter == nil {
		return true
	}
	if len(filter.Status) > 0 {
		found := false
		for _, status := range filter.Status {
			if rec.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Search != "" {
		if rec.Name != filter.Search && rec.Source != filter.Search {
			return false
		}
	}
	return true
}
