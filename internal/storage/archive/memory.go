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

package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore 内存归档，测试用
type MemoryStore struct {
	files map[string]*memoryFile
	mu    sync.RWMutex
}

type memoryFile struct {
	data      []byte
	createdAt int64
}

// NewMemoryStore 创建内存归档
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files: make(map[string]*memoryFile),
	}
}

// Put 写入文件
func (s *MemoryStore) Put(ctx context.Context, name string, data io.Reader) (*Entry, error) {
	name = sanitizeName(name)
	if name == "" {
		return nil, fmt.Errorf("归档文件名为空")
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, data); err != nil {
		return nil, fmt.Errorf("写入归档failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().Unix()
	s.files[name] = &memoryFile{data: buf.Bytes(), createdAt: now}
	return &Entry{
		Name:      name,
		Size:      int64(buf.Len()),
		CreatedAt: now,
	}, nil
}

// Get 读取文件
func (s *MemoryStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.files[sanitizeName(name)]
	if !exists {
		return nil, fmt.Errorf("归档文件 %s 不存在", name)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// Delete 删除文件
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = sanitizeName(name)
	if _, exists := s.files[name]; !exists {
		return fmt.Errorf("归档文件 %s 不存在", name)
	}
	delete(s.files, name)
	return nil
}

// List 列出文件
func (s *MemoryStore) List(ctx context.Context) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Entry
	for name, f := range s.files {
		out = append(out, &Entry{
			Name:      name,
			Size:      int64(len(f.data)),
			CreatedAt: f.createdAt,
		})
	}
	return out, nil
}

// Exists 检查文件是否存在
func (s *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.files[sanitizeName(name)]
	return exists, nil
}

// Close 关闭归档
func (s *MemoryStore) Close() error {
	return nil
}
