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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore 磁盘归档，文件平铺在根目录下
type DiskStore struct {
	dir string
}

// NewDiskStore 创建磁盘归档，目录不存在时创建
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		dir = "data/archive"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建归档目录failed: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Put 写入文件并返回归档路径
func (s *DiskStore) Put(ctx context.Context, name string, data io.Reader) (*Entry, error) {
	name = sanitizeName(name)
	if name == "" {
		return nil, fmt.Errorf("归档文件名为空")
	}
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("写入归档failed: %w", err)
	}
	size, err := io.Copy(f, data)
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("写入归档failed: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("写入归档failed: %w", closeErr)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Name:      name,
		Path:      path,
		Size:      size,
		CreatedAt: info.ModTime().Unix(),
	}, nil
}

// Get 打开归档文件
func (s *DiskStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, sanitizeName(name)))
	if err != nil {
		return nil, fmt.Errorf("读取归档failed: %w", err)
	}
	return f, nil
}

// Delete 删除归档文件
func (s *DiskStore) Delete(ctx context.Context, name string) error {
	if err := os.Remove(filepath.Join(s.dir, sanitizeName(name))); err != nil {
		return fmt.Errorf("删除归档failed: %w", err)
	}
	return nil
}

// List 列出归档文件
func (s *DiskStore) List(ctx context.Context) ([]*Entry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []*Entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, &Entry{
			Name:      e.Name(),
			Path:      filepath.Join(s.dir, e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime().Unix(),
		})
	}
	return out, nil
}

// Exists 检查归档文件是否存在
func (s *DiskStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, sanitizeName(name)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Close 关闭归档
func (s *DiskStore) Close() error {
	return nil
}

// sanitizeName 去掉路径成分，归档内只允许平铺文件名
func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
