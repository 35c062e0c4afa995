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
	"os"
	"path/filepath"
	"strings"
	"testing"

	einodoc "github.com/cloudwego/eino/components/document"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-navigator/internal/storage/catalog"
)

type captureIndexer struct {
	docs    []*schema.Document
	batches int
}

func (c *captureIndexer) Store(ctx context.Context, docs []*schema.Document, _ ...einoindexer.Option) ([]string, error) {
	c.docs = append(c.docs, docs...)
	c.batches++
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileLoaderText(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "policy.txt", "The FMLA entitles eligible employees to unpaid leave.")

	docs, err := NewFileLoader().Load(context.Background(), einodoc.Source{URI: path})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "FMLA")
	assert.Equal(t, path, docs[0].MetaData[MetaSource])
}

func TestFileLoaderRejectsUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "data.csv", "a,b,c")

	_, err := NewFileLoader().Load(context.Background(), einodoc.Source{URI: path})
	require.Error(t, err)
}

func TestFileLoaderEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "empty.md", "   \n")

	_, err := NewFileLoader().Load(context.Background(), einodoc.Source{URI: path})
	require.Error(t, err)
}

func TestPipelineIngestFile(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("Section 7401 declares the purposes of the Clean Air Act. \n")
	}
	path := writeTempFile(t, dir, "caa.txt", b.String())

	idx := &captureIndexer{}
	p, err := NewPipeline(idx, Config{ChunkSize: 500, ChunkOverlap: 50, BatchSize: 4}, nil)
	require.NoError(t, err)

	n, err := p.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, len(idx.docs), n)
	assert.Greater(t, n, 1)
	assert.Greater(t, idx.batches, 1, "应分批写入")

	for _, doc := range idx.docs {
		assert.Equal(t, path, doc.MetaData[MetaSource])
		assert.NotEmpty(t, doc.ID)
	}
}

func TestPipelineRegistersCatalog(t *testing.T) {
	dir := t.TempDir()
	good := writeTempFile(t, dir, "ada.txt", "The ADA covers employers with 15 or more employees.")
	bad := writeTempFile(t, dir, "broken.pdf", "not a real pdf")

	cat := catalog.NewMemoryStore()
	p, err := NewPipeline(&captureIndexer{}, Config{}, nil)
	require.NoError(t, err)
	p.SetCatalog(cat)

	_, err = p.IngestFile(context.Background(), good)
	require.NoError(t, err)
	_, err = p.IngestFile(context.Background(), bad)
	require.Error(t, err)

	ingested, err := cat.List(context.Background(), &catalog.Filter{Status: []string{catalog.StatusIngested}}, nil)
	require.NoError(t, err)
	require.Len(t, ingested, 1)
	assert.Equal(t, "ada.txt", ingested[0].Name)
	assert.Equal(t, 1, ingested[0].Chunks)

	failed, err := cat.List(context.Background(), &catalog.Filter{Status: []string{catalog.StatusFailed}}, nil)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "broken.pdf", failed[0].Name)
	assert.NotEmpty(t, failed[0].Error)
}

func TestPipelineIngestDirSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "good.txt", "Title VII prohibits employment discrimination.")
	writeTempFile(t, dir, "bad.pdf", "not a real pdf")
	writeTempFile(t, dir, "ignored.json", "{}")

	idx := &captureIndexer{}
	p, err := NewPipeline(idx, Config{}, nil)
	require.NoError(t, err)

	files, chunks, err := p.IngestDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, files)
	assert.Equal(t, 1, chunks)
}

func TestPipelineIngestDocuments(t *testing.T) {
	idx := &captureIndexer{}
	p, err := NewPipeline(idx, Config{}, nil)
	require.NoError(t, err)

	n, err := p.IngestDocuments(context.Background(), []*schema.Document{
		{Content: "The ADA covers employers with 15 or more employees."},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
