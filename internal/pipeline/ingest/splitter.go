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
	"strings"
	"unicode/utf8"

	einodoc "github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// MetaChunkIndex 切片元数据中记录片序号的键
const MetaChunkIndex = "chunk_index"

const (
	defaultChunkSize    = 2000
	defaultChunkOverlap = 200
)

// 按粒度递减尝试的切分分隔符
var splitSeparators = []string{"\n\n", "\n", " "}

// RecursiveSplitter 实现 Eino document.Transformer 的递归字符切片器。
// 优先按段落与换行切分，超长片段逐级降到更细的分隔符，
// 最后按字符硬切并保留 overlap 的重叠。
type RecursiveSplitter struct {
	chunkSize int
	overlap   int
}

// NewRecursiveSplitter 创建切片器，非正参数用默认 2000/200
func NewRecursiveSplitter(chunkSize, overlap int) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap <= 0 || overlap >= chunkSize {
		overlap = defaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 10
		}
	}
	return &RecursiveSplitter{chunkSize: chunkSize, overlap: overlap}
}

// Transform 实现 github.com/cloudwego/eino/components/document.Transformer
func (s *RecursiveSplitter) Transform(ctx context.Context, src []*schema.Document, _ ...einodoc.TransformerOption) ([]*schema.Document, error) {
	var out []*schema.Document
	for _, doc := range src {
		if doc == nil || strings.TrimSpace(doc.Content) == "" {
			continue
		}
		chunks := s.split(doc.Content, splitSeparators)
		for i, chunk := range chunks {
			meta := make(map[string]any, len(doc.MetaData)+1)
			for k, v := range doc.MetaData {
				meta[k] = v
			}
			meta[MetaChunkIndex] = i
			out = append(out, &schema.Document{
				ID:       uuid.NewString(),
				Content:  chunk,
				MetaData: meta,
			})
		}
	}
	return out, nil
}

func (s *RecursiveSplitter) split(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return s.hardSplit(text)
	}

	sep := seps[0]
	if !strings.Contains(text, sep) {
		return s.split(text, seps[1:])
	}

	parts := strings.SplitAfter(text, sep)
	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if strings.TrimSpace(cur.String()) != "" {
			chunks = append(chunks, cur.String())
		}
		cur.Reset()
		curLen = 0
	}
	for _, part := range parts {
		partLen := utf8.RuneCountInString(part)
		if partLen > s.chunkSize {
			flush()
			chunks = append(chunks, s.split(part, seps[1:])...)
			continue
		}
		if curLen > 0 && curLen+partLen > s.chunkSize {
			prev := cur.String()
			flush()
			// 新片以上一片的尾部开头，保持上下文重叠
			tail := tailRunes(prev, s.overlap)
			cur.WriteString(tail)
			curLen = utf8.RuneCountInString(tail)
		}
		cur.WriteString(part)
		curLen += partLen
	}
	flush()
	return chunks
}

// hardSplit 无可用分隔符时按固定步长硬切
func (s *RecursiveSplitter) hardSplit(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func tailRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
