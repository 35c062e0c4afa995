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

package einoext

import (
	"context"
	"testing"

	einoembed "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"

	"policy-navigator/pkg/config"
)

// fakeEmbedder 用固定词向量做向量化，parental 类文本靠近 [1,0]，tax 类靠近 [0,1]
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		switch {
		case len(text) > 0 && text[0] == 'p':
			out = append(out, []float64{1, 0})
		default:
			out = append(out, []float64{0, 1})
		}
	}
	return out, nil
}

func TestMemoryVectorStore_StoreAndRetrieve(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryVectorStore(fakeEmbedder{}, 1)
	if err != nil {
		t.Fatalf("NewMemoryVectorStore: %v", err)
	}

	ids, err := s.Store(ctx, []*schema.Document{
		{ID: "d1", Content: "parental leave policy"},
		{ID: "d2", Content: "tax deduction rules"},
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if len(ids) != 2 || s.Len() != 2 {
		t.Fatalf("Store: expected 2 docs, got ids=%v len=%d", ids, s.Len())
	}

	docs, err := s.Retrieve(ctx, "paternity leave")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Retrieve: expected topK=1 result, got %d", len(docs))
	}
	if docs[0].ID != "d1" {
		t.Errorf("Retrieve: expected d1 first (cosine sim), got %s", docs[0].ID)
	}
	if docs[0].Score() <= 0 {
		t.Errorf("Retrieve: expected positive score, got %f", docs[0].Score())
	}
}

func TestMemoryVectorStore_EmptyStore(t *testing.T) {
	s, err := NewMemoryVectorStore(fakeEmbedder{}, 5)
	if err != nil {
		t.Fatalf("NewMemoryVectorStore: %v", err)
	}
	ids, err := s.Store(context.Background(), nil)
	if err != nil || ids != nil {
		t.Fatalf("Store empty: expected no-op, got ids=%v err=%v", ids, err)
	}
	docs, err := s.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Retrieve on empty store: expected 0 docs, got %d", len(docs))
	}
}

func TestMemoryStoreFor_SharedByIndexName(t *testing.T) {
	cfg := config.VectorConfig{Type: "memory", Index: "shared_test_idx"}
	a, err := memoryStoreFor(cfg, fakeEmbedder{})
	if err != nil {
		t.Fatalf("memoryStoreFor: %v", err)
	}
	b, err := memoryStoreFor(cfg, fakeEmbedder{})
	if err != nil {
		t.Fatalf("memoryStoreFor: %v", err)
	}
	if a != b {
		t.Error("same index name should share one store")
	}
	other, err := memoryStoreFor(config.VectorConfig{Index: "other_test_idx"}, fakeEmbedder{})
	if err != nil {
		t.Fatalf("memoryStoreFor: %v", err)
	}
	if other == a {
		t.Error("different index names should get distinct stores")
	}
}
