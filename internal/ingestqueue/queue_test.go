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

package ingestqueue

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	einoindexer "github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-navigator/internal/pipeline/ingest"
)

func TestMemoryQueueLifecycle(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	id1, err := q.Enqueue(ctx, &Task{Path: "/a.txt", Name: "a.txt"})
	require.NoError(t, err)
	id2, err := q.Enqueue(ctx, &Task{Path: "/b.txt", Name: "b.txt"})
	require.NoError(t, err)

	claimedID, task, err := q.ClaimOne(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, id1, claimedID, "应按入队顺序认领")
	assert.Equal(t, "/a.txt", task.Path)

	st, err := q.Status(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, StatusClaimed, st.Status)

	require.NoError(t, q.MarkCompleted(ctx, id1, 7))
	st, err = q.Status(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, 7, st.Chunks)
	assert.NotNil(t, st.CompletedAt)

	_, task2, err := q.ClaimOne(ctx, "w2")
	require.NoError(t, err)
	require.NotNil(t, task2)
	assert.Equal(t, "/b.txt", task2.Path)

	require.NoError(t, q.MarkFailed(ctx, id2, "boom"))
	st, err = q.Status(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, "boom", st.Error)

	// 队列已空
	emptyID, emptyTask, err := q.ClaimOne(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, emptyID)
	assert.Nil(t, emptyTask)

	missing, err := q.Status(ctx, "no-such-task")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryQueueEnqueueValidation(t *testing.T) {
	q := NewMemoryQueue()
	_, err := q.Enqueue(context.Background(), nil)
	require.Error(t, err)
	_, err = q.Enqueue(context.Background(), &Task{Name: "no-path"})
	require.Error(t, err)
}

type countIndexer struct{}

func (countIndexer) Store(ctx context.Context, docs []*schema.Document, _ ...einoindexer.Option) ([]string, error) {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

func newTestPipeline(t *testing.T) *ingest.Pipeline {
	t.Helper()
	p, err := ingest.NewPipeline(&countIndexer{}, ingest.Config{}, nil)
	require.NoError(t, err)
	return p
}

func TestWorkerProcessNext(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	good := filepath.Join(dir, "policy.txt")
	require.NoError(t, os.WriteFile(good, []byte("The FMLA entitles eligible employees to unpaid leave."), 0o644))

	q := NewMemoryQueue()
	w, err := NewWorker(q, newTestPipeline(t), 0, nil)
	require.NoError(t, err)

	// 队列为空时不处理
	processed, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed)

	goodID, err := q.Enqueue(ctx, &Task{Path: good, Name: "policy.txt"})
	require.NoError(t, err)
	badID, err := q.Enqueue(ctx, &Task{Path: filepath.Join(dir, "missing.txt"), Name: "missing.txt"})
	require.NoError(t, err)

	processed, err = w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	st, err := q.Status(ctx, goodID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Greater(t, st.Chunks, 0)

	processed, err = w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	st, err = q.Status(ctx, badID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, st.Status)
	assert.NotEmpty(t, st.Error)
}
