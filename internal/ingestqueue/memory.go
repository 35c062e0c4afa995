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
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue 进程内队列，单进程部署和测试用
type MemoryQueue struct {
	mu    sync.Mutex
	tasks map[string]*memoryTask
	order []string
}

type memoryTask struct {
	task        Task
	status      string
	workerID    string
	chunks      int
	errMsg      string
	completedAt *time.Time
}

// NewMemoryQueue 创建进程内队列
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		tasks: make(map[string]*memoryTask),
	}
}

// Enqueue 实现 Queue
func (q *MemoryQueue) Enqueue(ctx context.Context, task *Task) (string, error) {
	if task == nil || task.Path == "" {
		return "", errors.New("ingestqueue: 任务缺少文件路径")
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	taskID := uuid.NewString()
	q.tasks[taskID] = &memoryTask{task: *task, status: StatusPending}
	q.order = append(q.order, taskID)
	return taskID, nil
}

// ClaimOne 实现 Queue，按入队顺序认领
func (q *MemoryQueue) ClaimOne(ctx context.Context, workerID string) (string, *Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, id := range q.order {
		t := q.tasks[id]
		if t.status != StatusPending {
			continue
		}
		t.status = StatusClaimed
		t.workerID = workerID
		task := t.task
		return id, &task, nil
	}
	return "", nil, nil
}

// MarkCompleted 实现 Queue
func (q *MemoryQueue) MarkCompleted(ctx context.Context, taskID string, chunks int) error {
	return q.finish(taskID, StatusCompleted, chunks, "")
}

// MarkFailed 实现 Queue
func (q *MemoryQueue) MarkFailed(ctx context.Context, taskID string, errMsg string) error {
	return q.finish(taskID, StatusFailed, 0, errMsg)
}

func (q *MemoryQueue) finish(taskID, status string, chunks int, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, exists := q.tasks[taskID]
	if !exists {
		return errors.New("ingestqueue: 任务不存在")
	}
	now := time.Now()
	t.status = status
	t.chunks = chunks
	t.errMsg = errMsg
	t.completedAt = &now
	return nil
}

// Status 实现 Queue
func (q *MemoryQueue) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, exists := q.tasks[taskID]
	if !exists {
		return nil, nil
	}
	return &TaskStatus{
		Status:      t.status,
		Chunks:      t.chunks,
		Error:       t.errMsg,
		CompletedAt: t.completedAt,
	}, nil
}
