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

// Package ingestqueue 异步入库任务队列：API 入队，Worker 认领并执行入库流水线
package ingestqueue

import (
	"context"
	"time"
)

// 任务状态
const (
	StatusPending   = "pending"
	StatusClaimed   = "claimed"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Task 一条待入库的文档任务，Path 必须是 Worker 进程可读的路径（通常在归档里）
type Task struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// TaskStatus 任务状态快照
type TaskStatus struct {
	Status      string     `json:"status"`
	Chunks      int        `json:"chunks"`
	Error       string     `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Queue 入库任务队列接口
type Queue interface {
	// Enqueue 入队并返回 task_id
	Enqueue(ctx context.Context, task *Task) (taskID string, err error)
	// ClaimOne 原子认领一条 pending 任务；无任务时返回 "", nil, nil
	ClaimOne(ctx context.Context, workerID string) (taskID string, task *Task, err error)
	// MarkCompleted 标记任务完成并记录写入的切片数
	MarkCompleted(ctx context.Context, taskID string, chunks int) error
	// MarkFailed 标记任务失败
	MarkFailed(ctx context.Context, taskID string, errMsg string) error
	// Status 查询任务状态；不存在返回 nil, nil
	Status(ctx context.Context, taskID string) (*TaskStatus, error)
}
