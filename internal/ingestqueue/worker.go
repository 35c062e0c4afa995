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
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"policy-navigator/internal/pipeline/ingest"
	"policy-navigator/pkg/log"
)

const defaultPollInterval = 2 * time.Second

// Worker 轮询队列并执行入库流水线
type Worker struct {
	id       string
	queue    Queue
	pipeline *ingest.Pipeline
	interval time.Duration
	logger   *log.Logger
}

// NewWorker 创建 Worker，interval<=0 使用默认 2s
func NewWorker(queue Queue, pipeline *ingest.Pipeline, interval time.Duration, logger *log.Logger) (*Worker, error) {
	if queue == nil || pipeline == nil {
		return nil, fmt.Errorf("ingestqueue: worker 缺少队列或流水线")
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	hostname, _ := os.Hostname()
	return &Worker{
		id:       fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8]),
		queue:    queue,
		pipeline: pipeline,
		interval: interval,
		logger:   logger,
	}, nil
}

// Run 轮询直到 ctx 取消
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("入库 Worker 启动", "worker_id", w.id, "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		processed, err := w.ProcessNext(ctx)
		if err != nil {
			w.logger.Error("认领任务失败", "worker_id", w.id, "error", err)
		}
		if processed {
			// 有任务就继续抢，队列空了再等下一个 tick
			continue
		}
		select {
		case <-ctx.Done():
			w.logger.Info("入库 Worker 退出", "worker_id", w.id)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessNext 认领并执行一条任务，返回是否处理了任务。
// 入库失败会标记任务 failed，不作为错误返回。
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	taskID, task, err := w.queue.ClaimOne(ctx, w.id)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	chunks, err := w.pipeline.IngestFile(ctx, task.Path)
	if err != nil {
		w.logger.Warn("任务入库失败", "task_id", taskID, "path", task.Path, "error", err)
		if markErr := w.queue.MarkFailed(ctx, taskID, err.Error()); markErr != nil {
			w.logger.Error("标记任务失败出错", "task_id", taskID, "error", markErr)
		}
		return true, nil
	}

	if err := w.queue.MarkCompleted(ctx, taskID, chunks); err != nil {
		w.logger.Error("标记任务完成出错", "task_id", taskID, "error", err)
	}
	w.logger.Info("任务入库完成", "task_id", taskID, "path", task.Path, "chunks", chunks)
	return true, nil
}
