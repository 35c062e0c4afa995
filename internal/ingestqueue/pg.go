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
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgQueue PostgreSQL 实现，使用 ingest_tasks 表。
// 建表:
//
//	CREATE TABLE IF NOT EXISTS ingest_tasks (
//	    id           TEXT PRIMARY KEY,
//	    path         TEXT NOT NULL,
//	    name         TEXT NOT NULL DEFAULT '',
//	    status       TEXT NOT NULL DEFAULT 'pending',
//	    worker_id    TEXT,
//	    chunks       INT NOT NULL DEFAULT 0,
//	    error        TEXT,
//	    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    claimed_at   TIMESTAMPTZ,
//	    completed_at TIMESTAMPTZ
//	);
type pgQueue struct {
	pool *pgxpool.Pool
}

// NewPgQueue 创建基于 PostgreSQL 的入库队列，pool 可与会话存储共用 DSN
func NewPgQueue(pool *pgxpool.Pool) Queue {
	return &pgQueue{pool: pool}
}

// Enqueue 实现 Queue
func (q *pgQueue) Enqueue(ctx context.Context, task *Task) (string, error) {
	if task == nil || task.Path == "" {
		return "", errors.New("ingestqueue: 任务缺少文件路径")
	}
	taskID := uuid.NewString()
	_, err := q.pool.Exec(ctx,
		`INSERT INTO ingest_tasks (id, path, name, status) VALUES ($1, $2, $3, 'pending')`,
		taskID, task.Path, task.Name,
	)
	return taskID, err
}

// ClaimOne 实现 Queue，FOR UPDATE SKIP LOCKED 保证多 Worker 不会抢到同一条
func (q *pgQueue) ClaimOne(ctx context.Context, workerID string) (string, *Task, error) {
	var id, path, name string
	err := q.pool.QueryRow(ctx,
		`WITH sel AS (
  SELECT id FROM ingest_tasks WHERE status = 'pending' ORDER BY created_at LIMIT 1 FOR UPDATE SKIP LOCKED
)
UPDATE ingest_tasks SET status = 'claimed', worker_id = $1, claimed_at = now()
FROM sel WHERE ingest_tasks.id = sel.id
RETURNING ingest_tasks.id, ingest_tasks.path, ingest_tasks.name`,
		workerID,
	).Scan(&id, &path, &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, nil
		}
		return "", nil, err
	}
	return id, &Task{Path: path, Name: name}, nil
}

// MarkCompleted 实现 Queue
func (q *pgQueue) MarkCompleted(ctx context.Context, taskID string, chunks int) error {
	_, err := q.pool.Exec(ctx,
		`UPDATE ingest_tasks SET status = 'completed', chunks = $1, error = NULL, completed_at = now() WHERE id = $2`,
		chunks, taskID,
	)
	return err
}

// MarkFailed 实现 Queue
func (q *pgQueue) MarkFailed(ctx context.Context, taskID string, errMsg string) error {
	_, err := q.pool.Exec(ctx,
		`UPDATE ingest_tasks SET status = 'failed', error = $1, completed_at = now() WHERE id = $2`,
		errMsg, taskID,
	)
	return err
}

// Status 实现 Queue
func (q *pgQueue) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	var st string
	var chunks int
	var errText *string
	var completed *time.Time
	err := q.pool.QueryRow(ctx,
		`SELECT status, chunks, error, completed_at FROM ingest_tasks WHERE id = $1`,
		taskID,
	).Scan(&st, &chunks, &errText, &completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	status := &TaskStatus{Status: st, Chunks: chunks, CompletedAt: completed}
	if errText != nil {
		status.Error = *errText
	}
	return status, nil
}
