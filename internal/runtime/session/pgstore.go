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

package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore PostgreSQL 实现：sessions 表 + session_messages 表。
// Put 在单事务内整体覆盖消息列表，天然兼容摘要压缩的按条删除。
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 创建基于 PostgreSQL 的 SessionStore
func NewPostgresStore(ctx context.Context, dsn string) (SessionStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &pgStore{pool: pool}, nil
}

// Close 关闭连接池（可选，用于优雅退出）
func (s *pgStore) Close() {
	s.pool.Close()
}

// Get 实现 SessionStore；未命中返回 (nil, nil)
func (s *pgStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		createdAt time.Time
		updatedAt time.Time
		metadata  []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT created_at, updated_at, metadata FROM sessions WHERE id = $1`,
		id).Scan(&createdAt, &updatedAt, &metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess := New(id)
	sess.CreatedAt = createdAt
	sess.UpdatedAt = updatedAt
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &sess.Metadata)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, role, content, tool_call_id, tool_name, created_at
		 FROM session_messages WHERE session_id = $1 ORDER BY seq`,
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.ToolCallID, &m.Name, &m.CreatedAt); err != nil {
			return nil, err
		}
		sess.Messages = append(sess.Messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

// Put 实现 SessionStore：upsert 会话并整体覆盖消息
func (s *pgStore) Put(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}

	metadata, err := json.Marshal(sess.Metadata)
	if err != nil {
		return err
	}
	messages := sess.CopyMessages()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (id, created_at, updated_at, metadata)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET updated_at = $3, metadata = $4`,
		sess.ID, sess.CreatedAt, sess.UpdatedAt, metadata)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM session_messages WHERE session_id = $1`, sess.ID); err != nil {
		return err
	}
	for i, m := range messages {
		_, err := tx.Exec(ctx,
			`INSERT INTO session_messages (id, session_id, seq, role, content, tool_call_id, tool_name, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.ID, sess.ID, i, m.Role, m.Content, m.ToolCallID, m.Name, m.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
