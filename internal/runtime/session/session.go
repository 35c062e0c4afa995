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
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session 会话：对话历史的唯一状态载体
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	Messages []*Message // 对话历史，持久化维度

	Metadata map[string]any

	mu sync.RWMutex
}

// New 创建新 Session（id 为空时自动分配）
func New(id string) *Session {
	now := time.Now()
	if id == "" {
		id = "session-" + uuid.New().String()
	}
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  nil,
		Metadata:  make(map[string]any),
	}
}

// AddMessage 追加一条对话消息，返回其 ID
func (s *Session) AddMessage(role, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	m := NewMessage(role, content)
	m.CreatedAt = s.UpdatedAt
	s.Messages = append(s.Messages, m)
	return m.ID
}

// AddToolMessage 追加一条工具结果消息（携带 tool_call_id 与工具名）
func (s *Session) AddToolMessage(toolCallID, toolName, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	m := NewMessage(RoleTool, content)
	m.ToolCallID = toolCallID
	m.Name = toolName
	m.CreatedAt = s.UpdatedAt
	s.Messages = append(s.Messages, m)
	return m.ID
}

// Len 返回当前历史条数
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// CopyMessages 返回 Messages 的副本（供只读使用）
func (s *Session) CopyMessages() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Messages) == 0 {
		return nil
	}
	out := make([]*Message, len(s.Messages))
	for i, m := range s.Messages {
		c := *m
		out[i] = &c
	}
	return out
}

// Compact 按 ID 删除消息并将 summary 插入队首。
// removeIDs 中不存在的 ID 忽略；summary 为 nil 时仅删除。
func (s *Session) Compact(summary *Message, removeIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()

	drop := make(map[string]bool, len(removeIDs))
	for _, id := range removeIDs {
		drop[id] = true
	}

	kept := s.Messages[:0]
	for _, m := range s.Messages {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	s.Messages = kept

	if summary != nil {
		if summary.ID == "" {
			summary.ID = uuid.New().String()
		}
		if summary.CreatedAt.IsZero() {
			summary.CreatedAt = s.UpdatedAt
		}
		s.Messages = append([]*Message{summary}, s.Messages...)
	}
}
