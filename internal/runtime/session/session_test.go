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
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	s := New("sid1")
	if s == nil || s.ID != "sid1" {
		t.Errorf("New: %+v", s)
	}
	if s.Metadata == nil {
		t.Error("Metadata should be initialized")
	}
	s2 := New("")
	if s2.ID == "" {
		t.Error("empty id should generate id")
	}
}

func TestSession_AddMessage_CopyMessages(t *testing.T) {
	s := New("s1")
	id1 := s.AddMessage(RoleUser, "hello")
	id2 := s.AddMessage(RoleAssistant, "hi")
	if id1 == "" || id2 == "" || id1 == id2 {
		t.Fatalf("message ids: %q %q", id1, id2)
	}
	msgs := s.CopyMessages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "hello" {
		t.Errorf("first message: %+v", msgs[0])
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "hi" {
		t.Errorf("second message: %+v", msgs[1])
	}
}

func TestSession_AddToolMessage(t *testing.T) {
	s := New("s1")
	s.AddToolMessage("call-1", "context-retriever", "some context")
	msgs := s.CopyMessages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.Role != RoleTool || m.ToolCallID != "call-1" || m.Name != "context-retriever" {
		t.Errorf("tool message: %+v", m)
	}
}

func TestSession_Compact(t *testing.T) {
	s := New("s1")
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, s.AddMessage(RoleUser, "msg"))
	}

	summary := NewMessage(RoleSystem, "Summary of conversation earlier: ...")
	s.Compact(summary, ids[:3])

	msgs := s.CopyMessages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages after compact, got %d", len(msgs))
	}
	if msgs[0].Role != RoleSystem {
		t.Errorf("summary should be at head, got %+v", msgs[0])
	}
	if msgs[1].ID != ids[3] || msgs[2].ID != ids[4] {
		t.Errorf("recent messages should be preserved in order")
	}
}

func TestSession_CompactIgnoresUnknownIDs(t *testing.T) {
	s := New("s1")
	s.AddMessage(RoleUser, "keep me")
	s.Compact(nil, []string{"no-such-id"})
	if s.Len() != 1 {
		t.Errorf("unknown ids should be ignored, len=%d", s.Len())
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	s, err := m.GetOrCreate(ctx, "abc")
	if err != nil || s == nil || s.ID != "abc" {
		t.Fatalf("GetOrCreate: s=%+v err=%v", s, err)
	}

	s.AddMessage(RoleUser, "hello")
	if err := m.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := m.GetOrCreate(ctx, "abc")
	if err != nil || again.Len() != 1 {
		t.Fatalf("session should persist across turns: len=%d err=%v", again.Len(), err)
	}

	fresh, err := m.GetOrCreate(ctx, "")
	if err != nil || fresh.ID == "" {
		t.Fatalf("empty id should create session: %+v err=%v", fresh, err)
	}
}

func TestManager_LockSerializesWriters(t *testing.T) {
	m := NewManager(NewMemoryStore())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		current int
		max     int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("same-session")
			defer unlock()
			mu.Lock()
			current++
			if current > max {
				max = current
			}
			mu.Unlock()
			mu.Lock()
			current--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if max != 1 {
		t.Errorf("expected single writer per session, max concurrent = %d", max)
	}
}
