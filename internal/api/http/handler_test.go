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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"

	"policy-navigator/internal/agent"
	"policy-navigator/internal/api/http/middleware"
	"policy-navigator/internal/ingestqueue"
	"policy-navigator/internal/storage/catalog"
)

type stubChat struct {
	reply     string
	sessionID string
	docText   string
	err       error
}

func (s *stubChat) RunTurn(ctx context.Context, sessionID, query, credential string) (string, string, error) {
	out := s.sessionID
	if out == "" {
		out = sessionID
	}
	return s.reply, out, s.err
}

func (s *stubChat) RunDocumentTurn(ctx context.Context, sessionID, docText, query, credential string) (string, string, error) {
	s.docText = docText
	out := s.sessionID
	if out == "" {
		out = sessionID
	}
	return s.reply, out, s.err
}

func buildTestServer(chat ChatService) *server.Hertz {
	h := NewHandler(chat, nil, nil, nil)
	r := NewRouter(h, middleware.NewMiddleware(nil))
	return r.Build(":0")
}

func postJSON(t *testing.T, s *server.Hertz, path string, payload interface{}) *ut.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return ut.PerformRequest(s.Engine, "POST", path,
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func postMultipart(t *testing.T, s *server.Hertz, path string, fields map[string]string, filename, fileContent string) *ut.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(fileContent)); err != nil {
			t.Fatalf("write file content: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return ut.PerformRequest(s.Engine, "POST", path,
		&ut.Body{Body: bytes.NewReader(buf.Bytes()), Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: mw.FormDataContentType()})
}

func TestHealthCheck(t *testing.T) {
	s := buildTestServer(nil)
	w := ut.PerformRequest(s.Engine, "GET", "/api/health", nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("GET /api/health status = %d, want 200", got)
	}
}

func TestChatSuccess(t *testing.T) {
	s := buildTestServer(&stubChat{reply: "FMLA provides unpaid leave.", sessionID: "sess-1"})

	w := postJSON(t, s, "/api/chat", ChatRequest{Message: "What is FMLA?"})
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("POST /api/chat status = %d, want 200", got)
	}

	var resp ChatResponse
	if err := json.Unmarshal(w.Result().Body(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.SessionID != "sess-1" || !strings.Contains(resp.Reply, "FMLA") {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestChatEmptyMessage(t *testing.T) {
	s := buildTestServer(&stubChat{})
	w := postJSON(t, s, "/api/chat", ChatRequest{Message: "   "})
	if got := w.Result().StatusCode(); got != 400 {
		t.Fatalf("status = %d, want 400", got)
	}
}

func TestChatClassificationError(t *testing.T) {
	s := buildTestServer(&stubChat{sessionID: "sess-2", err: &agent.ClassificationError{Raw: "joke"}})
	w := postJSON(t, s, "/api/chat", ChatRequest{Message: "tell me a joke"})
	if got := w.Result().StatusCode(); got != 422 {
		t.Fatalf("status = %d, want 422", got)
	}
}

func TestChatToolRoundsExceeded(t *testing.T) {
	s := buildTestServer(&stubChat{sessionID: "sess-3", err: agent.ErrToolRoundsExceeded})
	w := postJSON(t, s, "/api/chat", ChatRequest{Message: "question"})
	if got := w.Result().StatusCode(); got != 502 {
		t.Fatalf("status = %d, want 502", got)
	}
	if !strings.Contains(string(w.Result().Body()), "unable to produce a final answer") {
		t.Fatalf("body missing turn error message: %s", w.Result().Body())
	}
}

func TestChatServiceUnavailable(t *testing.T) {
	s := buildTestServer(nil)
	w := postJSON(t, s, "/api/chat", ChatRequest{Message: "hello"})
	if got := w.Result().StatusCode(); got != 503 {
		t.Fatalf("status = %d, want 503", got)
	}
}

func TestChatWithDocument(t *testing.T) {
	chat := &stubChat{reply: "The act provides 12 weeks of leave.", sessionID: "doc-sess"}
	s := buildTestServer(chat)

	w := postMultipart(t, s, "/api/documents/chat",
		map[string]string{"message": "How many weeks of leave?"},
		"fmla.txt", "Employees are entitled to 12 workweeks of leave.")
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("status = %d, want 200, body %s", got, w.Result().Body())
	}
	body := string(w.Result().Body())
	if !strings.Contains(body, "doc-sess") {
		t.Fatalf("body %q missing session id", body)
	}
	if !strings.Contains(chat.docText, "12 workweeks") {
		t.Fatalf("docText %q missing document content", chat.docText)
	}
}

func TestChatWithDocumentContinuesSession(t *testing.T) {
	chat := &stubChat{reply: "ok"}
	s := buildTestServer(chat)

	// 续聊不带文件，session_id 必须在
	w := postMultipart(t, s, "/api/documents/chat",
		map[string]string{"message": "And who is eligible?", "session_id": "doc-sess"}, "", "")
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("status = %d, want 200, body %s", got, w.Result().Body())
	}
	if chat.docText != "" {
		t.Fatalf("docText = %q, want empty on continuation", chat.docText)
	}

	w = postMultipart(t, s, "/api/documents/chat",
		map[string]string{"message": "no file no session"}, "", "")
	if got := w.Result().StatusCode(); got != 400 {
		t.Fatalf("status = %d, want 400", got)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	s := buildTestServer(nil)
	w := ut.PerformRequest(s.Engine, "GET", "/api/documents/search", nil)
	// search 服务未配置时优先返回 503
	if got := w.Result().StatusCode(); got != 503 {
		t.Fatalf("status = %d, want 503", got)
	}
}

func TestListDocumentsUnconfigured(t *testing.T) {
	s := buildTestServer(nil)
	w := ut.PerformRequest(s.Engine, "GET", "/api/documents", nil)
	if got := w.Result().StatusCode(); got != 503 {
		t.Fatalf("status = %d, want 503", got)
	}
}

func TestListDocuments(t *testing.T) {
	cat := catalog.NewMemoryStore()
	_ = cat.Put(context.Background(), &catalog.Record{ID: "d1", Name: "fmla.pdf", Status: catalog.StatusIngested, Chunks: 4})
	_ = cat.Put(context.Background(), &catalog.Record{ID: "d2", Name: "bad.pdf", Status: catalog.StatusFailed})

	h := NewHandler(nil, nil, nil, nil)
	h.SetCatalog(cat)
	r := NewRouter(h, middleware.NewMiddleware(nil))
	s := r.Build(":0")

	w := ut.PerformRequest(s.Engine, "GET", "/api/documents", nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("status = %d, want 200", got)
	}
	body := string(w.Result().Body())
	if !strings.Contains(body, "fmla.pdf") || !strings.Contains(body, `"total":2`) {
		t.Fatalf("unexpected body: %s", body)
	}

	w = ut.PerformRequest(s.Engine, "GET", "/api/documents?status=failed", nil)
	body = string(w.Result().Body())
	if strings.Contains(body, "fmla.pdf") || !strings.Contains(body, "bad.pdf") {
		t.Fatalf("status filter not applied: %s", body)
	}
}

func TestIngestTaskStatus(t *testing.T) {
	s := buildTestServer(nil)
	w := ut.PerformRequest(s.Engine, "GET", "/api/documents/tasks/abc", nil)
	if got := w.Result().StatusCode(); got != 503 {
		t.Fatalf("unconfigured queue status = %d, want 503", got)
	}

	q := ingestqueue.NewMemoryQueue()
	taskID, err := q.Enqueue(context.Background(), &ingestqueue.Task{Path: "/x.txt", Name: "x.txt"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	h := NewHandler(nil, nil, nil, nil)
	h.SetQueue(q)
	r := NewRouter(h, middleware.NewMiddleware(nil))
	srv := r.Build(":0")

	w = ut.PerformRequest(srv.Engine, "GET", "/api/documents/tasks/"+taskID, nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("status = %d, want 200", got)
	}
	if !strings.Contains(string(w.Result().Body()), ingestqueue.StatusPending) {
		t.Fatalf("body missing pending status: %s", w.Result().Body())
	}

	w = ut.PerformRequest(srv.Engine, "GET", "/api/documents/tasks/no-such-task", nil)
	if got := w.Result().StatusCode(); got != 404 {
		t.Fatalf("unknown task status = %d, want 404", got)
	}
}

func TestSystemMetrics(t *testing.T) {
	s := buildTestServer(nil)
	w := ut.PerformRequest(s.Engine, "GET", "/api/system/metrics", nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("GET /api/system/metrics status = %d, want 200", got)
	}
	if !strings.Contains(string(w.Result().Body()), "polnav_") {
		t.Fatalf("metrics body missing polnav_ series")
	}
}
