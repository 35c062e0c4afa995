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
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"policy-navigator/internal/agent"
	"policy-navigator/internal/ingestqueue"
	"policy-navigator/internal/pipeline/ingest"
	"policy-navigator/internal/pipeline/query"
	"policy-navigator/internal/storage/archive"
	"policy-navigator/internal/storage/catalog"
	"policy-navigator/pkg/log"
	"policy-navigator/pkg/metrics"
)

// ChatService 对话入口，由 agent.Orchestrator 实现
type ChatService interface {
	RunTurn(ctx context.Context, sessionID, query, credential string) (reply string, outSessionID string, err error)
	// RunDocumentTurn 文档对话：docText 非空时先把文档正文写入会话
	RunDocumentTurn(ctx context.Context, sessionID, docText, query, credential string) (reply string, outSessionID string, err error)
}

// Handler HTTP 处理器
type Handler struct {
	chat      ChatService
	ingestion *ingest.Pipeline
	search    *query.Service
	archive   archive.Store
	catalog   catalog.Store
	queue     ingestqueue.Queue
	logger    *log.Logger
}

// NewHandler 创建 HTTP 处理器。ingestion 与 search 可为 nil，对应端点返回 503。
func NewHandler(chat ChatService, ingestion *ingest.Pipeline, search *query.Service, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{chat: chat, ingestion: ingestion, search: search, logger: logger}
}

// SetArchive 启用原件归档，上传的文件会保留在归档里而不是临时目录
func (h *Handler) SetArchive(s archive.Store) {
	h.archive = s
}

// SetCatalog 启用文档列表接口
func (h *Handler) SetCatalog(c catalog.Store) {
	h.catalog = c
}

// SetQueue 启用异步上传入库，需要同时配置归档，文件才能活到 Worker 认领
func (h *Handler) SetQueue(q ingestqueue.Queue) {
	h.queue = q
}

// ChatRequest 对话请求体
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	// Credential 可选的 per-request 搜索凭证，透传给工具调用
	Credential string `json:"credential"`
}

// ChatResponse 对话响应体
type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

// HealthCheck 健康检查
// GET /api/health
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "policy-navigator",
	})
}

// Chat 执行一轮对话
// POST /api/chat
func (h *Handler) Chat(c context.Context, ctx *app.RequestContext) {
	if h.chat == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "对话服务未就绪"})
		return
	}

	var req ChatRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体解析失败"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "message 不能为空"})
		return
	}

	reply, sessionID, err := h.chat.RunTurn(c, req.SessionID, req.Message, req.Credential)
	if err != nil {
		var clsErr *agent.ClassificationError
		switch {
		case errors.As(err, &clsErr):
			ctx.JSON(consts.StatusUnprocessableEntity, map[string]string{
				"error":      "无法识别问题意图",
				"session_id": sessionID,
			})
		case errors.Is(err, agent.ErrToolRoundsExceeded):
			ctx.JSON(consts.StatusBadGateway, map[string]string{
				"error":      "unable to produce a final answer",
				"session_id": sessionID,
			})
		default:
			hlog.CtxErrorf(c, "chat turn failed: %v", err)
			ctx.JSON(consts.StatusInternalServerError, map[string]string{
				"error":      "对话处理失败",
				"session_id": sessionID,
			})
		}
		return
	}

	ctx.JSON(consts.StatusOK, ChatResponse{Reply: reply, SessionID: sessionID})
}

// UploadDocument 上传政策文档并入库
// POST /api/documents/upload
func (h *Handler) UploadDocument(c context.Context, ctx *app.RequestContext) {
	if h.ingestion == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "入库流水线未就绪"})
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "请上传文件"})
		return
	}
	if !ingest.Supported(file.Filename) {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "不支持的文件类型"})
		return
	}

	// 配置了归档就把原件留在归档里，否则落临时目录，入库后即清理
	var srcPath string
	if h.archive != nil {
		f, err := file.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "读取上传文件失败"})
			return
		}
		entry, putErr := h.archive.Put(c, file.Filename, f)
		_ = f.Close()
		if putErr != nil {
			hlog.CtxErrorf(c, "archive %s failed: %v", file.Filename, putErr)
			ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "保存上传文件失败"})
			return
		}
		srcPath = entry.Path

		// 异步模式只入队，入库由 Worker 完成
		if h.queue != nil && isAsync(ctx) {
			taskID, err := h.queue.Enqueue(c, &ingestqueue.Task{Path: srcPath, Name: entry.Name})
			if err != nil {
				hlog.CtxErrorf(c, "enqueue %s failed: %v", file.Filename, err)
				ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "任务入队失败"})
				return
			}
			ctx.JSON(consts.StatusAccepted, map[string]interface{}{
				"status":   ingestqueue.StatusPending,
				"filename": entry.Name,
				"task_id":  taskID,
			})
			return
		}
	} else {
		tmpDir, err := os.MkdirTemp("", "polnav-upload-*")
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "创建临时目录失败"})
			return
		}
		defer os.RemoveAll(tmpDir)

		srcPath = filepath.Join(tmpDir, filepath.Base(file.Filename))
		if err := ctx.SaveUploadedFile(file, srcPath); err != nil {
			ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "保存上传文件失败"})
			return
		}
	}

	chunks, err := h.ingestion.IngestFile(c, srcPath)
	if err != nil {
		hlog.CtxErrorf(c, "ingest %s failed: %v", file.Filename, err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "文档入库失败"})
		return
	}

	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"status":   "success",
		"filename": file.Filename,
		"chunks":   chunks,
	})
}

// ChatWithDocument 上传文档并围绕文档对话。回答只依据文档内容，
// 不走知识库检索。带 session_id 续聊时 file 可省略。
// POST /api/documents/chat（multipart：file、message、session_id、credential）
func (h *Handler) ChatWithDocument(c context.Context, ctx *app.RequestContext) {
	if h.chat == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "对话服务未就绪"})
		return
	}

	message := strings.TrimSpace(ctx.PostForm("message"))
	if message == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "message 不能为空"})
		return
	}
	sessionID := ctx.PostForm("session_id")
	credential := ctx.PostForm("credential")

	var docText string
	if file, err := ctx.FormFile("file"); err == nil {
		if !ingest.Supported(file.Filename) {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "不支持的文件类型"})
			return
		}
		f, err := file.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "读取上传文件失败"})
			return
		}
		data, readErr := io.ReadAll(f)
		_ = f.Close()
		if readErr != nil {
			ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "读取上传文件失败"})
			return
		}
		docText, err = ingest.ExtractText(file.Filename, data)
		if err != nil {
			hlog.CtxErrorf(c, "extract %s failed: %v", file.Filename, err)
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "文档解析失败"})
			return
		}
	} else if sessionID == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "请上传文件或携带 session_id"})
		return
	}

	reply, sessionID, err := h.chat.RunDocumentTurn(c, sessionID, docText, message, credential)
	if err != nil {
		if errors.Is(err, agent.ErrToolRoundsExceeded) {
			ctx.JSON(consts.StatusBadGateway, map[string]string{
				"error":      "unable to produce a final answer",
				"session_id": sessionID,
			})
			return
		}
		hlog.CtxErrorf(c, "document chat turn failed: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error":      "对话处理失败",
			"session_id": sessionID,
		})
		return
	}

	ctx.JSON(consts.StatusOK, ChatResponse{Reply: reply, SessionID: sessionID})
}

// SearchDocuments 检索已入库的政策文档切片
// GET /api/documents/search?q=...
func (h *Handler) SearchDocuments(c context.Context, ctx *app.RequestContext) {
	if h.search == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "检索服务未就绪"})
		return
	}

	q := ctx.Query("q")
	if strings.TrimSpace(q) == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "q 不能为空"})
		return
	}

	hits, err := h.search.Search(c, q)
	if err != nil {
		hlog.CtxErrorf(c, "document search failed: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "检索失败"})
		return
	}

	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"hits":  hits,
		"total": len(hits),
	})
}

func isAsync(ctx *app.RequestContext) bool {
	switch ctx.Query("async") {
	case "1", "true":
		return true
	}
	return false
}

// IngestTaskStatus 查询异步入库任务状态
// GET /api/documents/tasks/:id
func (h *Handler) IngestTaskStatus(c context.Context, ctx *app.RequestContext) {
	if h.queue == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "入库队列未就绪"})
		return
	}

	taskID := ctx.Param("id")
	status, err := h.queue.Status(c, taskID)
	if err != nil {
		hlog.CtxErrorf(c, "task status %s failed: %v", taskID, err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询任务状态失败"})
		return
	}
	if status == nil {
		ctx.JSON(consts.StatusNotFound, map[string]string{"error": "任务不存在"})
		return
	}
	ctx.JSON(consts.StatusOK, status)
}

// ListDocuments 列出已登记的政策文档
// GET /api/documents?status=ingested
func (h *Handler) ListDocuments(c context.Context, ctx *app.RequestContext) {
	if h.catalog == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "文档登记未就绪"})
		return
	}

	var filter *catalog.Filter
	if status := ctx.Query("status"); status != "" {
		filter = &catalog.Filter{Status: []string{status}}
	}

	records, err := h.catalog.List(c, filter, &catalog.Pagination{Limit: 1000})
	if err != nil {
		hlog.CtxErrorf(c, "list documents failed: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询文档列表失败"})
		return
	}

	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"documents": records,
		"total":     len(records),
	})
}

// SystemMetrics 输出 Prometheus 指标
// GET /api/system/metrics
func (h *Handler) SystemMetrics(c context.Context, ctx *app.RequestContext) {
	ctx.Response.Header.SetContentType("text/plain; version=0.0.4; charset=utf-8")
	ctx.SetStatusCode(consts.StatusOK)
	if err := metrics.WritePrometheus(ctx.Response.BodyWriter()); err != nil {
		h.logger.Error("写出指标失败", "error", err)
	}
}
