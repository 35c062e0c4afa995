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
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	hertzjwt "github.com/hertz-contrib/jwt"

	"policy-navigator/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler *Handler
	mw      *middleware.Middleware
	jwt     *hertzjwt.HertzJWTMiddleware
}

// NewRouter 创建路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, mw: mw}
}

// SetJWT 启用 JWT 认证，业务路由将要求登录态
func (r *Router) SetJWT(jwt *hertzjwt.HertzJWTMiddleware) {
	r.jwt = jwt
}

// Build 创建 Hertz server 并注册路由
func (r *Router) Build(addr string, opts ...hertzconfig.Option) *server.Hertz {
	opts = append(opts, server.WithHostPorts(addr))
	h := server.New(opts...)

	h.Use(r.mw.CORS(), r.mw.AccessLog())

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)
	api.GET("/system/metrics", r.handler.SystemMetrics)

	protected := api.Group("")
	if r.jwt != nil {
		api.POST("/auth/login", r.jwt.LoginHandler)
		api.GET("/auth/refresh", r.jwt.RefreshHandler)
		protected.Use(r.jwt.MiddlewareFunc(), middleware.WithIdentity())
	}
	protected.POST("/chat", r.handler.Chat)
	protected.POST("/documents/upload", r.handler.UploadDocument)
	protected.POST("/documents/chat", r.handler.ChatWithDocument)
	protected.GET("/documents/search", r.handler.SearchDocuments)
	protected.GET("/documents", r.handler.ListDocuments)
	protected.GET("/documents/tasks/:id", r.handler.IngestTaskStatus)

	return h
}
