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

package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	hertzjwt "github.com/hertz-contrib/jwt"

	"policy-navigator/pkg/auth"
)

const identityKey = "user_id"

// loginRequest JWT 登录请求体
type loginRequest struct {
	UserID string `json:"user_id"`
	APIKey string `json:"api_key"`
}

// NewJWTAuth 创建 JWT 认证中间件。apiKey 为共享访问密钥，
// 登录时校验后签发携带 user_id 的 token。
func NewJWTAuth(key []byte, apiKey string, timeout, maxRefresh time.Duration) (*hertzjwt.HertzJWTMiddleware, error) {
	mw, err := hertzjwt.New(&hertzjwt.HertzJWTMiddleware{
		Realm:         "policy-navigator",
		Key:           key,
		Timeout:       timeout,
		MaxRefresh:    maxRefresh,
		IdentityKey:   identityKey,
		TokenLookup:   "header: Authorization",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
		Authenticator: func(ctx context.Context, c *app.RequestContext) (interface{}, error) {
			var req loginRequest
			if err := c.BindJSON(&req); err != nil {
				return nil, hertzjwt.ErrMissingLoginValues
			}
			if req.UserID == "" || req.APIKey == "" {
				return nil, hertzjwt.ErrMissingLoginValues
			}
			if apiKey == "" || req.APIKey != apiKey {
				return nil, hertzjwt.ErrFailedAuthentication
			}
			return req.UserID, nil
		},
		PayloadFunc: func(data interface{}) hertzjwt.MapClaims {
			if userID, ok := data.(string); ok {
				return hertzjwt.MapClaims{identityKey: userID}
			}
			return hertzjwt.MapClaims{}
		},
		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := hertzjwt.ExtractClaims(ctx, c)
			return claims[identityKey]
		},
		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			userID, ok := data.(string)
			if !ok || userID == "" {
				return false
			}
			c.Set(identityKey, userID)
			return true
		},
		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, map[string]string{"error": message})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("middleware: 初始化 JWT failed: %w", err)
	}
	return mw, nil
}

// WithIdentity 把 JWT 解析出的 user_id 注入请求 context
func WithIdentity() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if v, ok := c.Get(identityKey); ok {
			if userID, ok := v.(string); ok && userID != "" {
				ctx = auth.WithUserID(ctx, userID)
			}
		}
		c.Next(ctx)
	}
}

// RequireAuth 简单的登录态检查，JWT 中间件之后使用
func RequireAuth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if _, ok := c.Get(identityKey); !ok {
			c.JSON(consts.StatusUnauthorized, map[string]string{"error": "authentication required"})
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}
