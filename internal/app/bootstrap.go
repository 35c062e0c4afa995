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

// Package app 统一初始化：供 api 与 ingest 命令复用
package app

import (
	"context"
	"fmt"
	"os"

	"policy-navigator/pkg/config"
	"policy-navigator/pkg/log"
	"policy-navigator/pkg/secrets"
)

// Bootstrap 进程级共享依赖
type Bootstrap struct {
	Config  *config.Config
	Logger  *log.Logger
	Secrets secrets.Store
}

// NewBootstrap 根据配置创建 Bootstrap（日志与密钥存储）
func NewBootstrap(cfg *config.Config) (*Bootstrap, error) {
	logCfg := &log.Config{}
	if cfg != nil {
		logCfg.Level = cfg.Log.Level
		logCfg.Format = cfg.Log.Format
		logCfg.File = cfg.Log.File
	}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("初始化日志failed: %w", err)
	}

	secretsCfg := secrets.Config{}
	if cfg != nil {
		secretsCfg.Provider = cfg.Secrets.Type
		secretsCfg.Config = map[string]string{
			"address":     cfg.Secrets.VaultAddr,
			"token":       os.Getenv("VAULT_TOKEN"),
			"path_prefix": cfg.Secrets.VaultPath,
		}
	}
	secretStore, err := secrets.NewStore(secretsCfg)
	if err != nil {
		return nil, fmt.Errorf("初始化密钥存储failed: %w", err)
	}

	return &Bootstrap{
		Config:  cfg,
		Logger:  logger,
		Secrets: secretStore,
	}, nil
}

// ResolveSecret 透过密钥存储解析值：输入形如 "secret://key" 时查 Store，
// 否则原样返回（配置里已内联或经 ${ENV} 替换）。
func (b *Bootstrap) ResolveSecret(ctx context.Context, value string) (string, error) {
	const prefix = "secret://"
	if len(value) <= len(prefix) || value[:len(prefix)] != prefix {
		return value, nil
	}
	v, err := b.Secrets.Get(ctx, value[len(prefix):])
	if err != nil {
		return "", fmt.Errorf("解析密钥 %s failed: %w", value, err)
	}
	return v, nil
}

// ResolveModelSecrets 把模型 provider 配置里的 secret:// 引用替换成真实密钥
func (b *Bootstrap) ResolveModelSecrets(ctx context.Context) error {
	for _, providers := range []map[string]config.ProviderConfig{
		b.Config.Model.LLM.Providers,
		b.Config.Model.Embedding.Providers,
	} {
		for name, pc := range providers {
			v, err := b.ResolveSecret(ctx, pc.APIKey)
			if err != nil {
				return fmt.Errorf("解析 provider %s 密钥failed: %w", name, err)
			}
			pc.APIKey = v
			providers[name] = pc
		}
	}
	return nil
}
