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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Model      ModelConfig      `mapstructure:"model"`
	Session    SessionConfig    `mapstructure:"session"`
	Storage    StorageConfig    `mapstructure:"storage"`
	WebSearch  WebSearchConfig  `mapstructure:"web_search"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// AgentConfig 对话编排相关配置
type AgentConfig struct {
	// MaxToolRounds 单轮对话允许的最大工具往返数，<=0 使用默认 5；超出视为本轮错误
	MaxToolRounds int `mapstructure:"max_tool_rounds"`
	// HistoryTrigger 历史长度超过该值时触发摘要，<=0 使用默认 10
	HistoryTrigger int `mapstructure:"history_trigger"`
	// KeepRecent 摘要时保留的最近消息条数，<=0 使用默认 2
	KeepRecent int `mapstructure:"keep_recent"`
	// ClassifyTimeout / SummarizeTimeout / GenerateTimeout 各阶段超时，如 "15s"
	ClassifyTimeout  string `mapstructure:"classify_timeout"`
	SummarizeTimeout string `mapstructure:"summarize_timeout"`
	GenerateTimeout  string `mapstructure:"generate_timeout"`
	// ToolTimeout 单次工具调用超时，如 "10s"
	ToolTimeout string `mapstructure:"tool_timeout"`
}

// SessionConfig 会话历史存储配置
type SessionConfig struct {
	Type     string `mapstructure:"type"` // memory | postgres
	DSN      string `mapstructure:"dsn"`  // Postgres 连接串，type=postgres 时必填
	PoolSize int    `mapstructure:"pool_size"`
}

// WebSearchConfig 联网搜索配置（Tavily 兼容接口）
type WebSearchConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	MaxResults int    `mapstructure:"max_results"` // <=0 使用默认 3
	Timeout    string `mapstructure:"timeout"`     // 如 "10s"
}

// SecretsConfig 密钥来源配置
type SecretsConfig struct {
	Type      string `mapstructure:"type"` // env | vault | memory
	VaultAddr string `mapstructure:"vault_addr"`
	VaultPath string `mapstructure:"vault_path"`
}

// RateLimitsConfig 限流配置（LLM Provider 维度）
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	TokensPerMinute   int     `mapstructure:"tokens_per_minute"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Auth          bool   `mapstructure:"auth"`
	JWTKey        string `mapstructure:"jwt_key"`
	JWTTimeout    string `mapstructure:"jwt_timeout"`     // 如 "1h"
	JWTMaxRefresh string `mapstructure:"jwt_max_refresh"` // 如 "1h"
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// EmbeddingConfig Embedding 模型配置
type EmbeddingConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name          string  `mapstructure:"name"`
	ContextWindow int     `mapstructure:"context_window"`
	Temperature   float64 `mapstructure:"temperature"`
	Dimension     int     `mapstructure:"dimension"`
	InputLimit    int     `mapstructure:"input_limit"`
	MaxTokens     int     `mapstructure:"max_tokens"`
}

// DefaultsConfig 默认模型配置
type DefaultsConfig struct {
	LLM       string `mapstructure:"llm"`
	Embedding string `mapstructure:"embedding"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Vector  VectorConfig  `mapstructure:"vector"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Queue   QueueConfig   `mapstructure:"queue"`
}

// QueueConfig 异步入库队列配置，postgres 实现，DSN 可与会话存储共用
type QueueConfig struct {
	Enable       bool   `mapstructure:"enable"`
	Type         string `mapstructure:"type"` // postgres | memory
	DSN          string `mapstructure:"dsn"`
	PollInterval string `mapstructure:"poll_interval"` // Worker 轮询间隔，如 "2s"
}

// ArchiveConfig 上传原件归档配置
type ArchiveConfig struct {
	Type string `mapstructure:"type"` // disk | memory，空则不归档
	Dir  string `mapstructure:"dir"`  // disk 的根目录
}

// CatalogConfig 文档登记配置
type CatalogConfig struct {
	Enable bool   `mapstructure:"enable"`
	Type   string `mapstructure:"type"` // 当前仅 memory
}

// CacheConfig 检索结果缓存配置
type CacheConfig struct {
	Enable bool   `mapstructure:"enable"`
	Type   string `mapstructure:"type"` // 当前仅 memory
	TTL    string `mapstructure:"ttl"`  // 如 "5m"
}

// IngestConfig 入库管线配置（分块与索引批大小）
type IngestConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`    // <=0 使用默认 2000
	ChunkOverlap int `mapstructure:"chunk_overlap"` // <0 使用默认 200
	BatchSize    int `mapstructure:"batch_size"`
}

// VectorConfig 向量存储配置（redis 使用 eino-ext 对应组件）
type VectorConfig struct {
	Type      string `mapstructure:"type"`
	Addr      string `mapstructure:"addr"`
	DB        string `mapstructure:"db"`         // Redis 为 DB 编号，如 "0"
	Index     string `mapstructure:"index"`      // 索引名，ingest 与 query 共用
	KeyPrefix string `mapstructure:"key_prefix"` // 文档 key 前缀
	Password  string `mapstructure:"password"`   // Redis 密码，可选
	TopK      int    `mapstructure:"top_k"`      // 检索条数，<=0 使用默认 5
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
	Port   int  `mapstructure:"port"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	if err := replaceEnvVars(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// replaceEnvVars 替换配置中的 ${ENV_VAR} 形式占位符
func replaceEnvVars(config *Config) error {
	for provider, providerConfig := range config.Model.LLM.Providers {
		if strings.HasPrefix(providerConfig.APIKey, "$") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(providerConfig.APIKey, "}"), "${")
			if val := os.Getenv(envVar); val != "" {
				providerConfig.APIKey = val
				config.Model.LLM.Providers[provider] = providerConfig
			}
		}
	}

	for provider, providerConfig := range config.Model.Embedding.Providers {
		if strings.HasPrefix(providerConfig.APIKey, "$") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(providerConfig.APIKey, "}"), "${")
			if val := os.Getenv(envVar); val != "" {
				providerConfig.APIKey = val
				config.Model.Embedding.Providers[provider] = providerConfig
			}
		}
	}

	if strings.HasPrefix(config.WebSearch.APIKey, "$") {
		envVar := strings.TrimPrefix(strings.TrimSuffix(config.WebSearch.APIKey, "}"), "${")
		if val := os.Getenv(envVar); val != "" {
			config.WebSearch.APIKey = val
		}
	}

	return nil
}

// LoadAPIConfig 加载 API 配置（仅 configs/api.yaml）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig("configs/api.yaml")
}

// LoadAPIConfigWithModel 加载 API 配置并合并 model 配置；storage 仍来自 api.yaml
func LoadAPIConfigWithModel() (*Config, error) {
	cfg, err := LoadConfig("configs/api.yaml")
	if err != nil {
		return nil, err
	}
	modelCfg, err := LoadConfig("configs/model.yaml")
	if err == nil {
		cfg.Model = modelCfg.Model
	}
	return cfg, nil
}

// LoadModelConfig 加载模型配置
func LoadModelConfig() (*Config, error) {
	return LoadConfig("configs/model.yaml")
}
