package session

import (
	"time"

	"github.com/google/uuid"

	"policy-navigator/internal/model/llm"
)

// 消息角色（与 OpenAI 对话角色对齐）
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message 对话消息；ID 用于摘要压缩时按条删除
type Message struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	Name       string    `json:"name,omitempty"` // 工具消息的工具名
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessage 创建带新 ID 的消息
func NewMessage(role, content string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// ToLLM 转为 llm.Message（供分类器、摘要器使用）
func (m *Message) ToLLM() llm.Message {
	return llm.Message{Role: m.Role, Content: m.Content}
}

// MessagesToLLM 将 []*Message 转为 []llm.Message
func MessagesToLLM(list []*Message) []llm.Message {
	if len(list) == 0 {
		return nil
	}
	out := make([]llm.Message, len(list))
	for i, m := range list {
		out[i] = m.ToLLM()
	}
	return out
}
