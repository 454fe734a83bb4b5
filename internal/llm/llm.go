// Package llm defines the opaque model-provider boundary the agent loop
// calls through. A real provider backend is out of scope (spec.md §1); this
// package exists only so internal/agent can be written and tested against a
// stable interface, shaped after the teacher's internal/embedding.Embedder
// pluggable-provider interface.
package llm

import "context"

// Role enumerates a conversation message's speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the conversation passed to a provider.
type Message struct {
	Role Role
	// Content is the message text for system/user/assistant roles, or the
	// tool result body for RoleTool.
	Content string
	// ToolCalls carries the tool calls an assistant turn made, so a later
	// RoleTool message's ToolCallID can be correlated back to them.
	ToolCalls []ToolCall
	// ToolCallID links a RoleTool message back to the ToolCall.ID that
	// produced it.
	ToolCallID string
}

// ToolSpec describes one callable tool in provider-agnostic form. The agent
// loop derives these from internal/tool.Registry.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-schema-shaped parameter description
}

// ToolCall is a provider's request to invoke a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// Usage reports token accounting for one generate call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response is one provider turn: either prose text, one or more tool calls,
// or both (a provider may narrate before calling a tool).
type Response struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}

// Provider is the opaque generate(messages, tools) -> response boundary
// spec.md §1 places out of core scope. The agent loop depends only on this
// interface; no concrete network-backed implementation ships in this repo.
type Provider interface {
	Generate(ctx context.Context, model string, messages []Message, tools []ToolSpec, maxTokens int) (Response, error)
}
