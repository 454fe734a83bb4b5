// Package server implements the line-delimited JSON protocol of spec.md
// §4.8 and §6: it reads user/control requests from an input stream, drives
// the scheduler, and writes assistant/system/result events to an output
// stream.
package server

import "encoding/json"

// InputLine is the union of the two shapes the server accepts on stdin.
// Type discriminates; Message and Action are only populated for their
// respective Type.
type InputLine struct {
	Type      string          `json:"type"`
	Message   *InputMessage   `json:"message,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Action    string          `json:"action,omitempty"`
}

// InputMessage carries a user turn's content, which may be a plain string
// or an array of content blocks (spec.md §6).
type InputMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ContentBlock is one element of an array-form message content (spec.md §6:
// "an array of content blocks is flattened by concatenating text blocks").
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FlattenContent resolves InputMessage.Content into plain text per spec.md
// §6: a JSON string is used verbatim; a JSON array of content blocks is
// flattened by concatenating the text of "text"-typed blocks.
func FlattenContent(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", err
	}
	out := ""
	for _, b := range blocks {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out, nil
}

// OutputLine is the union of every shape the server writes to stdout.
type OutputLine struct {
	Type       string          `json:"type"`
	Subtype    string          `json:"subtype,omitempty"`
	Message    *OutputMessage  `json:"message,omitempty"`
	Position   *int            `json:"position,omitempty"`
	MessageCnt *int            `json:"message_count,omitempty"`
	ContentLen *int            `json:"content_length,omitempty"`
	Err        string          `json:"error,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Content    string          `json:"content,omitempty"`

	DurationMS int64   `json:"duration_ms,omitempty"`
	IsError    bool    `json:"is_error,omitempty"`
	NumTurns   int     `json:"num_turns,omitempty"`
	SessionID  string  `json:"session_id,omitempty"`
	Result     *string `json:"result,omitempty"`
	Usage      *Usage  `json:"usage,omitempty"`
}

// OutputMessage is the assistant-message envelope for text and tool_use
// blocks (spec.md §6).
type OutputMessage struct {
	Role    string         `json:"role"`
	Content []ContentPart  `json:"content"`
	Model   string         `json:"model,omitempty"`
}

// ContentPart is one block of an assistant message: either {"type":"text",...}
// or {"type":"tool_use", "id":..., "name":..., "input":{...}}.
type ContentPart struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// Usage mirrors §6's result usage block.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
