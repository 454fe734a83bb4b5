package llm

import (
	"context"
	"fmt"
)

// Fake is a deterministic, scripted Provider for tests: each call to
// Generate returns the next entry in Responses, in order. It records every
// call it receives so a test can assert on what the agent loop sent.
type Fake struct {
	Responses []Response
	calls     []fakeCall
	next      int
}

type fakeCall struct {
	Model     string
	Messages  []Message
	Tools     []ToolSpec
	MaxTokens int
}

// ErrExhausted is returned once Responses is consumed past its end, so a
// runaway agent loop fails fast instead of looping forever against a zero
// Response.
var ErrExhausted = fmt.Errorf("llm: fake provider exhausted its scripted responses")

func (f *Fake) Generate(ctx context.Context, model string, messages []Message, tools []ToolSpec, maxTokens int) (Response, error) {
	f.calls = append(f.calls, fakeCall{Model: model, Messages: messages, Tools: tools, MaxTokens: maxTokens})
	if f.next >= len(f.Responses) {
		return Response{}, ErrExhausted
	}
	resp := f.Responses[f.next]
	f.next++
	return resp, nil
}

// Calls returns the number of times Generate has been invoked.
func (f *Fake) Calls() int {
	return len(f.calls)
}

// LastMessages returns the messages passed to the most recent Generate
// call, or nil if Generate was never called.
func (f *Fake) LastMessages() []Message {
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1].Messages
}
