// Package tool defines the tagged-variant tool representation and the
// dispatcher behavior spec.md §4.5 and Design Notes §9 call for: "Represent
// as a tagged variant {name, parameter_schema, execute(args, ctx) → string},
// uniformly stored in a name-keyed mapping."
//
// The real tool implementations (bash, read, write, edit, glob, grep) and
// the MCP client that enumerates additional tools are explicitly out of
// core scope (spec.md §1); this package only defines the shape every tool
// — built-in or MCP-sourced — is dispatched through, plus the built-in
// present-state and compaction tools the core itself owns.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// ParamType enumerates the primitive JSON types a parameter may declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// Param describes one named argument a tool accepts.
type Param struct {
	Type        ParamType
	Required    bool
	Description string
}

// Schema is a tool's parameter_schema: a name-keyed map of Param.
type Schema map[string]Param

// Tool is the tagged variant every dispatchable tool takes the shape of.
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	Execute     func(ctx context.Context, args map[string]any) (string, error)
}

// InvalidToolCallName is the synthetic tool the dispatcher redirects to on
// an unknown tool name or a schema-validation failure (spec.md §4.5).
const InvalidToolCallName = "__invalid_tool_call__"

// Registry is a name-keyed mapping of tools, the same "uniformly stored"
// structure Design Notes §9 asks for. The CLI builds one per process (the
// invalid-call tool plus the present-state tools); the compaction agent
// builds one per outer turn (the invalid-call tool plus its two tools).
type Registry struct {
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, in no particular order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}

// Dispatch executes one tool call and always returns a tool_result string,
// per spec.md §4.5's containment policy: invalid-arguments redirection and
// execution-error containment both become ordinary text instead of
// propagating an error up to the agent loop.
func Dispatch(ctx context.Context, reg *Registry, name string, argsJSON json.RawMessage) string {
	t, ok := reg.Get(name)
	if !ok {
		return dispatchInvalid(ctx, reg, name, argsJSON, fmt.Sprintf("unknown tool %q", name))
	}

	args, err := decodeArgs(argsJSON)
	if err != nil {
		return dispatchInvalid(ctx, reg, name, argsJSON, fmt.Sprintf("malformed arguments: %v", err))
	}

	if err := t.Schema.Validate(args); err != nil {
		return dispatchInvalid(ctx, reg, name, argsJSON, err.Error())
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing tool %q: %v", name, err)
	}
	return result
}

func dispatchInvalid(ctx context.Context, reg *Registry, attemptedName string, argsJSON json.RawMessage, validationErr string) string {
	invalid, ok := reg.Get(InvalidToolCallName)
	if !ok {
		// No registry should ever omit the synthetic tool; fall back to an
		// inline message rather than panic if one does.
		return fmt.Sprintf("Error executing tool %q: %s", attemptedName, validationErr)
	}
	args := map[string]any{
		"attempted_tool_name":    attemptedName,
		"attempted_args_as_json": string(argsJSON),
		"validation_error":       validationErr,
	}
	result, _ := invalid.Execute(ctx, args)
	return result
}

func decodeArgs(argsJSON json.RawMessage) (map[string]any, error) {
	if len(argsJSON) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, err
	}
	return args, nil
}

// Validate checks that every required param is present and, when present,
// every param's runtime type matches its declared type. This is a
// deliberately small, dependency-free check rather than full JSON Schema
// validation.
func (s Schema) Validate(args map[string]any) error {
	for name, p := range s {
		v, present := args[name]
		if !present {
			if p.Required {
				return fmt.Errorf("missing required parameter %q", name)
			}
			continue
		}
		if !matchesType(v, p.Type) {
			return fmt.Errorf("parameter %q: expected %s, got %T", name, p.Type, v)
		}
	}
	return nil
}

func matchesType(v any, want ParamType) bool {
	switch want {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		_, ok := v.(float64)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}

// NewInvalidToolCallTool builds the synthetic __invalid_tool_call__ tool
// that the dispatcher redirects to (spec.md §4.5).
func NewInvalidToolCallTool() Tool {
	return Tool{
		Name:        InvalidToolCallName,
		Description: "Synthetic tool reporting an unknown tool name or schema validation failure.",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf(
				"Invalid tool call: attempted_tool_name=%v validation_error=%v attempted_args_as_json=%v",
				args["attempted_tool_name"], args["validation_error"], args["attempted_args_as_json"],
			), nil
		},
	}
}
