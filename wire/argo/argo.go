// Package argo implements the atomic converters (spec.md §4.B) for Argo's
// own envelope and its three-shaped "response" field. Argo's per-family
// message/tool conventions are themselves the OpenAI/Anthropic/Google wire
// shapes (packages openai, anthropic, google); this package only adds what
// is specific to Argo's envelope: the outbound request wrapper and the
// inbound response's polymorphic shape (spec.md §4.G.1).
package argo

import (
	"encoding/json"
	"fmt"

	"github.com/taipm/argoproxy/errs"
)

// Request is the envelope posted to Argo's chat (or streamchat) endpoint.
// Messages/Tools/ToolChoice are left as raw JSON because their inner shape
// depends on the resolved model's family (spec.md §4.C step 3).
type Request struct {
	Model       string          `json:"model"`
	Messages    json.RawMessage `json:"messages,omitempty"`
	System      string          `json:"system,omitempty"`
	Tools       json.RawMessage `json:"tools,omitempty"`
	ToolChoice  json.RawMessage `json:"tool_choice,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Seed        *int64          `json:"seed,omitempty"`
	User        string          `json:"user,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// Response is the envelope Argo returns. Response carries the polymorphic
// "response" field spec.md §4.G.1 describes; Usage and the rest are fixed
// shape regardless of family.
type Response struct {
	ID       string          `json:"id,omitempty"`
	Model    string          `json:"model,omitempty"`
	Created  int64           `json:"created,omitempty"`
	Response json.RawMessage `json:"response"`
	Usage    *Usage          `json:"usage,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NormalizedCall is one tool call recovered from any of the three response
// shapes, before family-specific field names are reconciled by package
// toolcall (spec.md §4.G.2).
type NormalizedCall struct {
	// OpenAI-style
	ID           string
	FunctionName string
	ArgumentsRaw string // JSON-encoded arguments, OpenAI style

	// Anthropic-style (tool_use block)
	AnthropicID    string
	AnthropicName  string
	AnthropicInput map[string]any

	// Google-style
	GoogleName string
	GoogleArgs map[string]any
}

// NormalizeResponse reduces Argo's "response" field — a bare string, an
// {content, tool_calls} object, or an Anthropic-style array of blocks — to
// (text, calls), per spec.md §4.G.1.
func NormalizeResponse(raw json.RawMessage) (text string, calls []NormalizedCall, err error) {
	if len(raw) == 0 {
		return "", nil, errs.New(errs.UpstreamEmpty, "argo.NormalizeResponse", fmt.Errorf("empty response field"))
	}

	// (a) bare string
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil, nil
	}

	// (c) Anthropic-style array of blocks
	var blocks []json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return normalizeBlocks(blocks)
	}

	// (b) {content, tool_calls} object
	var obj struct {
		Content   json.RawMessage   `json:"content"`
		ToolCalls []json.RawMessage `json:"tool_calls"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil, errs.New(errs.UpstreamInvalidResponse, "argo.NormalizeResponse", err)
	}
	if len(obj.Content) > 0 {
		if err := json.Unmarshal(obj.Content, &text); err != nil {
			text = string(obj.Content)
		}
	}
	for _, rawCall := range obj.ToolCalls {
		call, err := normalizeOneCall(rawCall)
		if err != nil {
			return "", nil, err
		}
		calls = append(calls, call)
	}
	return text, calls, nil
}

// normalizeOneCall distinguishes the OpenAI-style tool-call shape
// ({id, type, function:{name, arguments}}) from the flat Google shape
// ({name, args}) a single array element might use, per spec.md §4.G.2.
func normalizeOneCall(raw json.RawMessage) (NormalizedCall, error) {
	var openaiShape struct {
		ID       string `json:"id"`
		Function *struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &openaiShape); err == nil && openaiShape.Function != nil {
		return NormalizedCall{ID: openaiShape.ID, FunctionName: openaiShape.Function.Name, ArgumentsRaw: openaiShape.Function.Arguments}, nil
	}

	var googleShape struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	}
	if err := json.Unmarshal(raw, &googleShape); err == nil && googleShape.Name != "" {
		return NormalizedCall{GoogleName: googleShape.Name, GoogleArgs: googleShape.Args}, nil
	}

	return NormalizedCall{}, errs.New(errs.UpstreamInvalidResponse, "argo.normalizeOneCall", fmt.Errorf("unrecognised tool call shape: %s", string(raw)))
}

func normalizeBlocks(blocks []json.RawMessage) (string, []NormalizedCall, error) {
	var text string
	var calls []NormalizedCall
	for _, raw := range blocks {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return "", nil, errs.New(errs.UpstreamInvalidResponse, "argo.normalizeBlocks", err)
		}
		switch head.Type {
		case "text":
			var t struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(raw, &t); err != nil {
				return "", nil, errs.New(errs.UpstreamInvalidResponse, "argo.normalizeBlocks", err)
			}
			text += t.Text
		case "tool_use":
			var tu struct {
				ID    string         `json:"id"`
				Name  string         `json:"name"`
				Input map[string]any `json:"input"`
			}
			if err := json.Unmarshal(raw, &tu); err != nil {
				return "", nil, errs.New(errs.UpstreamInvalidResponse, "argo.normalizeBlocks", err)
			}
			calls = append(calls, NormalizedCall{AnthropicID: tu.ID, AnthropicName: tu.Name, AnthropicInput: tu.Input})
		default:
			// Unknown block types are dropped without failing the request
			// (spec.md §7); no warning is recorded for them.
		}
	}
	return text, calls, nil
}
