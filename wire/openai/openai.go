// Package openai implements the atomic converters (spec.md §4.B) between the
// canonical IR (package ir) and the OpenAI Chat Completions wire dialect —
// the shape used both by /v1/chat/completions client requests and by Argo's
// OpenAI-style upstream sub-dialect.
package openai

import (
	"encoding/json"
	"fmt"

	openaisdk "github.com/openai/openai-go/v3"

	"github.com/taipm/argoproxy/errs"
	"github.com/taipm/argoproxy/ir"
)

// Message is the wire shape of one OpenAI chat message. Content is kept as
// raw JSON because OpenAI accepts both a bare string and an array of typed
// parts (spec.md §4.B Text rule).
type Message struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	Name       string          `json:"name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
}

// Part is one element of a multimodal content array.
type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// MessageToIR converts one wire Message to its IR form.
func MessageToIR(m Message) (ir.Message, error) {
	parts, err := ContentToIR(m.Content)
	if err != nil {
		return ir.Message{}, err
	}
	out := ir.Message{
		Role:       ir.Role(m.Role),
		Content:    parts,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		args, err := toolCallArgsToIR(tc.Function.Arguments)
		if err != nil {
			return ir.Message{}, err
		}
		out.ToolCalls = append(out.ToolCalls, ir.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	if err := out.Validate(); err != nil {
		return ir.Message{}, errs.New(errs.BadRequest, "openai.MessageToIR", err)
	}
	return out, nil
}

// MessageFromIR converts an IR Message to its OpenAI wire form.
func MessageFromIR(m ir.Message) (Message, error) {
	content, err := ContentFromIR(m.Content)
	if err != nil {
		return Message{}, err
	}
	out := Message{
		Role:       string(m.Role),
		Content:    content,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		args, err := json.Marshal(tc.Arguments)
		if err != nil {
			return Message{}, errs.New(errs.Internal, "openai.MessageFromIR", err)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: FunctionCall{
				Name:      tc.Name,
				Arguments: string(args),
			},
		})
	}
	return out, nil
}

// ContentToIR accepts either a bare JSON string or an array of typed parts,
// per spec.md §4.B's Text rule.
func ContentToIR(raw json.RawMessage) ([]ir.ContentPart, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []ir.ContentPart{ir.TextPart(s)}, nil
	}
	var parts []Part
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, errs.New(errs.BadRequest, "openai.ContentToIR", err)
	}
	out := make([]ir.ContentPart, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			out = append(out, ir.TextPart(p.Text))
		case "image_url":
			if p.ImageURL == nil {
				return nil, errs.New(errs.BadRequest, "openai.ContentToIR", fmt.Errorf("image_url part missing image_url"))
			}
			detail := ir.ImageDetail(p.ImageURL.Detail)
			if detail == "" {
				detail = ir.DetailAuto
			}
			out = append(out, imagePartToIR(p.ImageURL.URL, detail))
		default:
			return nil, errs.New(errs.UnsupportedContent, "openai.ContentToIR", fmt.Errorf("unsupported content part type %q", p.Type))
		}
	}
	return out, nil
}

func imagePartToIR(url string, detail ir.ImageDetail) ir.ContentPart {
	const dataPrefix = "data:"
	if len(url) >= len(dataPrefix) && url[:len(dataPrefix)] == dataPrefix {
		data, mediaType := parseDataURL(url)
		return ir.ImageDataPart(data, mediaType, detail)
	}
	return ir.ImageURLPart(url, detail)
}

// parseDataURL splits a "data:<mime>;base64,<data>" URL into its parts.
// Malformed inputs degrade to an empty media type rather than erroring —
// the downstream converter will reject an image it cannot use.
func parseDataURL(url string) (data, mediaType string) {
	const prefix = "data:"
	rest := url[len(prefix):]
	semi := -1
	comma := -1
	for i, c := range rest {
		if c == ';' && semi == -1 {
			semi = i
		}
		if c == ',' {
			comma = i
			break
		}
	}
	if comma == -1 {
		return "", ""
	}
	if semi == -1 || semi > comma {
		semi = comma
	}
	mediaType = rest[:semi]
	data = rest[comma+1:]
	return data, mediaType
}

// ContentFromIR renders IR content parts as either a bare JSON string (when
// there is exactly one text part, preserving the legacy non-multimodal
// shape) or a JSON array of typed parts.
func ContentFromIR(parts []ir.ContentPart) (json.RawMessage, error) {
	if len(parts) == 1 && parts[0].Kind == ir.PartText {
		return json.Marshal(parts[0].Text)
	}
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case ir.PartText:
			out = append(out, Part{Type: "text", Text: p.Text})
		case ir.PartImage:
			url, err := imagePartFromIR(p)
			if err != nil {
				return nil, err
			}
			out = append(out, Part{Type: "image_url", ImageURL: &ImageURL{URL: url, Detail: string(p.Detail)}})
		case ir.PartFile:
			return nil, errs.New(errs.UnsupportedContent, "openai.ContentFromIR", fmt.Errorf("file content parts are not representable on the OpenAI dialect"))
		default:
			return nil, errs.New(errs.UnsupportedContent, "openai.ContentFromIR", fmt.Errorf("unsupported IR part kind %q for OpenAI emission", p.Kind))
		}
	}
	if len(out) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(out)
}

func imagePartFromIR(p ir.ContentPart) (string, error) {
	if p.ImageData != nil {
		return fmt.Sprintf("data:%s;base64,%s", p.ImageData.MediaType, p.ImageData.Data), nil
	}
	return p.ImageURL, nil
}

func toolCallArgsToIR(arguments string) (map[string]any, error) {
	if arguments == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, errs.New(errs.BadRequest, "openai.toolCallArgsToIR", err)
	}
	return args, nil
}

// ToolDefToIR converts one OpenAI function-tool definition to IR. It routes
// through the openai-go/v3 SDK's own FunctionDefinitionParam/
// FunctionParameters types (the same types github.com/openai/openai-go/v3's
// ChatCompletionFunctionTool helper expects) so this package's notion of a
// function-tool definition stays structurally aligned with the SDK's.
func ToolDefToIR(t Tool) ir.ToolDefinition {
	fd := openaisdk.FunctionDefinitionParam{
		Name:        t.Function.Name,
		Description: openaisdk.String(t.Function.Description),
		Parameters:  openaisdk.FunctionParameters(t.Function.Parameters),
	}
	return ir.ToolDefinition{
		Name:        fd.Name,
		Description: fd.Description.Value,
		Parameters:  map[string]any(fd.Parameters),
	}
}

// ToolDefFromIR converts one IR tool definition to the OpenAI wire shape,
// building it via the openai-go/v3 SDK's FunctionDefinitionParam the way
// openai.ChatCompletionFunctionTool does, then flattening to this package's
// JSON wire struct so callers keep marshaling a plain []Tool.
func ToolDefFromIR(t ir.ToolDefinition) Tool {
	fd := openaisdk.FunctionDefinitionParam{
		Name:        t.Name,
		Description: openaisdk.String(t.Description),
		Parameters:  openaisdk.FunctionParameters(t.Parameters),
	}
	return Tool{
		Type: "function",
		Function: FunctionDef{
			Name:        fd.Name,
			Description: fd.Description.Value,
			Parameters:  map[string]any(fd.Parameters),
		},
	}
}

// ToolChoiceToIR parses the OpenAI tool_choice field, which is either the
// bare strings "auto"/"none"/"required" or {"type":"function","function":{"name":...}}.
func ToolChoiceToIR(raw json.RawMessage) (*ir.ToolChoice, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "auto":
			return &ir.ToolChoice{Kind: ir.ToolChoiceAuto}, nil
		case "none":
			return &ir.ToolChoice{Kind: ir.ToolChoiceNone}, nil
		case "required":
			return &ir.ToolChoice{Kind: ir.ToolChoiceRequired}, nil
		default:
			return nil, errs.New(errs.BadRequest, "openai.ToolChoiceToIR", fmt.Errorf("unknown tool_choice %q", s))
		}
	}
	var obj struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errs.New(errs.BadRequest, "openai.ToolChoiceToIR", err)
	}
	return &ir.ToolChoice{Kind: ir.ToolChoiceSpecific, Name: obj.Function.Name}, nil
}

// ToolChoiceFromIR renders an IR tool choice in the OpenAI wire shape.
func ToolChoiceFromIR(c *ir.ToolChoice) (json.RawMessage, error) {
	if c == nil {
		return nil, nil
	}
	switch c.Kind {
	case ir.ToolChoiceAuto:
		return json.Marshal("auto")
	case ir.ToolChoiceNone:
		return json.Marshal("none")
	case ir.ToolChoiceRequired:
		return json.Marshal("required")
	case ir.ToolChoiceSpecific:
		return json.Marshal(map[string]any{
			"type":     "function",
			"function": map[string]any{"name": c.Name},
		})
	default:
		return nil, errs.New(errs.Internal, "openai.ToolChoiceFromIR", fmt.Errorf("unknown tool choice kind %q", c.Kind))
	}
}
