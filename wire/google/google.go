// Package google implements the atomic converters (spec.md §4.B) between the
// canonical IR and the Google/Gemini-style dialect Argo uses for that model
// family's upstream requests. Tool definitions and tool calls reuse the
// leaf types of github.com/google/generative-ai-go/genai (FunctionDeclaration,
// Schema, FunctionCall) rather than re-declaring them, since those types
// already model exactly this wire shape.
package google

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/taipm/argoproxy/errs"
	"github.com/taipm/argoproxy/ir"
)

// Part is one element of a Gemini "parts" array.
type Part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *InlineData       `json:"inlineData,omitempty"`
	FunctionCall     *genai.FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Content is one Gemini "contents[]" entry; Role is "user" or "model".
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// ContentToIR converts one Gemini Content entry to IR, synthesising a
// deterministic call_<index> id for any FunctionCall part since Gemini does
// not supply one natively (spec.md §4.B Tool-call rule).
func ContentToIR(c Content) (ir.Message, error) {
	role := ir.RoleUser
	if c.Role == "model" {
		role = ir.RoleAssistant
	}

	var parts []ir.ContentPart
	var calls []ir.ToolCall
	callIndex := 0

	for _, p := range c.Parts {
		switch {
		case p.Text != "":
			parts = append(parts, ir.TextPart(p.Text))
		case p.InlineData != nil:
			parts = append(parts, ir.ImageDataPart(p.InlineData.Data, p.InlineData.MimeType, ir.DetailAuto))
		case p.FunctionCall != nil:
			id := fmt.Sprintf("call_%d", callIndex)
			callIndex++
			calls = append(calls, ir.ToolCall{ID: id, Name: p.FunctionCall.Name, Arguments: p.FunctionCall.Args})
		case p.FunctionResponse != nil:
			data, _ := json.Marshal(p.FunctionResponse.Response)
			return ir.Message{
				Role:       ir.RoleTool,
				ToolCallID: p.FunctionResponse.Name,
				Content:    []ir.ContentPart{ir.TextPart(string(data))},
			}, nil
		default:
			return ir.Message{}, errs.New(errs.UnsupportedContent, "google.ContentToIR", fmt.Errorf("empty or unrecognised Gemini part"))
		}
	}

	out := ir.Message{Role: role, Content: parts, ToolCalls: calls}
	if err := out.Validate(); err != nil {
		return ir.Message{}, errs.New(errs.BadRequest, "google.ContentToIR", err)
	}
	return out, nil
}

// ContentFromIR renders an IR message as one Gemini Content entry.
func ContentFromIR(m ir.Message) (Content, error) {
	role := "user"
	if m.Role == ir.RoleAssistant {
		role = "model"
	}
	if m.Role == ir.RoleTool {
		var resp map[string]any
		_ = json.Unmarshal([]byte(textOf(m.Content)), &resp)
		return Content{Role: "user", Parts: []Part{{FunctionResponse: &FunctionResponse{Name: m.ToolCallID, Response: resp}}}}, nil
	}

	parts := make([]Part, 0, len(m.Content)+len(m.ToolCalls))
	for _, p := range m.Content {
		switch p.Kind {
		case ir.PartText:
			parts = append(parts, Part{Text: p.Text})
		case ir.PartImage:
			if p.ImageData == nil {
				return Content{}, errs.New(errs.UnsupportedImageSource, "google.ContentFromIR", fmt.Errorf("Gemini dialect requires inline image data, not a URL"))
			}
			parts = append(parts, Part{InlineData: &InlineData{MimeType: p.ImageData.MediaType, Data: p.ImageData.Data}})
		case ir.PartFile:
			return Content{}, errs.New(errs.UnsupportedContent, "google.ContentFromIR", fmt.Errorf("file content parts are not representable on the Gemini dialect"))
		default:
			return Content{}, errs.New(errs.UnsupportedContent, "google.ContentFromIR", fmt.Errorf("unsupported IR part kind %q", p.Kind))
		}
	}
	for _, tc := range m.ToolCalls {
		parts = append(parts, Part{FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: tc.Arguments}})
	}
	return Content{Role: role, Parts: parts}, nil
}

func textOf(parts []ir.ContentPart) string {
	out := ""
	for _, p := range parts {
		if p.Kind == ir.PartText {
			out += p.Text
		}
	}
	return out
}

// ToolDefToIR converts a genai.FunctionDeclaration to IR, accepting the
// upper-case JSON-Schema type tokens Gemini emits ("OBJECT", "STRING", ...).
func ToolDefToIR(fd *genai.FunctionDeclaration) ir.ToolDefinition {
	return ir.ToolDefinition{
		Name:        fd.Name,
		Description: fd.Description,
		Parameters:  schemaToMap(fd.Parameters),
	}
}

// ToolDefFromIR converts an IR tool definition to a genai.FunctionDeclaration,
// always emitting lower-case type tokens toward Argo.
func ToolDefFromIR(t ir.ToolDefinition) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  mapToSchema(t.Parameters),
	}
}

// DeclarationToJSON renders a genai.FunctionDeclaration as the plain
// lower-case-typed JSON object Argo's Google-style dialect expects on the
// wire, since genai.Schema's own JSON encoding targets the Google API
// client rather than this proxy's outbound envelope.
func DeclarationToJSON(fd *genai.FunctionDeclaration) map[string]any {
	out := map[string]any{"name": fd.Name}
	if fd.Description != "" {
		out["description"] = fd.Description
	}
	if fd.Parameters != nil {
		out["parameters"] = schemaToMap(fd.Parameters)
	}
	return out
}

func schemaToMap(s *genai.Schema) map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": strings.ToLower(strings.TrimPrefix(s.Type.String(), "Type"))}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for k, v := range s.Properties {
			props[k] = schemaToMap(v)
		}
		out["properties"] = props
	}
	if s.Items != nil {
		out["items"] = schemaToMap(s.Items)
	}
	return out
}

func mapToSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	s := &genai.Schema{Type: schemaType(m["type"])}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for k, v := range props {
			if vm, ok := v.(map[string]any); ok {
				s.Properties[k] = mapToSchema(vm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = mapToSchema(items)
	}
	return s
}

func schemaType(v any) genai.Type {
	s, _ := v.(string)
	switch strings.ToUpper(s) {
	case "STRING":
		return genai.TypeString
	case "NUMBER":
		return genai.TypeNumber
	case "INTEGER":
		return genai.TypeInteger
	case "BOOLEAN":
		return genai.TypeBoolean
	case "ARRAY":
		return genai.TypeArray
	case "OBJECT":
		return genai.TypeObject
	default:
		return genai.TypeObject
	}
}

// ToolChoiceToIR parses Google's functionCallingConfig shape.
func ToolChoiceToIR(raw json.RawMessage) (*ir.ToolChoice, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var obj struct {
		FunctionCallingConfig struct {
			Mode                 string   `json:"mode"`
			AllowedFunctionNames []string `json:"allowedFunctionNames"`
		} `json:"functionCallingConfig"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errs.New(errs.BadRequest, "google.ToolChoiceToIR", err)
	}
	switch strings.ToUpper(obj.FunctionCallingConfig.Mode) {
	case "AUTO", "":
		return &ir.ToolChoice{Kind: ir.ToolChoiceAuto}, nil
	case "NONE":
		return &ir.ToolChoice{Kind: ir.ToolChoiceNone}, nil
	case "ANY":
		if len(obj.FunctionCallingConfig.AllowedFunctionNames) == 1 {
			return &ir.ToolChoice{Kind: ir.ToolChoiceSpecific, Name: obj.FunctionCallingConfig.AllowedFunctionNames[0]}, nil
		}
		return &ir.ToolChoice{Kind: ir.ToolChoiceRequired}, nil
	default:
		return nil, errs.New(errs.BadRequest, "google.ToolChoiceToIR", fmt.Errorf("unknown function calling mode %q", obj.FunctionCallingConfig.Mode))
	}
}

// ToolChoiceFromIR renders an IR tool choice as Google's functionCallingConfig.
func ToolChoiceFromIR(c *ir.ToolChoice) (json.RawMessage, error) {
	if c == nil {
		return nil, nil
	}
	cfg := map[string]any{}
	switch c.Kind {
	case ir.ToolChoiceAuto:
		cfg["mode"] = "AUTO"
	case ir.ToolChoiceNone:
		cfg["mode"] = "NONE"
	case ir.ToolChoiceRequired:
		cfg["mode"] = "ANY"
	case ir.ToolChoiceSpecific:
		cfg["mode"] = "ANY"
		cfg["allowedFunctionNames"] = []string{c.Name}
	default:
		return nil, errs.New(errs.Internal, "google.ToolChoiceFromIR", fmt.Errorf("unknown tool choice kind %q", c.Kind))
	}
	return json.Marshal(map[string]any{"functionCallingConfig": cfg})
}
