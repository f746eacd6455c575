// Package anthropic implements the atomic converters (spec.md §4.B) between
// the canonical IR and the Anthropic Messages wire dialect, used by the
// /v1/messages client endpoint and by Argo's Anthropic-style upstream
// sub-dialect.
package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/taipm/argoproxy/errs"
	"github.com/taipm/argoproxy/ir"
)

// Message is the wire shape of one Anthropic message; Content may be a bare
// string or an array of typed Blocks.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Block is one element of an Anthropic content array.
type Block struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// tool_use
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

type ImageSource struct {
	Type      string `json:"type"` // "base64" | "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// MessageToIR converts one wire Message to IR. Each tool_result block maps
// to a Message with Role=tool whose ToolCallID is the block's tool_use_id;
// a message holding tool_result blocks yields only those messages.
func MessageToIR(m Message) ([]ir.Message, error) {
	blocks, err := contentToBlocks(m.Content)
	if err != nil {
		return nil, err
	}

	role := ir.Role(m.Role)
	var parts []ir.ContentPart
	var toolCalls []ir.ToolCall
	var toolResults []ir.Message

	for _, b := range blocks {
		switch b.Type {
		case "text":
			parts = append(parts, ir.TextPart(b.Text))
		case "image":
			part, err := imageBlockToIR(b)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		case "tool_use":
			toolCalls = append(toolCalls, ir.ToolCall{ID: b.ID, Name: b.Name, Arguments: b.Input})
		case "tool_result":
			text, err := toolResultText(b.Content)
			if err != nil {
				return nil, err
			}
			toolResults = append(toolResults, ir.Message{
				Role:       ir.RoleTool,
				ToolCallID: b.ToolUseID,
				Content:    []ir.ContentPart{ir.TextPart(text)},
			})
		default:
			return nil, errs.New(errs.UnsupportedContent, "anthropic.MessageToIR", fmt.Errorf("unsupported block type %q", b.Type))
		}
	}

	if len(toolResults) > 0 {
		return toolResults, nil
	}

	out := ir.Message{Role: role, Content: parts, ToolCalls: toolCalls}
	if err := out.Validate(); err != nil {
		return nil, errs.New(errs.BadRequest, "anthropic.MessageToIR", err)
	}
	return []ir.Message{out}, nil
}

func toolResultText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var blocks []Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", errs.New(errs.BadRequest, "anthropic.toolResultText", err)
	}
	text := ""
	for _, b := range blocks {
		if b.Type == "text" {
			text += b.Text
		}
	}
	return text, nil
}

func contentToBlocks(raw json.RawMessage) ([]Block, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []Block{{Type: "text", Text: s}}, nil
	}
	var blocks []Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, errs.New(errs.BadRequest, "anthropic.contentToBlocks", err)
	}
	return blocks, nil
}

func imageBlockToIR(b Block) (ir.ContentPart, error) {
	if b.Source == nil {
		return ir.ContentPart{}, errs.New(errs.BadRequest, "anthropic.imageBlockToIR", fmt.Errorf("image block missing source"))
	}
	switch b.Source.Type {
	case "base64":
		return ir.ImageDataPart(b.Source.Data, b.Source.MediaType, ir.DetailAuto), nil
	case "url":
		return ir.ImageURLPart(b.Source.URL, ir.DetailAuto), nil
	default:
		return ir.ContentPart{}, errs.New(errs.BadRequest, "anthropic.imageBlockToIR", fmt.Errorf("unsupported image source type %q", b.Source.Type))
	}
}

// MessageFromIR renders an IR message in the Anthropic wire shape. A
// Role=tool message becomes a user message carrying one tool_result block,
// matching Anthropic's convention that tool results travel as user turns.
func MessageFromIR(m ir.Message) (Message, error) {
	if m.Role == ir.RoleTool {
		block := Block{Type: "tool_result", ToolUseID: m.ToolCallID}
		text := textOf(m.Content)
		content, err := json.Marshal(text)
		if err != nil {
			return Message{}, errs.New(errs.Internal, "anthropic.MessageFromIR", err)
		}
		block.Content = content
		raw, err := json.Marshal([]Block{block})
		if err != nil {
			return Message{}, errs.New(errs.Internal, "anthropic.MessageFromIR", err)
		}
		return Message{Role: "user", Content: raw}, nil
	}

	blocks := make([]Block, 0, len(m.Content)+len(m.ToolCalls))
	for _, p := range m.Content {
		switch p.Kind {
		case ir.PartText:
			blocks = append(blocks, Block{Type: "text", Text: p.Text})
		case ir.PartImage:
			src, err := imageSourceFromIR(p)
			if err != nil {
				return Message{}, err
			}
			blocks = append(blocks, Block{Type: "image", Source: src})
		case ir.PartFile:
			return Message{}, errs.New(errs.UnsupportedContent, "anthropic.MessageFromIR", fmt.Errorf("file content parts are not representable on the Anthropic dialect"))
		default:
			return Message{}, errs.New(errs.UnsupportedContent, "anthropic.MessageFromIR", fmt.Errorf("unsupported IR part kind %q", p.Kind))
		}
	}
	for _, tc := range m.ToolCalls {
		blocks = append(blocks, Block{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: tc.Arguments})
	}

	raw, err := json.Marshal(blocks)
	if err != nil {
		return Message{}, errs.New(errs.Internal, "anthropic.MessageFromIR", err)
	}
	return Message{Role: string(m.Role), Content: raw}, nil
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

func imageSourceFromIR(p ir.ContentPart) (*ImageSource, error) {
	if p.ImageData != nil {
		return &ImageSource{Type: "base64", MediaType: p.ImageData.MediaType, Data: p.ImageData.Data}, nil
	}
	if p.IsImageURL() {
		return &ImageSource{Type: "url", URL: p.ImageURL}, nil
	}
	return nil, errs.New(errs.UnsupportedContent, "anthropic.imageSourceFromIR", fmt.Errorf("image part has neither data nor url"))
}

// ToolDefToIR converts one Anthropic tool definition to IR.
func ToolDefToIR(t Tool) ir.ToolDefinition {
	return ir.ToolDefinition{Name: t.Name, Description: t.Description, Parameters: t.InputSchema}
}

// ToolDefFromIR converts one IR tool definition to the Anthropic wire shape.
func ToolDefFromIR(t ir.ToolDefinition) Tool {
	return Tool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters}
}

// ToolChoiceToIR parses Anthropic's {"type":"auto"|"any"|"none"|"tool","name":...}.
func ToolChoiceToIR(raw json.RawMessage) (*ir.ToolChoice, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var obj struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errs.New(errs.BadRequest, "anthropic.ToolChoiceToIR", err)
	}
	switch obj.Type {
	case "auto":
		return &ir.ToolChoice{Kind: ir.ToolChoiceAuto}, nil
	case "any":
		return &ir.ToolChoice{Kind: ir.ToolChoiceRequired}, nil
	case "none":
		return &ir.ToolChoice{Kind: ir.ToolChoiceNone}, nil
	case "tool":
		return &ir.ToolChoice{Kind: ir.ToolChoiceSpecific, Name: obj.Name}, nil
	default:
		return nil, errs.New(errs.BadRequest, "anthropic.ToolChoiceToIR", fmt.Errorf("unknown tool_choice type %q", obj.Type))
	}
}

// ToolChoiceFromIR renders an IR tool choice in the Anthropic wire shape.
func ToolChoiceFromIR(c *ir.ToolChoice) (json.RawMessage, error) {
	if c == nil {
		return nil, nil
	}
	switch c.Kind {
	case ir.ToolChoiceAuto:
		return json.Marshal(map[string]any{"type": "auto"})
	case ir.ToolChoiceNone:
		return json.Marshal(map[string]any{"type": "none"})
	case ir.ToolChoiceRequired:
		return json.Marshal(map[string]any{"type": "any"})
	case ir.ToolChoiceSpecific:
		return json.Marshal(map[string]any{"type": "tool", "name": c.Name})
	default:
		return nil, errs.New(errs.Internal, "anthropic.ToolChoiceFromIR", fmt.Errorf("unknown tool choice kind %q", c.Kind))
	}
}
