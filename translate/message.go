// Package translate composes the atomic converters of package wire/* over
// package ir (spec.md §4.C): message, request, and response level assembly.
package translate

import (
	"encoding/json"
	"fmt"

	"github.com/taipm/argoproxy/errs"
	"github.com/taipm/argoproxy/ir"
	anthropicwire "github.com/taipm/argoproxy/wire/anthropic"
	googlewire "github.com/taipm/argoproxy/wire/google"
	openaiwire "github.com/taipm/argoproxy/wire/openai"
)

// MessagesToFamilyJSON renders a slice of IR messages as the JSON array the
// given family expects on the wire to Argo.
func MessagesToFamilyJSON(messages []ir.Message, family ir.Family) (json.RawMessage, error) {
	switch family {
	case ir.FamilyAnthropic:
		out := make([]anthropicwire.Message, 0, len(messages))
		for _, m := range messages {
			wm, err := anthropicwire.MessageFromIR(m)
			if err != nil {
				return nil, err
			}
			out = append(out, wm)
		}
		return json.Marshal(out)
	case ir.FamilyGoogle:
		out := make([]googlewire.Content, 0, len(messages))
		for _, m := range messages {
			wc, err := googlewire.ContentFromIR(m)
			if err != nil {
				return nil, err
			}
			out = append(out, wc)
		}
		return json.Marshal(out)
	default: // openai, unknown
		out := make([]openaiwire.Message, 0, len(messages))
		for _, m := range messages {
			wm, err := openaiwire.MessageFromIR(m)
			if err != nil {
				return nil, err
			}
			out = append(out, wm)
		}
		return json.Marshal(out)
	}
}

// MessagesFromFamilyJSON parses a family-dialect message array into IR.
func MessagesFromFamilyJSON(raw json.RawMessage, family ir.Family) ([]ir.Message, error) {
	switch family {
	case ir.FamilyAnthropic:
		var wire []anthropicwire.Message
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, errs.New(errs.BadRequest, "translate.MessagesFromFamilyJSON", err)
		}
		var out []ir.Message
		for _, m := range wire {
			converted, err := anthropicwire.MessageToIR(m)
			if err != nil {
				return nil, err
			}
			out = append(out, converted...)
		}
		return out, nil
	case ir.FamilyGoogle:
		var wire []googlewire.Content
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, errs.New(errs.BadRequest, "translate.MessagesFromFamilyJSON", err)
		}
		out := make([]ir.Message, 0, len(wire))
		for _, c := range wire {
			m, err := googlewire.ContentToIR(c)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	default:
		var wire []openaiwire.Message
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, errs.New(errs.BadRequest, "translate.MessagesFromFamilyJSON", err)
		}
		out := make([]ir.Message, 0, len(wire))
		for _, m := range wire {
			converted, err := openaiwire.MessageToIR(m)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	}
}

// ToolsToFamilyJSON renders IR tool definitions in the given family's shape.
func ToolsToFamilyJSON(tools []ir.ToolDefinition, family ir.Family) (json.RawMessage, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	switch family {
	case ir.FamilyAnthropic:
		out := make([]anthropicwire.Tool, 0, len(tools))
		for _, t := range tools {
			out = append(out, anthropicwire.ToolDefFromIR(t))
		}
		return json.Marshal(out)
	case ir.FamilyGoogle:
		decls := make([]map[string]any, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, googlewire.DeclarationToJSON(googlewire.ToolDefFromIR(t)))
		}
		return json.Marshal([]map[string]any{{"functionDeclarations": decls}})
	default:
		out := make([]openaiwire.Tool, 0, len(tools))
		for _, t := range tools {
			out = append(out, openaiwire.ToolDefFromIR(t))
		}
		return json.Marshal(out)
	}
}

// ToolChoiceToFamilyJSON renders an IR tool choice in the given family's shape.
func ToolChoiceToFamilyJSON(choice *ir.ToolChoice, family ir.Family) (json.RawMessage, error) {
	switch family {
	case ir.FamilyAnthropic:
		return anthropicwire.ToolChoiceFromIR(choice)
	case ir.FamilyGoogle:
		return googlewire.ToolChoiceFromIR(choice)
	default:
		return openaiwire.ToolChoiceFromIR(choice)
	}
}

// ToolChoiceFromFamilyJSON is the inverse of ToolChoiceToFamilyJSON — used
// by endpoint handlers (package endpoints) to parse an inbound tool_choice
// field into IR before any registry/family resolution has happened.
func ToolChoiceFromFamilyJSON(raw json.RawMessage, family ir.Family) (*ir.ToolChoice, error) {
	switch family {
	case ir.FamilyAnthropic:
		return anthropicwire.ToolChoiceToIR(raw)
	case ir.FamilyGoogle:
		return googlewire.ToolChoiceToIR(raw)
	default:
		return openaiwire.ToolChoiceToIR(raw)
	}
}

// ToolsFromFamilyJSON is the inverse of ToolsToFamilyJSON — used by the
// endpoint handlers (package endpoints) to parse inbound tools from
// whatever shape the client used.
func ToolsFromFamilyJSON(raw json.RawMessage, family ir.Family) ([]ir.ToolDefinition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch family {
	case ir.FamilyAnthropic:
		var wire []anthropicwire.Tool
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, errs.New(errs.BadRequest, "translate.ToolsFromFamilyJSON", err)
		}
		out := make([]ir.ToolDefinition, 0, len(wire))
		for _, t := range wire {
			out = append(out, anthropicwire.ToolDefToIR(t))
		}
		return out, nil
	default:
		var wire []openaiwire.Tool
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, errs.New(errs.BadRequest, "translate.ToolsFromFamilyJSON", fmt.Errorf("unsupported tools shape for family %q: %w", family, err))
		}
		out := make([]ir.ToolDefinition, 0, len(wire))
		for _, t := range wire {
			out = append(out, openaiwire.ToolDefToIR(t))
		}
		return out, nil
	}
}
