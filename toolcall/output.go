package toolcall

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taipm/argoproxy/errs"
	"github.com/taipm/argoproxy/ir"
	argowire "github.com/taipm/argoproxy/wire/argo"
)

// Result is everything the endpoint handlers need to build the client-format
// response out of one Argo "response" field (spec.md §4.G).
type Result struct {
	Text      *string // nil maps to a null content field
	ToolCalls []ir.ToolCall
	Warnings  []string
}

// Normalize runs the full output pipeline of spec.md §4.G in order:
// normalise the three response shapes, parse per-family tool calls, scan
// for Gemini text-tagged calls, and (for the anthropic family) recover
// leaked Claude tool-call dicts from text. Gemini-tag and leak recovery
// never fail the request. The hard failures are an empty response field
// (UpstreamEmpty), an unparseable one, and OpenAI-style tool-call arguments
// that are not valid JSON (both UpstreamInvalidResponse).
func Normalize(ctx context.Context, raw json.RawMessage, family ir.Family, leakLog *LeakLogger, fixLeaksEnabled bool) (Result, error) {
	text, normCalls, err := argowire.NormalizeResponse(raw)
	if err != nil {
		return Result{}, err
	}

	calls, err := reconcileCalls(normCalls)
	if err != nil {
		return Result{}, err
	}

	if family == ir.FamilyGoogle && len(calls) == 0 {
		cleaned, tagCalls, hasContent := ExtractGeminiTaggedCalls(text)
		if len(tagCalls) > 0 {
			calls = append(calls, tagCalls...)
			text = cleaned
			if !hasContent {
				return buildResult(nil, calls), nil
			}
		}
	}

	if family == ir.FamilyAnthropic {
		cleaned, leaked := ExtractLeakedToolCalls(text)
		if len(leaked) > 0 {
			// The logging hook fires regardless of ENABLE_LEAKED_TOOL_FIX
			// (spec.md §4.G.4); only the substitution itself is gated.
			for _, l := range leaked {
				if leakLog != nil {
					leakLog.Record(ctx, l.Call, l.Repaired, fixLeaksEnabled)
				}
			}
			if fixLeaksEnabled {
				text = cleaned
				for _, l := range leaked {
					calls = append(calls, l.Call)
				}
			}
		}
	}

	if text == "" && len(calls) > 0 {
		return buildResult(nil, calls), nil
	}
	return buildResult(&text, calls), nil
}

func buildResult(text *string, calls []ir.ToolCall) Result {
	return Result{Text: text, ToolCalls: calls}
}

func reconcileCalls(normCalls []argowire.NormalizedCall) ([]ir.ToolCall, error) {
	out := make([]ir.ToolCall, 0, len(normCalls))
	for i, nc := range normCalls {
		switch {
		case nc.FunctionName != "":
			args, err := parseJSONArguments(nc.ArgumentsRaw)
			if err != nil {
				return nil, err
			}
			id := nc.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", i)
			}
			out = append(out, ir.ToolCall{ID: id, Name: nc.FunctionName, Arguments: args})
		case nc.AnthropicName != "":
			out = append(out, ir.ToolCall{ID: nc.AnthropicID, Name: nc.AnthropicName, Arguments: nc.AnthropicInput})
		case nc.GoogleName != "":
			id := fmt.Sprintf("call_%d", i)
			out = append(out, ir.ToolCall{ID: id, Name: nc.GoogleName, Arguments: nc.GoogleArgs})
		}
	}
	return out, nil
}

func parseJSONArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, errs.New(errs.UpstreamInvalidResponse, "toolcall.parseJSONArguments", err)
	}
	return args, nil
}
