package toolcall

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taipm/argoproxy/ir"
)

const (
	geminiTagOpen  = "<tool_call>"
	geminiTagClose = "</tool_call>"
)

// ExtractGeminiTaggedCalls scans text for <tool_call>{...}</tool_call>
// blocks synthesised by the prompting-based tool-call strategy (spec.md
// §4.G.3, used when the model family is google-like and no structured tool
// calls were present). Matched spans are stripped from the returned text;
// if the result is empty, hasContent reports false so the caller can map it
// to a null content field.
func ExtractGeminiTaggedCalls(text string) (cleaned string, calls []ir.ToolCall, hasContent bool) {
	var out strings.Builder
	i := 0
	matchIndex := 0
	for {
		openAt := strings.Index(text[i:], geminiTagOpen)
		if openAt == -1 {
			out.WriteString(text[i:])
			break
		}
		openAt += i
		closeAt := strings.Index(text[openAt:], geminiTagClose)
		if closeAt == -1 {
			out.WriteString(text[i:])
			break
		}
		closeAt += openAt

		out.WriteString(text[i:openAt])

		jsonStart := openAt + len(geminiTagOpen)
		raw := strings.TrimSpace(text[jsonStart:closeAt])
		if call, ok := parseGeminiTagJSON(raw, matchIndex); ok {
			calls = append(calls, call)
			matchIndex++
		}

		i = closeAt + len(geminiTagClose)
	}

	cleaned = strings.TrimSpace(out.String())
	return cleaned, calls, cleaned != ""
}

func parseGeminiTagJSON(raw string, index int) (ir.ToolCall, bool) {
	var obj struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return ir.ToolCall{}, false
	}
	if obj.Name == "" {
		return ir.ToolCall{}, false
	}
	args := obj.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return ir.ToolCall{ID: geminiCallID(index, raw), Name: obj.Name, Arguments: args}, true
}

// geminiCallID synthesises call_gemini_<i>_<stable-hash> so repeated
// identical calls within one response still get distinct ids (spec.md
// §4.G.3).
func geminiCallID(index int, raw string) string {
	sum := sha1.Sum([]byte(raw))
	return fmt.Sprintf("call_gemini_%d_%s", index, hex.EncodeToString(sum[:])[:8])
}
