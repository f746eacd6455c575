// Package toolcall implements the tool-call input handler (spec.md §4.F)
// and tool-call output handler (spec.md §4.G).
package toolcall

import (
	"fmt"
	"strings"

	"github.com/taipm/argoproxy/ir"
)

// RewriteForFamily rewrites a request's tools and tool_choice for the
// target model family (spec.md §4.F). OpenAI and Anthropic get native
// pass-through; Google and "unknown" get a synthesised prompting-based
// preamble and have their `tools`/`tool_choice` fields stripped, since the
// default for unrecognised families is prompting-based (spec.md §9 Open
// Question resolution, to preserve semantics on new models).
func RewriteForFamily(req *ir.Request, family ir.Family) {
	if len(req.Tools) == 0 {
		return
	}

	switch family {
	case ir.FamilyOpenAI, ir.FamilyAnthropic:
		// Native tool handling: tools/tool_choice pass through unchanged;
		// package translate renders them in the family's wire shape.
		return
	default: // google, unknown
		preamble := PromptingPreamble(req.Tools)
		req.Messages = prependSystemPreamble(req.Messages, preamble)
		req.Tools = nil
		req.ToolChoice = nil
	}
}

// PromptingPreamble synthesises the system instruction that tells a model
// without native tool support how to emit a tool call: a bullet list of
// name/description/parameter-schema per tool, followed by the
// <tool_call>{...}</tool_call> tagging instruction. The shape follows
// original_source/dev_scripts/gemini_tools.py's system prompt template.
func PromptingPreamble(tools []ir.ToolDefinition) string {
	var b strings.Builder
	b.WriteString("You have access to the following tools. When you need to call one, ")
	b.WriteString("respond with a block of the exact form <tool_call>{\"name\": <tool name>, ")
	b.WriteString("\"arguments\": <arguments object>}</tool_call>. Only emit this tag when you ")
	b.WriteString("are actually invoking a tool.\n\nTools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s", t.Name)
		if t.Description != "" {
			fmt.Fprintf(&b, ": %s", t.Description)
		}
		b.WriteString("\n")
		if len(t.Parameters) > 0 {
			fmt.Fprintf(&b, "  parameters: %v\n", t.Parameters)
		}
	}
	return b.String()
}

func prependSystemPreamble(messages []ir.Message, preamble string) []ir.Message {
	for i, m := range messages {
		if m.Role == ir.RoleSystem {
			out := append([]ir.Message(nil), messages...)
			merged := out[i]
			merged.Content = append([]ir.ContentPart(nil), merged.Content...)
			if len(merged.Content) > 0 && merged.Content[0].Kind == ir.PartText {
				merged.Content[0].Text += "\n\n" + preamble
			} else {
				merged.Content = append(merged.Content, ir.TextPart("\n\n"+preamble))
			}
			out[i] = merged
			return out
		}
	}
	out := make([]ir.Message, 0, len(messages)+1)
	out = append(out, ir.Message{Role: ir.RoleSystem, Content: []ir.ContentPart{ir.TextPart(preamble)}})
	out = append(out, messages...)
	return out
}
