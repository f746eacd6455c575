package toolcall

import (
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/taipm/argoproxy/ir"
)

// leakGuardExpr is the small guard expression a recovered dict must satisfy
// to count as a real leaked tool call, rather than incidental text that
// merely starts with leakAnchor: a non-empty id carrying the "toolu_"
// prefix and a non-empty name. Expressed with govaluate instead of a
// hand-rolled boolean so the guard can be tuned (e.g. from config) without
// touching dictToToolCall's parsing logic.
var leakGuardExpr = govaluate.MustNewEvaluableExpression(`hasID && hasToolPrefix && hasName`)

// leakAnchorRe marks the start of a leaked Claude tool-call dict embedded in
// assistant text (spec.md §4.G.4). Whitespace after "'id':" is optional —
// scenario 4's fixture omits it entirely ("{'id':'toolu_01A'") — so this
// matches zero or more spaces rather than the single fixed space a literal
// prefix would require.
var leakAnchorRe = regexp.MustCompile(`\{'id':\s*'toolu_`)

// unparseableSentinel replaces an anchor occurrence that no candidate end
// position could parse into a valid tool-call dict (spec.md §4.G.4.e).
const unparseableSentinel = "[UNPARSEABLE_TOOL]"

// LeakedCall is one tool call recovered from leaked text, plus whether any
// repair strategy had to be applied (used only for the leak log).
type LeakedCall struct {
	Call    ir.ToolCall
	Repaired bool
}

// ExtractLeakedToolCalls implements the candidate-end enumeration parser of
// spec.md §4.G.4: it is the canonical leaked-tool-call recovery strategy
// (the brace-balanced scan variant is not implemented — spec.md §9 resolves
// this Open Question in favor of this one). It returns the text with every
// matched span removed (unparseable anchors replaced by a sentinel instead
// of being removed) and the tool calls recovered, in the order encountered.
// It always makes forward progress and never emits overlapping spans.
func ExtractLeakedToolCalls(text string) (cleaned string, calls []LeakedCall) {
	var out strings.Builder
	i := 0
	for {
		loc := leakAnchorRe.FindStringIndex(text[i:])
		if loc == nil {
			out.WriteString(text[i:])
			break
		}
		anchorPos := i + loc[0]
		anchorEnd := i + loc[1]
		out.WriteString(text[i:anchorPos])

		end, call, repaired, ok := parseLeakAt(text, anchorPos)
		if ok {
			calls = append(calls, LeakedCall{Call: call, Repaired: repaired})
			i = end
		} else {
			out.WriteString(unparseableSentinel)
			i = anchorEnd
		}
	}
	return out.String(), calls
}

// parseLeakAt enumerates every candidate end position (the offsets of '}'
// following the anchor, in order) and tries each of the repair strategies
// spec.md §4.G.4.c lists, in order, on each candidate. It returns the first
// candidate/repair combination that yields a dict with both id and name,
// id beginning "toolu_".
func parseLeakAt(text string, anchorPos int) (end int, call ir.ToolCall, repaired bool, ok bool) {
	searchFrom := anchorPos
	for {
		rel := strings.IndexByte(text[searchFrom:], '}')
		if rel == -1 {
			return 0, ir.ToolCall{}, false, false
		}
		closePos := searchFrom + rel
		candidate := text[anchorPos : closePos+1]

		if d, rep, ok2 := tryRepairs(candidate); ok2 {
			if c, valid := dictToToolCall(d); valid {
				return closePos + 1, c, rep, true
			}
		}
		searchFrom = closePos + 1
	}
}

// repairStrategy is one of the five textual repairs spec.md §4.G.4.c names.
type repairStrategy func(string) string

func escapeStrayNewlines(s string) string { return strings.ReplaceAll(s, "\n", "\\n") }
func undoubleEscapeQuotes(s string) string { return strings.ReplaceAll(s, `\"`, `"`) }
func collapseTrailingCommaFields(s string) string {
	s = strings.ReplaceAll(s, "}}, 'name'", "}, 'name'")
	s = strings.ReplaceAll(s, "}}, 'type'", "}, 'type'")
	return s
}

// tryRepairs attempts the direct parse first, then strategies (i)-(v) of
// spec.md §4.G.4.c in order, returning the first that parses as a dict.
func tryRepairs(candidate string) (map[string]any, bool, bool) {
	attempts := []struct {
		fn       repairStrategy
		repaired bool
	}{
		{func(s string) string { return s }, false},
		{escapeStrayNewlines, true},                                                     // (i)
		{undoubleEscapeQuotes, true},                                                     // (ii)
		{func(s string) string { return undoubleEscapeQuotes(escapeStrayNewlines(s)) }, true}, // (iii)
		{collapseTrailingCommaFields, true},                                              // (iv)
		{func(s string) string { return collapseTrailingCommaFields(escapeStrayNewlines(s)) }, true}, // (v)
	}
	for _, a := range attempts {
		v, err := parsePythonLiteral(a.fn(candidate))
		if err != nil {
			continue
		}
		d, ok := v.(map[string]any)
		if !ok {
			continue
		}
		return d, a.repaired, true
	}
	return nil, false, false
}

func dictToToolCall(d map[string]any) (ir.ToolCall, bool) {
	id, _ := d["id"].(string)
	name, _ := d["name"].(string)

	result, err := leakGuardExpr.Evaluate(map[string]any{
		"hasID":         id != "",
		"hasName":       name != "",
		"hasToolPrefix": strings.HasPrefix(id, "toolu_"),
	})
	if err != nil {
		return ir.ToolCall{}, false
	}
	if ok, _ := result.(bool); !ok {
		return ir.ToolCall{}, false
	}

	args, _ := d["input"].(map[string]any)
	if args == nil {
		args = map[string]any{}
	}
	return ir.ToolCall{ID: id, Name: name, Arguments: args}, true
}
