package translate

import (
	"encoding/json"

	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/toolcall"
)

// chatToolCall is the OpenAI-shaped tool call block attached to an
// assistant message or streamed delta.
type chatToolCall struct {
	Index    int    `json:"index,omitempty"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function,omitempty"`
}

func toolCallsToChatJSON(calls []ir.ToolCall) []chatToolCall {
	out := make([]chatToolCall, 0, len(calls))
	for i, c := range calls {
		args, err := json.Marshal(c.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		tc := chatToolCall{Index: i, ID: c.ID, Type: "function"}
		tc.Function.Name = c.Name
		tc.Function.Arguments = string(args)
		out = append(out, tc)
	}
	return out
}

func finishReasonFor(result toolcall.Result) ir.FinishReason {
	if len(result.ToolCalls) > 0 {
		return ir.FinishToolCalls
	}
	return ir.FinishStop
}

// ChatCompletionJSON renders a toolcall.Result as an OpenAI
// `chat.completion` object (spec.md §6, /v1/chat/completions).
func ChatCompletionJSON(id string, created int64, model string, result toolcall.Result, usage *ir.Usage) (json.RawMessage, error) {
	message := map[string]any{"role": "assistant"}
	if result.Text != nil {
		message["content"] = *result.Text
	} else {
		message["content"] = nil
	}
	if len(result.ToolCalls) > 0 {
		message["tool_calls"] = toolCallsToChatJSON(result.ToolCalls)
	}

	body := map[string]any{
		"id":      id,
		"object":  "chat.completion",
		"created": created,
		"model":   model,
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       message,
				"finish_reason": finishReasonFor(result),
			},
		},
	}
	if usage != nil {
		body["usage"] = usageJSON(usage)
	}
	return json.Marshal(body)
}

// CompletionJSON renders a toolcall.Result as the legacy OpenAI
// `text_completion` object (spec.md §6, /v1/completions).
func CompletionJSON(id string, created int64, model string, result toolcall.Result, usage *ir.Usage) (json.RawMessage, error) {
	text := ""
	if result.Text != nil {
		text = *result.Text
	}
	body := map[string]any{
		"id":      id,
		"object":  "text_completion",
		"created": created,
		"model":   model,
		"choices": []map[string]any{
			{
				"index":         0,
				"text":          text,
				"finish_reason": finishReasonFor(result),
			},
		},
	}
	if usage != nil {
		body["usage"] = usageJSON(usage)
	}
	return json.Marshal(body)
}

// ResponsesObjectJSON renders a toolcall.Result as an OpenAI Responses API
// object (spec.md §6, /v1/responses). The Responses dialect nests the
// generated text as an "output" array of message items rather than a flat
// "choices" array.
func ResponsesObjectJSON(id string, created int64, model string, result toolcall.Result, usage *ir.Usage) (json.RawMessage, error) {
	text := ""
	if result.Text != nil {
		text = *result.Text
	}
	content := []map[string]any{{"type": "output_text", "text": text}}

	output := []map[string]any{
		{
			"id":      id + "_msg",
			"type":    "message",
			"role":    "assistant",
			"content": content,
		},
	}
	for _, tc := range result.ToolCalls {
		args, err := json.Marshal(tc.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		output = append(output, map[string]any{
			"id":        tc.ID,
			"type":      "function_call",
			"name":      tc.Name,
			"arguments": string(args),
		})
	}

	body := map[string]any{
		"id":         id,
		"object":     "response",
		"created_at": created,
		"model":      model,
		"status":     "completed",
		"output":     output,
	}
	if usage != nil {
		body["usage"] = usageJSON(usage)
	}
	return json.Marshal(body)
}

// AnthropicMessageJSON renders a toolcall.Result as an Anthropic `message`
// object (spec.md §6, /v1/messages).
func AnthropicMessageJSON(id, model string, result toolcall.Result, usage *ir.Usage) (json.RawMessage, error) {
	var blocks []map[string]any
	if result.Text != nil && *result.Text != "" {
		blocks = append(blocks, map[string]any{"type": "text", "text": *result.Text})
	}
	for _, tc := range result.ToolCalls {
		blocks = append(blocks, map[string]any{
			"type":  "tool_use",
			"id":    tc.ID,
			"name":  tc.Name,
			"input": tc.Arguments,
		})
	}

	stopReason := "end_turn"
	if len(result.ToolCalls) > 0 {
		stopReason = "tool_use"
	}

	body := map[string]any{
		"id":          id,
		"type":        "message",
		"role":        "assistant",
		"model":       model,
		"content":     blocks,
		"stop_reason": stopReason,
	}
	if usage != nil {
		body["usage"] = map[string]any{
			"input_tokens":  usage.PromptTokens,
			"output_tokens": usage.CompletionTokens,
		}
	}
	return json.Marshal(body)
}

func usageJSON(u *ir.Usage) map[string]any {
	return map[string]any{
		"prompt_tokens":     u.PromptTokens,
		"completion_tokens": u.CompletionTokens,
		"total_tokens":      u.TotalTokens,
	}
}

// ChatCompletionChunkJSON renders one OpenAI `chat.completion.chunk` SSE
// frame payload (spec.md §4.H / §6). finishReason is empty for every chunk
// but the last, which carries the terminal reason and an empty delta.
func ChatCompletionChunkJSON(id string, created int64, model string, deltaText string, finishReason ir.FinishReason) (json.RawMessage, error) {
	delta := map[string]any{}
	if deltaText != "" {
		delta["content"] = deltaText
	}
	if finishReason == "" && deltaText == "" {
		delta["role"] = "assistant"
	}

	choice := map[string]any{"index": 0, "delta": delta}
	if finishReason != "" {
		choice["finish_reason"] = finishReason
	} else {
		choice["finish_reason"] = nil
	}

	body := map[string]any{
		"id":      id,
		"object":  "chat.completion.chunk",
		"created": created,
		"model":   model,
		"choices": []map[string]any{choice},
	}
	return json.Marshal(body)
}

// AnthropicStreamEventJSON renders one named Anthropic streaming event
// payload (e.g. "content_block_delta", "message_stop"), per the event/data
// pairing spec.md §4.H's SSE framer emits.
func AnthropicStreamEventJSON(eventType string, fields map[string]any) (json.RawMessage, error) {
	body := map[string]any{"type": eventType}
	for k, v := range fields {
		body[k] = v
	}
	return json.Marshal(body)
}
