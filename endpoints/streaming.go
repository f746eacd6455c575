package endpoints

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/stream"
	"github.com/taipm/argoproxy/toolcall"
	"github.com/taipm/argoproxy/translate"
)

func prepareSSE(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

// streamChatCompletion pseudo-streams a toolcall.Result as a sequence of
// OpenAI `chat.completion.chunk` SSE frames (spec.md §4.H).
func streamChatCompletion(ctx context.Context, w http.ResponseWriter, id string, created int64, model string, result toolcall.Result) error {
	prepareSSE(w)
	sse := stream.NewSSEWriter(w)
	streamer := stream.NewPseudoStreamer(0, stream.NewFixedDelay(stream.DefaultPseudoStreamDelay))

	text := ""
	if result.Text != nil {
		text = *result.Text
	}

	finish := ir.FinishStop
	if len(result.ToolCalls) > 0 {
		finish = ir.FinishToolCalls
	}

	err := streamer.Each(ctx, text, func(chunk string, index, total int) error {
		payload, err := translate.ChatCompletionChunkJSON(id, created, model, chunk, "")
		if err != nil {
			return err
		}
		return sse.WriteData(string(payload))
	})
	if err != nil {
		return err
	}

	final, err := translate.ChatCompletionChunkJSON(id, created, model, "", finish)
	if err != nil {
		return err
	}
	if err := sse.WriteData(string(final)); err != nil {
		return err
	}
	return sse.WriteDone()
}

// streamAnthropicMessage pseudo-streams a toolcall.Result as the Anthropic
// `message_start` / `content_block_delta` / `message_stop` event sequence.
func streamAnthropicMessage(ctx context.Context, w http.ResponseWriter, id, model string, result toolcall.Result) error {
	prepareSSE(w)
	sse := stream.NewSSEWriter(w)
	streamer := stream.NewPseudoStreamer(0, stream.NewFixedDelay(stream.DefaultPseudoStreamDelay))

	start, err := translate.AnthropicStreamEventJSON("message_start", map[string]any{
		"message": map[string]any{"id": id, "type": "message", "role": "assistant", "model": model, "content": []any{}},
	})
	if err != nil {
		return err
	}
	if err := sse.WriteEvent("message_start", string(start)); err != nil {
		return err
	}

	text := ""
	if result.Text != nil {
		text = *result.Text
	}

	err = streamer.Each(ctx, text, func(chunk string, index, total int) error {
		payload, err := translate.AnthropicStreamEventJSON("content_block_delta", map[string]any{
			"index": 0,
			"delta": map[string]any{"type": "text_delta", "text": chunk},
		})
		if err != nil {
			return err
		}
		return sse.WriteEvent("content_block_delta", string(payload))
	})
	if err != nil {
		return err
	}

	stopReason := "end_turn"
	if len(result.ToolCalls) > 0 {
		stopReason = "tool_use"
	}
	stop, err := translate.AnthropicStreamEventJSON("message_delta", map[string]any{
		"delta": map[string]any{"stop_reason": stopReason},
	})
	if err != nil {
		return err
	}
	if err := sse.WriteEvent("message_delta", string(stop)); err != nil {
		return err
	}

	end, _ := json.Marshal(map[string]any{"type": "message_stop"})
	return sse.WriteEvent("message_stop", string(end))
}
