package endpoints

import (
	"net/http"

	"github.com/taipm/argoproxy/appctx"
	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/translate"
)

// ChatCompletionsHandler serves POST /v1/chat/completions (spec.md §6).
func ChatCompletionsHandler(app *appctx.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := readBody(r, 0)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.ChatCompletionsHandler", err)
			return
		}

		req, err := decodeChatCompletionRequest(body)
		if err != nil {
			recordAttack(app, r, "json_decode_error", body)
			writeError(ctx, w, app.Logger, "endpoints.ChatCompletionsHandler", err)
			return
		}

		result, err := runPipeline(ctx, app, &req, ir.FamilyOpenAI, r.Header)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.ChatCompletionsHandler", err)
			return
		}

		id := generateID("chatcmpl-")
		created := nowUnix()

		if req.Stream {
			if err := streamChatCompletion(ctx, w, id, created, req.Model, result.Result); err != nil {
				app.Logger.Warn(ctx, "chat completion stream truncated")
			}
			return
		}

		body2, err := translate.ChatCompletionJSON(id, created, req.Model, result.Result, result.Usage)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.ChatCompletionsHandler", err)
			return
		}
		writeJSON(w, http.StatusOK, body2)
	})
}
