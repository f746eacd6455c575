package endpoints

import (
	"net/http"

	"github.com/taipm/argoproxy/appctx"
	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/translate"
)

// CompletionsHandler serves POST /v1/completions, the legacy OpenAI text
// completion endpoint (spec.md §6, §4.C.1 prompt-synthesis rule).
func CompletionsHandler(app *appctx.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := readBody(r, 0)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.CompletionsHandler", err)
			return
		}

		req, err := decodeCompletionRequest(body)
		if err != nil {
			recordAttack(app, r, "json_decode_error", body)
			writeError(ctx, w, app.Logger, "endpoints.CompletionsHandler", err)
			return
		}

		result, err := runPipeline(ctx, app, &req, ir.FamilyOpenAI, r.Header)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.CompletionsHandler", err)
			return
		}

		id := generateID("cmpl-")
		created := nowUnix()

		if req.Stream {
			if err := streamChatCompletion(ctx, w, id, created, req.Model, result.Result); err != nil {
				app.Logger.Warn(ctx, "completion stream truncated")
			}
			return
		}

		body2, err := translate.CompletionJSON(id, created, req.Model, result.Result, result.Usage)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.CompletionsHandler", err)
			return
		}
		writeJSON(w, http.StatusOK, body2)
	})
}
