package endpoints

import (
	"net/http"

	"github.com/taipm/argoproxy/appctx"
	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/translate"
)

// ResponsesHandler serves POST /v1/responses, the OpenAI Responses API
// dialect (spec.md §6). It reuses the chat-completions request envelope —
// the Responses API accepts the same model/messages/tools shape — and
// re-renders the result in the Responses object shape.
func ResponsesHandler(app *appctx.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := readBody(r, 0)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.ResponsesHandler", err)
			return
		}

		req, err := decodeChatCompletionRequest(body)
		if err != nil {
			recordAttack(app, r, "json_decode_error", body)
			writeError(ctx, w, app.Logger, "endpoints.ResponsesHandler", err)
			return
		}

		result, err := runPipeline(ctx, app, &req, ir.FamilyOpenAI, r.Header)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.ResponsesHandler", err)
			return
		}

		id := generateID("resp_")
		created := nowUnix()

		body2, err := translate.ResponsesObjectJSON(id, created, req.Model, result.Result, result.Usage)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.ResponsesHandler", err)
			return
		}
		writeJSON(w, http.StatusOK, body2)
	})
}
