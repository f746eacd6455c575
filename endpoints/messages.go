package endpoints

import (
	"net/http"

	"github.com/taipm/argoproxy/appctx"
	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/translate"
)

// MessagesHandler serves POST /v1/messages, the Anthropic Messages dialect
// (spec.md §6).
func MessagesHandler(app *appctx.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := readBody(r, 0)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.MessagesHandler", err)
			return
		}

		req, err := decodeMessagesRequest(body)
		if err != nil {
			recordAttack(app, r, "json_decode_error", body)
			writeError(ctx, w, app.Logger, "endpoints.MessagesHandler", err)
			return
		}

		result, err := runPipeline(ctx, app, &req, ir.FamilyAnthropic, r.Header)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.MessagesHandler", err)
			return
		}

		id := generateID("msg_")

		if req.Stream {
			if err := streamAnthropicMessage(ctx, w, id, req.Model, result.Result); err != nil {
				app.Logger.Warn(ctx, "message stream truncated")
			}
			return
		}

		body2, err := translate.AnthropicMessageJSON(id, req.Model, result.Result, result.Usage)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.MessagesHandler", err)
			return
		}
		writeJSON(w, http.StatusOK, body2)
	})
}
