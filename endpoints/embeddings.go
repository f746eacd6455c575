package endpoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/taipm/argoproxy/appctx"
	"github.com/taipm/argoproxy/errs"
	"github.com/taipm/argoproxy/ir"
)

type embeddingsEnvelope struct {
	Model string          `json:"model"`
	Input json.RawMessage `json:"input"`
}

// EmbeddingsHandler serves POST /v1/embeddings (spec.md §6). Embeddings
// have no tool/message structure to translate, so this handler only
// resolves the model name and forwards the body to Argo's embeddings
// endpoint, returning the upstream body unchanged.
func EmbeddingsHandler(app *appctx.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		raw, err := readBody(r, 0)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.EmbeddingsHandler", err)
			return
		}

		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			recordAttack(app, r, "json_decode_error", raw)
			writeError(ctx, w, app.Logger, "endpoints.EmbeddingsHandler", errs.New(errs.BadRequest, "endpoints.EmbeddingsHandler", err))
			return
		}

		var env embeddingsEnvelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Model == "" || len(env.Input) == 0 {
			writeError(ctx, w, app.Logger, "endpoints.EmbeddingsHandler", errs.New(errs.BadRequest, "endpoints.EmbeddingsHandler", fmt.Errorf("model and input are required")))
			return
		}

		internalModel := env.Model
		if !app.Config.Dev {
			internalModel = app.Registry.Resolve(env.Model, ir.ModelEmbed)
		}
		fields["model"] = internalModel

		payload, err := json.Marshal(fields)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.EmbeddingsHandler", errs.New(errs.Internal, "endpoints.EmbeddingsHandler", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, app.Config.ArgoAPIURL+"/embeddings/", bytes.NewReader(payload))
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.EmbeddingsHandler", errs.New(errs.Internal, "endpoints.EmbeddingsHandler", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		copyForwardedHeaders(httpReq.Header, r.Header)

		resp, err := app.Session.Do(httpReq)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.EmbeddingsHandler", errs.New(errs.UpstreamUnavailable, "endpoints.EmbeddingsHandler", err))
			return
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.EmbeddingsHandler", errs.New(errs.UpstreamUnavailable, "endpoints.EmbeddingsHandler", err))
			return
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			writeError(ctx, w, app.Logger, "endpoints.EmbeddingsHandler",
				errs.New(errs.UpstreamRejected, "endpoints.EmbeddingsHandler", fmt.Errorf("upstream returned %d", resp.StatusCode)).WithDetail("body", string(respBody)))
			return
		}

		writeJSON(w, http.StatusOK, respBody)
	})
}
