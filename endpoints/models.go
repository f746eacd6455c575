package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/taipm/argoproxy/appctx"
)

// ModelsHandler serves GET /v1/models: an OpenAI-shaped list of every
// alias currently in the registry's snapshot (spec.md §6).
func ModelsHandler(app *appctx.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		entries := app.Registry.List()

		data := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			data = append(data, map[string]any{
				"id":       e.AliasKey,
				"object":   "model",
				"created":  nowUnix(),
				"owned_by": string(e.Family),
			})
		}

		body, err := json.Marshal(map[string]any{"object": "list", "data": data})
		if err != nil {
			writeError(ctx, w, app.Logger, "endpoints.ModelsHandler", err)
			return
		}
		writeJSON(w, http.StatusOK, body)
	})
}

// ModelsRefreshHandler serves POST /v1/models/refresh: triggers
// registry.Refresh and reports whether it succeeded (spec.md §6, §4.D).
func ModelsRefreshHandler(app *appctx.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		err := app.Registry.Refresh(ctx)

		status := "ok"
		var message string
		if err != nil {
			status = "error"
			message = err.Error()
			app.Logger.Warn(ctx, "model registry refresh failed")
		}

		body, marshalErr := json.Marshal(map[string]any{"status": status, "message": message})
		if marshalErr != nil {
			writeError(ctx, w, app.Logger, "endpoints.ModelsRefreshHandler", marshalErr)
			return
		}
		writeJSON(w, http.StatusOK, body)
	})
}
