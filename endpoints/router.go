package endpoints

import (
	"net/http"

	"github.com/taipm/argoproxy/appctx"
)

// NewMux registers every route of spec.md §6 on a fresh *http.ServeMux,
// mirroring the way the teacher wires its Builder's handlers in one place.
func NewMux(app *appctx.Context) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /v1/chat/completions", ChatCompletionsHandler(app))
	mux.Handle("POST /v1/completions", CompletionsHandler(app))
	mux.Handle("POST /v1/responses", ResponsesHandler(app))
	mux.Handle("POST /v1/embeddings", EmbeddingsHandler(app))
	mux.Handle("POST /v1/messages", MessagesHandler(app))
	mux.Handle("GET /v1/models", ModelsHandler(app))
	mux.Handle("POST /v1/models/refresh", ModelsRefreshHandler(app))
	return mux
}
