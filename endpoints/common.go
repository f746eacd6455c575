// Package endpoints implements the HTTP handler layer of spec.md §4.I/§6:
// one http.Handler per route, composing the Application Context's
// dependencies (registry, images, tool-call handling, translate, session,
// streaming) and centralising the errs.Kind → HTTP status mapping of
// spec.md §7.
package endpoints

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/taipm/argoproxy/appctx"
	"github.com/taipm/argoproxy/errs"
	"github.com/taipm/argoproxy/logging"
)

// forwardedHeaders lists the client headers spec.md §6 says are forwarded
// to the upstream Argo request unchanged.
var forwardedHeaders = []string{"Authorization", "x-api-key", "anthropic-version"}

func copyForwardedHeaders(dst, src http.Header) {
	for _, h := range forwardedHeaders {
		if v := src.Get(h); v != "" {
			dst.Set(h, v)
		}
	}
}

// generateID produces a short random hex id, grounded on the teacher's
// agent.generateID (agent/planner.go): 8 random bytes, hex-encoded.
func generateID(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + hex.EncodeToString(b)
}

func readBody(r *http.Request, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = 10 << 20 // 10MiB
	}
	return io.ReadAll(io.LimitReader(r.Body, maxBytes))
}

func writeJSON(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError is the sole mapping point from the typed error taxonomy of
// package errs to an HTTP status and envelope (spec.md §7).
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, op string, err error) {
	e, ok := errs.As(err)
	if !ok {
		e = errs.New(errs.Internal, op, err)
	}
	if logger != nil {
		logger.Error(ctx, "request failed", logging.F("kind", string(e.Kind)), logging.F("op", e.Operation), logging.F("err", e.Err))
	}

	body := map[string]any{
		"error": map[string]any{
			"message": e.Error(),
			"type":    e.Kind.ErrorType(),
		},
	}
	raw, _ := json.Marshal(body)
	writeJSON(w, e.Kind.HTTPStatus(), raw)
}

// parseStopField accepts either a bare string or an array of strings for
// the OpenAI/Anthropic `stop`/`stop_sequences` field.
func parseStopField(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr
	}
	return nil
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// recordAttack classifies and logs a request-parsing failure, per spec.md
// §4.K. It is always best-effort: a logging failure never changes the
// response already decided by the caller.
func recordAttack(app *appctx.Context, r *http.Request, errorType string, raw []byte) {
	if app == nil || app.AttackLog == nil {
		return
	}
	_ = app.AttackLog.Record(remoteIP(r), errorType, raw)
}

func nowUnix() int64 { return time.Now().Unix() }
