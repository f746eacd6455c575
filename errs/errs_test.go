package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_HTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		BadRequest:              400,
		UnsupportedContent:      400,
		UnsupportedImageSource:  400,
		UpstreamUnavailable:     503,
		UpstreamRejected:        502,
		UpstreamInvalidResponse: 502,
		UpstreamEmpty:           502,
		Internal:                500,
		Cancelled:               500,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), "kind %s", kind)
	}
}

func TestKind_ErrorType(t *testing.T) {
	assert.Equal(t, "upstream_api_error", UpstreamRejected.ErrorType())
	assert.Equal(t, "upstream_invalid_json", UpstreamInvalidResponse.ErrorType())
	assert.Equal(t, "upstream_no_response", UpstreamEmpty.ErrorType())
	assert.Equal(t, "bad_request", BadRequest.ErrorType())
}

func TestError_ErrorMessage(t *testing.T) {
	base := fmt.Errorf("boom")
	e := New(BadRequest, "translate.Foo", base)
	assert.Contains(t, e.Error(), "bad_request")
	assert.Contains(t, e.Error(), "translate.Foo")
	assert.Contains(t, e.Error(), "boom")
}

func TestError_WithDetail(t *testing.T) {
	e := New(UpstreamRejected, "endpoints.runPipeline", fmt.Errorf("status 500")).WithDetail("body", `{"error":"boom"}`)
	assert.Contains(t, e.Error(), "body=")
}

func TestError_Unwrap(t *testing.T) {
	base := fmt.Errorf("root cause")
	e := New(Internal, "op", base)
	assert.True(t, errors.Is(e, base))
}

func TestAs_FindsWrappedError(t *testing.T) {
	base := New(BadRequest, "op", fmt.Errorf("bad"))
	wrapped := fmt.Errorf("context: %w", base)

	found, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, BadRequest, found.Kind)
}

func TestAs_FalseForPlainError(t *testing.T) {
	_, ok := As(fmt.Errorf("plain"))
	assert.False(t, ok)
}
