package argo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taipm/argoproxy/errs"
)

func TestNormalizeResponse_BareString(t *testing.T) {
	text, calls, err := NormalizeResponse(json.RawMessage(`"hello there"`))
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Empty(t, calls)
}

func TestNormalizeResponse_ContentAndToolCallsObject(t *testing.T) {
	raw := json.RawMessage(`{"content":"let me check","tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"city\":\"hanoi\"}"}}]}`)
	text, calls, err := NormalizeResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "let me check", text)
	require.Len(t, calls, 1)
	assert.Equal(t, "get_weather", calls[0].FunctionName)
	assert.Equal(t, `{"city":"hanoi"}`, calls[0].ArgumentsRaw)
}

func TestNormalizeResponse_GoogleStyleToolCall(t *testing.T) {
	raw := json.RawMessage(`{"tool_calls":[{"name":"get_weather","args":{"city":"hanoi"}}]}`)
	_, calls, err := NormalizeResponse(raw)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "get_weather", calls[0].GoogleName)
	assert.Equal(t, "hanoi", calls[0].GoogleArgs["city"])
}

func TestNormalizeResponse_AnthropicStyleBlockArray(t *testing.T) {
	raw := json.RawMessage(`[{"type":"text","text":"checking"},{"type":"tool_use","id":"call_1","name":"get_weather","input":{"city":"hanoi"}}]`)
	text, calls, err := NormalizeResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "checking", text)
	require.Len(t, calls, 1)
	assert.Equal(t, "get_weather", calls[0].AnthropicName)
	assert.Equal(t, "call_1", calls[0].AnthropicID)
}

func TestNormalizeResponse_EmptyIsUpstreamEmpty(t *testing.T) {
	_, _, err := NormalizeResponse(nil)
	require.Error(t, err)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.UpstreamEmpty, e.Kind)
}

func TestNormalizeResponse_UnknownBlockTypeIsDropped(t *testing.T) {
	raw := json.RawMessage(`[{"type":"text","text":"hi"},{"type":"thinking","text":"ignored"}]`)
	text, calls, err := NormalizeResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
	assert.Empty(t, calls)
}

func TestNormalizeResponse_MalformedJSONIsUpstreamInvalidResponse(t *testing.T) {
	_, _, err := NormalizeResponse(json.RawMessage(`{not json`))
	require.Error(t, err)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.UpstreamInvalidResponse, e.Kind)
}
