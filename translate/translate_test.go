package translate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/toolcall"
)

func TestMessagesToFamilyJSON_OpenAI(t *testing.T) {
	msgs := []ir.Message{{Role: ir.RoleUser, Content: []ir.ContentPart{ir.TextPart("hi")}}}
	raw, err := MessagesToFamilyJSON(msgs, ir.FamilyOpenAI)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"role":"user"`)
}

func TestMessagesFromFamilyJSON_OpenAI_RoundTrips(t *testing.T) {
	raw := json.RawMessage(`[{"role":"user","content":"hi"}]`)
	out, err := MessagesFromFamilyJSON(raw, ir.FamilyOpenAI)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hi", out[0].Content[0].Text)
}

func TestMessagesFromFamilyJSON_Anthropic_ToolResultExplodesToSeparateMessage(t *testing.T) {
	raw := json.RawMessage(`[{"role":"user","content":[{"type":"tool_result","tool_use_id":"call_1","content":"72F"}]}]`)
	out, err := MessagesFromFamilyJSON(raw, ir.FamilyAnthropic)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ir.RoleTool, out[0].Role)
}

func TestToolsToFamilyJSON_Google_WrapsInFunctionDeclarations(t *testing.T) {
	tools := []ir.ToolDefinition{{Name: "get_weather", Parameters: map[string]any{"type": "object"}}}
	raw, err := ToolsToFamilyJSON(tools, ir.FamilyGoogle)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "functionDeclarations")
}

func TestToolsToFamilyJSON_EmptyIsNil(t *testing.T) {
	raw, err := ToolsToFamilyJSON(nil, ir.FamilyOpenAI)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestToolChoiceRoundTrip_AllFamilies(t *testing.T) {
	choice := &ir.ToolChoice{Kind: ir.ToolChoiceSpecific, Name: "get_weather"}
	for _, family := range []ir.Family{ir.FamilyOpenAI, ir.FamilyAnthropic, ir.FamilyGoogle} {
		raw, err := ToolChoiceToFamilyJSON(choice, family)
		require.NoError(t, err, family)
		back, err := ToolChoiceFromFamilyJSON(raw, family)
		require.NoError(t, err, family)
		assert.Equal(t, ir.ToolChoiceSpecific, back.Kind, family)
		assert.Equal(t, "get_weather", back.Name, family)
	}
}

func TestToolsFromFamilyJSON_Empty(t *testing.T) {
	out, err := ToolsFromFamilyJSON(nil, ir.FamilyOpenAI)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestBuildArgoRequest_AnthropicMirrorsUserToMetadata(t *testing.T) {
	req := ir.Request{Model: "claude35sonnet", Messages: []ir.Message{{Role: ir.RoleUser, Content: []ir.ContentPart{ir.TextPart("hi")}}}}
	out, err := BuildArgoRequest(req, ir.FamilyAnthropic, "claude35sonnet", "argoproxy")
	require.NoError(t, err)
	assert.Equal(t, "argoproxy", out.User)
	require.NotNil(t, out.Metadata)
	assert.Equal(t, "argoproxy", out.Metadata["user_id"])
}

func TestBuildArgoRequest_OpenAIHasNoMetadata(t *testing.T) {
	req := ir.Request{Model: "gpt4o", Messages: []ir.Message{{Role: ir.RoleUser, Content: []ir.ContentPart{ir.TextPart("hi")}}}}
	out, err := BuildArgoRequest(req, ir.FamilyOpenAI, "gpt4o", "argoproxy")
	require.NoError(t, err)
	assert.Nil(t, out.Metadata)
}

func TestSynthesizePromptMessages_String(t *testing.T) {
	out, err := SynthesizePromptMessages(json.RawMessage(`"hello"`))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hello", out[0].Content[0].Text)
}

func TestSynthesizePromptMessages_ArrayJoinedWithNewlines(t *testing.T) {
	out, err := SynthesizePromptMessages(json.RawMessage(`["line1","line2"]`))
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", out[0].Content[0].Text)
}

func TestSynthesizePromptMessages_InvalidShape(t *testing.T) {
	_, err := SynthesizePromptMessages(json.RawMessage(`42`))
	assert.Error(t, err)
}

func TestChatCompletionJSON_WithToolCalls(t *testing.T) {
	result := toolcall.Result{ToolCalls: []ir.ToolCall{{ID: "call_1", Name: "get_weather", Arguments: map[string]any{"city": "hanoi"}}}}
	raw, err := ChatCompletionJSON("chatcmpl-1", 100, "gpt-4o", result, nil)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "chat.completion", body["object"])
	choices := body["choices"].([]any)
	choice := choices[0].(map[string]any)
	assert.Equal(t, "tool_calls", choice["finish_reason"])
}

func TestChatCompletionJSON_TextOnly(t *testing.T) {
	text := "hello there"
	result := toolcall.Result{Text: &text}
	raw, err := ChatCompletionJSON("chatcmpl-2", 100, "gpt-4o", result, &ir.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	choices := body["choices"].([]any)
	message := choices[0].(map[string]any)["message"].(map[string]any)
	assert.Equal(t, "hello there", message["content"])
	assert.Equal(t, "stop", choices[0].(map[string]any)["finish_reason"])
	usage := body["usage"].(map[string]any)
	assert.Equal(t, float64(3), usage["total_tokens"])
}

func TestAnthropicMessageJSON_ToolUseSetsStopReason(t *testing.T) {
	result := toolcall.Result{ToolCalls: []ir.ToolCall{{ID: "call_1", Name: "get_weather", Arguments: map[string]any{}}}}
	raw, err := AnthropicMessageJSON("msg_1", "claude-3-5-sonnet", result, nil)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "tool_use", body["stop_reason"])
}

func TestResponsesObjectJSON_IncludesFunctionCallItem(t *testing.T) {
	result := toolcall.Result{ToolCalls: []ir.ToolCall{{ID: "call_1", Name: "get_weather", Arguments: map[string]any{}}}}
	raw, err := ResponsesObjectJSON("resp_1", 100, "gpt-4o", result, nil)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	output := body["output"].([]any)
	require.Len(t, output, 2)
	assert.Equal(t, "function_call", output[1].(map[string]any)["type"])
}

func TestChatCompletionChunkJSON_FinalChunkCarriesFinishReason(t *testing.T) {
	raw, err := ChatCompletionChunkJSON("chatcmpl-1", 100, "gpt-4o", "", ir.FinishStop)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	choice := body["choices"].([]any)[0].(map[string]any)
	assert.Equal(t, "stop", choice["finish_reason"])
}

func TestAnthropicStreamEventJSON_MergesFields(t *testing.T) {
	raw, err := AnthropicStreamEventJSON("message_stop", map[string]any{"foo": "bar"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"message_stop","foo":"bar"}`, string(raw))
}
