package google

import (
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taipm/argoproxy/ir"
)

func TestContentToIR_TextPart(t *testing.T) {
	c := Content{Role: "user", Parts: []Part{{Text: "hello"}}}
	out, err := ContentToIR(c)
	require.NoError(t, err)
	assert.Equal(t, ir.RoleUser, out.Role)
	assert.Equal(t, "hello", out.Content[0].Text)
}

func TestContentToIR_ModelRoleMapsToAssistant(t *testing.T) {
	c := Content{Role: "model", Parts: []Part{{Text: "hi"}}}
	out, err := ContentToIR(c)
	require.NoError(t, err)
	assert.Equal(t, ir.RoleAssistant, out.Role)
}

func TestContentToIR_FunctionCallSynthesisesID(t *testing.T) {
	c := Content{Role: "model", Parts: []Part{
		{FunctionCall: &genai.FunctionCall{Name: "get_weather", Args: map[string]any{"city": "hanoi"}}},
	}}
	out, err := ContentToIR(c)
	require.NoError(t, err)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "call_0", out.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", out.ToolCalls[0].Name)
}

func TestContentToIR_FunctionResponseYieldsToolMessage(t *testing.T) {
	c := Content{Role: "user", Parts: []Part{
		{FunctionResponse: &FunctionResponse{Name: "get_weather", Response: map[string]any{"temp": "72F"}}},
	}}
	out, err := ContentToIR(c)
	require.NoError(t, err)
	assert.Equal(t, ir.RoleTool, out.Role)
	assert.Equal(t, "get_weather", out.ToolCallID)
}

func TestContentFromIR_ToolRoleBecomesFunctionResponse(t *testing.T) {
	m := ir.Message{Role: ir.RoleTool, ToolCallID: "get_weather", Content: []ir.ContentPart{ir.TextPart(`{"temp":"72F"}`)}}
	out, err := ContentFromIR(m)
	require.NoError(t, err)
	require.Len(t, out.Parts, 1)
	require.NotNil(t, out.Parts[0].FunctionResponse)
	assert.Equal(t, "get_weather", out.Parts[0].FunctionResponse.Name)
	assert.Equal(t, "72F", out.Parts[0].FunctionResponse.Response["temp"])
}

func TestContentFromIR_ImageRequiresInlineData(t *testing.T) {
	m := ir.Message{Role: ir.RoleUser, Content: []ir.ContentPart{ir.ImageURLPart("https://x/y.png", ir.DetailAuto)}}
	_, err := ContentFromIR(m)
	assert.Error(t, err)
}

func TestContentFromIR_AssistantToolCall(t *testing.T) {
	m := ir.Message{Role: ir.RoleAssistant, ToolCalls: []ir.ToolCall{{ID: "call_0", Name: "get_weather", Arguments: map[string]any{"city": "hanoi"}}}}
	out, err := ContentFromIR(m)
	require.NoError(t, err)
	assert.Equal(t, "model", out.Role)
	require.Len(t, out.Parts, 1)
	require.NotNil(t, out.Parts[0].FunctionCall)
	assert.Equal(t, "get_weather", out.Parts[0].FunctionCall.Name)
}

func TestSchemaConversionRoundTrip(t *testing.T) {
	def := ir.ToolDefinition{
		Name:        "get_weather",
		Description: "fetch weather",
		Parameters: map[string]any{
			"type":       "object",
			"required":   []any{"city"},
			"properties": map[string]any{"city": map[string]any{"type": "string"}},
		},
	}
	fd := ToolDefFromIR(def)
	assert.Equal(t, genai.TypeObject, fd.Parameters.Type)
	assert.Equal(t, []string{"city"}, fd.Parameters.Required)

	back := ToolDefToIR(fd)
	assert.Equal(t, def.Name, back.Name)
	assert.Equal(t, "object", back.Parameters["type"])
}

func TestToolChoiceToIR_Modes(t *testing.T) {
	auto, err := ToolChoiceToIR(json.RawMessage(`{"functionCallingConfig":{"mode":"AUTO"}}`))
	require.NoError(t, err)
	assert.Equal(t, ir.ToolChoiceAuto, auto.Kind)

	none, err := ToolChoiceToIR(json.RawMessage(`{"functionCallingConfig":{"mode":"NONE"}}`))
	require.NoError(t, err)
	assert.Equal(t, ir.ToolChoiceNone, none.Kind)

	specific, err := ToolChoiceToIR(json.RawMessage(`{"functionCallingConfig":{"mode":"ANY","allowedFunctionNames":["get_weather"]}}`))
	require.NoError(t, err)
	assert.Equal(t, ir.ToolChoiceSpecific, specific.Kind)
	assert.Equal(t, "get_weather", specific.Name)

	required, err := ToolChoiceToIR(json.RawMessage(`{"functionCallingConfig":{"mode":"ANY"}}`))
	require.NoError(t, err)
	assert.Equal(t, ir.ToolChoiceRequired, required.Kind)
}

func TestToolChoiceFromIR_SpecificEmitsAllowedFunctionNames(t *testing.T) {
	raw, err := ToolChoiceFromIR(&ir.ToolChoice{Kind: ir.ToolChoiceSpecific, Name: "get_weather"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"functionCallingConfig":{"mode":"ANY","allowedFunctionNames":["get_weather"]}}`, string(raw))
}

func TestDeclarationToJSON(t *testing.T) {
	fd := &genai.FunctionDeclaration{Name: "get_weather", Description: "fetch weather", Parameters: &genai.Schema{Type: genai.TypeObject}}
	out := DeclarationToJSON(fd)
	assert.Equal(t, "get_weather", out["name"])
	assert.Equal(t, "fetch weather", out["description"])
}
