package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageValidate_ToolRoleRequiresCallID(t *testing.T) {
	m := Message{Role: RoleTool}
	err := m.Validate()
	assert.Error(t, err)

	var invariant *InvariantError
	assert.ErrorAs(t, err, &invariant)
}

func TestMessageValidate_ToolRoleWithCallIDIsValid(t *testing.T) {
	m := Message{Role: RoleTool, ToolCallID: "call_1", Content: []ContentPart{TextPart("ok")}}
	assert.NoError(t, m.Validate())
}

func TestMessageValidate_ImageMustCarryExactlyOneSource(t *testing.T) {
	neither := Message{Role: RoleUser, Content: []ContentPart{{Kind: PartImage}}}
	assert.Error(t, neither.Validate())

	both := Message{Role: RoleUser, Content: []ContentPart{
		{Kind: PartImage, ImageURL: "https://example/x.png", ImageData: &ImageData{Data: "Zm9v", MediaType: "image/png"}},
	}}
	assert.Error(t, both.Validate())

	url := Message{Role: RoleUser, Content: []ContentPart{ImageURLPart("https://example/x.png", "")}}
	assert.NoError(t, url.Validate())

	data := Message{Role: RoleUser, Content: []ContentPart{ImageDataPart("Zm9v", "image/png", "")}}
	assert.NoError(t, data.Validate())
}

func TestImageURLPart_DefaultsDetailToAuto(t *testing.T) {
	p := ImageURLPart("https://example/x.png", "")
	assert.Equal(t, DetailAuto, p.Detail)
}

func TestImageDataPart_DefaultsDetailToAuto(t *testing.T) {
	p := ImageDataPart("Zm9v", "image/png", "")
	assert.Equal(t, DetailAuto, p.Detail)
}

func TestContentPart_IsImageURL(t *testing.T) {
	url := ImageURLPart("https://example/x.png", DetailHigh)
	assert.True(t, url.IsImageURL())

	data := ImageDataPart("Zm9v", "image/png", DetailHigh)
	assert.False(t, data.IsImageURL())

	text := TextPart("hi")
	assert.False(t, text.IsImageURL())
}

func TestToolCallPart_AndToolResultPart(t *testing.T) {
	call := ToolCallPart("call_1", "get_weather", map[string]any{"city": "hanoi"})
	assert.Equal(t, PartToolCall, call.Kind)
	assert.Equal(t, "get_weather", call.ToolCallName)

	result := ToolResultPart("call_1", "72F and sunny")
	assert.Equal(t, PartToolResult, result.Kind)
	assert.Equal(t, "call_1", result.ToolResultCallID)
}

func TestInvariantError_Error(t *testing.T) {
	err := &InvariantError{Value: "Message", Reason: "role=tool requires tool_call_id"}
	assert.Equal(t, "Message: role=tool requires tool_call_id", err.Error())
}
