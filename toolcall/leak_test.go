package toolcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLeakedToolCalls_DirectParse(t *testing.T) {
	text := `before {'id': 'toolu_1', 'name': 'get_weather', 'input': {'city': 'hanoi'}} after`
	cleaned, calls := ExtractLeakedToolCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "toolu_1", calls[0].Call.ID)
	assert.Equal(t, "get_weather", calls[0].Call.Name)
	assert.False(t, calls[0].Repaired)
	assert.Equal(t, "before  after", cleaned)
}

func TestExtractLeakedToolCalls_RepairsStrayNewlines(t *testing.T) {
	text := "before {'id': 'toolu_1', 'name': 'get_weather', 'input': {'note': 'line1\nline2'}} after"
	_, calls := ExtractLeakedToolCalls(text)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Repaired)
}

func TestExtractLeakedToolCalls_NoAnchorIsUnchanged(t *testing.T) {
	text := "just plain assistant text"
	cleaned, calls := ExtractLeakedToolCalls(text)
	assert.Empty(t, calls)
	assert.Equal(t, text, cleaned)
}

func TestExtractLeakedToolCalls_UnparseableAnchorGetsSentinel(t *testing.T) {
	text := "before {'id': 'toolu_" // anchor with no closing brace at all
	cleaned, calls := ExtractLeakedToolCalls(text)
	assert.Empty(t, calls)
	assert.Contains(t, cleaned, unparseableSentinel)
}

func TestExtractLeakedToolCalls_RequiresNonEmptyName(t *testing.T) {
	text := `before {'id': 'toolu_1', 'name': '', 'input': {}} after`
	_, calls := ExtractLeakedToolCalls(text)
	assert.Empty(t, calls)
}

func TestExtractLeakedToolCalls_NoSpaceAfterIDColon(t *testing.T) {
	text := `before {'id':'toolu_01A', 'name': 'get_weather', 'input': {'city': 'hanoi'}} after`
	cleaned, calls := ExtractLeakedToolCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "toolu_01A", calls[0].Call.ID)
	assert.Equal(t, "get_weather", calls[0].Call.Name)
	assert.Equal(t, "before  after", cleaned)
}
