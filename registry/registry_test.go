package registry

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taipm/argoproxy/ir"
)

func testEntries() []ir.ModelEntry {
	return []ir.ModelEntry{
		{AliasKey: "argo:gpt-4o", InternalID: "gpt4o", Type: ir.ModelChat, Family: ir.FamilyOpenAI, Available: true},
		{AliasKey: "gpt-4o", InternalID: "gpt4o", Type: ir.ModelChat, Family: ir.FamilyOpenAI, Available: true},
		{AliasKey: "gpt4o", InternalID: "gpt4o", Type: ir.ModelChat, Family: ir.FamilyOpenAI, Available: true},
		{AliasKey: "argo:text-embedding-3-small", InternalID: "v3small", Type: ir.ModelEmbed, Family: ir.FamilyOpenAI, Available: true},
		{AliasKey: "text-embedding-3-small", InternalID: "v3small", Type: ir.ModelEmbed, Family: ir.FamilyOpenAI, Available: true},
	}
}

func TestResolve_ChatModelWithSlashSeparator(t *testing.T) {
	r := New(nil, nil, testEntries())
	assert.Equal(t, "gpt4o", r.Resolve("argo/gpt-4o", ir.ModelChat))
}

func TestResolve_ChatModelWithBareArgoName(t *testing.T) {
	r := New(nil, nil, testEntries())
	assert.Equal(t, "gpt4o", r.Resolve("gpt-4o", ir.ModelChat))
}

func TestResolve_EmbedModelWithSlashSeparator(t *testing.T) {
	r := New(nil, nil, testEntries())
	assert.Equal(t, "v3small", r.Resolve("argo/text-embedding-3-small", ir.ModelEmbed))
}

func TestResolve_EmbedModelWithBareArgoName(t *testing.T) {
	r := New(nil, nil, testEntries())
	assert.Equal(t, "v3small", r.Resolve("text-embedding-3-small", ir.ModelEmbed))
}

func TestResolve_CaseInsensitive(t *testing.T) {
	r := New(nil, nil, testEntries())
	assert.Equal(t, "gpt4o", r.Resolve("ARGO/GPT-4O", ir.ModelChat))
}

func TestResolve_UnknownFallsBackToDefault(t *testing.T) {
	r := New(nil, nil, testEntries())
	assert.Equal(t, "gpt4o", r.Resolve("nonexistent-chat-model", ir.ModelChat))
	assert.Equal(t, "v3small", r.Resolve("nonexistent-embed-model", ir.ModelEmbed))
}

func TestResolve_ExactInternalIDMatch(t *testing.T) {
	r := New(nil, nil, testEntries())
	assert.Equal(t, "gpt4o", r.Resolve("gpt4o", ir.ModelChat))
}

func TestClassify(t *testing.T) {
	r := New(nil, nil, testEntries())
	family, typ, ok := r.Classify("gpt4o")
	require.True(t, ok)
	assert.Equal(t, ir.FamilyOpenAI, family)
	assert.Equal(t, ir.ModelChat, typ)

	_, _, ok = r.Classify("does-not-exist")
	assert.False(t, ok)
}

type staticFetcher struct {
	entries []ir.ModelEntry
	err     error
}

func (f staticFetcher) FetchCatalogue(ctx context.Context) ([]ir.ModelEntry, error) {
	return f.entries, f.err
}

func TestRefresh_SwapsInNewCatalogue(t *testing.T) {
	r := New(staticFetcher{entries: testEntries()}, nil, nil)
	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, "gpt4o", r.Resolve("gpt-4o", ir.ModelChat))
}

func TestRefresh_FailurePreservesPreviousSnapshot(t *testing.T) {
	r := New(staticFetcher{entries: nil, err: assert.AnError}, nil, testEntries())
	err := r.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "gpt4o", r.Resolve("gpt-4o", ir.ModelChat))
}

func TestRefresh_FailureFallsBackToCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, "", 0)
	cache.Store(context.Background(), testEntries())

	r := New(staticFetcher{err: assert.AnError}, cache, nil)
	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, "gpt4o", r.Resolve("gpt-4o", ir.ModelChat))
}

func TestPreferFaster_PicksLowerMeanLatency(t *testing.T) {
	entries := []ir.ModelEntry{
		{AliasKey: "argo:slow", InternalID: "slow", Type: ir.ModelChat, Family: ir.FamilyOpenAI, Available: true, LatencyMS: []float64{900, 950}},
		{AliasKey: "argo:fast", InternalID: "fast", Type: ir.ModelChat, Family: ir.FamilyOpenAI, Available: true, LatencyMS: []float64{100, 120}},
	}
	r := New(nil, nil, entries)
	assert.Equal(t, "fast", r.Resolve("no-such-alias", ir.ModelChat))
}
