// Package registry implements the model registry of spec.md §4.D: alias
// resolution, family/type classification, and atomic-swap catalogue refresh.
package registry

import (
	"context"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/taipm/argoproxy/ir"
	"gonum.org/v1/gonum/stat"
)

// snapshot is the registry's state at one point in time. Resolve reads a
// snapshot; Refresh builds a new one and swaps it in atomically, so readers
// never observe a partially-updated catalogue (spec.md §7 "read-mostly
// access, atomic swap on refresh").
type snapshot struct {
	aliases         map[string]ir.ModelEntry
	internalToEntry map[string]ir.ModelEntry
	defaultChat     ir.ModelEntry
	defaultEmbed    ir.ModelEntry
}

// Fetcher retrieves the upstream model catalogue. Implementations talk to
// Argo's catalogue endpoint (or any source of ModelEntry rows); Registry
// does not know how the rows were obtained.
type Fetcher interface {
	FetchCatalogue(ctx context.Context) ([]ir.ModelEntry, error)
}

// Registry resolves client-supplied model names to Argo internal ids.
type Registry struct {
	current atomic.Pointer[snapshot]
	fetcher Fetcher
	cache   SnapshotCache

	mu sync.Mutex // serializes concurrent Refresh calls; Resolve never blocks on it
}

// SnapshotCache optionally persists the last good catalogue so multiple
// proxy processes can share one freshly-fetched snapshot instead of each
// refreshing independently (spec.md §4.D supplement). A nil cache, or one
// that errors, is never fatal — it only means this process fetches on its
// own.
type SnapshotCache interface {
	Load(ctx context.Context) ([]ir.ModelEntry, bool)
	Store(ctx context.Context, entries []ir.ModelEntry)
}

// New builds a Registry seeded with the given entries (e.g. a bundled
// fallback catalogue) and ready to Refresh from fetcher.
func New(fetcher Fetcher, cache SnapshotCache, seed []ir.ModelEntry) *Registry {
	r := &Registry{fetcher: fetcher, cache: cache}
	r.current.Store(buildSnapshot(seed))
	return r
}

func buildSnapshot(entries []ir.ModelEntry) *snapshot {
	s := &snapshot{
		aliases:         make(map[string]ir.ModelEntry, len(entries)),
		internalToEntry: make(map[string]ir.ModelEntry, len(entries)),
	}
	for _, e := range entries {
		s.aliases[e.AliasKey] = e
		s.internalToEntry[e.InternalID] = e
		if !e.Available {
			continue
		}
		switch e.Type {
		case ir.ModelChat:
			s.defaultChat = preferFaster(s.defaultChat, e)
		case ir.ModelEmbed:
			s.defaultEmbed = preferFaster(s.defaultEmbed, e)
		}
	}
	return s
}

// preferFaster picks between two candidate defaults of the same type by
// mean observed latency (spec.md §4.D supplement: "fastest response"
// weighted alias scoring), falling back to keeping the first one seen when
// neither reports latency samples.
func preferFaster(current, candidate ir.ModelEntry) ir.ModelEntry {
	if current.InternalID == "" {
		return candidate
	}
	if len(candidate.LatencyMS) == 0 {
		return current
	}
	if len(current.LatencyMS) == 0 {
		return candidate
	}
	if meanOf(candidate.LatencyMS) < meanOf(current.LatencyMS) {
		return candidate
	}
	return current
}

func meanOf(samples []float64) float64 {
	if len(samples) == 0 {
		return math.Inf(1)
	}
	return stat.Mean(samples, nil)
}

// Resolve implements the 5-step candidate-transformation order of spec.md
// §4.D, returning on the first alias-key hit. Lookup is case-insensitive
// only through step 4 (lower-casing); steps 1-3 are tried verbatim first so
// an exact, case-sensitive alias always wins over a lower-cased one.
// Resolution is total: it falls back to the type's default when every
// candidate misses.
func (r *Registry) Resolve(name string, typ ir.ModelType) string {
	s := r.current.Load()

	for _, step := range candidateSteps(name) {
		if step.alias {
			if e, ok := s.aliases[step.value]; ok {
				return e.InternalID
			}
			continue
		}
		if e, ok := s.internalToEntry[step.value]; ok {
			return e.InternalID
		}
	}

	if typ == ir.ModelEmbed {
		return s.defaultEmbed.InternalID
	}
	return s.defaultChat.InternalID
}

type candidateStep struct {
	value string
	alias bool // true: alias-key lookup; false: internal_id value lookup
}

// candidateSteps enumerates, in order, the five transformations spec.md
// §4.D names: verbatim alias, exact internal_id, slash-to-colon, lower-case,
// and family-prefix-prepended.
func candidateSteps(name string) []candidateStep {
	out := make([]candidateStep, 0, 5)
	out = append(out, candidateStep{name, true})   // 1. verbatim alias
	out = append(out, candidateStep{name, false})  // 2. exact internal_id match

	slashed := strings.ReplaceAll(name, "/", ":") // 3. replace '/' with ':'
	if slashed != name {
		out = append(out, candidateStep{slashed, true})
	}

	lower := strings.ToLower(slashed) // 4. lower-case
	if lower != slashed {
		out = append(out, candidateStep{lower, true})
	}

	if !strings.Contains(lower, ":") { // 5. prepend "argo:" if no family prefix
		out = append(out, candidateStep{"argo:" + lower, true})
	}

	return out
}

// Refresh re-fetches the catalogue and swaps it in atomically on success.
// If the fetcher fails and a cache holds a snapshot, that cached catalogue
// is swapped in and Refresh returns nil. Otherwise, on failure (fetcher
// error with no cached snapshot, or empty catalogue) the previous registry
// is preserved and the caller receives a non-fatal error (spec.md §4.D).
func (r *Registry) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fetcher == nil {
		return errNoFetcher
	}

	entries, err := r.fetcher.FetchCatalogue(ctx)
	if err != nil {
		if r.cache != nil {
			if cached, ok := r.cache.Load(ctx); ok {
				r.current.Store(buildSnapshot(cached))
				return nil
			}
		}
		return err
	}
	if len(entries) == 0 {
		return errEmptyCatalogue
	}

	r.current.Store(buildSnapshot(entries))
	if r.cache != nil {
		r.cache.Store(ctx, entries)
	}
	return nil
}

// Classify reports the family and type of a resolved internal id, used by
// the endpoint handlers to pick the tool-calling strategy (spec.md §4.F)
// and by the complex converter to pick the wire dialect (spec.md §4.C).
func (r *Registry) Classify(internalID string) (ir.Family, ir.ModelType, bool) {
	s := r.current.Load()
	e, ok := s.internalToEntry[internalID]
	if !ok {
		return ir.FamilyUnknown, "", false
	}
	return e.Family, e.Type, true
}

// List returns every alias row of the current snapshot, for the /v1/models
// endpoint handler (spec.md §6).
func (r *Registry) List() []ir.ModelEntry {
	s := r.current.Load()
	out := make([]ir.ModelEntry, 0, len(s.aliases))
	for _, e := range s.aliases {
		out = append(out, e)
	}
	return out
}

var errEmptyCatalogue = registryError("registry: fetched catalogue is empty")
var errNoFetcher = registryError("registry: no catalogue fetcher configured")

type registryError string

func (e registryError) Error() string { return string(e) }
