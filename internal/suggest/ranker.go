// Package suggest ranks contextual suggestions for the next search input
// and learns which fields are searched together.
//
// Ranking is a pure function of its Context plus a snapshot of the learned
// patterns. TrackBehavior is the only mutating operation; it persists the
// patterns through a store.Store after every call.
package suggest

import (
	"context"
	"sort"
	"time"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/store"
)

// DefaultLimit is the number of suggestions returned when Context.Limit is
// not set.
const DefaultLimit = 10

// Option configures a Ranker.
type Option func(*Ranker)

// WithClock sets the wall clock used for pattern timestamps and as the
// default ranking time.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) { r.patterns.now = now }
}

// WithCatalog sets the catalog used to label new patterns.
func WithCatalog(c *catalog.Catalog) Option {
	return func(r *Ranker) { r.patterns.catalog = c }
}

// Ranker produces ranked suggestions.
//
// Thread-safety: Ranker is safe for concurrent use. Suggest reads a
// snapshot of the pattern store; TrackBehavior holds the write lock for
// the whole update including persistence.
type Ranker struct {
	patterns *patternStore
}

// NewRanker loads learned patterns from s. Patterns untouched for
// PatternTTL are dropped. A missing or unreadable record starts empty; a nil
// s keeps state in memory only.
func NewRanker(ctx context.Context, s store.Store, opts ...Option) *Ranker {
	if s == nil {
		s = store.NewMemory()
	}
	r := &Ranker{patterns: &patternStore{store: s, now: time.Now}}
	for _, opt := range opts {
		opt(r)
	}
	r.patterns.load(ctx)
	return r
}

// Patterns returns a copy of the learned patterns, most recently touched
// first.
func (r *Ranker) Patterns() []Pattern {
	return r.patterns.snapshot()
}

// Interactions returns a copy of the interaction log, newest first.
func (r *Ranker) Interactions() []Interaction {
	return r.patterns.recentInteractions()
}

// TrackBehavior records an action. A search_executed action grows the
// pattern for the distinct field ids of payload.Criteria and bumps the
// per-field operator counters. Storage failures are logged, not returned.
func (r *Ranker) TrackBehavior(ctx context.Context, action string, payload Payload) {
	r.patterns.track(ctx, action, payload)
}

// Suggest ranks suggestions for c. It never fails; generators without the
// inputs they need contribute nothing.
func (r *Ranker) Suggest(c Context) []Item {
	if c.Now.IsZero() {
		c.Now = r.patterns.now()
	}
	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	g := generator{ctx: c, current: c.currentIDs(), patterns: r.patterns.snapshot()}

	var items []Item
	items = append(items, g.frequentFields()...)
	items = append(items, g.relatedFields()...)
	items = append(items, g.valueCompletions()...)
	items = append(items, g.frequentValues()...)
	items = append(items, g.operators()...)
	items = append(items, g.templates()...)
	items = append(items, g.recentQueries()...)
	items = append(items, g.behaviorPatterns()...)

	return rank(items, limit)
}

// rank merges candidates sharing (kind, label, value) by keeping the highest
// score at the position of the first emission, then sorts by descending
// score. Ties keep emission order.
func rank(items []Item, limit int) []Item {
	index := make(map[string]int, len(items))
	merged := make([]Item, 0, len(items))
	for _, it := range items {
		k := it.key()
		if i, ok := index[k]; ok {
			if it.Score > merged[i].Score {
				merged[i] = it
			}
			continue
		}
		index[k] = len(merged)
		merged = append(merged, it)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
