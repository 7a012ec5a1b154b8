package suggest

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/store"
)

// PatternsKey is the store key holding behavior patterns and the
// interaction log.
const PatternsKey = "behavior-patterns"

const (
	// MaxPatterns caps the number of learned patterns.
	MaxPatterns = 50
	// MaxInteractions caps the interaction log.
	MaxInteractions = 100
	// PatternTTL is how long an untouched pattern survives.
	PatternTTL = 30 * 24 * time.Hour

	initialConfidence = 0.5
	confidenceStep    = 0.1
)

// ActionSearchExecuted is the action that grows patterns.
const ActionSearchExecuted = "search_executed"

// Interaction is one tracked user action.
type Interaction struct {
	Action   string    `json:"action"`
	FieldIDs []string  `json:"field_ids,omitempty"`
	RawQuery string    `json:"raw_query,omitempty"`
	At       time.Time `json:"at"`
}

// Payload carries what an action was performed on.
type Payload struct {
	Criteria []criteria.Criterion
	RawQuery string
}

type persisted struct {
	Patterns     []Pattern     `json:"patterns"`
	Interactions []Interaction `json:"interactions"`
	SavedAt      time.Time     `json:"saved_at"`
}

// patternStore is the engine's only mutable shared state. Patterns are
// kept most recently touched first.
type patternStore struct {
	mu           sync.RWMutex
	store        store.Store
	catalog      *catalog.Catalog
	now          func() time.Time
	patterns     []Pattern
	interactions []Interaction
}

func (ps *patternStore) load(ctx context.Context) {
	var p persisted
	found, err := store.LoadJSON(ctx, ps.store, PatternsKey, &p)
	if err != nil {
		slog.Warn("failed to load behavior patterns", "error", err)
		return
	}
	if !found {
		return
	}

	now := ps.now()
	for _, pat := range p.Patterns {
		if pat.ID == "" || now.Sub(pat.LastUsedAt) >= PatternTTL {
			continue
		}
		if pat.CommonValues == nil {
			pat.CommonValues = map[string]int{}
		}
		ps.patterns = append(ps.patterns, pat)
	}
	sort.SliceStable(ps.patterns, func(i, j int) bool {
		return ps.patterns[i].LastUsedAt.After(ps.patterns[j].LastUsedAt)
	})
	if len(ps.patterns) > MaxPatterns {
		ps.patterns = ps.patterns[:MaxPatterns]
	}

	ps.interactions = p.Interactions
	if len(ps.interactions) > MaxInteractions {
		ps.interactions = ps.interactions[:MaxInteractions]
	}

	if pruned := len(p.Patterns) - len(ps.patterns); pruned > 0 {
		slog.Debug("pruned behavior patterns", "count", pruned)
	}
}

// snapshot returns deep copies so ranking never sees a half-applied update.
func (ps *patternStore) snapshot() []Pattern {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	out := make([]Pattern, len(ps.patterns))
	for i, p := range ps.patterns {
		out[i] = clonePattern(p)
	}
	return out
}

func (ps *patternStore) recentInteractions() []Interaction {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]Interaction, len(ps.interactions))
	copy(out, ps.interactions)
	return out
}

func (ps *patternStore) track(ctx context.Context, action string, payload Payload) {
	now := ps.now().UTC()

	var ids []string
	seen := make(map[string]bool)
	for _, c := range payload.Criteria {
		if c.Field == nil || seen[c.Field.ID] {
			continue
		}
		seen[c.Field.ID] = true
		ids = append(ids, c.Field.ID)
	}
	sort.Strings(ids)

	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.interactions = append([]Interaction{{
		Action:   action,
		FieldIDs: ids,
		RawQuery: payload.RawQuery,
		At:       now,
	}}, ps.interactions...)
	if len(ps.interactions) > MaxInteractions {
		ps.interactions = ps.interactions[:MaxInteractions]
	}

	if action == ActionSearchExecuted && len(ids) > 0 {
		ps.grow(ids, payload.Criteria, now)
	}
	ps.save(ctx, now)
}

// grow must be called with ps.mu held.
func (ps *patternStore) grow(ids []string, cs []criteria.Criterion, now time.Time) {
	id := strings.Join(ids, "+")

	var p Pattern
	idx := -1
	for i := range ps.patterns {
		if ps.patterns[i].ID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		p = ps.patterns[idx]
		p.Frequency++
		p.Confidence = math.Min(round2(p.Confidence+confidenceStep), 1.0)
		p.LastUsedAt = now
		ps.patterns = append(ps.patterns[:idx:idx], ps.patterns[idx+1:]...)
	} else {
		labels := make([]string, len(ids))
		for i, fid := range ids {
			labels[i] = ps.catalog.Label(fid)
		}
		p = Pattern{
			ID:              id,
			Label:           strings.Join(labels, " + "),
			Frequency:       1,
			LastUsedAt:      now,
			Confidence:      initialConfidence,
			RelatedFieldIDs: ids,
			CommonValues:    map[string]int{},
		}
	}

	for _, c := range cs {
		if c.Field == nil {
			continue
		}
		p.CommonValues[operatorKey(c.Field.ID, c.Operator.Kind)]++
	}

	ps.patterns = append([]Pattern{p}, ps.patterns...)
	if len(ps.patterns) > MaxPatterns {
		ps.patterns = ps.patterns[:MaxPatterns]
	}
	slog.Debug("behavior pattern updated", "pattern", p.ID, "frequency", p.Frequency, "confidence", p.Confidence)
}

// save must be called with ps.mu held.
func (ps *patternStore) save(ctx context.Context, now time.Time) {
	patterns := ps.patterns
	if patterns == nil {
		patterns = []Pattern{}
	}
	interactions := ps.interactions
	if interactions == nil {
		interactions = []Interaction{}
	}
	err := store.SaveJSON(ctx, ps.store, PatternsKey, persisted{
		Patterns:     patterns,
		Interactions: interactions,
		SavedAt:      now,
	})
	if err != nil {
		slog.Warn("failed to save behavior patterns", "error", err)
	}
}

func operatorKey(fieldID string, kind catalog.OperatorKind) string {
	return "operator:" + fieldID + ":" + string(kind)
}

func clonePattern(p Pattern) Pattern {
	p.RelatedFieldIDs = append([]string(nil), p.RelatedFieldIDs...)
	cv := make(map[string]int, len(p.CommonValues))
	for k, v := range p.CommonValues {
		cv[k] = v
	}
	p.CommonValues = cv
	return p
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
