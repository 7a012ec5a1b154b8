// Package history keeps the two collaborator record sets the suggestion
// ranker reads: recent searches and saved templates.
//
// Both are persisted as JSON through store.Store. Persistence failures are
// logged and the in-memory state carries on; callers never see them.
package history

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/store"
)

// HistoryKey is the store key holding search history.
const HistoryKey = "search-history"

// DefaultMaxEntries caps the number of history entries kept.
const DefaultMaxEntries = 20

// Mode records which editor produced a search.
type Mode string

const (
	ModeVisual Mode = "visual"
	ModeRaw    Mode = "raw"
)

// ParseMode accepts "visual" or "raw". Empty means visual.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeVisual:
		return ModeVisual, true
	case ModeRaw:
		return ModeRaw, true
	}
	return "", false
}

// Entry is one executed search.
type Entry struct {
	ID              string                   `json:"id"`
	Terms           []criteria.Term          `json:"terms"`
	LogicalOperator criteria.LogicalOperator `json:"logical_operator"`
	Mode            Mode                     `json:"mode"`
	RawQuery        string                   `json:"raw_query"`
	DisplayText     string                   `json:"display_text"`
	Timestamp       time.Time                `json:"timestamp"`
}

// FieldIDs returns the distinct field ids the entry filtered on.
func (e Entry) FieldIDs() []string {
	return criteria.TermFieldIDs(e.Terms)
}

func (e Entry) valid() bool {
	return e.ID != "" && e.DisplayText != "" && (len(e.Terms) > 0 || strings.TrimSpace(e.RawQuery) != "")
}

// Option configures a History or a Templates set.
type Option func(*options)

type options struct {
	ids criteria.IDGenerator
	now func() time.Time
	max int
}

func defaultOptions() options {
	return options{ids: criteria.UUIDv7Generator{}, now: time.Now}
}

// WithIDGenerator sets the generator for record ids.
func WithIDGenerator(g criteria.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithClock sets the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMaxEntries overrides the record cap. Values below 1 are ignored.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.max = n
		}
	}
}

// History is the newest-first list of executed searches.
//
// Thread-safety: History is safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	store   store.Store
	opts    options
	entries []Entry
}

// Open loads history from s. A missing or unreadable record starts empty;
// a nil s keeps history in memory only.
func Open(ctx context.Context, s store.Store, opts ...Option) *History {
	o := defaultOptions()
	o.max = DefaultMaxEntries
	for _, opt := range opts {
		opt(&o)
	}

	if s == nil {
		s = store.NewMemory()
	}
	h := &History{store: s, opts: o}

	var loaded []Entry
	found, err := store.LoadJSON(ctx, s, HistoryKey, &loaded)
	if err != nil {
		slog.Warn("failed to load search history", "error", err)
		return h
	}
	if !found {
		return h
	}
	for _, e := range loaded {
		if e.valid() {
			h.entries = append(h.entries, e)
		}
	}
	if len(h.entries) > o.max {
		h.entries = h.entries[:o.max]
	}
	return h
}

// Add records q as the newest entry. Empty queries and a repeat of the
// newest entry (same raw query and mode) are skipped; ok reports whether
// an entry was added.
func (h *History) Add(ctx context.Context, q criteria.Query, mode Mode) (Entry, bool) {
	if len(q.Criteria) == 0 && strings.TrimSpace(q.RawQuery) == "" {
		return Entry{}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) > 0 {
		last := h.entries[0]
		if last.RawQuery == q.RawQuery && last.Mode == mode {
			return Entry{}, false
		}
	}

	op := q.LogicalOperator
	if op == "" {
		op = criteria.And
	}
	e := Entry{
		ID:              h.opts.ids.Generate(),
		Terms:           criteria.Terms(q.Criteria),
		LogicalOperator: op,
		Mode:            mode,
		RawQuery:        q.RawQuery,
		DisplayText:     DisplayText(q, mode),
		Timestamp:       h.opts.now().UTC(),
	}

	entries := make([]Entry, 0, len(h.entries)+1)
	entries = append(entries, e)
	entries = append(entries, h.entries...)
	if len(entries) > h.opts.max {
		entries = entries[:h.opts.max]
	}
	h.entries = entries
	h.save(ctx)
	return e, true
}

// Entries returns a copy of all entries, newest first.
func (h *History) Entries() []Entry {
	return h.Recent(0)
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (h *History) Recent(n int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]Entry, n)
	copy(out, h.entries[:n])
	return out
}

// Remove deletes the entry with the given id.
func (h *History) Remove(ctx context.Context, id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, e := range h.entries {
		if e.ID == id {
			h.entries = append(h.entries[:i:i], h.entries[i+1:]...)
			h.save(ctx)
			return true
		}
	}
	return false
}

// Clear removes every entry.
func (h *History) Clear(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.save(ctx)
}

// Search returns entries whose display text or raw query contains term,
// ignoring case. A blank term returns everything.
func (h *History) Search(term string) []Entry {
	term = strings.ToLower(strings.TrimSpace(term))
	all := h.Entries()
	if term == "" {
		return all
	}
	var out []Entry
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.DisplayText), term) ||
			strings.Contains(strings.ToLower(e.RawQuery), term) {
			out = append(out, e)
		}
	}
	return out
}

// save must be called with h.mu held.
func (h *History) save(ctx context.Context) {
	entries := h.entries
	if entries == nil {
		entries = []Entry{}
	}
	if err := store.SaveJSON(ctx, h.store, HistoryKey, entries); err != nil {
		slog.Warn("failed to save search history", "error", err)
	}
}

// DisplayText renders a human summary of q. Raw-mode searches show their
// raw text; otherwise each valid criterion reads "Label operator value".
func DisplayText(q criteria.Query, mode Mode) string {
	if mode == ModeRaw && strings.TrimSpace(q.RawQuery) != "" {
		return q.RawQuery
	}

	var parts []string
	for _, c := range q.Criteria {
		if !c.IsValid || c.Field == nil {
			continue
		}
		part := c.Field.Label + " " + c.Operator.Label
		if c.Operator.RequiresValue {
			v := c.DisplayValue
			if v == "" && c.Value != nil {
				v = c.Value.Text()
			}
			part += " " + v
		}
		parts = append(parts, part)
	}
	if len(parts) > 0 {
		sep := " AND "
		if q.LogicalOperator == criteria.Or {
			sep = " OR "
		}
		return strings.Join(parts, sep)
	}
	if q.RawQuery != "" {
		return q.RawQuery
	}
	return "Empty search"
}
