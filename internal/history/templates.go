package history

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/store"
)

// TemplatesKey is the store key holding saved templates.
const TemplatesKey = "search-templates"

// DefaultMaxTemplates caps the number of saved templates.
const DefaultMaxTemplates = 100

// Template is a named, reusable search.
type Template struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	Description     string                   `json:"description,omitempty"`
	Terms           []criteria.Term          `json:"terms"`
	LogicalOperator criteria.LogicalOperator `json:"logical_operator"`
	Mode            Mode                     `json:"mode"`
	RawQuery        string                   `json:"raw_query"`
	Tags            []string                 `json:"tags,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	UsageCount      int                      `json:"usage_count"`
	LastUsedAt      *time.Time               `json:"last_used_at,omitempty"`
}

// FieldIDs returns the distinct field ids the template filters on.
func (t Template) FieldIDs() []string {
	return criteria.TermFieldIDs(t.Terms)
}

// TemplateInput describes a template to save.
type TemplateInput struct {
	Name        string
	Description string
	Query       criteria.Query
	Mode        Mode
	Tags        []string
}

// Templates is the saved template set, in most-recently-created order.
//
// Thread-safety: Templates is safe for concurrent use.
type Templates struct {
	mu        sync.RWMutex
	store     store.Store
	opts      options
	templates []Template
}

// OpenTemplates loads templates from s. A missing or unreadable record
// starts empty; a nil s keeps templates in memory only.
func OpenTemplates(ctx context.Context, s store.Store, opts ...Option) *Templates {
	o := defaultOptions()
	o.max = DefaultMaxTemplates
	for _, opt := range opts {
		opt(&o)
	}

	if s == nil {
		s = store.NewMemory()
	}
	t := &Templates{store: s, opts: o}

	var loaded []Template
	found, err := store.LoadJSON(ctx, s, TemplatesKey, &loaded)
	if err != nil {
		slog.Warn("failed to load search templates", "error", err)
		return t
	}
	if found {
		for _, tpl := range loaded {
			if tpl.ID != "" && strings.TrimSpace(tpl.Name) != "" {
				t.templates = append(t.templates, tpl)
			}
		}
	}
	return t
}

// Save stores a template. Saving under an existing name (ignoring case)
// replaces that template but keeps its id, creation time and usage. When
// the set is full the least used template is evicted first.
func (t *Templates) Save(ctx context.Context, in TemplateInput) Template {
	now := t.opts.now().UTC()
	mode := in.Mode
	if mode == "" {
		mode = ModeVisual
	}
	op := in.Query.LogicalOperator
	if op == "" {
		op = criteria.And
	}
	tpl := Template{
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		Terms:           criteria.Terms(in.Query.Criteria),
		LogicalOperator: op,
		Mode:            mode,
		RawQuery:        in.Query.RawQuery,
		Tags:            append([]string(nil), in.Tags...),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, existing := range t.templates {
		if strings.EqualFold(existing.Name, tpl.Name) {
			tpl.ID = existing.ID
			tpl.CreatedAt = existing.CreatedAt
			tpl.UsageCount = existing.UsageCount
			tpl.LastUsedAt = existing.LastUsedAt
			t.templates[i] = tpl
			t.save(ctx)
			return tpl
		}
	}

	if len(t.templates) >= t.opts.max {
		t.evictLeastUsed()
	}
	tpl.ID = t.opts.ids.Generate()
	t.templates = append([]Template{tpl}, t.templates...)
	t.save(ctx)
	return tpl
}

// evictLeastUsed drops the template with the lowest usage count; the
// oldest-created one loses ties.
func (t *Templates) evictLeastUsed() {
	if len(t.templates) == 0 {
		return
	}
	victim := 0
	for i, tpl := range t.templates {
		v := t.templates[victim]
		if tpl.UsageCount < v.UsageCount ||
			(tpl.UsageCount == v.UsageCount && tpl.CreatedAt.Before(v.CreatedAt)) {
			victim = i
		}
	}
	t.templates = append(t.templates[:victim:victim], t.templates[victim+1:]...)
}

// Apply marks the template as used and returns it.
func (t *Templates) Apply(ctx context.Context, id string) (Template, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.templates {
		if t.templates[i].ID != id {
			continue
		}
		now := t.opts.now().UTC()
		t.templates[i].UsageCount++
		t.templates[i].LastUsedAt = &now
		t.templates[i].UpdatedAt = now
		t.save(ctx)
		return t.templates[i], true
	}
	return Template{}, false
}

// Get returns the template with the given id.
func (t *Templates) Get(id string) (Template, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tpl := range t.templates {
		if tpl.ID == id {
			return tpl, true
		}
	}
	return Template{}, false
}

// Delete removes the template with the given id.
func (t *Templates) Delete(ctx context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, tpl := range t.templates {
		if tpl.ID == id {
			t.templates = append(t.templates[:i:i], t.templates[i+1:]...)
			t.save(ctx)
			return true
		}
	}
	return false
}

// All returns a copy of every template.
func (t *Templates) All() []Template {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Template, len(t.templates))
	copy(out, t.templates)
	return out
}

// MostUsed returns up to n templates by descending usage count. Ties keep
// stored order. n <= 0 returns all.
func (t *Templates) MostUsed(n int) []Template {
	out := t.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UsageCount > out[j].UsageCount
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// save must be called with t.mu held.
func (t *Templates) save(ctx context.Context) {
	templates := t.templates
	if templates == nil {
		templates = []Template{}
	}
	if err := store.SaveJSON(ctx, t.store, TemplatesKey, templates); err != nil {
		slog.Warn("failed to save search templates", "error", err)
	}
}
