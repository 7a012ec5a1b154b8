package suggest

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/history"
)

const (
	minConfidence      = 0.3
	minInputLen        = 2
	maxCompletions     = 8
	maxFrequentValues  = 5
	templateCandidates = 3
	templateThreshold  = 0.3
	recentTemplateAge  = 7 * 24 * time.Hour
)

type generator struct {
	ctx      Context
	current  map[string]bool
	patterns []Pattern
}

type counted struct {
	key   string
	count int
}

// tally counts keys and returns them by descending count; ties keep
// first-seen order.
func tally(keys []string) []counted {
	idx := make(map[string]int)
	var out []counted
	for _, k := range keys {
		if i, ok := idx[k]; ok {
			out[i].count++
			continue
		}
		idx[k] = len(out)
		out = append(out, counted{key: k, count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

// usable reports whether a pattern may drive suggestions for the current
// criteria.
func (g generator) usable(p Pattern) bool {
	return p.Confidence > minConfidence && (len(g.current) == 0 || p.overlaps(g.current))
}

func (g generator) activeID() string {
	if g.ctx.ActiveField == nil {
		return ""
	}
	return g.ctx.ActiveField.ID
}

func (g generator) frequentFields() []Item {
	var ids []string
	for _, e := range g.ctx.RecentHistory {
		for _, t := range e.Terms {
			ids = append(ids, t.FieldID)
		}
	}

	var out []Item
	for _, c := range tally(ids) {
		if g.current[c.key] {
			continue
		}
		f, ok := g.ctx.Catalog.Field(c.key)
		if !ok {
			continue
		}
		out = append(out, Item{
			ID:          "field-" + f.ID,
			Kind:        KindField,
			Label:       f.Label,
			Description: fmt.Sprintf("Used %d times recently", c.count),
			Value:       f.ID,
			Score:       math.Min(float64(c.count)*0.1, 1.0),
			Reason:      ReasonFrequentlyUsed,
			Category:    "fields",
		})
	}
	return out
}

func (g generator) relatedFields() []Item {
	seen := make(map[string]bool)
	var out []Item
	for _, p := range g.patterns {
		if !g.usable(p) {
			continue
		}
		for _, id := range p.RelatedFieldIDs {
			if g.current[id] || seen[id] {
				continue
			}
			f, ok := g.ctx.Catalog.Field(id)
			if !ok {
				continue
			}
			seen[id] = true
			out = append(out, Item{
				ID:          "related-" + f.ID,
				Kind:        KindField,
				Label:       f.Label,
				Description: f.Description,
				Value:       f.ID,
				Score:       0.8,
				Reason:      ReasonRelatedPattern,
				Category:    "fields",
			})
		}
	}
	return out
}

// fieldValues returns every recorded value for the active field, history
// first, then templates.
func (g generator) fieldValues(withTemplates bool) []string {
	id := g.activeID()
	var vals []string
	for _, e := range g.ctx.RecentHistory {
		for _, t := range e.Terms {
			if t.FieldID == id && t.Value != "" {
				vals = append(vals, t.Value)
			}
		}
	}
	if withTemplates {
		for _, tpl := range g.ctx.Templates {
			for _, t := range tpl.Terms {
				if t.FieldID == id && t.Value != "" {
					vals = append(vals, t.Value)
				}
			}
		}
	}
	return vals
}

func (g generator) valueCompletions() []Item {
	if g.activeID() == "" || utf8.RuneCountInString(g.ctx.Input) < minInputLen {
		return nil
	}
	input := strings.ToLower(g.ctx.Input)

	seen := make(map[string]bool)
	var matches []string
	for _, v := range g.fieldValues(true) {
		lv := strings.ToLower(v)
		if lv == input || !strings.Contains(lv, input) || seen[v] {
			continue
		}
		seen[v] = true
		matches = append(matches, v)
		if len(matches) == maxCompletions {
			break
		}
	}

	out := make([]Item, 0, len(matches))
	for i, v := range matches {
		out = append(out, Item{
			ID:          fmt.Sprintf("completion-%d", i),
			Kind:        KindCompletion,
			Label:       v,
			Description: "From your search history",
			Value:       v,
			Score:       round2(0.9 - 0.1*float64(i)),
			Reason:      ReasonAutoComplete,
			Category:    "values",
		})
	}
	return out
}

func (g generator) frequentValues() []Item {
	id := g.activeID()
	if id == "" {
		return nil
	}
	input := strings.ToLower(g.ctx.Input)

	var out []Item
	for _, c := range tally(g.fieldValues(false)) {
		if len(out) == maxFrequentValues {
			break
		}
		if input != "" && !strings.Contains(strings.ToLower(c.key), input) {
			continue
		}
		out = append(out, Item{
			ID:          "value-" + id + "-" + c.key,
			Kind:        KindValue,
			Label:       c.key,
			Description: fmt.Sprintf("Used %d times", c.count),
			Value:       c.key,
			Score:       math.Min(float64(c.count)*0.2, 0.8),
			Reason:      ReasonFrequentValue,
			Category:    "values",
		})
	}
	return out
}

func (g generator) operators() []Item {
	f := g.ctx.ActiveField
	if f == nil {
		return nil
	}

	usage := make(map[catalog.OperatorKind]int)
	for _, p := range g.patterns {
		if !p.relates(f.ID) {
			continue
		}
		for _, op := range f.SupportedOperators {
			usage[op.Kind] += p.CommonValues[operatorKey(f.ID, op.Kind)]
		}
	}

	var out []Item
	for _, op := range f.SupportedOperators {
		n := usage[op.Kind]
		if n == 0 {
			continue
		}
		out = append(out, Item{
			ID:          "operator-" + string(op.Kind),
			Kind:        KindOperator,
			Label:       op.Label,
			Description: fmt.Sprintf("Used %d times with %s", n, f.Label),
			Value:       string(op.Kind),
			Score:       math.Min(float64(n)*0.1, 0.7),
			Reason:      ReasonOperatorPattern,
			Category:    "operators",
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (g generator) templates() []Item {
	candidates := append([]history.Template(nil), g.ctx.Templates...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].UsageCount > candidates[j].UsageCount
	})
	if len(candidates) > templateCandidates {
		candidates = candidates[:templateCandidates]
	}

	var out []Item
	for _, tpl := range candidates {
		score := g.templateRelevance(tpl)
		if score <= templateThreshold {
			continue
		}
		desc := tpl.Description
		if desc == "" {
			desc = fmt.Sprintf("Used %d times", tpl.UsageCount)
		}
		out = append(out, Item{
			ID:          "template-" + tpl.ID,
			Kind:        KindTemplate,
			Label:       tpl.Name,
			Description: desc,
			Value:       tpl.ID,
			Score:       score,
			Reason:      ReasonRelevantTemplate,
			Category:    "templates",
		})
	}
	return out
}

func (g generator) templateRelevance(tpl history.Template) float64 {
	score := math.Min(float64(tpl.UsageCount)*0.1, 0.4)

	overlap := 0
	for _, id := range tpl.FieldIDs() {
		if g.current[id] {
			overlap++
		}
	}
	score += float64(overlap) * 0.3

	if tpl.LastUsedAt != nil && g.ctx.Now.Sub(*tpl.LastUsedAt) < recentTemplateAge {
		score += 0.2
	}
	return round2(math.Min(score, 1.0))
}

func (g generator) recentQueries() []Item {
	if utf8.RuneCountInString(g.ctx.Input) < minInputLen {
		return nil
	}
	input := strings.ToLower(g.ctx.Input)

	var out []Item
	for _, e := range g.ctx.RecentHistory {
		if e.RawQuery == "" || !strings.Contains(strings.ToLower(e.RawQuery), input) {
			continue
		}
		out = append(out, Item{
			ID:          "recent-query-" + e.ID,
			Kind:        KindCompletion,
			Label:       e.RawQuery,
			Description: "From " + age(g.ctx.Now, e.Timestamp),
			Value:       e.RawQuery,
			Score:       0.6,
			Reason:      ReasonRecentQuery,
			Category:    "completions",
		})
	}
	return out
}

func (g generator) behaviorPatterns() []Item {
	var out []Item
	for _, p := range g.patterns {
		if !g.usable(p) {
			continue
		}
		for _, id := range p.RelatedFieldIDs {
			if g.current[id] {
				continue
			}
			f, ok := g.ctx.Catalog.Field(id)
			if !ok {
				continue
			}
			out = append(out, Item{
				ID:          "pattern-field-" + p.ID + "-" + f.ID,
				Kind:        KindField,
				Label:       f.Label,
				Description: fmt.Sprintf("From pattern %q (used %d times)", p.Label, p.Frequency),
				Value:       f.ID,
				Score:       round2(p.Confidence * 0.6),
				Reason:      ReasonBehaviorPattern,
				Category:    "patterns",
			})
		}
	}
	return out
}

// age renders how long ago t was, relative to now.
func age(now, t time.Time) string {
	days := int(now.Sub(t) / (24 * time.Hour))
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	}
	return t.Format("2006-01-02")
}
