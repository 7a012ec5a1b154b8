package suggest

import (
	"time"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/history"
)

// Kind classifies a suggestion.
type Kind string

const (
	KindField      Kind = "field"
	KindValue      Kind = "value"
	KindOperator   Kind = "operator"
	KindTemplate   Kind = "template"
	KindCompletion Kind = "completion"
)

// Reasons attached to suggestions, one per generator.
const (
	ReasonFrequentlyUsed   = "frequently_used"
	ReasonRelatedPattern   = "related_pattern"
	ReasonAutoComplete     = "auto_complete"
	ReasonFrequentValue    = "frequent_value"
	ReasonOperatorPattern  = "operator_pattern"
	ReasonRelevantTemplate = "relevant_template"
	ReasonRecentQuery      = "recent_query"
	ReasonBehaviorPattern  = "behavior_pattern"
)

// Item is one ranked suggestion.
//
// Value identifies what accepting the suggestion inserts: a field id, a
// value text, an operator kind, a template id or a completion text.
type Item struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"kind"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Value       string  `json:"value"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
	Category    string  `json:"category"`
}

func (it Item) key() string {
	return string(it.Kind) + "\x00" + it.Label + "\x00" + it.Value
}

// Pattern is a learned set of fields searched together.
type Pattern struct {
	ID              string         `json:"id"`
	Label           string         `json:"label"`
	Frequency       int            `json:"frequency"`
	LastUsedAt      time.Time      `json:"last_used_at"`
	Confidence      float64        `json:"confidence"`
	RelatedFieldIDs []string       `json:"related_field_ids"`
	CommonValues    map[string]int `json:"common_values"`
}

func (p Pattern) relates(id string) bool {
	for _, r := range p.RelatedFieldIDs {
		if r == id {
			return true
		}
	}
	return false
}

func (p Pattern) overlaps(ids map[string]bool) bool {
	for _, r := range p.RelatedFieldIDs {
		if ids[r] {
			return true
		}
	}
	return false
}

// Context is everything a ranking call looks at.
//
// Every field is optional. A generator whose inputs are missing (no
// active field, short input, no catalog) contributes nothing.
type Context struct {
	Current       []criteria.Criterion
	Input         string
	ActiveField   *catalog.FieldType
	RecentHistory []history.Entry
	Templates     []history.Template
	Catalog       *catalog.Catalog
	Limit         int
	Now           time.Time
}

func (c Context) currentIDs() map[string]bool {
	ids := make(map[string]bool, len(c.Current))
	for _, cr := range c.Current {
		if cr.Field != nil {
			ids[cr.Field.ID] = true
		}
	}
	return ids
}
