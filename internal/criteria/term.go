package criteria

// Term is the persisted form of a criterion: field id, operator kind and
// value text. History entries and templates store terms instead of
// criteria so they survive catalog reloads.
type Term struct {
	FieldID  string `json:"field_id"`
	Operator string `json:"operator"`
	Value    string `json:"value,omitempty"`
}

// Terms converts criteria to terms, skipping criteria without a field.
func Terms(cs []Criterion) []Term {
	out := make([]Term, 0, len(cs))
	for _, c := range cs {
		if c.Field == nil {
			continue
		}
		t := Term{FieldID: c.Field.ID, Operator: string(c.Operator.Kind)}
		if c.Value != nil {
			t.Value = c.Value.Text()
		}
		out = append(out, t)
	}
	return out
}

// TermFieldIDs returns the distinct field ids of ts in first-seen order.
func TermFieldIDs(ts []Term) []string {
	seen := make(map[string]bool, len(ts))
	var ids []string
	for _, t := range ts {
		if t.FieldID == "" || seen[t.FieldID] {
			continue
		}
		seen[t.FieldID] = true
		ids = append(ids, t.FieldID)
	}
	return ids
}
