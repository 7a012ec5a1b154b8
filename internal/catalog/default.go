package catalog

// Default returns the built-in demo catalog used by the CLI when no catalog
// path is configured, and by tests.
func Default() *Catalog {
	return New(
		FieldType{
			ID:          "branch-name",
			Label:       "Branch Name",
			Description: "Source branch of the run",
			ValueKind:   KindText,
			SupportedOperators: []Operator{
				Op(OpContains),
				Op(OpEquals),
				Op(OpStartsWith),
				Op(OpEndsWith),
			},
			DefaultOperator: OpContains,
		},
		FieldType{
			ID:          "iteration",
			Label:       "Iteration",
			Description: "Iteration number",
			ValueKind:   KindNumber,
			SupportedOperators: []Operator{
				Op(OpEquals),
				Op(OpGT),
				Op(OpLT),
				Op(OpGTE),
				Op(OpLTE),
			},
			DefaultOperator: OpEquals,
			ValidationRules: []Rule{
				{Type: RuleCount, Message: "Iteration bounds must describe a positive count"},
				{Type: RuleMax, Number: 9999, Message: "Iteration must be at most 9999"},
			},
		},
		FieldType{
			ID:          "status",
			Label:       "Status",
			Description: "Current status",
			ValueKind:   KindSingleSelect,
			SupportedOperators: []Operator{
				Op(OpEquals),
				Op(OpNotEquals),
				Op(OpIn),
			},
			DefaultOperator: OpEquals,
			Options:         []string{"Active", "Completed", "Cancelled", "In Progress", "Pending", "Done"},
		},
		FieldType{
			ID:          "created-date",
			Label:       "Created Date",
			Description: "Date the item was created",
			ValueKind:   KindDate,
			SupportedOperators: []Operator{
				LabeledOp(OpEquals, "on"),
				LabeledOp(OpGT, "after"),
				LabeledOp(OpLT, "before"),
			},
			DefaultOperator: OpEquals,
		},
		FieldType{
			ID:          "assignee",
			Label:       "Assignee",
			Description: "Person assigned",
			ValueKind:   KindText,
			SupportedOperators: []Operator{
				Op(OpEquals),
				Op(OpNotEquals),
				Op(OpIsEmpty),
				Op(OpIsNotEmpty),
			},
			DefaultOperator: OpEquals,
			ValidationRules: []Rule{
				{Type: RulePattern, Pattern: `^[A-Za-z0-9._@-]+$`, Message: "Assignee must be a user handle"},
			},
		},
		FieldType{
			ID:          "labels",
			Label:       "Labels",
			Description: "Attached labels",
			ValueKind:   KindMultiSelect,
			SupportedOperators: []Operator{
				Op(OpIn),
				Op(OpNotIn),
				Op(OpIsEmpty),
			},
			DefaultOperator: OpIn,
			Options:         []string{"bug", "feature", "urgent", "high priority", "docs"},
		},
	)
}
