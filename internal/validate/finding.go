package validate

import "fmt"

// Kind classifies a finding.
type Kind string

const (
	KindRequired   Kind = "required"
	KindFormat     Kind = "format"
	KindConstraint Kind = "constraint"
	KindDuplicate  Kind = "duplicate"
	KindConflict   Kind = "conflict"
)

// Severity is derived from Kind and never set independently.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Severity returns the fixed severity for k.
func (k Kind) Severity() Severity {
	switch k {
	case KindRequired, KindFormat:
		return SeverityError
	case KindConstraint, KindConflict:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Finding codes (E200-E299)
const (
	// Presence (E200)
	ErrEmptyQuery = "E200" // no criteria and no raw query

	// Per-criterion (E201-E219)
	ErrNoField             = "E201" // criterion has no field
	ErrUnsupportedOperator = "E202" // operator not offered by the field
	ErrValueRequired       = "E203" // operator needs a value
	ErrNotANumber          = "E204" // number field with non-numeric value
	ErrNotADate            = "E205" // date field with unparseable value
	ErrNotABoolean         = "E206" // boolean field with non-boolean value
	ErrUnknownOption       = "E207" // select value not among options
	ErrValueLength         = "E208" // text longer than the limit
	ErrCountRange          = "E209" // counting field bound out of range
	ErrBelowMin            = "E210" // value below min rule
	ErrAboveMax            = "E211" // value above max rule
	ErrPatternMismatch     = "E212" // value does not match pattern rule

	// Cross-criterion (E220-E239)
	ErrDuplicate       = "E220" // same field and operator used twice
	ErrEqualsConflict  = "E230" // equals and not-equals on one field
	ErrRangeConflict   = "E231" // lower bound not below upper bound
	ErrSelectConflict  = "E232" // two different equals on a single-select field
	ErrOrEmptyOperator = "E240" // is-empty/is-not-empty under OR
)

// Finding is one diagnostic about a query.
type Finding struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Code     string   `json:"code"`
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
}

// String renders the finding for terminals and logs.
func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", f.Code, f.Severity, f.Field, f.Message)
}

// IsValid reports whether no finding has error severity.
func IsValid(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Count returns how many findings have the given kind.
func Count(findings []Finding, k Kind) int {
	n := 0
	for _, f := range findings {
		if f.Kind == k {
			n++
		}
	}
	return n
}
