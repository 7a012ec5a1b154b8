package criteria

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date rendering.
const DateLayout = "2006-01-02"

// Value is a sealed interface over the typed values a criterion can hold.
// Only String, Number, Bool, Date and List implement it. A nil Value means
// the criterion carries no value.
type Value interface {
	criteriaValue() // Sealed

	// Text renders the value in raw-query form, without quoting.
	Text() string
}

// String is a text or select value.
type String string

func (String) criteriaValue() {}

// Text implements Value.
func (s String) Text() string { return string(s) }

// Number is a numeric value.
type Number float64

func (Number) criteriaValue() {}

// Text renders the shortest decimal form.
func (n Number) Text() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Finite reports whether n is neither NaN nor infinite.
func (n Number) Finite() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Bool is a boolean value.
type Bool bool

func (Bool) criteriaValue() {}

// Text implements Value.
func (b Bool) Text() string { return strconv.FormatBool(bool(b)) }

// Date is a calendar date. Only the year, month and day are significant.
type Date time.Time

func (Date) criteriaValue() {}

// NewDate truncates t to its calendar date in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Time returns the underlying time.
func (d Date) Time() time.Time { return time.Time(d) }

// Text renders YYYY-MM-DD.
func (d Date) Text() string { return time.Time(d).Format(DateLayout) }

// List is a multi-select value.
type List []string

func (List) criteriaValue() {}

// Text renders the items comma-joined.
func (l List) Text() string { return strings.Join(l, ",") }

// IsEmpty reports whether v carries nothing: nil, a blank string, or an
// empty list.
func IsEmpty(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case String:
		return strings.TrimSpace(string(x)) == ""
	case List:
		return len(x) == 0
	default:
		return false
	}
}

// Native returns v as a plain Go value for JSON output: string, float64,
// bool, a YYYY-MM-DD string, []string or nil.
func Native(v Value) any {
	switch x := v.(type) {
	case String:
		return string(x)
	case Number:
		return float64(x)
	case Bool:
		return bool(x)
	case Date:
		return x.Text()
	case List:
		return []string(x)
	default:
		return nil
	}
}
