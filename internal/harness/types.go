package harness

// TraceEvent is one executed step.
type TraceEvent struct {
	Seq    int            `json:"seq"`
	Phase  string         `json:"phase"` // "setup" or "flow"
	Action string         `json:"action"`
	Args   map[string]any `json:"args,omitempty"`
	Case   string         `json:"case"`
	Result map[string]any `json:"result,omitempty"`
}

// Result is what Run reports. Pass is false as soon as any expectation or
// assertion fails; Errors says which.
type Result struct {
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult returns an empty, passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddStep appends a step to the trace and returns it.
func (r *Result) AddStep(phase, action string, args map[string]any, outcome string, result map[string]any) TraceEvent {
	ev := TraceEvent{
		Seq:    len(r.Trace) + 1,
		Phase:  phase,
		Action: action,
		Args:   args,
		Case:   outcome,
		Result: result,
	}
	r.Trace = append(r.Trace, ev)
	return ev
}

// lastStep returns the last step of the action, or false.
func (r *Result) lastStep(action string) (TraceEvent, bool) {
	for i := len(r.Trace) - 1; i >= 0; i-- {
		if r.Trace[i].Action == action {
			return r.Trace[i], true
		}
	}
	return TraceEvent{}, false
}
