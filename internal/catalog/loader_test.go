package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCUE = `
field: "branch-name": {
	label: "Branch Name"
	kind:  "text"
	operators: ["contains", {kind: "equals", label: "is"}]
	default: "contains"
}
field: iteration: {
	label: "Iteration"
	kind:  "number"
	operators: ["equals", "gt", "lt"]
	rules: [{type: "count"}, {type: "max", value: 50, message: "too big"}]
}
field: status: {
	label: "Status"
	kind:  "single-select"
	operators: ["equals"]
	options: ["Active", "Done"]
}
`

func TestCompileCUE(t *testing.T) {
	v := cuecontext.New().CompileString(sampleCUE)
	require.NoError(t, v.Err())

	c, err := CompileCUE(v)
	require.NoError(t, err)
	assert.Empty(t, Validate(c))

	fields := c.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, "branch-name", fields[0].ID)
	assert.Equal(t, "iteration", fields[1].ID)
	assert.Equal(t, "status", fields[2].ID)

	op, ok := fields[0].Operator(OpEquals)
	require.True(t, ok)
	assert.Equal(t, "is", op.Label)
	assert.True(t, op.RequiresValue)

	r, ok := fields[1].Rule(RuleMax)
	require.True(t, ok)
	assert.Equal(t, 50.0, r.Number)
	assert.Equal(t, "too big", r.Message)

	assert.Equal(t, []string{"Active", "Done"}, fields[2].Options)
}

func TestCompileCUEMissingLabel(t *testing.T) {
	v := cuecontext.New().CompileString(`field: x: { kind: "text", operators: ["equals"] }`)
	require.NoError(t, v.Err())

	_, err := CompileCUE(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field.x.label")
	assert.Contains(t, err.Error(), "required")
}

func TestCompileCUEMissingFieldStruct(t *testing.T) {
	v := cuecontext.New().CompileString(`other: 1`)
	_, err := CompileCUE(v)
	require.Error(t, err)
	var le *LoadError
	assert.ErrorAs(t, err, &le)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(sampleCUE), 0644))

	c, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	c, err = Load(filepath.Join(dir, "catalog.cue"))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
}

const sampleYAML = `
fields:
  - id: labels
    label: Labels
    kind: multi-select
    operators: [in, {kind: not-in, label: "excludes"}]
    default: in
    options: [bug, docs]
  - id: assignee
    label: Assignee
    kind: text
    operators: [equals, is-empty]
    rules:
      - type: pattern
        value: "^[a-z]+$"
      - type: min
        value: 2
`

func TestParseYAML(t *testing.T) {
	c, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Empty(t, Validate(c))

	labels, ok := c.Field("labels")
	require.True(t, ok)
	op, ok := labels.Operator(OpNotIn)
	require.True(t, ok)
	assert.Equal(t, "excludes", op.Label)

	assignee, _ := c.Field("assignee")
	op, _ = assignee.Operator(OpIsEmpty)
	assert.False(t, op.RequiresValue)

	r, ok := assignee.Rule(RulePattern)
	require.True(t, ok)
	assert.Equal(t, "^[a-z]+$", r.Pattern)
	r, ok = assignee.Rule(RuleMin)
	require.True(t, ok)
	assert.Equal(t, 2.0, r.Number)
}

func TestParseYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := ParseYAML([]byte("fields:\n  - id: a\n    lable: A\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported catalog file")
}
