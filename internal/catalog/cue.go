package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// LoadError is a catalog loading failure with an optional source position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a catalog from a CUE directory, a single .cue file, or a YAML
// file, chosen by the path.
func Load(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading catalog: %w", err)
		}
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		return CompileCUE(v)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, &LoadError{Field: "catalog", Message: fmt.Sprintf("unsupported catalog file: %s", path)}
	}
}

// LoadDir loads every CUE file in dir as one instance and compiles the
// fields under its top-level "field" struct.
func LoadDir(dir string) (*Catalog, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Field: "catalog", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Field: "catalog", Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	return CompileCUE(ctx.BuildInstance(inst))
}

// CompileCUE builds a catalog from a CUE value of the form:
//
//	field: "branch-name": {
//		label:     "Branch Name"
//		kind:      "text"
//		operators: ["contains", {kind: "equals", label: "is"}]
//		default:   "contains"
//	}
//
// Fields keep their declaration order. The result is not validated; call
// Validate before use.
func CompileCUE(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	fieldsVal := v.LookupPath(cue.ParsePath("field"))
	if !fieldsVal.Exists() {
		return nil, &LoadError{Field: "field", Message: "catalog must define a field struct", Pos: v.Pos()}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []FieldType
	for iter.Next() {
		f, err := compileField(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return New(fields...), nil
}

func compileField(id string, v cue.Value) (FieldType, error) {
	f := FieldType{ID: id}
	var err error

	if f.Label, err = requiredString(v, "label", id); err != nil {
		return f, err
	}
	kind, err := requiredString(v, "kind", id)
	if err != nil {
		return f, err
	}
	f.ValueKind = ValueKind(kind)

	if f.Description, err = optionalString(v, "description"); err != nil {
		return f, err
	}
	def, err := optionalString(v, "default")
	if err != nil {
		return f, err
	}
	f.DefaultOperator = OperatorKind(def)

	if f.SupportedOperators, err = compileOperators(v, id); err != nil {
		return f, err
	}

	optsVal := v.LookupPath(cue.ParsePath("options"))
	if optsVal.Exists() {
		optIter, err := optsVal.List()
		if err != nil {
			return f, formatCUEError(err)
		}
		for optIter.Next() {
			s, err := optIter.Value().String()
			if err != nil {
				return f, formatCUEError(err)
			}
			f.Options = append(f.Options, s)
		}
	}

	if f.ValidationRules, err = compileRules(v, id); err != nil {
		return f, err
	}
	return f, nil
}

// compileOperators accepts either a bare kind string or a struct with
// kind, label and requires_value for each list entry.
func compileOperators(v cue.Value, id string) ([]Operator, error) {
	opsVal := v.LookupPath(cue.ParsePath("operators"))
	if !opsVal.Exists() {
		return nil, &LoadError{
			Field:   fmt.Sprintf("field.%s.operators", id),
			Message: "operators are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := opsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var ops []Operator
	for iter.Next() {
		item := iter.Value()
		if s, err := item.String(); err == nil {
			ops = append(ops, Op(OperatorKind(s)))
			continue
		}

		kind, err := requiredString(item, "kind", id)
		if err != nil {
			return nil, err
		}
		op := Op(OperatorKind(kind))
		label, err := optionalString(item, "label")
		if err != nil {
			return nil, err
		}
		if label != "" {
			op.Label = label
		}
		rv := item.LookupPath(cue.ParsePath("requires_value"))
		if rv.Exists() {
			b, err := rv.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			op.RequiresValue = b
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func compileRules(v cue.Value, id string) ([]Rule, error) {
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, nil
	}

	iter, err := rulesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []Rule
	for iter.Next() {
		item := iter.Value()
		typ, err := requiredString(item, "type", id)
		if err != nil {
			return nil, err
		}
		r := Rule{Type: RuleType(typ)}
		if r.Message, err = optionalString(item, "message"); err != nil {
			return nil, err
		}

		val := item.LookupPath(cue.ParsePath("value"))
		if val.Exists() {
			switch val.IncompleteKind() {
			case cue.StringKind:
				r.Pattern, err = val.String()
			default:
				r.Number, err = val.Float64()
			}
			if err != nil {
				return nil, formatCUEError(err)
			}
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func requiredString(v cue.Value, name, id string) (string, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return "", &LoadError{
			Field:   fmt.Sprintf("field.%s.%s", id, name),
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
