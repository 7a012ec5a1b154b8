package catalog

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlCatalog is the on-disk YAML shape:
//
//	fields:
//	  - id: status
//	    label: Status
//	    kind: single-select
//	    operators: [equals, {kind: not-equals, label: "is not"}]
//	    options: [Active, Done]
type yamlCatalog struct {
	Fields []yamlField `yaml:"fields"`
}

type yamlField struct {
	ID          string         `yaml:"id"`
	Label       string         `yaml:"label"`
	Description string         `yaml:"description,omitempty"`
	Kind        string         `yaml:"kind"`
	Operators   []yamlOperator `yaml:"operators"`
	Default     string         `yaml:"default,omitempty"`
	Options     []string       `yaml:"options,omitempty"`
	Rules       []yamlRule     `yaml:"rules,omitempty"`
}

type yamlOperator struct {
	Operator
}

// UnmarshalYAML accepts a bare kind scalar or a mapping.
func (o *yamlOperator) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		o.Operator = Op(OperatorKind(node.Value))
		return nil
	}

	var raw struct {
		Kind          string `yaml:"kind"`
		Label         string `yaml:"label"`
		RequiresValue *bool  `yaml:"requires_value"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	o.Operator = Op(OperatorKind(raw.Kind))
	if raw.Label != "" {
		o.Label = raw.Label
	}
	if raw.RequiresValue != nil {
		o.RequiresValue = *raw.RequiresValue
	}
	return nil
}

type yamlRule struct {
	Type    string    `yaml:"type"`
	Value   yaml.Node `yaml:"value,omitempty"`
	Message string    `yaml:"message,omitempty"`
}

// LoadYAML reads a YAML catalog file.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a YAML catalog. Unknown keys are rejected.
// The result is not validated; call Validate before use.
func ParseYAML(data []byte) (*Catalog, error) {
	var doc yamlCatalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	fields := make([]FieldType, 0, len(doc.Fields))
	for i, yf := range doc.Fields {
		f := FieldType{
			ID:              yf.ID,
			Label:           yf.Label,
			Description:     yf.Description,
			ValueKind:       ValueKind(yf.Kind),
			DefaultOperator: OperatorKind(yf.Default),
			Options:         yf.Options,
		}
		for _, op := range yf.Operators {
			f.SupportedOperators = append(f.SupportedOperators, op.Operator)
		}
		for j, yr := range yf.Rules {
			r, err := decodeRule(yr)
			if err != nil {
				return nil, fmt.Errorf("fields[%d].rules[%d]: %w", i, j, err)
			}
			f.ValidationRules = append(f.ValidationRules, r)
		}
		fields = append(fields, f)
	}
	return New(fields...), nil
}

func decodeRule(yr yamlRule) (Rule, error) {
	r := Rule{Type: RuleType(yr.Type), Message: yr.Message}
	if yr.Value.Kind == 0 {
		return r, nil
	}
	switch yr.Value.Tag {
	case "!!int", "!!float":
		if err := yr.Value.Decode(&r.Number); err != nil {
			return r, err
		}
	default:
		r.Pattern = yr.Value.Value
	}
	return r, nil
}
