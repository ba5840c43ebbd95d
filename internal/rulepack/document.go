package rulepack

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a rule pack. Sections are pointers so an
// absent section can be told apart from an empty one.
type Document struct {
	DatasetName     string            `json:"dataset_name,omitempty" yaml:"dataset_name,omitempty"`
	RequiredColumns *[]string         `json:"required_columns,omitempty" yaml:"required_columns,omitempty"`
	NumericRules    *NumericRuleSpecs `json:"numeric_rules,omitempty" yaml:"numeric_rules,omitempty"`
	CrossFieldRules *[]CrossFieldSpec `json:"cross_field_rules,omitempty" yaml:"cross_field_rules,omitempty"`
}

// NumericRuleSpecs is the numeric_rules object. It is written as an object
// keyed by column name but decoded into a slice to keep declaration order.
type NumericRuleSpecs []NumericSpec

// NumericSpec holds the optional bounds for one column.
type NumericSpec struct {
	Column string
	Min    *float64
	Max    *float64
}

type numericBounds struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// CrossFieldSpec is one entry of cross_field_rules. Right holds either a
// column name (string) or a numeric literal.
type CrossFieldSpec struct {
	Name     string `json:"name" yaml:"name"`
	Left     string `json:"left" yaml:"left"`
	Operator string `json:"operator" yaml:"operator"`
	Right    any    `json:"right" yaml:"right"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

// UnmarshalJSON reads the object token by token so key order survives.
func (s *NumericRuleSpecs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("numeric_rules must be an object keyed by column name")
	}

	specs := NumericRuleSpecs{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		column, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "numeric_rules[%q]", column)
		}
		var bounds numericBounds
		inner := json.NewDecoder(bytes.NewReader(raw))
		inner.DisallowUnknownFields()
		if err := inner.Decode(&bounds); err != nil {
			return errors.Wrapf(err, "numeric_rules[%q]", column)
		}
		specs = append(specs, NumericSpec{Column: column, Min: bounds.Min, Max: bounds.Max})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = specs
	return nil
}

// UnmarshalYAML walks the mapping node in document order.
func (s *NumericRuleSpecs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return errors.Newf("line %d: numeric_rules must be a mapping keyed by column name", node.Line)
	}

	specs := make(NumericRuleSpecs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var column string
		if err := key.Decode(&column); err != nil {
			return errors.Wrapf(err, "line %d: numeric_rules key", key.Line)
		}
		spec := NumericSpec{Column: column}

		if val.Kind == yaml.AliasNode {
			val = val.Alias
		}
		switch {
		case val.Kind == yaml.ScalarNode && val.Tag == "!!null":
			// "col:" with no bounds only requires a number.
		case val.Kind == yaml.MappingNode:
			for j := 0; j+1 < len(val.Content); j += 2 {
				var name string
				if err := val.Content[j].Decode(&name); err != nil {
					return errors.Wrapf(err, "line %d: numeric_rules[%q]", val.Content[j].Line, column)
				}
				var bound *float64
				if err := val.Content[j+1].Decode(&bound); err != nil {
					return errors.Wrapf(err, "line %d: numeric_rules[%q].%s", val.Content[j+1].Line, column, name)
				}
				switch name {
				case "min":
					spec.Min = bound
				case "max":
					spec.Max = bound
				default:
					return errors.Newf("line %d: numeric_rules[%q]: unknown field %q", val.Content[j].Line, column, name)
				}
			}
		default:
			return errors.Newf("line %d: numeric_rules[%q] must be a mapping with min and/or max", val.Line, column)
		}
		specs = append(specs, spec)
	}

	*s = specs
	return nil
}

// MarshalJSON writes the specs back as an object in slice order.
func (s NumericRuleSpecs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, spec := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(spec.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(numericBounds{Min: spec.Min, Max: spec.Max})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML writes the specs back as a mapping in slice order.
func (s NumericRuleSpecs) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, spec := range s {
		var val yaml.Node
		if err := val.Encode(numericBounds{Min: spec.Min, Max: spec.Max}); err != nil {
			return nil, err
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: spec.Column}
		node.Content = append(node.Content, key, &val)
	}
	return node, nil
}

// RulePack validates the document and converts it into a typed RulePack.
func (d *Document) RulePack() (*RulePack, error) {
	if d.RequiredColumns == nil && d.NumericRules == nil && d.CrossFieldRules == nil {
		return nil, configHintf("add at least one of required_columns, numeric_rules or cross_field_rules",
			"rule pack defines no rule sections")
	}

	pack := &RulePack{DatasetName: strings.TrimSpace(d.DatasetName)}

	if d.RequiredColumns != nil {
		pack.RequiredColumns = append([]string(nil), (*d.RequiredColumns)...)
	}

	if d.NumericRules != nil {
		for _, spec := range *d.NumericRules {
			for _, bound := range []*float64{spec.Min, spec.Max} {
				if bound != nil && (math.IsNaN(*bound) || math.IsInf(*bound, 0)) {
					return nil, configErrorf("numeric_rules[%q]: bounds must be finite numbers", spec.Column)
				}
			}
			pack.NumericRules = append(pack.NumericRules, NumericRule(spec))
		}
	}

	if d.CrossFieldRules != nil {
		for i, spec := range *d.CrossFieldRules {
			op, ok := ParseOperator(spec.Operator)
			if !ok {
				return nil, configHintf("operator must be one of "+operatorList(),
					"cross_field_rules[%d] (%s): unknown operator %q", i, spec.Name, spec.Operator)
			}
			right, err := operandFrom(spec.Right)
			if err != nil {
				return nil, errors.Wrapf(err, "cross_field_rules[%d] (%s)", i, spec.Name)
			}
			rule := CrossFieldRule{
				Name:     strings.TrimSpace(spec.Name),
				Left:     strings.TrimSpace(spec.Left),
				Operator: op,
				Right:    right,
				Message:  spec.Message,
			}
			if err := rule.compile(); err != nil {
				return nil, err
			}
			pack.CrossFieldRules = append(pack.CrossFieldRules, rule)
		}
	}

	if err := pack.Validate(); err != nil {
		return nil, err
	}
	return pack, nil
}

// operandFrom interprets the decoded "right" value. JSON yields float64 for
// numbers; YAML yields int, uint64 or float64.
func operandFrom(v any) (Operand, error) {
	switch r := v.(type) {
	case string:
		if strings.TrimSpace(r) == "" {
			return Operand{}, configErrorf("right column name is empty")
		}
		return ColumnOperand(strings.TrimSpace(r)), nil
	case float64:
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return Operand{}, configErrorf("right literal must be a finite number")
		}
		return LiteralOperand(r), nil
	case int:
		return LiteralOperand(float64(r)), nil
	case int64:
		return LiteralOperand(float64(r)), nil
	case uint64:
		return LiteralOperand(float64(r)), nil
	case nil:
		return Operand{}, configHintf("set right to a column name or a number", "right is required")
	default:
		return Operand{}, configHintf("set right to a column name or a number",
			"right has unsupported type %T", v)
	}
}

// DocumentFrom converts a RulePack back into its on-disk form. All three
// sections are always present in the result.
func DocumentFrom(p *RulePack) *Document {
	required := append([]string{}, p.RequiredColumns...)
	numeric := make(NumericRuleSpecs, 0, len(p.NumericRules))
	for _, rule := range p.NumericRules {
		numeric = append(numeric, NumericSpec(rule))
	}
	cross := make([]CrossFieldSpec, 0, len(p.CrossFieldRules))
	for _, rule := range p.CrossFieldRules {
		var right any = rule.Right.Column
		if rule.Right.IsLiteral() {
			right = rule.Right.Literal
		}
		cross = append(cross, CrossFieldSpec{
			Name:     rule.Name,
			Left:     rule.Left,
			Operator: string(rule.Operator),
			Right:    right,
			Message:  rule.Message,
		})
	}
	return &Document{
		DatasetName:     p.DatasetName,
		RequiredColumns: &required,
		NumericRules:    &numeric,
		CrossFieldRules: &cross,
	}
}
