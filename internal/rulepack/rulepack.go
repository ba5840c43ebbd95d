// Package rulepack loads and validates rule packs: the declarative
// description of which columns a dataset must have, which columns must hold
// numbers within bounds, and which pairs of fields must compare a certain way.
//
// A rule pack is validated once at load time. Everything downstream works on
// the typed RulePack; raw JSON or YAML never leaves this package.
package rulepack

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// RulePack is a validated, immutable set of rules for one dataset.
type RulePack struct {
	// DatasetName is a display name only; it does not affect evaluation.
	DatasetName     string
	RequiredColumns []string
	// NumericRules keeps the declaration order of the source document.
	NumericRules    []NumericRule
	CrossFieldRules []CrossFieldRule
}

// Empty reports whether the pack contains no rules at all.
func (p *RulePack) Empty() bool {
	return len(p.RequiredColumns) == 0 && len(p.NumericRules) == 0 && len(p.CrossFieldRules) == 0
}

// NumericRule requires a column to hold a number within optional inclusive bounds.
type NumericRule struct {
	Column string
	Min    *float64
	Max    *float64
}

// CrossFieldRule compares a column against another column or a literal.
type CrossFieldRule struct {
	Name     string
	Left     string
	Operator Operator
	Right    Operand
	Message  string

	tmpl *template.Template
}

// MessageData is the value a cross-field message template is executed against.
type MessageData struct {
	Rule       string
	Left       string
	Right      string
	Operator   string
	LeftValue  string
	RightValue string
	Row        map[string]string
}

// NewCrossFieldRule builds a cross-field rule and compiles its message template.
func NewCrossFieldRule(name, left string, op Operator, right Operand, message string) (CrossFieldRule, error) {
	r := CrossFieldRule{Name: name, Left: left, Operator: op, Right: right, Message: message}
	if err := r.compile(); err != nil {
		return CrossFieldRule{}, err
	}
	return r, nil
}

func (r *CrossFieldRule) compile() error {
	if strings.TrimSpace(r.Message) == "" {
		r.tmpl = nil
		return nil
	}
	tmpl, err := parseMessage(r.Name, r.Message)
	if err != nil {
		return wrapConfig(err, fmt.Sprintf("cross-field rule %q: invalid message template", r.Name))
	}
	r.tmpl = tmpl
	return nil
}

// parseMessage parses a message template and executes it once against empty
// data, so references to unknown fields fail at load time instead of on the
// first violation.
func parseMessage(name, message string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(message)
	if err != nil {
		return nil, err
	}
	if err := tmpl.Execute(io.Discard, MessageData{Row: map[string]string{}}); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Render produces the violation message for one row. An empty template, or
// one that fails to execute, falls back to a generated description.
func (r CrossFieldRule) Render(data MessageData) string {
	tmpl := r.tmpl
	if tmpl == nil && strings.TrimSpace(r.Message) != "" {
		// Rules assembled by hand rather than through the loader.
		parsed, err := parseMessage(r.Name, r.Message)
		if err == nil {
			tmpl = parsed
		}
	}
	if tmpl != nil {
		var b strings.Builder
		if err := tmpl.Execute(&b, data); err == nil {
			return b.String()
		}
	}
	return fmt.Sprintf("%s: %s=%s %s %s=%s does not hold",
		r.Name, data.Left, data.LeftValue, data.Operator, data.Right, data.RightValue)
}

// Validate checks the invariants the loader guarantees. The engine calls it
// so packs assembled in code get the same checks as loaded ones.
func (p *RulePack) Validate() error {
	seenRequired := make(map[string]bool, len(p.RequiredColumns))
	for i, col := range p.RequiredColumns {
		if strings.TrimSpace(col) == "" {
			return configErrorf("required_columns[%d]: column name is empty", i)
		}
		if seenRequired[col] {
			return configErrorf("required_columns: column %q is listed twice", col)
		}
		seenRequired[col] = true
	}

	seenNumeric := make(map[string]bool, len(p.NumericRules))
	for _, rule := range p.NumericRules {
		if strings.TrimSpace(rule.Column) == "" {
			return configErrorf("numeric_rules: column name is empty")
		}
		if seenNumeric[rule.Column] {
			return configErrorf("numeric_rules: column %q has more than one rule", rule.Column)
		}
		seenNumeric[rule.Column] = true
		if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
			return configHintf("swap the bounds or remove one of them",
				"numeric_rules[%q]: min %s is greater than max %s",
				rule.Column, FormatNumber(*rule.Min), FormatNumber(*rule.Max))
		}
	}

	seenNames := make(map[string]bool, len(p.CrossFieldRules))
	for i, rule := range p.CrossFieldRules {
		if strings.TrimSpace(rule.Name) == "" {
			return configErrorf("cross_field_rules[%d]: name is required", i)
		}
		if seenNames[rule.Name] {
			return configErrorf("cross_field_rules[%d]: rule name %q is used twice", i, rule.Name)
		}
		seenNames[rule.Name] = true
		if strings.TrimSpace(rule.Left) == "" {
			return configErrorf("cross_field_rules[%q]: left column is required", rule.Name)
		}
		if _, ok := ParseOperator(string(rule.Operator)); !ok {
			return configHintf("operator must be one of "+operatorList(),
				"cross_field_rules[%q]: unknown operator %q", rule.Name, rule.Operator)
		}
		if !rule.Right.IsLiteral() && strings.TrimSpace(rule.Right.Column) == "" {
			return configErrorf("cross_field_rules[%q]: right must be a column name or a number", rule.Name)
		}
		if rule.tmpl == nil && strings.TrimSpace(rule.Message) != "" {
			if _, err := parseMessage(rule.Name, rule.Message); err != nil {
				return wrapConfig(err, fmt.Sprintf("cross-field rule %q: invalid message template", rule.Name))
			}
		}
	}
	return nil
}
