package rulepack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorHolds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		op    Operator
		left  float64
		right float64
		want  bool
	}{
		{name: "le equal", op: OpLessEqual, left: 1, right: 1, want: true},
		{name: "le greater", op: OpLessEqual, left: 2, right: 1, want: false},
		{name: "lt equal", op: OpLess, left: 1, right: 1, want: false},
		{name: "lt less", op: OpLess, left: 0, right: 1, want: true},
		{name: "ge equal", op: OpGreaterEqual, left: 1, right: 1, want: true},
		{name: "ge less", op: OpGreaterEqual, left: 5, right: 10, want: false},
		{name: "gt greater", op: OpGreater, left: 3, right: 2, want: true},
		{name: "gt equal", op: OpGreater, left: 2, right: 2, want: false},
		{name: "eq", op: OpEqual, left: 2.5, right: 2.5, want: true},
		{name: "eq differs", op: OpEqual, left: 2.5, right: 2.6, want: false},
		{name: "ne", op: OpNotEqual, left: 1, right: 2, want: true},
		{name: "ne same", op: OpNotEqual, left: 1, right: 1, want: false},
		{name: "unknown", op: Operator("=>"), left: 1, right: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.op.Holds(tt.left, tt.right))
		})
	}
}

func TestParseOperator(t *testing.T) {
	t.Parallel()

	for _, op := range Operators {
		got, ok := ParseOperator(" " + string(op) + " ")
		require.True(t, ok, string(op))
		assert.Equal(t, op, got)
	}

	for _, bad := range []string{"", "=", "=>", "<>", "lt"} {
		_, ok := ParseOperator(bad)
		assert.False(t, ok, bad)
	}
}

func TestOperandString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "start_date", ColumnOperand("start_date").String())
	assert.Equal(t, "10", LiteralOperand(10).String())
	assert.Equal(t, "0.5", LiteralOperand(0.5).String())
	assert.False(t, ColumnOperand("x").IsLiteral())
	assert.True(t, LiteralOperand(0).IsLiteral())
}

func TestRenderFallsBackOnEmptyTemplate(t *testing.T) {
	t.Parallel()

	rule, err := NewCrossFieldRule("r", "a", OpLess, LiteralOperand(3), "")
	require.NoError(t, err)

	got := rule.Render(MessageData{Left: "a", Right: "3", Operator: "<", LeftValue: "4", RightValue: "3"})
	assert.Equal(t, "r: a=4 < 3=3 does not hold", got)
}

func TestRenderHandBuiltRule(t *testing.T) {
	t.Parallel()

	rule := CrossFieldRule{Name: "r", Left: "a", Operator: OpLess, Right: ColumnOperand("b"), Message: "{{.Left}} vs {{.Right}}"}
	assert.Equal(t, "a vs b", rule.Render(MessageData{Left: "a", Right: "b"}))
}

func TestNewCrossFieldRuleRejectsBadTemplate(t *testing.T) {
	t.Parallel()

	_, err := NewCrossFieldRule("r", "a", OpLess, ColumnOperand("b"), "{{if}}")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestMessageTemplateCheckedAtLoad(t *testing.T) {
	t.Parallel()

	_, err := NewCrossFieldRule("r", "a", OpLess, ColumnOperand("b"), "a={{.LeftVal}}")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	rule, err := NewCrossFieldRule("r", "a", OpLess, ColumnOperand("b"), `{{.Rule}}: {{index .Row "a"}} {{.Row.b}}`)
	require.NoError(t, err)
	assert.Equal(t, "r: 5 1", rule.Render(MessageData{Rule: "r", Row: map[string]string{"a": "5", "b": "1"}}))
}

func TestValidateRejectsUnrenderableHandBuiltMessage(t *testing.T) {
	t.Parallel()

	pack := &RulePack{CrossFieldRules: []CrossFieldRule{
		{Name: "r", Left: "a", Operator: OpLess, Right: ColumnOperand("b"), Message: "{{.Nope}}"},
	}}
	err := pack.Validate()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}
