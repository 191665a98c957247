package db

import (
	"reflect"
	"testing"

	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/sql"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		saved string
		op    sql.WhereOperator
		value string
		want  bool
	}{
		{"65", sql.EqualsOperator, "65", true},
		{"65", sql.EqualsOperator, "65.0", true},
		{"65", sql.EqualsOperator, "'65'", true},
		{"65", sql.EqualsOperator, "'65.0'", false},
		{"1", sql.EqualsOperator, "+1", true},
		{"2", sql.EqualsOperator, "'+2'", false},
		{"abc", sql.NotEqualsOperator, "'abd'", true},
		{"TRUE", sql.EqualsOperator, "true", true},
		{"TRUE", sql.EqualsOperator, "'true'", false},
		{"NULL", sql.EqualsOperator, "NULL", true},
		{"10", sql.GreaterThanOperator, "9", true},
		{"10", sql.GreaterThanOperator, "'9'", false},
		{"abc", sql.GreaterThanOperator, "9", false},
		{"b", sql.GreaterThanOperator, "'a'", true},
		{"b", sql.LessThanOrEqualOperator, "'b'", true},
		{"c", sql.LessThanOrEqualOperator, "'b'", false},
		{"-1.5", sql.LessThanOperator, "0", true},
		{"5", sql.GreaterThanOrEqualOperator, "5", true},
		{"TRUE", sql.GreaterThanOperator, "'a'", false},
		{"a", sql.LessThanOperator, "TRUE", false},
		{"NULL", sql.LessThanOrEqualOperator, "NULL", false},
		{"Steve", sql.LikeOperator, "'ve'", true},
		{"Steve", sql.LikeOperator, "'VE'", false},
		{"21", sql.LikeOperator, "21", false},
		{"21", sql.LikeOperator, "'2'", true},
	}

	for _, tt := range tests {
		t.Run(tt.saved+" "+tt.op.String()+" "+tt.value, func(t *testing.T) {
			if got := matches(tt.saved, tt.op, sql.Value{Raw: tt.value}); got != tt.want {
				t.Errorf("matches(%q, %s, %q) = %v, want %v", tt.saved, tt.op, tt.value, got, tt.want)
			}
		})
	}
}

func sampleTable() *core.Table {
	table := core.NewTable("t", "a", "b")
	table.AppendRow(core.Row{"1", "1", "x"})
	table.AppendRow(core.Row{"2", "7", "y"})
	table.AppendRow(core.Row{"4", "3", "x"})
	return table
}

func comparison(column string, op sql.WhereOperator, value string) sql.Comparison {
	return sql.Comparison{
		Attribute: sql.AttributeName{Column: core.ColumnName(column)},
		Operator:  op,
		Value:     sql.Value{Raw: value},
	}
}

func ids(table *core.Table) []string {
	var out []string
	for _, row := range table.Rows {
		out = append(out, row.ID())
	}
	return out
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		condition sql.Condition
		want      []string
	}{
		{"all rows", nil, []string{"1", "2", "4"}},
		{"comparison", comparison("b", sql.EqualsOperator, "'x'"), []string{"1", "4"}},
		{
			"or appends unseen right rows",
			sql.BinaryCondition{
				Operator: sql.LogicalOr,
				Left:     comparison("a", sql.EqualsOperator, "3"),
				Right:    comparison("b", sql.EqualsOperator, "'x'"),
			},
			[]string{"4", "1"},
		},
		{
			"and keeps left order",
			sql.BinaryCondition{
				Operator: sql.LogicalAnd,
				Left:     comparison("a", sql.GreaterThanOperator, "0"),
				Right:    comparison("b", sql.EqualsOperator, "'x'"),
			},
			[]string{"1", "4"},
		},
		{
			"nested",
			sql.BinaryCondition{
				Operator: sql.LogicalAnd,
				Left: sql.BinaryCondition{
					Operator: sql.LogicalOr,
					Left:     comparison("a", sql.EqualsOperator, "1"),
					Right:    comparison("a", sql.EqualsOperator, "7"),
				},
				Right: comparison("a", sql.EqualsOperator, "1"),
			},
			[]string{"1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := sampleTable()
			got, err := Evaluate(tt.condition, table)
			if err != nil {
				t.Fatalf("Evaluate() error: %v", err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("Evaluate() ids = %v, want %v", ids(got), tt.want)
			}
			if !reflect.DeepEqual(table, sampleTable()) {
				t.Error("Evaluate() modified its input table")
			}
		})
	}
}

func TestEvaluateUnknownAttribute(t *testing.T) {
	_, err := Evaluate(comparison("c", sql.EqualsOperator, "1"), sampleTable())
	want := `The [AttributeName] "c" does not exist for the [TableName] "t".`
	if err == nil || err.Error() != want {
		t.Errorf("Evaluate() error = %v, want %s", err, want)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	condition := sql.BinaryCondition{
		Operator: sql.LogicalOr,
		Left:     comparison("a", sql.LessThanOperator, "5"),
		Right:    comparison("b", sql.EqualsOperator, "'y'"),
	}

	first, err := Evaluate(condition, sampleTable())
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	second, err := Evaluate(condition, first)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !reflect.DeepEqual(ids(first), ids(second)) {
		t.Errorf("Re-evaluation changed ids: %v then %v", ids(first), ids(second))
	}
}
