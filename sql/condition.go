package sql

import (
	"regexp"
	"strings"

	"github.com/nickyhof/TabDB/core"
)

var quotedPattern = regexp.MustCompile(`^'.*'$`)

// AttributeName is a column reference, optionally qualified with a table
// name exactly as it was typed.
type AttributeName struct {
	Table  string
	Column core.ColumnName
}

func (a AttributeName) Qualified() bool {
	return a.Table != ""
}

func (a AttributeName) String() string {
	if a.Table == "" {
		return string(a.Column)
	}
	return a.Table + "." + string(a.Column)
}

// Value is a literal as it appeared in the command, quotes included.
type Value struct {
	Raw string
}

// IsString reports whether the literal was a quoted string.
func (v Value) IsString() bool {
	return quotedPattern.MatchString(v.Raw)
}

// Text returns the cell text the literal is stored as: quotes stripped,
// TRUE/FALSE/NULL upper-cased, numbers verbatim.
func (v Value) Text() string {
	if v.IsString() {
		return v.Raw[1 : len(v.Raw)-1]
	}
	switch upper := strings.ToUpper(v.Raw); upper {
	case "TRUE", "FALSE", "NULL":
		return upper
	}
	return v.Raw
}

// IsKeyword reports whether the literal is an unquoted TRUE, FALSE or NULL.
func (v Value) IsKeyword() bool {
	if v.IsString() {
		return false
	}
	switch v.Text() {
	case "TRUE", "FALSE", "NULL":
		return true
	}
	return false
}

func (v Value) String() string {
	return v.Raw
}

type WhereOperator int

const (
	EqualsOperator WhereOperator = iota
	NotEqualsOperator
	LessThanOperator
	GreaterThanOperator
	LessThanOrEqualOperator
	GreaterThanOrEqualOperator
	LikeOperator
)

func (o WhereOperator) String() string {
	switch o {
	case EqualsOperator:
		return "=="
	case NotEqualsOperator:
		return "!="
	case LessThanOperator:
		return "<"
	case GreaterThanOperator:
		return ">"
	case LessThanOrEqualOperator:
		return "<="
	case GreaterThanOrEqualOperator:
		return ">="
	default:
		return "LIKE"
	}
}

// Ordering reports whether the operator only applies to ordered values.
func (o WhereOperator) Ordering() bool {
	switch o {
	case LessThanOperator, GreaterThanOperator, LessThanOrEqualOperator, GreaterThanOrEqualOperator:
		return true
	}
	return false
}

type LogicalOperator int

const (
	LogicalAnd LogicalOperator = iota
	LogicalOr
)

func (o LogicalOperator) String() string {
	if o == LogicalOr {
		return "OR"
	}
	return "AND"
}

// Condition is a node of a WHERE expression: a Comparison or a
// BinaryCondition.
type Condition interface {
	String() string
}

// Comparison is a single "attribute comparator value" test.
type Comparison struct {
	Attribute AttributeName
	Operator  WhereOperator
	Value     Value
}

func (c Comparison) String() string {
	return c.Attribute.String() + " " + c.Operator.String() + " " + c.Value.Raw
}

// BinaryCondition joins two conditions. AND and OR bind equally tightly, so
// a chain without brackets nests to the left.
type BinaryCondition struct {
	Operator LogicalOperator
	Left     Condition
	Right    Condition
}

func (b BinaryCondition) String() string {
	return "(" + b.Left.String() + " " + b.Operator.String() + " " + b.Right.String() + ")"
}

func comparatorFor(token Token) (WhereOperator, bool) {
	switch token.Type {
	case Equals:
		return EqualsOperator, true
	case NotEquals:
		return NotEqualsOperator, true
	case LessThan:
		return LessThanOperator, true
	case GreaterThan:
		return GreaterThanOperator, true
	case LessThanOrEqual:
		return LessThanOrEqualOperator, true
	case GreaterThanOrEqual:
		return GreaterThanOrEqualOperator, true
	case Like:
		return LikeOperator, true
	}
	return 0, false
}

func isValue(token Token) bool {
	switch token.Type {
	case String, True, False, Null, Int, Float:
		return true
	}
	return false
}
