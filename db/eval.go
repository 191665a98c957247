package db

import (
	"fmt"

	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/sql"
)

// Evaluate filters table by condition. A nil condition keeps every row.
// Each comparison filters its own copy of table; AND and OR then combine
// the copies by row id.
func Evaluate(condition sql.Condition, table *core.Table) (*core.Table, error) {
	switch c := condition.(type) {
	case nil:
		return table.Clone(), nil
	case sql.Comparison:
		return evaluateComparison(c, table)
	case sql.BinaryCondition:
		left, err := Evaluate(c.Left, table)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(c.Right, table)
		if err != nil {
			return nil, err
		}
		if c.Operator == sql.LogicalOr {
			return union(left, right), nil
		}
		return intersect(left, right), nil
	default:
		return nil, fmt.Errorf("unsupported condition %T", condition)
	}
}

func evaluateComparison(c sql.Comparison, table *core.Table) (*core.Table, error) {
	index, err := attributeIndex(c.Attribute, table)
	if err != nil {
		return nil, err
	}
	return table.Filter(func(row core.Row) bool {
		return matches(row[index], c.Operator, c.Value)
	}), nil
}

// union keeps the rows of left, then the rows of right whose id left lacks.
func union(left, right *core.Table) *core.Table {
	result := left.Clone()
	seen := left.IDs()
	for _, row := range right.Rows {
		if _, ok := seen[row.ID()]; !ok {
			result.Rows = append(result.Rows, row.Clone())
		}
	}
	return result
}

// intersect keeps the rows of left whose id right also has, in left order.
func intersect(left, right *core.Table) *core.Table {
	ids := right.IDs()
	return left.Filter(func(row core.Row) bool {
		_, ok := ids[row.ID()]
		return ok
	})
}

// checkTableMatch verifies an attribute's qualifier names table.
func checkTableMatch(attribute sql.AttributeName, table *core.Table) error {
	if attribute.Qualified() && core.NewTableName(attribute.Table) != table.Name {
		return fmt.Errorf("The [TableName] \"%s\" does not match \"%s\".", attribute.Table, table.Name)
	}
	return nil
}

// attributeIndex resolves an attribute against table, checking any
// qualifier first.
func attributeIndex(attribute sql.AttributeName, table *core.Table) (int, error) {
	if err := checkTableMatch(attribute, table); err != nil {
		return -1, err
	}
	index := table.ColumnIndex(attribute.Column)
	if index < 0 {
		return -1, fmt.Errorf("The [AttributeName] \"%s\" does not exist for the [TableName] \"%s\".", attribute.Column, table.Name)
	}
	return index, nil
}
