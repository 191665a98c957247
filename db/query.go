package db

import (
	"fmt"
	"time"

	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/sql"
)

// projection resolves a SELECT list to column indexes in output order. A
// nil list selects every column. A column named twice is output twice.
func projection(columns []sql.AttributeName, table *core.Table) ([]int, error) {
	if columns == nil {
		indexes := make([]int, len(table.Columns))
		for i := range indexes {
			indexes[i] = i
		}
		return indexes, nil
	}

	indexes := make([]int, 0, len(columns))
	for _, column := range columns {
		if column.Qualified() && core.NewTableName(column.Table) != table.Name {
			return nil, fmt.Errorf("The table \"%s\" does not match the table \"%s\".", table.Name, column.Table)
		}
		index := table.ColumnIndex(column.Column)
		if index < 0 {
			return nil, fmt.Errorf("The table \"%s\" does not contain the column \"%s\".", table.Name, column.Column)
		}
		indexes = append(indexes, index)
	}
	return indexes, nil
}

func (engine *Engine) executeSelectStatement(statement sql.SelectStatement) (QueryResult, error) {
	startTime := time.Now()

	tableOp, err := engine.loadTable(statement.Table)
	if err != nil {
		return QueryResult{}, err
	}
	table := tableOp.Table

	indexes, err := projection(statement.Columns, table)
	if err != nil {
		return QueryResult{}, err
	}

	filtered, err := Evaluate(statement.Where, table)
	if err != nil {
		return QueryResult{}, err
	}

	columns := make([]string, len(indexes))
	for i, index := range indexes {
		columns[i] = table.Columns[index].String()
	}

	data := make([][]string, 0, len(filtered.Rows))
	for _, row := range filtered.Rows {
		out := make([]string, len(indexes))
		for i, index := range indexes {
			out[i] = row[index]
		}
		data = append(data, out)
	}

	return QueryResult{
		Columns:          columns,
		Data:             data,
		RecordsRead:      len(data),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// joinColumns lists the columns of table that appear in a join result:
// every column except id and the matched one.
func joinColumns(table *core.Table, matched int) []int {
	var indexes []int
	for i := 1; i < len(table.Columns); i++ {
		if i != matched {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

func (engine *Engine) executeJoinStatement(statement sql.JoinStatement) (QueryResult, error) {
	startTime := time.Now()

	leftOp, err := engine.loadTable(statement.Left)
	if err != nil {
		return QueryResult{}, err
	}
	rightOp, err := engine.loadTable(statement.Right)
	if err != nil {
		return QueryResult{}, err
	}
	left, right := leftOp.Table, rightOp.Table

	leftIndex, err := attributeIndex(statement.LeftColumn, left)
	if err != nil {
		return QueryResult{}, err
	}
	rightIndex, err := attributeIndex(statement.RightColumn, right)
	if err != nil {
		return QueryResult{}, err
	}

	leftColumns := joinColumns(left, leftIndex)
	rightColumns := joinColumns(right, rightIndex)

	columns := []string{core.IDColumn.String()}
	for _, i := range leftColumns {
		columns = append(columns, left.Name.String()+"."+left.Columns[i].String())
	}
	for _, i := range rightColumns {
		columns = append(columns, right.Name.String()+"."+right.Columns[i].String())
	}

	joined := &core.Table{}
	for _, l := range left.Rows {
		for _, r := range right.Rows {
			if l[leftIndex] != r[rightIndex] {
				continue
			}
			row := make(core.Row, 0, len(columns))
			row = append(row, "")
			for _, i := range leftColumns {
				row = append(row, l[i])
			}
			for _, i := range rightColumns {
				row = append(row, r[i])
			}
			joined.Rows = append(joined.Rows, row)
		}
	}
	joined.Renumber()
	data := joined.RowStrings()

	return QueryResult{
		Columns:          columns,
		Data:             data,
		RecordsRead:      len(data),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}
