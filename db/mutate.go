package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/sql"
)

func (engine *Engine) executeInsertStatement(statement sql.InsertStatement, message string) (CommitResult, error) {
	startTime := time.Now()

	tableOp, err := engine.loadTable(statement.Table)
	if err != nil {
		return CommitResult{}, err
	}
	table := tableOp.Table

	if len(statement.Values) != len(table.Columns)-1 {
		return CommitResult{}, fmt.Errorf("The table \"%s\" must take %d values exactly.", table.Name, len(table.Columns)-1)
	}

	row := make(core.Row, 0, len(table.Columns))
	row = append(row, tableOp.NextID())
	for _, value := range statement.Values {
		row = append(row, value.Text())
	}
	table.AppendRow(row)

	txn, err := engine.saveTable(tableOp, message)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		RecordsWritten:   1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// setIndexes validates an UPDATE set-list against table before any cell is
// touched.
func setIndexes(updates []sql.SetClause, table *core.Table) ([]int, error) {
	indexes := make([]int, len(updates))
	for i, update := range updates {
		if err := checkTableMatch(update.Column, table); err != nil {
			return nil, err
		}
		index := table.ColumnIndex(update.Column.Column)
		if index < 0 {
			return nil, fmt.Errorf("The [AttributeName] \"%s\" does not exist.", update.Column.Column)
		}
		if index == 0 {
			return nil, errors.New("Cannot update the id column.")
		}
		indexes[i] = index
	}
	return indexes, nil
}

func (engine *Engine) executeUpdateStatement(statement sql.UpdateStatement, message string) (CommitResult, error) {
	startTime := time.Now()

	tableOp, err := engine.loadTable(statement.Table)
	if err != nil {
		return CommitResult{}, err
	}
	table := tableOp.Table

	indexes, err := setIndexes(statement.Updates, table)
	if err != nil {
		return CommitResult{}, err
	}

	selected, err := Evaluate(statement.Where, table)
	if err != nil {
		return CommitResult{}, err
	}
	ids := selected.IDs()

	updated := 0
	for _, row := range table.Rows {
		if _, ok := ids[row.ID()]; !ok {
			continue
		}
		for i, update := range statement.Updates {
			row[indexes[i]] = update.Value.Text()
		}
		updated++
	}

	txn, err := engine.saveTable(tableOp, message)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		RecordsWritten:   updated,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeDeleteStatement(statement sql.DeleteStatement, message string) (CommitResult, error) {
	startTime := time.Now()

	tableOp, err := engine.loadTable(statement.Table)
	if err != nil {
		return CommitResult{}, err
	}
	table := tableOp.Table

	selected, err := Evaluate(statement.Where, table)
	if err != nil {
		return CommitResult{}, err
	}
	ids := selected.IDs()

	kept := table.Filter(func(row core.Row) bool {
		_, ok := ids[row.ID()]
		return !ok
	})
	deleted := len(table.Rows) - len(kept.Rows)
	table.Rows = kept.Rows

	txn, err := engine.saveTable(tableOp, message)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		RecordsDeleted:   deleted,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}
