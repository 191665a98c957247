package op

import (
	"errors"
	"os"
	"strconv"

	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/ps"
)

// TableOp holds a table loaded for one statement together with its id
// counter.
type TableOp struct {
	Database    core.TableName
	Table       *core.Table
	Counter     int
	Persistence *ps.Persistence
}

// CreateTable writes a new table with a zero counter.
func CreateTable(database core.TableName, table *core.Table, persistence *ps.Persistence, identity core.Identity, message string) (*ps.Transaction, *TableOp, error) {
	counter := 0
	txn, err := persistence.WriteTable(database, table, &counter, identity, message)
	if err != nil {
		return nil, nil, err
	}

	return &txn, &TableOp{
		Database:    database,
		Table:       table,
		Persistence: persistence,
	}, nil
}

func GetTable(database core.TableName, name core.TableName, persistence *ps.Persistence) (*TableOp, error) {
	table, err := persistence.ReadTable(database, name)
	if err != nil {
		return nil, err
	}

	counter, err := persistence.ReadCounter(database, name)
	if errors.Is(err, os.ErrNotExist) {
		counter = highestID(table)
	} else if err != nil {
		return nil, err
	}

	return &TableOp{
		Database:    database,
		Table:       table,
		Counter:     counter,
		Persistence: persistence,
	}, nil
}

// highestID recovers a counter for tables written without a counter file.
func highestID(table *core.Table) int {
	highest := 0
	for _, row := range table.Rows {
		if id, err := strconv.Atoi(row.ID()); err == nil && id > highest {
			highest = id
		}
	}
	return highest
}

// NextID issues the next row id. Ids are never reused, even after deletes.
func (op *TableOp) NextID() string {
	op.Counter++
	return strconv.Itoa(op.Counter)
}

// Save writes the table and its counter back as one transaction.
func (op *TableOp) Save(identity core.Identity, message string) (ps.Transaction, error) {
	counter := op.Counter
	return op.Persistence.WriteTable(op.Database, op.Table, &counter, identity, message)
}
