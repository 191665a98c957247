package core

import (
	"slices"
	"strconv"
)

// Null is the cell text for a missing value.
const Null = "NULL"

// Row holds one cell per column, in column order.
type Row []string

// ID returns the row's id cell.
func (r Row) ID() string {
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

func (r Row) Clone() Row {
	return slices.Clone(r)
}

// Table is an in-memory relational table. Column 0 is always id.
type Table struct {
	Name    TableName
	Columns []ColumnName
	Rows    []Row
}

// NewTable builds an empty table with id followed by columns.
func NewTable(name TableName, columns ...ColumnName) *Table {
	cols := make([]ColumnName, 0, len(columns)+1)
	cols = append(cols, IDColumn)
	cols = append(cols, columns...)
	return &Table{Name: name, Columns: cols}
}

// ColumnIndex returns the index of the named column, matched
// case-insensitively, or -1.
func (t *Table) ColumnIndex(name ColumnName) int {
	for i, c := range t.Columns {
		if c.Equal(name) {
			return i
		}
	}
	return -1
}

func (t *Table) HasColumn(name ColumnName) bool {
	return t.ColumnIndex(name) >= 0
}

// AddColumn appends a column and fills it with NULL in every row.
func (t *Table) AddColumn(name ColumnName) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], Null)
	}
}

// DropColumn removes the column at index from the header and every row.
func (t *Table) DropColumn(index int) {
	if index < 0 || index >= len(t.Columns) {
		return
	}
	t.Columns = slices.Delete(t.Columns, index, index+1)
	for i, row := range t.Rows {
		if index < len(row) {
			t.Rows[i] = slices.Delete(row, index, index+1)
		}
	}
}

// AppendRow adds a row, padding or truncating it to the column count.
func (t *Table) AppendRow(row Row) {
	t.Rows = append(t.Rows, t.fit(row))
}

func (t *Table) fit(row Row) Row {
	switch {
	case len(row) == len(t.Columns):
		return row
	case len(row) > len(t.Columns):
		return row[:len(t.Columns)]
	default:
		padded := make(Row, len(t.Columns))
		copy(padded, row)
		for i := len(row); i < len(padded); i++ {
			padded[i] = Null
		}
		return padded
	}
}

// Clone deep-copies the table so the copy can be filtered independently.
func (t *Table) Clone() *Table {
	c := &Table{
		Name:    t.Name,
		Columns: slices.Clone(t.Columns),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		c.Rows[i] = row.Clone()
	}
	return c
}

// Filter returns a copy holding only the rows keep accepts, in order.
func (t *Table) Filter(keep func(Row) bool) *Table {
	c := &Table{Name: t.Name, Columns: slices.Clone(t.Columns)}
	for _, row := range t.Rows {
		if keep(row) {
			c.Rows = append(c.Rows, row.Clone())
		}
	}
	return c
}

// IDs returns the set of id cells in the table.
func (t *Table) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		ids[row.ID()] = struct{}{}
	}
	return ids
}

// ColumnStrings returns the header as plain strings.
func (t *Table) ColumnStrings() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = string(c)
	}
	return out
}

// RowStrings returns the rows as plain string slices.
func (t *Table) RowStrings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = []string(row)
	}
	return out
}

// Renumber assigns sequential ids starting at 1.
func (t *Table) Renumber() {
	for i := range t.Rows {
		t.Rows[i][0] = strconv.Itoa(i + 1)
	}
}
