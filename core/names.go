package core

import "strings"

// TableName identifies a table or database. It is always stored lowercase,
// so plain == is case-insensitive equality.
type TableName string

func NewTableName(name string) TableName {
	return TableName(strings.ToLower(name))
}

func (n TableName) String() string {
	return string(n)
}

// ColumnName keeps the case it was declared with. Compare with Equal.
type ColumnName string

func (c ColumnName) Equal(other ColumnName) bool {
	return strings.EqualFold(string(c), string(other))
}

// Key is the case-folded form, suitable for map keys.
func (c ColumnName) Key() string {
	return strings.ToLower(string(c))
}

func (c ColumnName) String() string {
	return string(c)
}

// IDColumn is the first column of every table.
const IDColumn ColumnName = "id"

// Identity identifies the author of transactions (Git commit author).
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (i Identity) String() string {
	return i.Name + " <" + i.Email + ">"
}

type Database struct {
	Name TableName `json:"name"`
}
