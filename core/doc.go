// Package core provides core types used throughout TabDB.
//
// The package defines the in-memory relational model: a Table with an
// ordered list of columns and an ordered list of rows, each row holding
// one text cell per column. Column 0 of every table is id.
//
// # Names
//
// Table and database names are case-insensitive and stored lowercase:
//
//	name := core.NewTableName("People") // "people"
//
// Column names keep the case they were declared with and are compared
// case-insensitively:
//
//	core.ColumnName("Age").Equal("age") // true
//
// # Identity
//
// Identity identifies the author of transactions (Git commit author):
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
package core
