// Package op provides table and database operations for TabDB.
//
// The op package sits between the SQL engine (db/) and the persistence layer
// (ps/). A TableOp is a table loaded for a single statement; the engine
// mutates it in memory and calls Save once.
//
// # DatabaseOp
//
//	dbOp, err := op.GetDatabase("school", persistence)
//	tables, _ := dbOp.TableNames()
//	dbOp.DropDatabase(identity, "DROP DATABASE school;")
//
// # TableOp
//
//	tableOp, err := op.GetTable("school", "marks", persistence)
//	row := core.Row{tableOp.NextID(), "Steve", "65", "TRUE"}
//	tableOp.Table.AppendRow(row)
//	tableOp.Save(identity, "Inserting into marks")
//
// # Architecture
//
//	SQL Parser (sql/)
//	     ↓
//	SQL Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Persistence (ps/)
//	     ↓
//	Git Storage (go-git)
package op
