// Package db provides the statement execution engine for TabDB.
//
// An Engine serves one client. It parses a statement, loads the tables it
// names from storage, evaluates the WHERE condition and either renders a
// result table or writes the changed table back as one commit.
//
//	engine := db.NewEngine(persistence, identity)
//	response := engine.Handle("SELECT * FROM marks WHERE pass == TRUE;")
//	// [OK]
//	// id	name	mark	pass
//	// 1	Steve	65	TRUE
//
// # Conditions
//
// AND and OR bind equally tightly and group from the left, so
// "a==1 OR a==7 AND a==1" means "(a==1 OR a==7) AND a==1". OR keeps the
// rows of its left side and appends unseen rows of its right side; AND
// keeps the rows of its left side whose id the right side also selected.
//
// # Result Types
//
//   - QueryResult: returned by SELECT and JOIN
//   - CommitResult: returned by every other statement
package db
