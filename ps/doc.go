// Package ps provides the persistence layer for TabDB.
//
// Databases are directories and tables are tab separated text files inside
// a git worktree. Every write creates a git commit, so the full history of
// every table is kept.
//
// # Layout
//
//	<root>/<database>/<table>.tab   header line, then one line per row
//	<root>/<database>/<table>.info  highest id ever assigned
//
// # Memory Persistence
//
// For testing or ephemeral databases:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", nil)
//
// # Transaction Batching
//
// Changes to several files can be recorded as one commit:
//
//	txn, _ := persistence.BeginTransaction()
//	txn.AddWrite("db", "users.tab", tableData)
//	txn.AddWrite("db", "users.info", counterData)
//	result, _ := txn.Commit(identity, "Inserting into users")
//
// # History
//
// Snapshot tags a commit and Recover resets every database to it. Branch,
// Checkout and Merge work on whole data directories; diverged branches are
// merged row by row, keyed on id:
//
//	persistence.Branch("regrade", nil)
//	persistence.Checkout("regrade")
//	// ... statements ...
//	persistence.Checkout("master")
//	result, _ := persistence.Merge("regrade", identity)
package ps
