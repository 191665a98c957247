package ps

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/nickyhof/TabDB/core"
)

func writeUsers(t *testing.T, persistence *Persistence, rows []core.Row, message string) Transaction {
	t.Helper()
	table := core.NewTable("users", "name", "age")
	for _, row := range rows {
		table.AppendRow(row)
	}
	highest := len(rows)
	txn, err := persistence.WriteTable("testdb", table, &highest, testIdentity, message)
	if err != nil {
		t.Fatalf("Failed to write table: %v", err)
	}
	return txn
}

func readUsers(t *testing.T, persistence *Persistence) []core.Row {
	t.Helper()
	table, err := persistence.ReadTable("testdb", "users")
	if err != nil {
		t.Fatalf("Failed to read table: %v", err)
	}
	return table.Rows
}

func TestMergeFastForward(t *testing.T) {
	persistence, main := setupBranchTest(t)

	persistence.Branch("feature", nil)
	persistence.Checkout("feature")
	txn := writeUsers(t, persistence, []core.Row{{"1", "alice", "30"}, {"2", "bob", "NULL"}, {"3", "carol", "41"}}, "Inserting into users")

	persistence.Checkout(main)
	result, err := persistence.Merge("feature", testIdentity)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !result.FastForward || result.Transaction.Id != txn.Id {
		t.Errorf("Expected fast-forward to %s, got %+v", txn.Id, result)
	}
	if got := rowCount(t, persistence); got != 3 {
		t.Errorf("Expected 3 rows after merge, got %d", got)
	}
	if branch, _ := persistence.CurrentBranch(); branch != main {
		t.Errorf("Expected to stay on %s, got %s", main, branch)
	}

	// Merging again is a no-op.
	again, err := persistence.Merge("feature", testIdentity)
	if err != nil || again.Transaction.Id != txn.Id || again.FastForward {
		t.Errorf("Expected no-op merge at %s, got %+v, %v", txn.Id, again, err)
	}
}

func TestMergeFastForwardOnlyDiverged(t *testing.T) {
	persistence, main := setupBranchTest(t)

	persistence.Branch("feature", nil)
	persistence.Checkout("feature")
	writeUsers(t, persistence, []core.Row{{"1", "alice", "30"}, {"2", "bob", "NULL"}, {"3", "carol", "41"}}, "Inserting into users")

	persistence.Checkout(main)
	writeUsers(t, persistence, []core.Row{{"1", "alice", "30"}}, "Deleting from users")

	opts := MergeOptions{Strategy: MergeStrategyFastForwardOnly}
	if _, err := persistence.MergeWithOptions("feature", testIdentity, opts); !errors.Is(err, ErrDiverged) {
		t.Errorf("Expected ErrDiverged, got %v", err)
	}
}

func TestMergeRowLevel(t *testing.T) {
	persistence, main := setupBranchTest(t)

	persistence.Branch("feature", nil)
	persistence.Checkout("feature")
	// feature: insert carol, change bob's age
	writeUsers(t, persistence, []core.Row{{"1", "alice", "30"}, {"2", "bob", "25"}, {"3", "carol", "41"}}, "feature")

	persistence.Checkout(main)
	// main: delete alice
	writeUsers(t, persistence, []core.Row{{"2", "bob", "NULL"}}, "main")

	result, err := persistence.Merge("feature", testIdentity)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if result.FastForward {
		t.Error("Expected a merge commit")
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %+v", result.Conflicts)
	}

	want := []core.Row{{"2", "bob", "25"}, {"3", "carol", "41"}}
	if got := readUsers(t, persistence); !reflect.DeepEqual(got, want) {
		t.Errorf("Merged rows = %v, want %v", got, want)
	}
	if counter, err := persistence.ReadCounter("testdb", "users"); err != nil || counter != 3 {
		t.Errorf("Expected counter 3, got %d (%v)", counter, err)
	}

	latest := persistence.LatestTransaction()
	if latest.Id != result.Transaction.Id || latest.Message != "Merge branch 'feature'" {
		t.Errorf("Unexpected merge commit %+v", latest)
	}
}

func TestMergeRowsConflicts(t *testing.T) {
	base := map[string]core.Row{
		"1": {"1", "alice", "30"},
		"2": {"2", "bob", "40"},
	}
	head := map[string]core.Row{
		"1": {"1", "alice", "31"},
		"2": {"2", "bob", "41"},
	}
	source := map[string]core.Row{
		"1": {"1", "alice", "32"},
	}

	rows, _, conflicts := mergeRows(base, head, source, 2, true)
	wantRows := []core.Row{{"1", "alice", "32"}}
	if !reflect.DeepEqual(rows, wantRows) {
		t.Errorf("rows = %v, want %v", rows, wantRows)
	}
	if len(conflicts) != 2 || conflicts[0].Id != "1" || conflicts[1].Id != "2" || conflicts[1].Resolved != nil {
		t.Errorf("Unexpected conflicts %+v", conflicts)
	}

	rows, _, _ = mergeRows(base, head, source, 2, false)
	wantRows = []core.Row{{"1", "alice", "31"}, {"2", "bob", "41"}}
	if !reflect.DeepEqual(rows, wantRows) {
		t.Errorf("rows = %v, want %v", rows, wantRows)
	}
}

func TestMergeConcurrentInserts(t *testing.T) {
	persistence, main := setupBranchTest(t)
	writeUsers(t, persistence, []core.Row{{"1", "alice", "30"}}, "base")

	persistence.Branch("feature", nil)
	persistence.Checkout("feature")
	writeUsers(t, persistence, []core.Row{{"1", "alice", "30"}, {"2", "carol", "41"}}, "feature")

	persistence.Checkout(main)
	writeUsers(t, persistence, []core.Row{{"1", "alice", "30"}, {"2", "dave", "55"}}, "main")

	result, err := persistence.Merge("feature", testIdentity)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %+v", result.Conflicts)
	}

	want := []core.Row{{"1", "alice", "30"}, {"2", "dave", "55"}, {"3", "carol", "41"}}
	if got := readUsers(t, persistence); !reflect.DeepEqual(got, want) {
		t.Errorf("Merged rows = %v, want %v", got, want)
	}
	if counter, err := persistence.ReadCounter("testdb", "users"); err != nil || counter != 3 {
		t.Errorf("Expected counter 3, got %d (%v)", counter, err)
	}
}

func TestMergeRowsEditedAfterHeaderChange(t *testing.T) {
	// Without usable base rows, ids at or below the base counter are edits.
	head := map[string]core.Row{"1": {"1", "alice", "31"}}
	source := map[string]core.Row{"1": {"1", "alice", "32"}}

	rows, inserted, conflicts := mergeRows(map[string]core.Row{}, head, source, 1, true)
	if !reflect.DeepEqual(rows, []core.Row{{"1", "alice", "32"}}) || len(inserted) != 0 || len(conflicts) != 1 {
		t.Errorf("Unexpected merge %v %v %+v", rows, inserted, conflicts)
	}

	rows, inserted, conflicts = mergeRows(map[string]core.Row{}, head, source, 0, true)
	if !reflect.DeepEqual(rows, []core.Row{{"1", "alice", "31"}}) || !reflect.DeepEqual(inserted, []core.Row{{"1", "alice", "32"}}) || len(conflicts) != 0 {
		t.Errorf("Unexpected merge %v %v %+v", rows, inserted, conflicts)
	}
}

func TestMergeTableHeaders(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Minute)

	base := &tableVersion{table: core.NewTable("t", "a")}
	head := &tableVersion{table: core.NewTable("t", "a", "b")}
	source := &tableVersion{table: core.NewTable("t", "a")}
	source.table.AppendRow(core.Row{"1", "x"})
	source.counter = 1

	// Header changed on one side only: that side wins.
	merged, conflicts := mergeTable(base, head, base, earlier, now)
	if merged != head || len(conflicts) != 0 {
		t.Errorf("Expected head table without conflicts, got %+v %+v", merged, conflicts)
	}

	// Both changed: the later commit wins and a table conflict is reported.
	merged, conflicts = mergeTable(base, head, source, earlier, now)
	if merged != source || len(conflicts) != 1 || conflicts[0].Id != "" {
		t.Errorf("Expected source table with a table conflict, got %+v %+v", merged, conflicts)
	}

	// Dropped on one side, untouched on the other.
	if merged, _ := mergeTable(base, nil, base, earlier, now); merged != nil {
		t.Errorf("Expected table to stay dropped, got %+v", merged)
	}
}
