package ps

import (
	"reflect"
	"testing"

	"github.com/nickyhof/TabDB/core"
)

func rowCount(t *testing.T, persistence *Persistence) int {
	t.Helper()
	table, err := persistence.ReadTable("testdb", "users")
	if err != nil {
		t.Fatalf("Failed to read table: %v", err)
	}
	return len(table.Rows)
}

func setupBranchTest(t *testing.T) (*Persistence, string) {
	t.Helper()
	persistence := newTestPersistence(t)
	persistence.CreateDatabase(core.Database{Name: "testdb"})
	if _, err := persistence.WriteTable("testdb", sampleTable(), nil, testIdentity, "Creating users"); err != nil {
		t.Fatalf("Failed to write table: %v", err)
	}

	main, err := persistence.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch failed: %v", err)
	}
	return persistence, main
}

func TestBranchAndCheckout(t *testing.T) {
	persistence, main := setupBranchTest(t)

	if err := persistence.Branch("feature", nil); err != nil {
		t.Fatalf("Branch failed: %v", err)
	}
	if err := persistence.Branch("feature", nil); err == nil {
		t.Error("Expected error creating an existing branch")
	}

	branches, err := persistence.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches failed: %v", err)
	}
	want := []string{"feature", main}
	if main < "feature" {
		want = []string{main, "feature"}
	}
	if !reflect.DeepEqual(branches, want) {
		t.Errorf("ListBranches() = %v, want %v", branches, want)
	}

	if err := persistence.Checkout("feature"); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	changed := sampleTable()
	changed.AppendRow(core.Row{"3", "carol", "41"})
	if _, err := persistence.WriteTable("testdb", changed, nil, testIdentity, "Inserting into users"); err != nil {
		t.Fatalf("Failed to write table: %v", err)
	}
	if got := rowCount(t, persistence); got != 3 {
		t.Errorf("Expected 3 rows on feature, got %d", got)
	}

	if err := persistence.Checkout(main); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if got := rowCount(t, persistence); got != 2 {
		t.Errorf("Expected 2 rows on %s, got %d", main, got)
	}

	if err := persistence.Checkout("missing"); err == nil {
		t.Error("Expected error checking out a missing branch")
	}
}
