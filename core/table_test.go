package core

import (
	"reflect"
	"testing"
)

func TestColumnNameKey(t *testing.T) {
	if ColumnName("Mark").Key() != ColumnName("MARK").Key() {
		t.Errorf("Expected Mark and MARK to share a key")
	}
	if ColumnName("Mark").String() != "Mark" {
		t.Errorf("Expected declared case to be kept, got %s", ColumnName("Mark"))
	}
}

func TestRenumber(t *testing.T) {
	table := &Table{
		Columns: []ColumnName{IDColumn, "name"},
		Rows:    []Row{{"7", "Steve"}, {"3", "Dave"}, {"", "Bob"}},
	}
	table.Renumber()

	want := [][]string{{"1", "Steve"}, {"2", "Dave"}, {"3", "Bob"}}
	if got := table.RowStrings(); !reflect.DeepEqual(got, want) {
		t.Errorf("RowStrings() = %v, want %v", got, want)
	}
}

func TestAddAndDropColumn(t *testing.T) {
	table := NewTable("marks", "name")
	table.AppendRow(Row{"1", "Steve"})

	table.AddColumn("mark")
	if !reflect.DeepEqual(table.Rows[0], Row{"1", "Steve", "NULL"}) {
		t.Errorf("Unexpected row after AddColumn: %v", table.Rows[0])
	}

	table.DropColumn(table.ColumnIndex("NAME"))
	if !reflect.DeepEqual(table.ColumnStrings(), []string{"id", "mark"}) {
		t.Errorf("Unexpected columns after DropColumn: %v", table.ColumnStrings())
	}
	if !reflect.DeepEqual(table.Rows[0], Row{"1", "NULL"}) {
		t.Errorf("Unexpected row after DropColumn: %v", table.Rows[0])
	}
}
