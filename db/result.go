package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/nickyhof/TabDB/ps"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
)

// Result is the outcome of a statement. Response renders it for the wire;
// Display renders it for a terminal.
type Result interface {
	Type() ResultType
	Response() string
	Display(w io.Writer)
}

// QueryResult is returned by SELECT and JOIN.
type QueryResult struct {
	Columns          []string
	Data             [][]string
	RecordsRead      int
	ExecutionTimeSec float64
}

// CommitResult is returned by every other statement. Transaction is empty
// when nothing was committed.
type CommitResult struct {
	Transaction      ps.Transaction
	DatabasesCreated int
	DatabasesDeleted int
	TablesCreated    int
	TablesDeleted    int
	TablesAltered    int
	RecordsWritten   int
	RecordsDeleted   int
	ExecutionTimeSec float64
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 0.01 {
		return fmt.Sprintf("%dms", int(secs*1000))
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	} else {
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

// Response is "[OK]" followed by the tab separated header and rows, each
// terminated by a newline.
func (result QueryResult) Response() string {
	var b strings.Builder
	b.WriteString("[OK]\n")
	b.WriteString(strings.Join(result.Columns, "\t"))
	b.WriteByte('\n')
	for _, row := range result.Data {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

func (result CommitResult) Response() string {
	return "[OK]"
}

func (result QueryResult) Display(w io.Writer) {
	data := NewTable(w)
	data.Header(result.Columns)
	data.Bulk(result.Data)
	data.Render()

	fmt.Fprintf(w, "%d rows (%s)\n", result.RecordsRead, result.ExecutionTime())
}

func (result CommitResult) Display(w io.Writer) {
	var parts []string

	if result.DatabasesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d database(s) created", result.DatabasesCreated))
	}
	if result.DatabasesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d database(s) deleted", result.DatabasesDeleted))
	}
	if result.TablesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) created", result.TablesCreated))
	}
	if result.TablesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) deleted", result.TablesDeleted))
	}
	if result.TablesAltered > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) altered", result.TablesAltered))
	}
	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.RecordsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) deleted", result.RecordsDeleted))
	}

	if len(parts) == 0 {
		fmt.Fprintf(w, "OK (%s)\n", result.ExecutionTime())
	} else {
		fmt.Fprintf(w, "%s (%s)\n", strings.Join(parts, ", "), result.ExecutionTime())
	}
}
