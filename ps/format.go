package ps

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/nickyhof/TabDB/core"
)

const (
	TableExt   = ".tab"
	CounterExt = ".info"
)

// EncodeTable writes the header then one line per row, cells separated by
// tabs.
func EncodeTable(table *core.Table) []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(table.ColumnStrings(), "\t"))
	buf.WriteByte('\n')
	for _, row := range table.Rows {
		buf.WriteString(strings.Join(row, "\t"))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// DecodeTable reads a table file. Reading stops at the first blank line.
func DecodeTable(name core.TableName, data []byte) (*core.Table, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorruptTable, name, err)
		}
		return nil, fmt.Errorf("%w: %s: missing header", ErrCorruptTable, name)
	}

	header := strings.TrimRight(scanner.Text(), "\r")
	if header == "" {
		return nil, fmt.Errorf("%w: %s: missing header", ErrCorruptTable, name)
	}

	table := &core.Table{Name: name}
	for _, column := range strings.Split(header, "\t") {
		table.Columns = append(table.Columns, core.ColumnName(column))
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			break
		}
		table.AppendRow(core.Row(strings.Split(line, "\t")))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptTable, name, err)
	}

	return table, nil
}

func EncodeCounter(counter int) []byte {
	return []byte(strconv.Itoa(counter) + "\n")
}

func DecodeCounter(data []byte) (int, error) {
	counter, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid counter: %w", err)
	}
	return counter, nil
}
