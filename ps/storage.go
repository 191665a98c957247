package ps

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v6/util"
	"github.com/nickyhof/TabDB/core"
)

func tableFile(table core.TableName) string {
	return table.String() + TableExt
}

func counterFile(table core.TableName) string {
	return table.String() + CounterExt
}

func (persistence *Persistence) isDir(name string) bool {
	info, err := persistence.fs.Stat(name)
	return err == nil && info.IsDir()
}

func (persistence *Persistence) isFile(name string) bool {
	info, err := persistence.fs.Stat(name)
	return err == nil && !info.IsDir()
}

// DatabaseExists reports whether a database directory exists.
func (persistence *Persistence) DatabaseExists(database core.TableName) bool {
	if persistence.ensureInitialized() != nil || database == "" {
		return false
	}

	persistence.RLock()
	defer persistence.RUnlock()

	return persistence.isDir(database.String())
}

// CreateDatabase creates an empty database directory. Git does not track
// empty directories so nothing is committed until the first table is written.
func (persistence *Persistence) CreateDatabase(database core.Database) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	persistence.Lock()
	defer persistence.Unlock()

	return persistence.fs.MkdirAll(database.Name.String(), 0755)
}

// DropDatabase deletes a database directory and everything in it.
func (persistence *Persistence) DropDatabase(database core.TableName, identity core.Identity, message string) (Transaction, error) {
	if !persistence.DatabaseExists(database) {
		return Transaction{}, fmt.Errorf("%w: %s", ErrDatabaseNotFound, database)
	}

	txn, err := persistence.BeginTransaction()
	if err != nil {
		return Transaction{}, err
	}
	if err := txn.AddDeleteDatabase(database.String()); err != nil {
		return Transaction{}, err
	}
	return txn.Commit(identity, message)
}

// ListDatabases returns the names of all database directories, sorted.
func (persistence *Persistence) ListDatabases() []string {
	if persistence.ensureInitialized() != nil {
		return nil
	}

	persistence.RLock()
	defer persistence.RUnlock()

	entries, err := persistence.fs.ReadDir("/")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names
}

// TableExists reports whether a table file exists in the database.
func (persistence *Persistence) TableExists(database, table core.TableName) bool {
	if persistence.ensureInitialized() != nil || database == "" || table == "" {
		return false
	}

	persistence.RLock()
	defer persistence.RUnlock()

	return persistence.isFile(path.Join(database.String(), tableFile(table)))
}

// ListTables returns the names of all tables in a database, sorted.
func (persistence *Persistence) ListTables(database core.TableName) ([]string, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	persistence.RLock()
	defer persistence.RUnlock()

	if !persistence.isDir(database.String()) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, database)
	}

	entries, err := persistence.fs.ReadDir(database.String())
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), TableExt) {
			names = append(names, strings.TrimSuffix(entry.Name(), TableExt))
		}
	}
	sort.Strings(names)

	return names, nil
}

// ReadTable loads a table file in full.
func (persistence *Persistence) ReadTable(database, table core.TableName) (*core.Table, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	persistence.RLock()
	defer persistence.RUnlock()

	data, err := util.ReadFile(persistence.fs, path.Join(database.String(), tableFile(table)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, database, table)
		}
		return nil, err
	}

	return DecodeTable(table, data)
}

// ReadCounter returns the highest id ever assigned in a table. The returned
// error wraps os.ErrNotExist when the table has no counter file.
func (persistence *Persistence) ReadCounter(database, table core.TableName) (int, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return 0, err
	}

	persistence.RLock()
	defer persistence.RUnlock()

	data, err := util.ReadFile(persistence.fs, path.Join(database.String(), counterFile(table)))
	if err != nil {
		return 0, err
	}

	return DecodeCounter(data)
}

// WriteTable records a table and optionally its counter in one commit.
// A nil counter leaves the counter file untouched.
func (persistence *Persistence) WriteTable(database core.TableName, table *core.Table, counter *int, identity core.Identity, message string) (Transaction, error) {
	txn, err := persistence.BeginTransaction()
	if err != nil {
		return Transaction{}, err
	}
	if err := txn.AddWrite(database.String(), tableFile(table.Name), EncodeTable(table)); err != nil {
		return Transaction{}, err
	}
	if counter != nil {
		if err := txn.AddWrite(database.String(), counterFile(table.Name), EncodeCounter(*counter)); err != nil {
			return Transaction{}, err
		}
	}
	return txn.Commit(identity, message)
}

// DropTable deletes a table file and its counter.
func (persistence *Persistence) DropTable(database, table core.TableName, identity core.Identity, message string) (Transaction, error) {
	if !persistence.TableExists(database, table) {
		return Transaction{}, fmt.Errorf("%w: %s.%s", ErrTableNotFound, database, table)
	}

	txn, err := persistence.BeginTransaction()
	if err != nil {
		return Transaction{}, err
	}
	if err := txn.AddDelete(database.String(), tableFile(table)); err != nil {
		return Transaction{}, err
	}

	persistence.RLock()
	hasCounter := persistence.isFile(path.Join(database.String(), counterFile(table)))
	persistence.RUnlock()
	if hasCounter {
		if err := txn.AddDelete(database.String(), counterFile(table)); err != nil {
			return Transaction{}, err
		}
	}

	return txn.Commit(identity, message)
}

// File is the raw content of one file of a database directory.
type File struct {
	Name string
	Data []byte
}

// DatabaseFiles returns the table and counter files of a database, sorted
// by name.
func (persistence *Persistence) DatabaseFiles(database core.TableName) ([]File, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	persistence.RLock()
	defer persistence.RUnlock()

	if !persistence.isDir(database.String()) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, database)
	}

	entries, err := persistence.fs.ReadDir(database.String())
	if err != nil {
		return nil, err
	}

	var files []File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, TableExt) || strings.HasSuffix(name, CounterExt)) {
			continue
		}
		data, err := util.ReadFile(persistence.fs, path.Join(database.String(), name))
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: name, Data: data})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return files, nil
}
