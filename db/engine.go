package db

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/op"
	"github.com/nickyhof/TabDB/ps"
	"github.com/nickyhof/TabDB/sql"
)

// Engine executes statements for one client. The only state it keeps
// between statements is the selected database; tables are reloaded from
// storage by every statement.
type Engine struct {
	*ps.Persistence
	Identity core.Identity
	database core.TableName
}

func NewEngine(persistence *ps.Persistence, identity core.Identity) *Engine {
	return &Engine{
		Persistence: persistence,
		Identity:    identity,
	}
}

// Database returns the selected database, or "" when none is selected.
func (engine *Engine) Database() core.TableName {
	return engine.database
}

// Handle executes one command and formats the outcome as a response line:
// "[OK]" with an optional result table, or "[ERROR] <message>".
func (engine *Engine) Handle(command string) string {
	result, err := engine.Execute(command)
	if err != nil {
		if msg := err.Error(); msg != "" {
			return "[ERROR] " + msg
		}
		return "[ERROR]"
	}
	return result.Response()
}

// Execute parses a complete statement and runs it. Nothing is read from
// or written to storage unless the statement parses.
func (engine *Engine) Execute(command string) (Result, error) {
	parser := sql.NewParser(command)
	statement, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	message := strings.TrimSpace(command)

	switch statement.Type() {
	case sql.UseStatementType:
		return engine.executeUseStatement(statement.(sql.UseStatement))
	case sql.CreateDatabaseStatementType:
		return engine.executeCreateDatabaseStatement(statement.(sql.CreateDatabaseStatement))
	case sql.DropDatabaseStatementType:
		return engine.executeDropDatabaseStatement(statement.(sql.DropDatabaseStatement), message)
	case sql.CreateTableStatementType:
		return engine.executeCreateTableStatement(statement.(sql.CreateTableStatement), message)
	case sql.DropTableStatementType:
		return engine.executeDropTableStatement(statement.(sql.DropTableStatement), message)
	case sql.AlterTableStatementType:
		return engine.executeAlterTableStatement(statement.(sql.AlterTableStatement), message)
	case sql.InsertStatementType:
		return engine.executeInsertStatement(statement.(sql.InsertStatement), message)
	case sql.SelectStatementType:
		return engine.executeSelectStatement(statement.(sql.SelectStatement))
	case sql.UpdateStatementType:
		return engine.executeUpdateStatement(statement.(sql.UpdateStatement), message)
	case sql.DeleteStatementType:
		return engine.executeDeleteStatement(statement.(sql.DeleteStatement), message)
	case sql.JoinStatementType:
		return engine.executeJoinStatement(statement.(sql.JoinStatement))
	default:
		return nil, fmt.Errorf("unsupported statement type: %v", statement.Type())
	}
}

// storageError logs the cause of a storage failure and returns the generic
// message the client sees.
func storageError(err error, format string, args ...any) error {
	message := fmt.Sprintf(format, args...)
	log.Printf("%s: %v", message, err)
	return errors.New(message)
}

func (engine *Engine) requireDatabase() error {
	if engine.database == "" {
		return errors.New("You have not selected a [DatabaseName] to use yet.")
	}
	return nil
}

// loadTable reads a table of the selected database. name is reported as
// typed when the table does not exist.
func (engine *Engine) loadTable(name string) (*op.TableOp, error) {
	if err := engine.requireDatabase(); err != nil {
		return nil, err
	}

	tableOp, err := op.GetTable(engine.database, core.NewTableName(name), engine.Persistence)
	if errors.Is(err, ps.ErrTableNotFound) {
		return nil, fmt.Errorf("The table \"%s\" does not exist.", name)
	}
	if err != nil {
		return nil, storageError(err, "Failed to read the table \"%s\".", name)
	}
	return tableOp, nil
}

func (engine *Engine) saveTable(tableOp *op.TableOp, message string) (ps.Transaction, error) {
	txn, err := tableOp.Save(engine.Identity, message)
	if err != nil {
		return ps.Transaction{}, storageError(err, "Failed to write the table \"%s\".", tableOp.Table.Name)
	}
	return txn, nil
}

func (engine *Engine) executeUseStatement(statement sql.UseStatement) (CommitResult, error) {
	name := core.NewTableName(statement.Database)
	if !engine.DatabaseExists(name) {
		return CommitResult{}, fmt.Errorf("The [DatabaseName] \"%s\" does not exist.", statement.Database)
	}
	engine.database = name
	return CommitResult{}, nil
}

func (engine *Engine) executeCreateDatabaseStatement(statement sql.CreateDatabaseStatement) (CommitResult, error) {
	startTime := time.Now()
	name := core.NewTableName(statement.Database)

	if engine.DatabaseExists(name) {
		return CommitResult{}, fmt.Errorf("The [DatabaseName] \"%s\" already exists.", statement.Database)
	}

	if _, err := op.CreateDatabase(core.Database{Name: name}, engine.Persistence); err != nil {
		return CommitResult{}, storageError(err, "Failed to create [DatabaseName] \"%s\".", statement.Database)
	}

	return CommitResult{
		DatabasesCreated: 1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeDropDatabaseStatement(statement sql.DropDatabaseStatement, message string) (CommitResult, error) {
	startTime := time.Now()
	name := core.NewTableName(statement.Database)

	dbOp, err := op.GetDatabase(name, engine.Persistence)
	if err != nil {
		return CommitResult{}, fmt.Errorf("Cannot drop [DatabaseName] \"%s\" as it does not exist.", statement.Database)
	}

	txn, err := dbOp.DropDatabase(engine.Identity, message)
	if err != nil {
		return CommitResult{}, storageError(err, "Failed to drop [DatabaseName] \"%s\".", statement.Database)
	}

	if engine.database == name {
		engine.database = ""
	}

	return CommitResult{
		Transaction:      txn,
		DatabasesDeleted: 1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeCreateTableStatement(statement sql.CreateTableStatement, message string) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.requireDatabase(); err != nil {
		return CommitResult{}, err
	}

	name := core.NewTableName(statement.Table)
	if engine.TableExists(engine.database, name) {
		return CommitResult{}, fmt.Errorf("The table \"%s\" already exists.", statement.Table)
	}

	table := core.NewTable(name)
	for _, column := range statement.Columns {
		if err := checkTableMatch(column, table); err != nil {
			return CommitResult{}, err
		}
	}
	seen := map[string]bool{core.IDColumn.Key(): true}
	for _, column := range statement.Columns {
		if seen[column.Column.Key()] {
			return CommitResult{}, errors.New("Tables must not have duplicate column names.")
		}
		seen[column.Column.Key()] = true
		table.Columns = append(table.Columns, column.Column)
	}

	txn, _, err := op.CreateTable(engine.database, table, engine.Persistence, engine.Identity, message)
	if err != nil {
		return CommitResult{}, storageError(err, "Failed to write the table \"%s\".", name)
	}

	return CommitResult{
		Transaction:      *txn,
		TablesCreated:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeDropTableStatement(statement sql.DropTableStatement, message string) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.requireDatabase(); err != nil {
		return CommitResult{}, err
	}

	name := core.NewTableName(statement.Table)
	txn, err := engine.DropTable(engine.database, name, engine.Identity, message)
	if errors.Is(err, ps.ErrTableNotFound) {
		return CommitResult{}, fmt.Errorf("Cannot drop table \"%s\" as it does not exist.", statement.Table)
	}
	if err != nil {
		return CommitResult{}, storageError(err, "Failed to drop table \"%s\".", statement.Table)
	}

	return CommitResult{
		Transaction:      txn,
		TablesDeleted:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeAlterTableStatement(statement sql.AlterTableStatement, message string) (CommitResult, error) {
	startTime := time.Now()

	tableOp, err := engine.loadTable(statement.Table)
	if err != nil {
		return CommitResult{}, err
	}
	table := tableOp.Table

	switch statement.Action {
	case sql.AlterAdd:
		if err := checkTableMatch(statement.Column, table); err != nil {
			return CommitResult{}, err
		}
		if table.HasColumn(statement.Column.Column) {
			return CommitResult{}, fmt.Errorf("The [AttributeName] \"%s\" already exists in \"%s\".", statement.Column.Column, table.Name)
		}
		table.AddColumn(statement.Column.Column)
	case sql.AlterDrop:
		index, err := attributeIndex(statement.Column, table)
		if err != nil {
			return CommitResult{}, err
		}
		if index == 0 {
			return CommitResult{}, errors.New("Cannot delete id column.")
		}
		table.DropColumn(index)
	}

	txn, err := engine.saveTable(tableOp, message)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		TablesAltered:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}
