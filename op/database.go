package op

import (
	"fmt"

	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/ps"
)

type DatabaseOp struct {
	Database    core.Database
	Persistence *ps.Persistence
}

func CreateDatabase(database core.Database, persistence *ps.Persistence) (*DatabaseOp, error) {
	if err := persistence.CreateDatabase(database); err != nil {
		return nil, err
	}

	return &DatabaseOp{
		Database:    database,
		Persistence: persistence,
	}, nil
}

func GetDatabase(name core.TableName, persistence *ps.Persistence) (*DatabaseOp, error) {
	if !persistence.DatabaseExists(name) {
		return nil, fmt.Errorf("%w: %s", ps.ErrDatabaseNotFound, name)
	}
	return &DatabaseOp{
		Database:    core.Database{Name: name},
		Persistence: persistence,
	}, nil
}

func (op *DatabaseOp) DropDatabase(identity core.Identity, message string) (ps.Transaction, error) {
	return op.Persistence.DropDatabase(op.Database.Name, identity, message)
}

func (op *DatabaseOp) TableNames() ([]string, error) {
	return op.Persistence.ListTables(op.Database.Name)
}

func (op *DatabaseOp) TableExists(name core.TableName) bool {
	return op.Persistence.TableExists(op.Database.Name, name)
}
