package TabDB

import (
	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/db"
	"github.com/nickyhof/TabDB/ps"
)

// Instance is an opened data directory. Engines created from one Instance
// share its storage but nothing else.
type Instance struct {
	Persistence *ps.Persistence
}

func Open(persistence *ps.Persistence) *Instance {
	return &Instance{
		Persistence: persistence,
	}
}

// OpenMemory opens an instance whose tables and history live only in memory.
func OpenMemory() (*Instance, error) {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		return nil, err
	}
	return Open(persistence), nil
}

// OpenFile opens the data directory at baseDir, creating it when needed.
// A non-empty gitUrl clones that history into an empty directory.
func OpenFile(baseDir string, gitUrl string) (*Instance, error) {
	var url *string
	if gitUrl != "" {
		url = &gitUrl
	}
	persistence, err := ps.NewFilePersistence(baseDir, url)
	if err != nil {
		return nil, err
	}
	return Open(persistence), nil
}

// Engine starts a new session. Commits it makes are authored by identity.
func (instance *Instance) Engine(identity core.Identity) *db.Engine {
	return db.NewEngine(instance.Persistence, identity)
}
