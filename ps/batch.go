package ps

import (
	"fmt"
	"path"
	"time"

	"github.com/go-git/go-billy/v6/util"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/TabDB/core"
)

// Operation represents a single file change in a transaction
type Operation struct {
	Type     OperationType
	Database string
	File     string
	Data     []byte
}

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
	DeleteDirOp
)

func (op Operation) path() string {
	if op.File == "" {
		return op.Database
	}
	return path.Join(op.Database, op.File)
}

// TransactionBuilder batches file changes into a single commit
type TransactionBuilder struct {
	persistence *Persistence
	operations  []Operation
	started     bool
}

// BeginTransaction creates a new transaction builder for batching operations
func (persistence *Persistence) BeginTransaction() (*TransactionBuilder, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	return &TransactionBuilder{
		persistence: persistence,
		operations:  make([]Operation, 0),
		started:     true,
	}, nil
}

// AddWrite replaces the contents of a file in a database directory
func (tb *TransactionBuilder) AddWrite(database, file string, data []byte) error {
	if !tb.started {
		return fmt.Errorf("transaction not started")
	}

	tb.operations = append(tb.operations, Operation{
		Type:     WriteOp,
		Database: database,
		File:     file,
		Data:     data,
	})

	return nil
}

// AddDelete removes a file from a database directory
func (tb *TransactionBuilder) AddDelete(database, file string) error {
	if !tb.started {
		return fmt.Errorf("transaction not started")
	}

	tb.operations = append(tb.operations, Operation{
		Type:     DeleteOp,
		Database: database,
		File:     file,
	})

	return nil
}

// AddDeleteDatabase removes a whole database directory
func (tb *TransactionBuilder) AddDeleteDatabase(database string) error {
	if !tb.started {
		return fmt.Errorf("transaction not started")
	}

	tb.operations = append(tb.operations, Operation{
		Type:     DeleteDirOp,
		Database: database,
	})

	return nil
}

// Commit applies the batched changes to the worktree and records them as one
// git commit. A batch that leaves the worktree unchanged produces no commit.
func (tb *TransactionBuilder) Commit(identity core.Identity, message string) (Transaction, error) {
	if !tb.started {
		return Transaction{}, fmt.Errorf("transaction not started")
	}

	if len(tb.operations) == 0 {
		return Transaction{}, fmt.Errorf("no operations to commit")
	}

	p := tb.persistence
	p.Lock()
	defer p.Unlock()

	for _, op := range tb.operations {
		var err error
		switch op.Type {
		case WriteOp:
			if err = p.fs.MkdirAll(op.Database, 0755); err == nil {
				err = util.WriteFile(p.fs, op.path(), op.Data, 0644)
			}
		case DeleteOp:
			err = p.fs.Remove(op.path())
		case DeleteDirOp:
			err = util.RemoveAll(p.fs, op.path())
		}
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to apply change to %s: %w", op.path(), err)
		}
	}

	tb.started = false
	tb.operations = nil

	return p.commitWorktree(identity, message)
}

// Rollback discards all batched operations without committing
func (tb *TransactionBuilder) Rollback() {
	tb.started = false
	tb.operations = nil
}

// OperationCount returns the number of pending operations
func (tb *TransactionBuilder) OperationCount() int {
	return len(tb.operations)
}

// commitWorktree stages every change in the worktree and commits it.
// Callers must hold the write lock.
func (p *Persistence) commitWorktree(identity core.Identity, message string) (Transaction, error) {
	wt, err := p.repo.Worktree()
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return Transaction{}, fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return Transaction{}, nil
	}

	when := time.Now()
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  identity.Name,
			Email: identity.Email,
			When:  when,
		},
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	return Transaction{
		Id:      hash.String(),
		When:    when,
		Author:  identity.String(),
		Message: message,
	}, nil
}
