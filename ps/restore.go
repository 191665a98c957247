package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// Snapshot tags a transaction, or the latest one when asof is nil, so the
// data can later be recovered to that point.
func (persistence *Persistence) Snapshot(name string, asof *Transaction) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	persistence.Lock()
	defer persistence.Unlock()

	var hash plumbing.Hash
	if asof != nil {
		hash = plumbing.NewHash(asof.Id)
	} else {
		headRef, err := persistence.repo.Head()
		if err != nil {
			return fmt.Errorf("nothing to snapshot: %w", err)
		}
		hash = headRef.Hash()
	}

	_, err := persistence.repo.CreateTag(name, hash, nil)
	return err
}

// Recover resets every database to the state recorded by a snapshot.
func (persistence *Persistence) Recover(name string) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	persistence.Lock()
	defer persistence.Unlock()

	ref, err := persistence.repo.Tag(name)
	if err != nil {
		return fmt.Errorf("snapshot '%s' not found: %w", name, err)
	}

	wt, err := persistence.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: ref.Hash(),
	})
}
