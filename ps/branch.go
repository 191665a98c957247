package ps

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// ErrDiverged is returned by a fast-forward-only merge when both branches
// have commits the other lacks.
var ErrDiverged = errors.New("branches have diverged")

// Branch creates a branch at HEAD, or at a specific transaction when from
// is set. The current branch does not change.
func (persistence *Persistence) Branch(name string, from *Transaction) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	persistence.Lock()
	defer persistence.Unlock()

	var hash plumbing.Hash
	if from != nil {
		hash = plumbing.NewHash(from.Id)
	} else {
		headRef, err := persistence.repo.Head()
		if err != nil {
			return fmt.Errorf("nothing to branch from: %w", err)
		}
		hash = headRef.Hash()
	}

	branchRef := plumbing.NewBranchReferenceName(name)
	if _, err := persistence.repo.Reference(branchRef, false); err == nil {
		return fmt.Errorf("branch '%s' already exists", name)
	}

	return persistence.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, hash))
}

// Checkout switches every database to the state of an existing branch.
// Later commits go to that branch.
func (persistence *Persistence) Checkout(name string) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	persistence.Lock()
	defer persistence.Unlock()

	wt, err := persistence.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(name)
	if _, err := persistence.repo.Reference(branchRef, true); err != nil {
		return fmt.Errorf("branch '%s' not found: %w", name, err)
	}

	return wt.Checkout(&git.CheckoutOptions{
		Branch: branchRef,
		Force:  true,
	})
}

// ListBranches returns all branch names, sorted.
func (persistence *Persistence) ListBranches() ([]string, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	persistence.RLock()
	defer persistence.RUnlock()

	refs, err := persistence.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	branches := []string{}
	refs.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, ref.Name().Short())
		return nil
	})
	sort.Strings(branches)

	return branches, nil
}

// CurrentBranch returns the name of the checked out branch.
func (persistence *Persistence) CurrentBranch() (string, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return "", err
	}

	persistence.RLock()
	defer persistence.RUnlock()

	return persistence.currentBranch()
}

func (persistence *Persistence) currentBranch() (string, error) {
	headRef, err := persistence.repo.Head()
	if err != nil {
		return "", err
	}
	if !headRef.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", headRef.Hash().String()[:7])
	}
	return headRef.Name().Short(), nil
}
