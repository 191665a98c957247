package ps

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v6/util"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/TabDB/core"
)

// MergeStrategy defines how to handle merge
type MergeStrategy string

const (
	// MergeStrategyFastForwardOnly only allows fast-forward merges
	MergeStrategyFastForwardOnly MergeStrategy = "fast-forward-only"
	// MergeStrategyRowLevel merges diverged branches row by row, keyed on id.
	// When both sides changed the same row the later commit wins. Rows both
	// sides inserted under the same new id are kept: the source row gets the
	// next id after the merged counter.
	MergeStrategyRowLevel MergeStrategy = "row-level"
)

// MergeOptions configures merge behavior
type MergeOptions struct {
	Strategy MergeStrategy
}

// DefaultMergeOptions returns the default merge options (row-level merge)
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		Strategy: MergeStrategyRowLevel,
	}
}

// RowConflict is a row both branches changed. A nil row means the row did
// not exist on that side. An empty Id means the table header itself
// conflicted and the whole table was taken from one side.
type RowConflict struct {
	Database string
	Table    string
	Id       string
	Base     core.Row
	Head     core.Row
	Source   core.Row
	Resolved core.Row
}

// MergeResult describes a completed merge.
type MergeResult struct {
	Transaction Transaction
	FastForward bool
	MergedRows  int
	Conflicts   []RowConflict
}

// Merge merges the source branch into the current branch with the
// default row-level strategy.
func (persistence *Persistence) Merge(source string, identity core.Identity) (MergeResult, error) {
	return persistence.MergeWithOptions(source, identity, DefaultMergeOptions())
}

// MergeWithOptions merges the source branch into the current branch.
// Fast-forwards never create a commit. Diverged branches fail with
// ErrDiverged under MergeStrategyFastForwardOnly and otherwise produce a
// merge commit with both heads as parents.
func (persistence *Persistence) MergeWithOptions(source string, identity core.Identity, opts MergeOptions) (MergeResult, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return MergeResult{}, err
	}

	persistence.Lock()
	defer persistence.Unlock()

	headRef, err := persistence.repo.Head()
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to get HEAD: %w", err)
	}
	sourceRef, err := persistence.repo.Reference(plumbing.NewBranchReferenceName(source), true)
	if err != nil {
		return MergeResult{}, fmt.Errorf("branch '%s' not found: %w", source, err)
	}

	headCommit, err := persistence.repo.CommitObject(headRef.Hash())
	if err != nil {
		return MergeResult{}, err
	}
	sourceCommit, err := persistence.repo.CommitObject(sourceRef.Hash())
	if err != nil {
		return MergeResult{}, err
	}

	// Already contained in HEAD.
	if sourceCommit.Hash == headCommit.Hash {
		return MergeResult{Transaction: transactionFromCommit(headCommit)}, nil
	}
	merged, err := sourceCommit.IsAncestor(headCommit)
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to check ancestry: %w", err)
	}
	if merged {
		return MergeResult{Transaction: transactionFromCommit(headCommit)}, nil
	}

	wt, err := persistence.repo.Worktree()
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to get worktree: %w", err)
	}

	canFastForward, err := headCommit.IsAncestor(sourceCommit)
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to check ancestry: %w", err)
	}
	if canFastForward {
		if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: sourceCommit.Hash}); err != nil {
			return MergeResult{}, fmt.Errorf("failed to fast-forward: %w", err)
		}
		return MergeResult{Transaction: transactionFromCommit(sourceCommit), FastForward: true}, nil
	}

	if opts.Strategy == MergeStrategyFastForwardOnly {
		return MergeResult{}, fmt.Errorf("cannot merge '%s': %w", source, ErrDiverged)
	}

	baseCommit, err := findMergeBase(headCommit, sourceCommit)
	if err != nil {
		return MergeResult{}, err
	}

	result, err := persistence.performRowLevelMerge(headCommit, sourceCommit, baseCommit)
	if err != nil {
		return MergeResult{}, err
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return MergeResult{}, fmt.Errorf("failed to stage changes: %w", err)
	}
	hash, err := wt.Commit(fmt.Sprintf("Merge branch '%s'", source), &git.CommitOptions{
		Author: &object.Signature{
			Name:  identity.Name,
			Email: identity.Email,
			When:  time.Now(),
		},
		Parents:           []plumbing.Hash{headCommit.Hash, sourceCommit.Hash},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to create merge commit: %w", err)
	}

	commit, err := persistence.repo.CommitObject(hash)
	if err != nil {
		return MergeResult{}, err
	}
	result.Transaction = transactionFromCommit(commit)
	return result, nil
}

var errFound = errors.New("found")

// findMergeBase finds the newest commit reachable from both heads.
func findMergeBase(headCommit, sourceCommit *object.Commit) (*object.Commit, error) {
	headAncestors := make(map[plumbing.Hash]bool)
	err := object.NewCommitIterCTime(headCommit, nil, nil).ForEach(func(c *object.Commit) error {
		headAncestors[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate HEAD history: %w", err)
	}

	var mergeBase *object.Commit
	err = object.NewCommitIterCTime(sourceCommit, nil, nil).ForEach(func(c *object.Commit) error {
		if headAncestors[c.Hash] {
			mergeBase = c
			return errFound
		}
		return nil
	})
	if err != nil && err != errFound {
		return nil, fmt.Errorf("failed to iterate source history: %w", err)
	}
	if mergeBase == nil {
		return nil, errors.New("no common ancestor found")
	}
	return mergeBase, nil
}

// tableVersion is one table as stored at a commit.
type tableVersion struct {
	table   *core.Table
	counter int
}

// tableAt reads a table at a commit. A nil result means it did not exist.
func tableAt(commit *object.Commit, database, table string) (*tableVersion, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	file, err := tree.File(path.Join(database, table+TableExt))
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, err
	}
	decoded, err := DecodeTable(core.TableName(table), []byte(contents))
	if err != nil {
		return nil, err
	}

	version := &tableVersion{table: decoded}
	if info, err := tree.File(path.Join(database, table+CounterExt)); err == nil {
		if contents, err := info.Contents(); err == nil {
			version.counter, _ = DecodeCounter([]byte(contents))
		}
	}
	return version, nil
}

// collectTables lists database/table pairs present in any of the commits.
func collectTables(commits ...*object.Commit) (map[string][]string, error) {
	found := make(map[string]map[string]bool)

	for _, commit := range commits {
		tree, err := commit.Tree()
		if err != nil {
			return nil, err
		}
		for _, entry := range tree.Entries {
			if entry.Mode != filemode.Dir {
				continue
			}
			dbTree, err := tree.Tree(entry.Name)
			if err != nil {
				return nil, err
			}
			for _, file := range dbTree.Entries {
				if name, ok := strings.CutSuffix(file.Name, TableExt); ok && file.Mode.IsFile() {
					if found[entry.Name] == nil {
						found[entry.Name] = make(map[string]bool)
					}
					found[entry.Name][name] = true
				}
			}
		}
	}

	result := make(map[string][]string, len(found))
	for database, tables := range found {
		for table := range tables {
			result[database] = append(result[database], table)
		}
		sort.Strings(result[database])
	}
	return result, nil
}

// performRowLevelMerge writes the merged state of every table into the
// worktree. The caller commits it.
func (persistence *Persistence) performRowLevelMerge(headCommit, sourceCommit, baseCommit *object.Commit) (MergeResult, error) {
	result := MergeResult{}
	headTime, sourceTime := headCommit.Committer.When, sourceCommit.Committer.When

	tables, err := collectTables(baseCommit, headCommit, sourceCommit)
	if err != nil {
		return result, fmt.Errorf("failed to list tables: %w", err)
	}

	databases := make([]string, 0, len(tables))
	for database := range tables {
		databases = append(databases, database)
	}
	sort.Strings(databases)

	for _, database := range databases {
		for _, name := range tables[database] {
			base, err := tableAt(baseCommit, database, name)
			if err != nil {
				return result, err
			}
			head, err := tableAt(headCommit, database, name)
			if err != nil {
				return result, err
			}
			source, err := tableAt(sourceCommit, database, name)
			if err != nil {
				return result, err
			}

			merged, conflicts := mergeTable(base, head, source, headTime, sourceTime)
			for i := range conflicts {
				conflicts[i].Database = database
				conflicts[i].Table = name
			}
			result.Conflicts = append(result.Conflicts, conflicts...)

			tablePath := path.Join(database, tableFile(core.TableName(name)))
			counterPath := path.Join(database, counterFile(core.TableName(name)))
			if merged == nil {
				for _, file := range []string{tablePath, counterPath} {
					if persistence.isFile(file) {
						if err := persistence.fs.Remove(file); err != nil {
							return result, fmt.Errorf("failed to remove %s: %w", file, err)
						}
					}
				}
				continue
			}

			if err := util.WriteFile(persistence.fs, tablePath, EncodeTable(merged.table), 0o644); err != nil {
				return result, fmt.Errorf("failed to write merged table: %w", err)
			}
			if err := util.WriteFile(persistence.fs, counterPath, EncodeCounter(merged.counter), 0o644); err != nil {
				return result, fmt.Errorf("failed to write merged counter: %w", err)
			}
			result.MergedRows += len(merged.table.Rows)
		}
	}

	return result, nil
}

// mergeTable three-way merges one table. A nil version means the table does
// not exist on that side; a nil result means it is deleted.
func mergeTable(base, head, source *tableVersion, headTime, sourceTime time.Time) (*tableVersion, []RowConflict) {
	sourceWins := sourceTime.After(headTime)

	switch {
	case head == nil && source == nil:
		return nil, nil
	case head == nil || source == nil:
		present := head
		if present == nil {
			present = source
		}
		// Added on one side, or dropped on one side and left alone on the other.
		if base == nil {
			return present, nil
		}
		if sameTable(base.table, present.table) {
			return nil, nil
		}
		// Dropped on one side and changed on the other: the later commit wins.
		if (present == source) == sourceWins {
			return present, []RowConflict{{}}
		}
		return nil, []RowConflict{{}}
	}

	if !slices.EqualFunc(head.table.Columns, source.table.Columns, core.ColumnName.Equal) {
		switch {
		case base != nil && sameTable(base.table, head.table):
			return source, nil
		case base != nil && sameTable(base.table, source.table):
			return head, nil
		case sourceWins:
			return source, []RowConflict{{}}
		default:
			return head, []RowConflict{{}}
		}
	}

	baseRows, baseCounter := map[string]core.Row{}, 0
	if base != nil {
		baseCounter = base.counter
		for _, row := range base.table.Rows {
			if id, err := strconv.Atoi(row.ID()); err == nil {
				baseCounter = max(baseCounter, id)
			}
		}
		if slices.EqualFunc(base.table.Columns, head.table.Columns, core.ColumnName.Equal) {
			baseRows = rowsById(base.table)
		}
	}
	rows, inserted, conflicts := mergeRows(baseRows, rowsById(head.table), rowsById(source.table), baseCounter, sourceWins)

	merged := &tableVersion{
		table:   &core.Table{Name: head.table.Name, Columns: head.table.Columns},
		counter: max(head.counter, source.counter),
	}
	for _, row := range rows {
		merged.table.Rows = append(merged.table.Rows, row)
		if id, err := strconv.Atoi(row.ID()); err == nil {
			merged.counter = max(merged.counter, id)
		}
	}
	for _, row := range inserted {
		merged.counter++
		row[0] = strconv.Itoa(merged.counter)
		merged.table.Rows = append(merged.table.Rows, row)
	}
	return merged, conflicts
}

func sameTable(a, b *core.Table) bool {
	return string(EncodeTable(a)) == string(EncodeTable(b))
}

func rowsById(table *core.Table) map[string]core.Row {
	rows := make(map[string]core.Row, len(table.Rows))
	for _, row := range table.Rows {
		rows[row.ID()] = row
	}
	return rows
}

// mergeRows three-way merges rows keyed on id and returns them in id order.
// Ids above baseCounter were issued on both sides after the fork, so a
// source row colliding with a different head row there is a second insert.
// Those rows are returned separately, in id order, for the caller to give
// new ids.
func mergeRows(base, head, source map[string]core.Row, baseCounter int, sourceWins bool) ([]core.Row, []core.Row, []RowConflict) {
	merged := make(map[string]core.Row)
	var inserted []core.Row
	var conflicts []RowConflict

	ids := make(map[string]bool)
	for _, rows := range []map[string]core.Row{base, head, source} {
		for id := range rows {
			ids[id] = true
		}
	}

	for id := range ids {
		baseRow, inBase := base[id]
		headRow, inHead := head[id]
		sourceRow, inSource := source[id]

		headUnchanged := inBase == inHead && slices.Equal(baseRow, headRow)
		sourceUnchanged := inBase == inSource && slices.Equal(baseRow, sourceRow)

		var resolved core.Row
		switch {
		case sourceUnchanged:
			resolved = headRow
		case headUnchanged:
			resolved = sourceRow
		case inHead == inSource && slices.Equal(headRow, sourceRow):
			resolved = headRow
		case !inBase && inHead && inSource && issuedAfter(id, baseCounter):
			resolved = headRow
			inserted = append(inserted, sourceRow.Clone())
		default:
			if sourceWins {
				resolved = sourceRow
			} else {
				resolved = headRow
			}
			conflicts = append(conflicts, RowConflict{
				Id:       id,
				Base:     baseRow,
				Head:     headRow,
				Source:   sourceRow,
				Resolved: resolved,
			})
		}

		if resolved != nil {
			merged[id] = resolved
		}
	}

	rows := make([]core.Row, 0, len(merged))
	for _, row := range merged {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return idLess(rows[i].ID(), rows[j].ID())
	})
	sort.Slice(inserted, func(i, j int) bool {
		return idLess(inserted[i].ID(), inserted[j].ID())
	})
	sort.Slice(conflicts, func(i, j int) bool {
		return idLess(conflicts[i].Id, conflicts[j].Id)
	})
	return rows, inserted, conflicts
}

func issuedAfter(id string, counter int) bool {
	n, err := strconv.Atoi(id)
	return err == nil && n > counter
}

func idLess(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}
