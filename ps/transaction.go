package ps

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

// IsEmpty reports whether the transaction records no commit.
func (transaction Transaction) IsEmpty() bool {
	return transaction.Id == ""
}

func transactionFromCommit(c *object.Commit) Transaction {
	author := ""
	if c.Author.Name != "" || c.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
	}
	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  author,
		Message: c.Message,
	}
}

func (persistence *Persistence) LatestTransaction() Transaction {
	if persistence.ensureInitialized() != nil {
		return Transaction{}
	}

	persistence.RLock()
	defer persistence.RUnlock()

	headRef, err := persistence.repo.Head()
	if err != nil || headRef == nil {
		// No commits yet
		return Transaction{}
	}

	commit, err := persistence.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	return transactionFromCommit(commit)
}

func (persistence *Persistence) TransactionsSince(asof time.Time) []Transaction {
	return persistence.history(&git.LogOptions{Since: &asof}, 0)
}

// History returns up to limit of the most recent transactions, newest first.
// A limit of zero or less returns the whole history.
func (persistence *Persistence) History(limit int) []Transaction {
	return persistence.history(&git.LogOptions{}, limit)
}

func (persistence *Persistence) history(options *git.LogOptions, limit int) []Transaction {
	if persistence.ensureInitialized() != nil {
		return nil
	}

	persistence.RLock()
	defer persistence.RUnlock()

	if _, err := persistence.repo.Head(); err != nil {
		return nil
	}

	cIter, err := persistence.repo.Log(options)
	if err != nil {
		return nil
	}
	defer cIter.Close()

	var transactions []Transaction
	for limit <= 0 || len(transactions) < limit {
		c, err := cIter.Next()
		if err != nil {
			break
		}
		transactions = append(transactions, transactionFromCommit(c))
	}

	return transactions
}
