// Package storage provides persistent storage for users, expenses and shares.
package storage

import (
	"context"
	"time"

	"splitledger/internal/core"
)

// Store is the persistence interface the service layer depends on. The
// SQLite implementation is the only production backend; tests substitute
// fakes.
type Store interface {
	// CreateUser inserts a new user, assigning ID and CreatedAt when unset.
	CreateUser(ctx context.Context, u *core.User) error

	// GetUserByID returns nil, nil when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*core.User, error)

	// GetUserByEmail returns nil, nil when the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)

	// GetUsersByIDs returns the users that exist, keyed by id. Missing ids
	// are simply absent from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*core.User, error)

	// Exists reports whether a user id resolves. Satisfies core.Directory.
	Exists(ctx context.Context, id string) (bool, error)

	// CreateExpense persists the expense and all of its shares in a single
	// transaction. Either everything commits or nothing does. IDs and
	// timestamps are assigned when unset.
	CreateExpense(ctx context.Context, e *core.Expense) error

	// GetExpense returns the expense with its shares in creation order.
	GetExpense(ctx context.Context, id string) (*core.Expense, error)

	// ListExpenses returns all expenses, newest first, each with shares.
	ListExpenses(ctx context.Context) ([]core.Expense, error)

	// SharesForUser returns every share belonging to the user, with the
	// owning expense attached, newest expense first.
	SharesForUser(ctx context.Context, userID string) ([]core.ShareWithExpense, error)

	// DeleteExpense removes an expense; its shares cascade with it.
	DeleteExpense(ctx context.Context, id string) error

	// CountExpenses and CountShares report table sizes.
	CountExpenses(ctx context.Context) (int64, error)
	CountShares(ctx context.Context) (int64, error)

	// Export mirroring bookkeeping.
	PendingSyncExpenses(ctx context.Context, limit int) ([]string, error)
	MarkSynced(ctx context.Context, expenseID string, at time.Time) error
	MarkSyncError(ctx context.Context, expenseID string) error

	Close() error
}
