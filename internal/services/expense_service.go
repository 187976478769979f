// Package services orchestrates expense operations across storage and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"splitledger/internal/core"
	"splitledger/internal/storage"
)

// Publisher emits sync messages for newly created expenses. The AMQP client
// satisfies this; a nil publisher disables mirroring.
type Publisher interface {
	PublishExpenseSync(ctx context.Context, expenseID string, version int64) error
}

// ExpenseService is the application layer over the ledger. All allocation
// happens before anything is written: either every share commits with the
// expense, or nothing does.
type ExpenseService struct {
	store     storage.Store
	publisher Publisher
}

func NewExpenseService(store storage.Store, publisher Publisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
	}
}

// CreateExpense validates the input, computes the allocation and persists the
// expense with all of its shares in one transaction. Returns the stored
// expense with shares in input order.
func (s *ExpenseService) CreateExpense(ctx context.Context, in core.NewExpenseInput) (*core.Expense, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	allocations, err := core.Allocate(ctx, in.TotalAmount, in.SplitMethod, in.Participants, s.store)
	if err != nil {
		return nil, err
	}

	expense := &core.Expense{
		Description: in.Description,
		TotalAmount: in.TotalAmount,
		CreatedBy:   in.CreatedBy,
		SplitMethod: in.SplitMethod,
		Shares:      make([]core.ExpenseShare, len(allocations)),
	}
	for i, a := range allocations {
		expense.Shares[i] = core.ExpenseShare{
			UserID:     a.UserID,
			Amount:     a.Amount,
			Percentage: a.Percentage,
		}
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("save expense: %w", err)
	}

	if err := s.publishSyncMessage(ctx, expense.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"expense_id", expense.ID, "error", err)
		// Don't fail the request - expense is saved locally
	}

	return expense, nil
}

// GetExpense returns nil, nil when the expense does not exist.
func (s *ExpenseService) GetExpense(ctx context.Context, id string) (*core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

// AllExpenses returns every expense with its shares, newest first.
func (s *ExpenseService) AllExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}

// SharesForUser returns the user's shares across all expenses, newest first.
func (s *ExpenseService) SharesForUser(ctx context.Context, userID string) ([]core.ShareWithExpense, error) {
	return s.store.SharesForUser(ctx, userID)
}

// BalanceRows projects every expense into export rows, one per share, with
// user ids resolved to emails.
func (s *ExpenseService) BalanceRows(ctx context.Context) ([]core.BalanceRow, error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	emails, err := s.emailsFor(ctx, expenses)
	if err != nil {
		return nil, err
	}

	var rows []core.BalanceRow
	for _, e := range expenses {
		rows = append(rows, core.BalanceRowsFor(e, emails, true)...)
	}
	return rows, nil
}

// UserBalanceRows projects only the given user's shares into export rows,
// participant column omitted.
func (s *ExpenseService) UserBalanceRows(ctx context.Context, userID string) ([]core.BalanceRow, error) {
	shares, err := s.store.SharesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("shares for user: %w", err)
	}

	ids := make([]string, 0, len(shares))
	for _, sw := range shares {
		ids = append(ids, sw.Expense.CreatedBy)
	}
	emails, err := s.emailMap(ctx, ids)
	if err != nil {
		return nil, err
	}

	var rows []core.BalanceRow
	for _, sw := range shares {
		e := sw.Expense
		e.Shares = []core.ExpenseShare{sw.Share}
		rows = append(rows, core.BalanceRowsFor(e, emails, false)...)
	}
	return rows, nil
}

func (s *ExpenseService) emailsFor(ctx context.Context, expenses []core.Expense) (map[string]string, error) {
	var ids []string
	for _, e := range expenses {
		ids = append(ids, e.CreatedBy)
		for _, sh := range e.Shares {
			ids = append(ids, sh.UserID)
		}
	}
	return s.emailMap(ctx, ids)
}

func (s *ExpenseService) emailMap(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	users, err := s.store.GetUsersByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}

	emails := make(map[string]string, len(users))
	for id, u := range users {
		emails[id] = u.Email
	}
	return emails, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *ExpenseService) publishSyncMessage(ctx context.Context, expenseID string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishExpenseSync(ctx, expenseID, 1)
}

// Close closes the underlying storage.
func (s *ExpenseService) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}
