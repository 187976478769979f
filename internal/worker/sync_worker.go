// Package worker mirrors persisted expenses to the balance sheet backend.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/sheets"
	"splitledger/internal/storage"
)

// SyncWorker consumes expense sync messages and appends balance rows to the
// configured sink. The ledger in storage stays the source of truth; the sheet
// is a projection that may lag.
type SyncWorker struct {
	store     storage.Store
	appender  sheets.RowAppender
	batchSize int
}

func NewSyncWorker(store storage.Store, appender sheets.RowAppender, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{
		store:     store,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleSyncMessage mirrors one expense. An append failure marks the expense
// sync_status=error and returns the error so the delivery is requeued.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"expense_id", msg.ExpenseID,
		"version", msg.Version)

	return w.syncExpense(ctx, msg.ExpenseID)
}

// CatchUp mirrors expenses still marked pending. Backup path for lost AMQP
// messages and worker downtime.
func (w *SyncWorker) CatchUp(ctx context.Context) error {
	pending, err := w.store.PendingSyncExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	synced := 0
	for _, id := range pending {
		if err := w.syncExpense(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending expense", "expense_id", id, "error", err)
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Catch-up completed", "total", len(pending), "synced", synced)
	return nil
}

// Run consumes sync messages and periodically catches up on pending expenses
// until the context is cancelled.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeExpenseSync(ctx, func(msg *amqp.ExpenseSyncMessage) error {
			return w.HandleSyncMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.CatchUp(ctx); err != nil {
					slog.ErrorContext(ctx, "Catch-up failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

func (w *SyncWorker) syncExpense(ctx context.Context, id string) error {
	expense, err := w.store.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		// Deleted before we got to it; nothing to mirror.
		slog.WarnContext(ctx, "Expense not found, skipping sync", "expense_id", id)
		return nil
	}

	emails, err := w.emailsFor(ctx, expense)
	if err != nil {
		return err
	}

	rows := core.BalanceRowsFor(*expense, emails, true)
	if err := w.appender.AppendRows(ctx, rows); err != nil {
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "expense_id", id, "error", markErr)
		}
		return fmt.Errorf("append rows: %w", err)
	}

	if err := w.store.MarkSynced(ctx, id, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "expense_id", id, "error", err)
		// Don't return error here - the sync actually worked
	}

	slog.InfoContext(ctx, "Synced expense",
		"expense_id", id,
		"rows", len(rows),
		"description", expense.Description)
	return nil
}

func (w *SyncWorker) emailsFor(ctx context.Context, e *core.Expense) (map[string]string, error) {
	ids := []string{e.CreatedBy}
	for _, sh := range e.Shares {
		ids = append(ids, sh.UserID)
	}

	users, err := w.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}

	emails := make(map[string]string, len(users))
	for id, u := range users {
		emails[id] = u.Email
	}
	return emails, nil
}
