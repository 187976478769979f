package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"splitledger/internal/core"
)

// Ensure SQLiteRepository implements Store and the allocation engine's
// participant-existence oracle.
var (
	_ Store          = (*SQLiteRepository)(nil)
	_ core.Directory = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// runs migrations. Foreign keys are enabled on every pooled connection via the
// DSN pragma so share rows cascade with their expense.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateExpense persists the expense and all of its shares as one unit. Any
// insert failure rolls the whole operation back; no partial expense is ever
// observable.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, description, total_amount, created_by, split_method, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Description, e.TotalAmount.StringFixed(core.MoneyPrecision),
		e.CreatedBy, string(e.SplitMethod), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	for i := range e.Shares {
		s := &e.Shares[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.ExpenseID = e.ID

		var pct any
		if s.Percentage != nil {
			pct = s.Percentage.String()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO expense_shares (id, expense_id, user_id, amount, percentage, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, s.ExpenseID, s.UserID, s.Amount.StringFixed(core.MoneyPrecision), pct, i,
		)
		if err != nil {
			return fmt.Errorf("insert share for user %s: %w", s.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"description", e.Description,
		"total_amount", e.TotalAmount.StringFixed(core.MoneyPrecision),
		"split_method", e.SplitMethod,
		"shares", len(e.Shares))

	return nil
}

// GetExpense returns the expense with its shares in creation order, or
// nil, nil when it does not exist.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (*core.Expense, error) {
	e := &core.Expense{}
	var total, method string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, description, total_amount, created_by, split_method, created_at, updated_at
		FROM expenses WHERE id = ?`, id,
	).Scan(&e.ID, &e.Description, &total, &e.CreatedBy, &method, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if e.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	e.SplitMethod = core.SplitMethod(method)

	if e.Shares, err = r.sharesOf(ctx, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

// ListExpenses returns all expenses, newest first, each with its shares.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, total_amount, created_by, split_method, created_at, updated_at
		FROM expenses ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		var total, method string
		if err := rows.Scan(&e.ID, &e.Description, &total, &e.CreatedBy, &method, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse total amount: %w", err)
		}
		e.SplitMethod = core.SplitMethod(method)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	for i := range out {
		if out[i].Shares, err = r.sharesOf(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteRepository) sharesOf(ctx context.Context, expenseID string) ([]core.ExpenseShare, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, expense_id, user_id, amount, percentage
		FROM expense_shares WHERE expense_id = ? ORDER BY position`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("get shares: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseShare
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShare(row rowScanner) (core.ExpenseShare, error) {
	var s core.ExpenseShare
	var amount string
	var pct sql.NullString
	if err := row.Scan(&s.ID, &s.ExpenseID, &s.UserID, &amount, &pct); err != nil {
		return s, fmt.Errorf("scan share: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return s, fmt.Errorf("parse share amount: %w", err)
	}
	s.Amount = d
	if pct.Valid {
		p, err := decimal.NewFromString(pct.String)
		if err != nil {
			return s, fmt.Errorf("parse share percentage: %w", err)
		}
		s.Percentage = &p
	}
	return s, nil
}

// SharesForUser returns every share belonging to the user with its owning
// expense attached, newest expense first.
func (r *SQLiteRepository) SharesForUser(ctx context.Context, userID string) ([]core.ShareWithExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.expense_id, s.user_id, s.amount, s.percentage,
		       e.id, e.description, e.total_amount, e.created_by, e.split_method, e.created_at, e.updated_at
		FROM expense_shares s
		JOIN expenses e ON e.id = s.expense_id
		WHERE s.user_id = ?
		ORDER BY e.created_at DESC, s.position`, userID)
	if err != nil {
		return nil, fmt.Errorf("shares for user: %w", err)
	}
	defer rows.Close()

	var out []core.ShareWithExpense
	for rows.Next() {
		var s core.ExpenseShare
		var e core.Expense
		var amount, total, method string
		var pct sql.NullString
		err := rows.Scan(&s.ID, &s.ExpenseID, &s.UserID, &amount, &pct,
			&e.ID, &e.Description, &total, &e.CreatedBy, &method, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan user share: %w", err)
		}
		if s.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse share amount: %w", err)
		}
		if pct.Valid {
			p, err := decimal.NewFromString(pct.String)
			if err != nil {
				return nil, fmt.Errorf("parse share percentage: %w", err)
			}
			s.Percentage = &p
		}
		if e.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse total amount: %w", err)
		}
		e.SplitMethod = core.SplitMethod(method)
		out = append(out, core.ShareWithExpense{Share: s, Expense: e})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user shares: %w", err)
	}
	return out, nil
}

// DeleteExpense removes an expense; share rows cascade via the foreign key.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("expense not found: %s", id)
	}
	return nil
}

func (r *SQLiteRepository) CountExpenses(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountShares(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expense_shares").Scan(&n); err != nil {
		return 0, fmt.Errorf("count shares: %w", err)
	}
	return n, nil
}

// PendingSyncExpenses returns ids of expenses not yet mirrored to the export
// sheet, oldest first.
func (r *SQLiteRepository) PendingSyncExpenses(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM expenses WHERE sync_status = 'pending'
		ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync expenses: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending ids: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, expenseID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET sync_status = 'synced', synced_at = ? WHERE id = ?", at.UTC(), expenseID)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, expenseID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET sync_status = 'error' WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", expenseID)
	return nil
}
