package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitledger/internal/core"
)

type fakeStore struct {
	users         map[string]*core.User
	expenses      []*core.Expense
	createCalls   int
	createErr     error
	existsErr     error
	sharesForUser []core.ShareWithExpense
}

func newFakeStore(userIDs ...string) *fakeStore {
	fs := &fakeStore{users: make(map[string]*core.User)}
	for _, id := range userIDs {
		fs.users[id] = &core.User{ID: id, Email: id + "@example.com"}
	}
	return fs
}

func (f *fakeStore) CreateUser(_ context.Context, u *core.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*core.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetUsersByIDs(_ context.Context, ids []string) (map[string]*core.User, error) {
	out := make(map[string]*core.User)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeStore) Exists(_ context.Context, id string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeStore) CreateExpense(_ context.Context, e *core.Expense) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = "exp-1"
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	f.expenses = append(f.expenses, e)
	return nil
}

func (f *fakeStore) GetExpense(_ context.Context, id string) (*core.Expense, error) {
	for _, e := range f.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListExpenses(_ context.Context) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(f.expenses))
	for _, e := range f.expenses {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeStore) SharesForUser(_ context.Context, _ string) ([]core.ShareWithExpense, error) {
	return f.sharesForUser, nil
}

func (f *fakeStore) DeleteExpense(_ context.Context, _ string) error { return nil }

func (f *fakeStore) CountExpenses(_ context.Context) (int64, error) {
	return int64(len(f.expenses)), nil
}

func (f *fakeStore) CountShares(_ context.Context) (int64, error) {
	var n int64
	for _, e := range f.expenses {
		n += int64(len(e.Shares))
	}
	return n, nil
}

func (f *fakeStore) PendingSyncExpenses(_ context.Context, _ int) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) MarkSynced(_ context.Context, _ string, _ time.Time) error { return nil }
func (f *fakeStore) MarkSyncError(_ context.Context, _ string) error           { return nil }
func (f *fakeStore) Close() error                                              { return nil }

type fakePublisher struct {
	published []string
	err       error
}

func (p *fakePublisher) PublishExpenseSync(_ context.Context, expenseID string, _ int64) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, expenseID)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestCreateExpensePersistsAndPublishes(t *testing.T) {
	store := newFakeStore("u1", "u2", "u3")
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	e, err := svc.CreateExpense(context.Background(), core.NewExpenseInput{
		Description: "dinner",
		TotalAmount: dec("3000.00"),
		SplitMethod: core.SplitEqual,
		CreatedBy:   "u1",
		Participants: []core.ParticipantInput{
			{UserID: "u1"}, {UserID: "u2"}, {UserID: "u3"},
		},
	})
	require.NoError(t, err)
	require.Len(t, e.Shares, 3)
	assert.Equal(t, 1, store.createCalls)
	for _, sh := range e.Shares {
		assert.True(t, sh.Amount.Equal(dec("1000.00")))
	}
	assert.Equal(t, []string{"exp-1"}, pub.published)
}

func TestCreateExpenseAllocationFailureWritesNothing(t *testing.T) {
	store := newFakeStore("u1", "u2")
	svc := NewExpenseService(store, &fakePublisher{})

	_, err := svc.CreateExpense(context.Background(), core.NewExpenseInput{
		Description: "groceries",
		TotalAmount: dec("4000.00"),
		SplitMethod: core.SplitExact,
		CreatedBy:   "u1",
		Participants: []core.ParticipantInput{
			{UserID: "u1", Amount: decp("1400.00")},
			{UserID: "u2", Amount: decp("2500.00")},
		},
	})

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, core.AmountMismatch, verr.Kind)
	assert.Equal(t, 0, store.createCalls, "no write on allocation failure")
}

func TestCreateExpenseInputFailureWritesNothing(t *testing.T) {
	store := newFakeStore("u1")
	svc := NewExpenseService(store, nil)

	_, err := svc.CreateExpense(context.Background(), core.NewExpenseInput{
		Description:  "   ",
		TotalAmount:  dec("10.00"),
		SplitMethod:  core.SplitEqual,
		CreatedBy:    "u1",
		Participants: []core.ParticipantInput{{UserID: "u1"}},
	})
	require.ErrorIs(t, err, core.ErrEmptyDescription)
	assert.Equal(t, 0, store.createCalls)
}

func TestCreateExpensePublishFailureDoesNotFailRequest(t *testing.T) {
	store := newFakeStore("u1")
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewExpenseService(store, pub)

	e, err := svc.CreateExpense(context.Background(), core.NewExpenseInput{
		Description:  "coffee",
		TotalAmount:  dec("4.50"),
		SplitMethod:  core.SplitEqual,
		CreatedBy:    "u1",
		Participants: []core.ParticipantInput{{UserID: "u1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "exp-1", e.ID)
}

func TestCreateExpenseNilPublisher(t *testing.T) {
	store := newFakeStore("u1")
	svc := NewExpenseService(store, nil)

	_, err := svc.CreateExpense(context.Background(), core.NewExpenseInput{
		Description:  "snack",
		TotalAmount:  dec("2.00"),
		SplitMethod:  core.SplitEqual,
		CreatedBy:    "u1",
		Participants: []core.ParticipantInput{{UserID: "u1"}},
	})
	require.NoError(t, err)
}

func TestBalanceRowsResolvesEmails(t *testing.T) {
	store := newFakeStore("u1", "u2")
	svc := NewExpenseService(store, nil)

	_, err := svc.CreateExpense(context.Background(), core.NewExpenseInput{
		Description: "rent",
		TotalAmount: dec("5000.00"),
		SplitMethod: core.SplitPercentage,
		CreatedBy:   "u1",
		Participants: []core.ParticipantInput{
			{UserID: "u1", Percentage: decp("40")},
			{UserID: "u2", Percentage: decp("60")},
		},
	})
	require.NoError(t, err)

	rows, err := svc.BalanceRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "u1@example.com", rows[0].CreatedBy)
	assert.Equal(t, "u1@example.com", rows[0].Participant)
	assert.Equal(t, "2000.00", rows[0].Amount)
	assert.Equal(t, "u2@example.com", rows[1].Participant)
	assert.Equal(t, "3000.00", rows[1].Amount)
	assert.Equal(t, "60", rows[1].Percentage)
}

func TestUserBalanceRowsOmitParticipant(t *testing.T) {
	store := newFakeStore("u1", "u2")
	store.sharesForUser = []core.ShareWithExpense{
		{
			Share: core.ExpenseShare{UserID: "u2", Amount: dec("15.00")},
			Expense: core.Expense{
				ID:          "exp-9",
				Description: "taxi",
				TotalAmount: dec("30.00"),
				SplitMethod: core.SplitEqual,
				CreatedBy:   "u1",
			},
		},
	}
	svc := NewExpenseService(store, nil)

	rows, err := svc.UserBalanceRows(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Participant)
	assert.Equal(t, "15.00", rows[0].Amount)
	assert.Equal(t, "u1@example.com", rows[0].CreatedBy)
}
