// Package memory provides an in-memory row sink for tests and local runs.
package memory

import (
	"context"
	"sync"

	"splitledger/internal/core"
	"splitledger/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []core.BalanceRow
}

var _ sheets.RowAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendRows records the rows.
func (s *Store) AppendRows(_ context.Context, rows []core.BalanceRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []core.BalanceRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.BalanceRow, len(s.rows))
	copy(out, s.rows)
	return out
}
