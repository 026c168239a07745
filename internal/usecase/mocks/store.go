package mocks

import (
	"context"
	"sync"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
)

// Store is the in-memory state shared by the mock repositories. Writes are
// applied immediately and undone if their transaction rolls back.
type Store struct {
	mu          sync.Mutex
	accounts    map[string]*domain.Account
	positions   map[string]*domain.Position
	entries     map[string]*domain.LedgerEntry
	entryOrder  []string
	withdrawals map[string]*domain.WithdrawalRequest
	outbox      []*domain.OutboxEvent
	audits      []*domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:    make(map[string]*domain.Account),
		positions:   make(map[string]*domain.Position),
		entries:     make(map[string]*domain.LedgerEntry),
		withdrawals: make(map[string]*domain.WithdrawalRequest),
	}
}

// PutAccount seeds an account.
func (s *Store) PutAccount(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.accounts[a.ID] = &c
}

// Account returns a copy of the stored account, or nil.
func (s *Store) Account(id string) *domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil
	}
	c := *a
	return &c
}

// PutPosition seeds a position.
func (s *Store) PutPosition(p *domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.ID] = clonePosition(p)
}

// Position returns a copy of the stored position, or nil.
func (s *Store) Position(id string) *domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return nil
	}
	return clonePosition(p)
}

// PutEntry seeds a log entry.
func (s *Store) PutEntry(e *domain.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.Reference]; !ok {
		s.entryOrder = append(s.entryOrder, e.Reference)
	}
	s.entries[e.Reference] = cloneEntry(e)
}

// Entries returns copies of all log entries in insertion order.
func (s *Store) Entries() []*domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.LedgerEntry, 0, len(s.entryOrder))
	for _, ref := range s.entryOrder {
		out = append(out, cloneEntry(s.entries[ref]))
	}
	return out
}

// Withdrawal returns a copy of the stored request, or nil.
func (s *Store) Withdrawal(id string) *domain.WithdrawalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return nil
	}
	c := *w
	return &c
}

// OutboxEvents returns every event written to the outbox.
func (s *Store) OutboxEvents() []*domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.OutboxEvent, len(s.outbox))
	copy(out, s.outbox)
	return out
}

// AuditLogs returns every audit log written.
func (s *Store) AuditLogs() []*domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.AuditLog, len(s.audits))
	copy(out, s.audits)
	return out
}

func clonePosition(p *domain.Position) *domain.Position {
	c := *p
	if p.AccrualCursor != nil {
		t := *p.AccrualCursor
		c.AccrualCursor = &t
	}
	return &c
}

func cloneEntry(e *domain.LedgerEntry) *domain.LedgerEntry {
	c := *e
	if e.ChainTxHash != nil {
		h := *e.ChainTxHash
		c.ChainTxHash = &h
	}
	return &c
}

// MockTransactionManager hands out MockTransactions.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	mu        sync.Mutex
	Begun     int
	Committed int
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	m.Begun++
	m.mu.Unlock()
	return &MockTransaction{manager: m}, nil
}

// MockTransaction collects undo steps and runs them on rollback.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	manager *MockTransactionManager
	mu      sync.Mutex
	undo    []func()
	done    bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
	m.undo = nil
	if m.manager != nil {
		m.manager.mu.Lock()
		m.manager.Committed++
		m.manager.mu.Unlock()
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	m.mu.Lock()
	undo := m.undo
	m.undo = nil
	alreadyDone := m.done
	m.done = true
	m.mu.Unlock()

	if alreadyDone {
		return nil
	}
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	return nil
}

// onRollback registers fn to run if tx rolls back. Writes outside a
// MockTransaction are final.
func onRollback(tx usecase.Transaction, fn func()) {
	mt, ok := tx.(*MockTransaction)
	if !ok || mt == nil {
		return
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.undo = append(mt.undo, fn)
}
