package mocks

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
)

// MockAccountRepository is an in-memory AccountRepository.
type MockAccountRepository struct {
	store *Store

	ApplyDeltaFunc       func(ctx context.Context, tx usecase.Transaction, id string, field domain.BalanceField, delta decimal.Decimal) (decimal.Decimal, error)
	AcquireClaimLockFunc func(ctx context.Context, id string, now, staleBefore time.Time) (bool, error)
}

func NewMockAccountRepository(store *Store) *MockAccountRepository {
	return &MockAccountRepository{store: store}
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return domain.ErrAccountExists
	}
	for _, a := range s.accounts {
		if domain.SameAddress(a.DepositAddress, account.DepositAddress) {
			return domain.ErrAccountExists
		}
	}
	c := *account
	s.accounts[account.ID] = &c
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.accounts, account.ID)
	})
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if a := m.store.Account(id); a != nil {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByDepositAddress(ctx context.Context, address string) (*domain.Account, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if domain.SameAddress(a.DepositAddress, address) {
			c := *a
			return &c, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	s := m.store
	s.mu.Lock()
	all := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		c := *a
		all = append(all, &c)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), nil
}

func (m *MockAccountRepository) ApplyDelta(ctx context.Context, tx usecase.Transaction, id string, field domain.BalanceField, delta decimal.Decimal) (decimal.Decimal, error) {
	if m.ApplyDeltaFunc != nil {
		return m.ApplyDeltaFunc(ctx, tx, id, field, delta)
	}
	if !field.IsValid() {
		return decimal.Zero, domain.ErrInvalidBalanceField
	}

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	next := a.AvailableBalance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientFunds
	}
	a.AvailableBalance = next
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if a, ok := s.accounts[id]; ok {
			a.AvailableBalance = a.AvailableBalance.Sub(delta)
		}
	})
	return next, nil
}

func (m *MockAccountRepository) AcquireClaimLock(ctx context.Context, id string, now, staleBefore time.Time) (bool, error) {
	if m.AcquireClaimLockFunc != nil {
		return m.AcquireClaimLockFunc(ctx, id, now, staleBefore)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return false, nil
	}
	if a.ClaimLocked && a.ClaimLockedAt != nil && !a.ClaimLockedAt.Before(staleBefore) {
		return false, nil
	}
	a.ClaimLocked = true
	a.ClaimLockedAt = &now
	return true, nil
}

func (m *MockAccountRepository) ReleaseClaimLock(ctx context.Context, id string) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		a.ClaimLocked = false
		a.ClaimLockedAt = nil
	}
	return nil
}

// MockPositionRepository is an in-memory PositionRepository.
type MockPositionRepository struct {
	store *Store

	ListOpenAfterFunc   func(ctx context.Context, afterID string, limit int) ([]*domain.Position, error)
	AdvanceAccrualFunc  func(ctx context.Context, id string, expectedCursor *time.Time, newCursor time.Time, increment decimal.Decimal) (bool, error)
	ReducePrincipalFunc func(ctx context.Context, tx usecase.Transaction, id string, expected, deduction decimal.Decimal) (bool, error)
}

func NewMockPositionRepository(store *Store) *MockPositionRepository {
	return &MockPositionRepository{store: store}
}

func (m *MockPositionRepository) Create(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[position.ID] = clonePosition(position)
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.positions, position.ID)
	})
	return nil
}

func (m *MockPositionRepository) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	if p := m.store.Position(id); p != nil {
		return p, nil
	}
	return nil, domain.ErrPositionNotFound
}

func (m *MockPositionRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Position, error) {
	s := m.store
	s.mu.Lock()
	var out []*domain.Position
	for _, p := range s.positions {
		if p.AccountID == accountID {
			out = append(out, clonePosition(p))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockPositionRepository) ListOpenAfter(ctx context.Context, afterID string, limit int) ([]*domain.Position, error) {
	if m.ListOpenAfterFunc != nil {
		return m.ListOpenAfterFunc(ctx, afterID, limit)
	}
	s := m.store
	s.mu.Lock()
	var out []*domain.Position
	for _, p := range s.positions {
		if p.IsOpen() && p.ID > afterID {
			out = append(out, clonePosition(p))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockPositionRepository) AdvanceAccrual(ctx context.Context, id string, expectedCursor *time.Time, newCursor time.Time, increment decimal.Decimal) (bool, error) {
	if m.AdvanceAccrualFunc != nil {
		return m.AdvanceAccrualFunc(ctx, id, expectedCursor, newCursor, increment)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok || !p.IsOpen() || !sameCursor(p.AccrualCursor, expectedCursor) {
		return false, nil
	}
	p.AccruedReturn = p.AccruedReturn.Add(increment)
	p.AccrualCursor = &newCursor
	return true, nil
}

func (m *MockPositionRepository) ReducePrincipal(ctx context.Context, tx usecase.Transaction, id string, expected, deduction decimal.Decimal) (bool, error) {
	if m.ReducePrincipalFunc != nil {
		return m.ReducePrincipalFunc(ctx, tx, id, expected, deduction)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok || !p.IsOpen() || !p.Principal.Equal(expected) || deduction.GreaterThan(p.Principal) {
		return false, nil
	}
	prevStatus := p.Status
	p.Principal = p.Principal.Sub(deduction)
	if p.Principal.IsZero() {
		p.Status = domain.PositionStatusClosed
	}
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if p, ok := s.positions[id]; ok {
			p.Principal = p.Principal.Add(deduction)
			p.Status = prevStatus
		}
	})
	return true, nil
}

func (m *MockPositionRepository) RestorePrincipal(ctx context.Context, tx usecase.Transaction, id string, amount decimal.Decimal) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return domain.ErrPositionNotFound
	}
	prevStatus := p.Status
	p.Principal = p.Principal.Add(amount)
	if p.Principal.IsPositive() {
		p.Status = domain.PositionStatusOpen
	}
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if p, ok := s.positions[id]; ok {
			p.Principal = p.Principal.Sub(amount)
			p.Status = prevStatus
		}
	})
	return nil
}

func (m *MockPositionRepository) DeductAccrued(ctx context.Context, tx usecase.Transaction, shares []usecase.AccruedShare) (int64, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, share := range shares {
		p, ok := s.positions[share.PositionID]
		if !ok || p.AccruedReturn.LessThan(share.Amount) {
			continue
		}
		p.AccruedReturn = p.AccruedReturn.Sub(share.Amount)
		n++

		id, amount := share.PositionID, share.Amount
		onRollback(tx, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if p, ok := s.positions[id]; ok {
				p.AccruedReturn = p.AccruedReturn.Add(amount)
			}
		})
	}
	return n, nil
}

func sameCursor(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// MockEntryRepository is an in-memory EntryRepository keyed by reference.
type MockEntryRepository struct {
	store *Store

	InsertIfAbsentFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) (bool, *domain.LedgerEntry, error)
}

func NewMockEntryRepository(store *Store) *MockEntryRepository {
	return &MockEntryRepository{store: store}
}

func (m *MockEntryRepository) InsertIfAbsent(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) (bool, *domain.LedgerEntry, error) {
	if m.InsertIfAbsentFunc != nil {
		return m.InsertIfAbsentFunc(ctx, tx, entry)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[entry.Reference]; ok {
		return false, cloneEntry(existing), nil
	}
	s.entries[entry.Reference] = cloneEntry(entry)
	s.entryOrder = append(s.entryOrder, entry.Reference)

	ref := entry.Reference
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.entries, ref)
		for i, r := range s.entryOrder {
			if r == ref {
				s.entryOrder = append(s.entryOrder[:i], s.entryOrder[i+1:]...)
				break
			}
		}
	})
	return true, nil, nil
}

func (m *MockEntryRepository) GetByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[reference]; ok {
		return cloneEntry(e), nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	s := m.store
	s.mu.Lock()
	var out []*domain.LedgerEntry
	for i := len(s.entryOrder) - 1; i >= 0; i-- {
		e := s.entries[s.entryOrder[i]]
		if e.AccountID == accountID {
			out = append(out, cloneEntry(e))
		}
	}
	s.mu.Unlock()
	return page(out, limit, offset), nil
}

func (m *MockEntryRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, reference string, status domain.EntryStatus, chainTxHash *string, updatedAt time.Time) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[reference]
	if !ok {
		return domain.ErrEntryNotFound
	}
	if e.Status != domain.EntryStatusPending {
		return domain.ErrEntryNotPending
	}
	prev := cloneEntry(e)
	e.Status = status
	if chainTxHash != nil {
		h := *chainTxHash
		e.ChainTxHash = &h
	}
	e.UpdatedAt = updatedAt
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries[reference] = prev
	})
	return nil
}

// MockWithdrawalRepository is an in-memory WithdrawalRepository.
type MockWithdrawalRepository struct {
	store *Store

	TransitionFunc   func(ctx context.Context, tx usecase.Transaction, id string, status domain.WithdrawalStatus, processedBy string, chainTxHash *string, at time.Time) error
	RecordPayoutFunc func(ctx context.Context, id, txHash string) error
}

func NewMockWithdrawalRepository(store *Store) *MockWithdrawalRepository {
	return &MockWithdrawalRepository{store: store}
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, tx usecase.Transaction, withdrawal *domain.WithdrawalRequest) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *withdrawal
	s.withdrawals[withdrawal.ID] = &c
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.withdrawals, withdrawal.ID)
	})
	return nil
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	if w := m.store.Withdrawal(id); w != nil {
		return w, nil
	}
	return nil, domain.ErrWithdrawalNotFound
}

func (m *MockWithdrawalRepository) List(ctx context.Context, filter domain.WithdrawalFilter) ([]*domain.WithdrawalRequest, error) {
	s := m.store
	s.mu.Lock()
	var out []*domain.WithdrawalRequest
	for _, w := range s.withdrawals {
		if filter.AccountID != "" && w.AccountID != filter.AccountID {
			continue
		}
		if filter.Status != "" && w.Status != filter.Status {
			continue
		}
		c := *w
		out = append(out, &c)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.After(out[j].RequestedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func (m *MockWithdrawalRepository) AcquireProcessing(ctx context.Context, id string, now, staleBefore time.Time) (bool, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok || w.Status != domain.WithdrawalStatusPending {
		return false, nil
	}
	if w.LockedAt != nil && !w.LockedAt.Before(staleBefore) {
		return false, nil
	}
	w.LockedAt = &now
	return true, nil
}

func (m *MockWithdrawalRepository) ReleaseProcessing(ctx context.Context, id string) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.withdrawals[id]; ok {
		w.LockedAt = nil
	}
	return nil
}

func (m *MockWithdrawalRepository) RecordPayout(ctx context.Context, id, txHash string) error {
	if m.RecordPayoutFunc != nil {
		return m.RecordPayoutFunc(ctx, id, txHash)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return domain.ErrWithdrawalNotFound
	}
	if w.Status != domain.WithdrawalStatusPending {
		return domain.ErrWithdrawalNotPending
	}
	if w.ChainTxHash != nil && *w.ChainTxHash != txHash {
		return domain.ErrWithdrawalPaid
	}
	w.ChainTxHash = &txHash
	return nil
}

func (m *MockWithdrawalRepository) Transition(ctx context.Context, tx usecase.Transaction, id string, status domain.WithdrawalStatus, processedBy string, chainTxHash *string, at time.Time) error {
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, tx, id, status, processedBy, chainTxHash, at)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return domain.ErrWithdrawalNotFound
	}
	if w.Status != domain.WithdrawalStatusPending {
		return domain.ErrWithdrawalNotPending
	}
	if status == domain.WithdrawalStatusRejected && w.ChainTxHash != nil {
		return domain.ErrWithdrawalPaid
	}
	prev := *w
	w.Status = status
	w.ProcessedBy = &processedBy
	w.ChainTxHash = chainTxHash
	w.ProcessedAt = &at
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.withdrawals[id] = &prev
	})
	return nil
}

// MockLedgerRepository derives ledger totals from the store.
type MockLedgerRepository struct {
	store *Store

	CheckConsistencyFunc func(ctx context.Context) (decimal.Decimal, decimal.Decimal, error)
}

func NewMockLedgerRepository(store *Store) *MockLedgerRepository {
	return &MockLedgerRepository{store: store}
}

func (m *MockLedgerRepository) CheckConsistency(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	if m.CheckConsistencyFunc != nil {
		return m.CheckConsistencyFunc(ctx)
	}
	balances, logged := m.totals()
	totalBalance, totalLogged := decimal.Zero, decimal.Zero
	for _, b := range balances {
		totalBalance = totalBalance.Add(b)
	}
	for _, l := range logged {
		totalLogged = totalLogged.Add(l)
	}
	return totalBalance, totalLogged, nil
}

func (m *MockLedgerRepository) ListDiscrepancies(ctx context.Context, limit int) ([]usecase.AccountDiscrepancy, error) {
	balances, logged := m.totals()
	var out []usecase.AccountDiscrepancy
	for id, b := range balances {
		l := logged[id]
		if !b.Equal(l) {
			out = append(out, usecase.AccountDiscrepancy{AccountID: id, Balance: b, Logged: l})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockLedgerRepository) totals() (map[string]decimal.Decimal, map[string]decimal.Decimal) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	balances := make(map[string]decimal.Decimal, len(s.accounts))
	logged := make(map[string]decimal.Decimal, len(s.accounts))
	for id, a := range s.accounts {
		balances[id] = a.AvailableBalance
		logged[id] = decimal.Zero
	}
	for _, e := range s.entries {
		logged[e.AccountID] = logged[e.AccountID].Add(e.BalanceEffect())
	}
	return balances, logged
}

// MockOutboxRepository is an in-memory OutboxRepository.
type MockOutboxRepository struct {
	store *Store
}

func NewMockOutboxRepository(store *Store) *MockOutboxRepository {
	return &MockOutboxRepository{store: store}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, event)
	onRollback(tx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range s.outbox {
			if e == event {
				s.outbox = append(s.outbox[:i], s.outbox[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range s.outbox {
		if !e.Published {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.outbox {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.outbox[:0]
	for _, e := range s.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	s.outbox = kept
	return nil
}

// MockAuditRepository is an in-memory AuditRepository.
type MockAuditRepository struct {
	store *Store
}

func NewMockAuditRepository(store *Store) *MockAuditRepository {
	return &MockAuditRepository{store: store}
}

func (m *MockAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, log)
	return nil
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	s := m.store
	s.mu.Lock()
	var out []*domain.AuditLog
	for _, l := range s.audits {
		if filter.UserID != "" && l.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && l.ResourceType != filter.ResourceType {
			continue
		}
		if filter.ResourceID != "" && l.ResourceID != filter.ResourceID {
			continue
		}
		out = append(out, l)
	}
	s.mu.Unlock()
	return page(out, filter.Limit, filter.Offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
