package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
)

// MockIDGenerator generates sequential, sortable IDs.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("id-%06d", m.counter)
}

// MockRetrier retries any non-domain error up to MaxAttempts times.
type MockRetrier struct {
	MaxAttempts int

	mu       sync.Mutex
	Attempts int
}

func NewMockRetrier(maxAttempts int) *MockRetrier {
	return &MockRetrier{MaxAttempts: maxAttempts}
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	var err error
	for i := 0; i < m.MaxAttempts; i++ {
		m.mu.Lock()
		m.Attempts++
		m.mu.Unlock()

		err = operation()
		if err == nil || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInsufficientFunds) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// MockCache is an in-memory Cache that ignores TTLs.
type MockCache struct {
	mu   sync.Mutex
	data map[string][]byte

	GetFunc func(ctx context.Context, key string) ([]byte, error)
	Gets    int
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	m.Gets++
	m.mu.Unlock()
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns the cached keys.
func (m *MockCache) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// MockPlanCatalog serves a fixed set of plans.
type MockPlanCatalog struct {
	Plans       map[string]domain.Plan
	DefaultPlan domain.Plan
}

func NewMockPlanCatalog(plans ...domain.Plan) *MockPlanCatalog {
	c := &MockPlanCatalog{
		Plans: make(map[string]domain.Plan),
		DefaultPlan: domain.Plan{
			Name:      "standard",
			DailyRate: decimal.RequireFromString("0.01"),
			MinAmount: decimal.Zero,
		},
	}
	for _, p := range plans {
		c.Plans[p.Name] = p
	}
	return c
}

func (m *MockPlanCatalog) Get(name string) (domain.Plan, bool) {
	if name == m.DefaultPlan.Name {
		return m.DefaultPlan, true
	}
	p, ok := m.Plans[name]
	return p, ok
}

func (m *MockPlanCatalog) Default() domain.Plan {
	return m.DefaultPlan
}
