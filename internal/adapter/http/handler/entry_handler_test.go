package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/poolledger/internal/adapter/http/dto"
	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
)

type entryServiceStub struct {
	listInput usecase.GetEntriesByAccountInput
	entries   map[string]*domain.LedgerEntry
}

func (s *entryServiceStub) GetEntriesByAccount(ctx context.Context, input usecase.GetEntriesByAccountInput) ([]*domain.LedgerEntry, error) {
	s.listInput = input
	var out []*domain.LedgerEntry
	for _, e := range s.entries {
		if e.AccountID == input.AccountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *entryServiceStub) GetEntryByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error) {
	e, ok := s.entries[reference]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return e, nil
}

func newEntryStub() *entryServiceStub {
	return &entryServiceStub{entries: map[string]*domain.LedgerEntry{
		"0xabc:0": {
			ID:        "e1",
			AccountID: "acct-1",
			Reference: "0xabc:0",
			Category:  domain.CategoryDeposit,
			Amount:    decimal.NewFromInt(50),
			Status:    domain.EntryStatusConfirmed,
		},
	}}
}

func TestEntryHandler_MyEntries(t *testing.T) {
	stub := newEntryStub()
	rec := httptest.NewRecorder()
	NewEntryHandler(stub).MyEntries(rec, asInvestor(httptest.NewRequest(http.MethodGet, "/api/v1/me/entries?limit=7", nil), "acct-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, stub.listInput.Limit)

	var resp []dto.EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "deposit", resp[0].Category)
}

func TestEntryHandler_GetByReference(t *testing.T) {
	h := NewEntryHandler(newEntryStub())

	rec := httptest.NewRecorder()
	h.GetByReference(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "reference", "0xabc:0"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reference":"0xabc:0"`)

	rec = httptest.NewRecorder()
	h.GetByReference(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "reference", "nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
