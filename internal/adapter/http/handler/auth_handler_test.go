package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/auth"
)

type accountLookupStub map[string]*domain.Account

func (s accountLookupStub) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func TestAuthHandler_IssueToken(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour, "poolledger")
	h := NewAuthHandler(manager, accountLookupStub{"acct-1": {ID: "acct-1"}})

	rec := httptest.NewRecorder()
	h.IssueToken(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"account_id":"acct-1"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp IssueTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.RoleInvestor, resp.Role)

	claims, err := manager.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.Principal().AccountID)
}

func TestAuthHandler_IssueTokenErrors(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour, "poolledger")
	h := NewAuthHandler(manager, accountLookupStub{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "unknown account", body: `{"account_id":"ghost"}`, want: http.StatusNotFound},
		{name: "missing account", body: `{}`, want: http.StatusBadRequest},
		{name: "bad role", body: `{"account_id":"ops","role":"root"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.IssueToken(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	h.IssueToken(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"account_id":"ops","role":"admin"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
}
