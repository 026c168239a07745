package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("printJSON: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("expected %q, got %q", expected, buf.String())
	}
}

func TestLedgerConsistency(t *testing.T) {
	t.Run("passes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/admin/consistency", r.URL.Path)
			assert.Equal(t, "admin", r.Header.Get("X-Account-ID"))
			assert.Equal(t, "admin", r.Header.Get("X-Role"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"consistent":true}`))
		}))
		defer srv.Close()

		out, err := runCLI(t, "--url", srv.URL, "ledger", "consistency")
		require.NoError(t, err)
		assert.Contains(t, out, "PASSED")
	})

	t.Run("fails on conflict", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"ledger inconsistent","message":"3 accounts differ"}`))
		}))
		defer srv.Close()

		_, err := runCLI(t, "--url", srv.URL, "ledger", "consistency")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FAILED")
		assert.Contains(t, err.Error(), "3 accounts differ")

		var apiErr *apiError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusConflict, apiErr.Status)
	})
}

func TestLedgerReconcile(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		_, _ = w.Write([]byte(`{"checked":2,"discrepancies":[]}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "ledger", "reconcile", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, `"checked": 2`)

	_, err = runCLI(t, "--url", srv.URL, "ledger", "reconcile", "acct-1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/v1/admin/reconciliation?limit=5",
		"/api/v1/admin/accounts/acct-1/reconciliation",
	}, paths)
}

func TestWithdrawalsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/withdrawals/", r.URL.Path)
		assert.Equal(t, "pending", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-Role"))
		_, _ = w.Write([]byte(`[{"id":"wd-1","account_id":"acct-1","amount":"12.5","destination":"0x00000000000000000000000000000000000000aa","status":"pending","requested_at":"2026-01-02T03:04:05Z"}]`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "--token", "tok", "withdrawals", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "wd-1")
	assert.Contains(t, lines[1], "12.5")
	assert.Contains(t, lines[1], "0x000000000...")
	assert.Contains(t, lines[1], "2026-01-02T03:04:05Z")
}

func TestWithdrawalsDispose(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		switch r.URL.Path {
		case "/api/v1/admin/withdrawals/wd-1/approve":
			_, _ = w.Write([]byte(`{"id":"wd-1","status":"approved"}`))
		case "/api/v1/admin/withdrawals/wd-1/reject":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"withdrawal already processed"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "withdrawals", "approve", "wd-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "approved"`)

	_, err = runCLI(t, "--url", srv.URL, "withdrawals", "reject", "wd-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already processed")

	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.NotEqual(t, keys[0], keys[1])
}

func TestAccountsCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/accounts/", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Alice", body["name"])
		assert.Equal(t, "0xabc", body["deposit_address"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"acct-1","name":"Alice"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "accounts", "create", "--name", "Alice", "--address", "0xabc")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "acct-1"`)

	_, err = runCLI(t, "--url", srv.URL, "accounts", "create", "--name", "Alice")
	require.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/tokens", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "acct-1", body["account_id"])
		assert.Equal(t, "investor", body["role"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"signed.jwt.value","account_id":"acct-1","role":"investor"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "token", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt.value\n", out)
}

func TestFaucet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/mints", r.URL.Path)
		assert.Equal(t, "Bearer gw-key", r.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Idempotency-Key"), "faucet:"))

		var body struct {
			To     string `json:"to"`
			Amount string `json:"amount"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0xabc", body.To)
		assert.Equal(t, "1500000", body.Amount)
		_, _ = w.Write([]byte(`{"tx_hash":"0xfeed","status":"confirmed"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "faucet", "0xabc", "1.5",
		"--gateway", srv.URL, "--gateway-key", "gw-key", "--decimals", "6")
	require.NoError(t, err)
	assert.Equal(t, "0xfeed\n", out)

	_, err = runCLI(t, "faucet", "0xabc", "lots", "--gateway", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid amount")
}

func TestAuditCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/audit-logs", r.URL.Path)
		assert.Equal(t, "withdrawal.approve", r.URL.Query().Get("action"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"id":"audit-1","action":"withdrawal.approve","status":"success"}]`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "audit", "--action", "withdrawal.approve", "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "audit-1"`)
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := runCLI(t, "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	_, err = runCLI(t, "migrate", "down", "--database-url", "postgres://localhost:1/none?sslmode=disable", "--path", t.TempDir()+"/missing")
	require.Error(t, err)
}
