package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValidateAccountName(t *testing.T) {
	t.Parallel()

	t.Run("valid name", func(t *testing.T) {
		if err := ValidateAccountName("Alice"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := ValidateAccountName("   ")
		if !errors.Is(err, ErrInvalidAccountName) {
			t.Fatalf("expected ErrInvalidAccountName, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxAccountNameLength+1)
		err := ValidateAccountName(tooLong)
		if !errors.Is(err, ErrInvalidAccountName) {
			t.Fatalf("expected ErrInvalidAccountName, got %v", err)
		}
	})
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	if err := ValidateAmount(decimal.NewFromFloat(100.25)); err != nil {
		t.Fatalf("expected valid amount, got %v", err)
	}

	if err := ValidateAmount(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}

	if err := ValidateAmount(decimal.RequireFromString("0.0000001")); !errors.Is(err, ErrAmountTooSmall) {
		t.Fatalf("expected ErrAmountTooSmall, got %v", err)
	}

	huge := decimal.RequireFromString(MaxAmount).Add(decimal.NewFromInt(1))
	if err := ValidateAmount(huge); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestValidatePrecision(t *testing.T) {
	t.Parallel()

	if err := ValidatePrecision(decimal.RequireFromString("30.123456"), 6); err != nil {
		t.Fatalf("expected six decimals to pass, got %v", err)
	}
	if err := ValidatePrecision(decimal.NewFromInt(30), 0); err != nil {
		t.Fatalf("expected whole amount to pass, got %v", err)
	}
	if err := ValidatePrecision(decimal.RequireFromString("30.1234567"), 6); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for seven decimals, got %v", err)
	}
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	if err := ValidateAddress("0x52908400098527886E0F7030069857D2E4169EE7"); err != nil {
		t.Fatalf("expected valid address, got %v", err)
	}

	for _, bad := range []string{"", "0x123", "52908400098527886E0F7030069857D2E4169EE7", "0xZZ908400098527886E0F7030069857D2E4169EE7"} {
		if err := ValidateAddress(bad); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("expected ErrInvalidAddress for %q, got %v", bad, err)
		}
	}
}

func TestValidateReference(t *testing.T) {
	t.Parallel()

	if err := ValidateReference("0xabc"); err != nil {
		t.Fatalf("expected valid reference, got %v", err)
	}
	if err := ValidateReference(" "); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if err := ValidateReference(strings.Repeat("r", MaxReferenceLength+1)); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for long reference, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset := ValidatePagination(0, -5)
	if limit != 50 || offset != 0 {
		t.Fatalf("expected defaults (50,0), got (%d,%d)", limit, offset)
	}

	limit, _ = ValidatePagination(5000, 0)
	if limit != 1000 {
		t.Fatalf("expected limit capped at 1000, got %d", limit)
	}
}

func TestLedgerEntry_BalanceEffect(t *testing.T) {
	t.Parallel()

	amount := decimal.NewFromInt(10)
	cases := map[EntryCategory]decimal.Decimal{
		CategoryDeposit:       amount,
		CategoryReturnClaim:   amount,
		CategoryDisinvestment: amount,
		CategoryInvestment:    amount.Neg(),
		CategoryWithdrawal:    amount.Neg(),
		CategoryReturnAccrual: decimal.Zero,
	}
	for category, want := range cases {
		e := &LedgerEntry{Category: category, Amount: amount, Status: EntryStatusConfirmed}
		if got := e.BalanceEffect(); !got.Equal(want) {
			t.Errorf("%s: got %s, want %s", category, got, want)
		}
	}

	failed := &LedgerEntry{Category: CategoryWithdrawal, Amount: amount, Status: EntryStatusFailed}
	if !failed.BalanceEffect().IsZero() {
		t.Error("failed entries must have no balance effect")
	}
}

func TestAccrualReference_Stable(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC)
	if AccrualReference("p1", ts) != AccrualReference("p1", ts) {
		t.Fatal("reference must be deterministic")
	}
	if AccrualReference("p1", ts) == AccrualReference("p1", ts.Add(time.Microsecond)) {
		t.Fatal("distinct cursors must yield distinct references")
	}
}
