package dto

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/usecase"
)

func TestCreateAccountRequest_ToUseCaseInput(t *testing.T) {
	req := &CreateAccountRequest{
		ID:             "acct-1",
		Name:           "Alice",
		DepositAddress: "0x00000000000000000000000000000000000000aa",
	}

	got := req.ToUseCaseInput("admin-1")
	want := usecase.CreateAccountInput{
		ID:             "acct-1",
		Name:           "Alice",
		DepositAddress: "0x00000000000000000000000000000000000000aa",
		CreatedBy:      "admin-1",
	}

	if got != want {
		t.Fatalf("ToUseCaseInput() = %+v, want %+v", got, want)
	}
}

func TestInvestRequest_Decode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    decimal.Decimal
		wantErr bool
	}{
		{name: "string amount", body: `{"amount":"100.50","plan":"gold"}`, want: decimal.RequireFromString("100.50")},
		{name: "numeric amount", body: `{"amount":42}`, want: decimal.NewFromInt(42)},
		{name: "garbage amount", body: `{"amount":"abc"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req InvestRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			input := req.ToUseCaseInput("acct-1")
			if !input.Amount.Equal(tt.want) || input.AccountID != "acct-1" {
				t.Fatalf("unexpected input: %+v", input)
			}
		})
	}
}

func TestCreateWithdrawalRequest_ToUseCaseInput(t *testing.T) {
	req := &CreateWithdrawalRequest{
		Amount:      decimal.RequireFromString("5"),
		Destination: "0x00000000000000000000000000000000000000bb",
	}

	input := req.ToUseCaseInput("acct-2")
	if input.AccountID != "acct-2" || input.Destination != req.Destination || !input.Amount.Equal(req.Amount) {
		t.Fatalf("unexpected input: %+v", input)
	}
}
