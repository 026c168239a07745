package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
)

// ErrPoolUnderfunded is returned when the pool wallet reports less than the claim.
var ErrPoolUnderfunded = errors.New("pool wallet balance too low for payout")

// ClaimUseCase realizes a participant's accrued return into their available
// balance, one claim per account at a time.
type ClaimUseCase struct {
	accountRepo  AccountRepository
	positionRepo PositionRepository
	settlement   *SettlementUseCase
	transfers    TransferClient
	poolWallet   string
	decimals     int32
	lockTTL      time.Duration
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewClaimUseCase creates a new ClaimUseCase.
func NewClaimUseCase(
	accountRepo AccountRepository,
	positionRepo PositionRepository,
	settlement *SettlementUseCase,
	transfers TransferClient,
	poolWallet string,
	tokenDecimals int32,
	lockTTL time.Duration,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *ClaimUseCase {
	if lockTTL <= 0 {
		lockTTL = DefaultClaimLockTTL
	}
	if tokenDecimals < 0 {
		tokenDecimals = domain.DefaultTokenDecimals
	}
	return &ClaimUseCase{
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		settlement:   settlement,
		transfers:    transfers,
		poolWallet:   poolWallet,
		decimals:     tokenDecimals,
		lockTTL:      lockTTL,
		metrics:      metrics,
		logger:       logger.With().Str("component", "claim").Logger(),
	}
}

// ClaimResult describes a completed claim.
type ClaimResult struct {
	AccountID string
	Amount    decimal.Decimal
	Reference string
	Balance   decimal.Decimal
	Positions int
	Applied   bool
}

// Claim pays out the accrued return of every position of the account,
// truncated to the token's decimals. The remainder stays accrued. It fails with domain.ErrClaimInProgress while another claim holds the lock
// and with domain.ErrNothingToClaim when nothing has accrued.
func (uc *ClaimUseCase) Claim(ctx context.Context, accountID string) (*ClaimResult, error) {
	start := time.Now()
	result, err := uc.claim(ctx, accountID)
	if uc.metrics != nil {
		uc.metrics.Claims.WithLabelValues(claimOutcome(err)).Inc()
		uc.metrics.ClaimDuration.Observe(time.Since(start).Seconds())
	}
	return result, err
}

func (uc *ClaimUseCase) claim(ctx context.Context, accountID string) (*ClaimResult, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	locked, err := uc.accountRepo.AcquireClaimLock(ctx, accountID, now, now.Add(-uc.lockTTL))
	if err != nil {
		return nil, fmt.Errorf("acquire claim lock: %w", err)
	}
	if !locked {
		return nil, domain.ErrClaimInProgress
	}
	defer uc.unlock(ctx, accountID)

	positions, err := uc.positionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	shares, total := accruedShares(positions, uc.decimals)
	if !total.IsPositive() {
		return nil, domain.ErrNothingToClaim
	}

	if err := uc.checkPool(ctx, total); err != nil {
		return nil, err
	}

	txHash, err := uc.transfers.Transfer(ctx, account.DepositAddress, total, "claim:"+uuid.NewString())
	if err != nil {
		uc.logger.Error().Err(err).Str("account_id", accountID).Str("amount", total.String()).Msg("claim transfer failed")
		return nil, transferError(err)
	}

	settled, err := uc.settlement.Settle(ctx, SettleInput{
		AccountID:   accountID,
		Category:    domain.CategoryReturnClaim,
		Amount:      total,
		Reference:   txHash,
		ChainTxHash: txHash,
		Metadata:    map[string]any{"positions": len(shares)},
		OnApplied: func(ctx context.Context, tx Transaction) error {
			n, err := uc.positionRepo.DeductAccrued(ctx, tx, shares)
			if err != nil {
				return err
			}
			if n != int64(len(shares)) {
				uc.logger.Warn().
					Str("account_id", accountID).
					Int64("updated", n).
					Int("expected", len(shares)).
					Msg("some positions no longer covered their claimed share")
			}
			return nil
		},
	})
	if err != nil {
		uc.logger.Error().Err(err).
			Str("account_id", accountID).
			Str("tx_hash", txHash).
			Msg("claim transferred but settlement failed")
		return nil, err
	}

	uc.logger.Info().
		Str("account_id", accountID).
		Str("amount", total.String()).
		Str("tx_hash", txHash).
		Bool("applied", settled.Applied).
		Msg("return claimed")

	return &ClaimResult{
		AccountID: accountID,
		Amount:    total,
		Reference: txHash,
		Balance:   settled.Balance,
		Positions: len(shares),
		Applied:   settled.Applied,
	}, nil
}

// checkPool refuses the claim when the pool wallet reports too little. A
// client without balance support, or a failing query, does not block it.
func (uc *ClaimUseCase) checkPool(ctx context.Context, total decimal.Decimal) error {
	if uc.poolWallet == "" {
		return nil
	}
	balance, err := uc.transfers.BalanceOf(ctx, uc.poolWallet)
	if err != nil {
		if !errors.Is(err, domain.ErrBalanceUnsupported) {
			uc.logger.Warn().Err(err).Msg("pool balance check failed, continuing")
		}
		return nil
	}
	if balance.LessThan(total) {
		return fmt.Errorf("%w: have %s, need %s", ErrPoolUnderfunded, balance, total)
	}
	return nil
}

// unlock releases the claim lock even when ctx was cancelled.
func (uc *ClaimUseCase) unlock(ctx context.Context, accountID string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTransactionTimeout)
	defer cancel()
	if err := uc.accountRepo.ReleaseClaimLock(releaseCtx, accountID); err != nil {
		uc.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to release claim lock")
	}
}

func accruedShares(positions []*domain.Position, decimals int32) ([]AccruedShare, decimal.Decimal) {
	total := decimal.Zero
	var shares []AccruedShare
	for _, p := range positions {
		payable := p.AccruedReturn.Truncate(decimals)
		if !payable.IsPositive() {
			continue
		}
		shares = append(shares, AccruedShare{PositionID: p.ID, Amount: payable})
		total = total.Add(payable)
	}
	return shares, total
}

// transferError keeps the gateway's error chain and tags plain failures as
// domain.ErrTransferFailed.
func transferError(err error) error {
	if errors.Is(err, domain.ErrTransferFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
}

func claimOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrClaimInProgress):
		return "conflict"
	case errors.Is(err, domain.ErrNothingToClaim):
		return "empty"
	case errors.Is(err, domain.ErrTransferFailed):
		return "transfer_failed"
	default:
		return "error"
	}
}
