package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
)

// AccrualConfig tunes the accrual engine.
type AccrualConfig struct {
	Period    time.Duration
	BatchSize int
	Workers   int
}

// AccrualUseCase advances the accrued return of every open position.
type AccrualUseCase struct {
	positionRepo PositionRepository
	entryRepo    EntryRepository
	idGen        IDGenerator
	cfg          AccrualConfig
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewAccrualUseCase creates a new AccrualUseCase.
func NewAccrualUseCase(
	positionRepo PositionRepository,
	entryRepo EntryRepository,
	idGen IDGenerator,
	cfg AccrualConfig,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *AccrualUseCase {
	if cfg.Period <= 0 {
		cfg.Period = DefaultAccrualPeriod
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultAccrualBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultAccrualWorkers
	}
	return &AccrualUseCase{
		positionRepo: positionRepo,
		entryRepo:    entryRepo,
		idGen:        idGen,
		cfg:          cfg,
		metrics:      metrics,
		logger:       logger.With().Str("component", "accrual").Logger(),
	}
}

// TickResult summarizes one accrual pass.
type TickResult struct {
	Processed int
	Advanced  int
	Unchanged int
	Skipped   int
	Failed    int
	Clamped   int
	Accrued   decimal.Decimal
}

type accrualOutcome int

const (
	outcomeAdvanced accrualOutcome = iota
	outcomeUnchanged
	outcomeSkipped
	outcomeFailed
)

func (o accrualOutcome) String() string {
	switch o {
	case outcomeAdvanced:
		return "advanced"
	case outcomeUnchanged:
		return "unchanged"
	case outcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Tick runs one accrual pass using the current time.
func (uc *AccrualUseCase) Tick(ctx context.Context) (TickResult, error) {
	return uc.TickAt(ctx, time.Now().UTC())
}

// TickAt runs one accrual pass as of now. A failure on one position is
// logged and never stops the others. Only a failure to list positions
// aborts the pass.
func (uc *AccrualUseCase) TickAt(ctx context.Context, now time.Time) (TickResult, error) {
	start := time.Now()
	result := TickResult{Accrued: decimal.Zero}
	var mu sync.Mutex

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		positions, err := uc.positionRepo.ListOpenAfter(ctx, afterID, uc.cfg.BatchSize)
		if err != nil {
			uc.logger.Error().Err(err).Str("after_id", afterID).Msg("failed to list open positions")
			return result, err
		}
		if len(positions) == 0 {
			break
		}

		g := new(errgroup.Group)
		g.SetLimit(uc.cfg.Workers)
		for _, p := range positions {
			g.Go(func() error {
				outcome, acc := uc.accruePosition(ctx, p, now)

				mu.Lock()
				defer mu.Unlock()
				result.Processed++
				if acc.Clamped {
					result.Clamped++
				}
				switch outcome {
				case outcomeAdvanced:
					result.Advanced++
					result.Accrued = result.Accrued.Add(acc.Increment)
				case outcomeUnchanged:
					result.Unchanged++
				case outcomeSkipped:
					result.Skipped++
				case outcomeFailed:
					result.Failed++
				}
				return nil
			})
		}
		_ = g.Wait()

		afterID = positions[len(positions)-1].ID
		if len(positions) < uc.cfg.BatchSize {
			break
		}
	}

	if uc.metrics != nil {
		uc.metrics.AccrualTicks.Inc()
		uc.metrics.AccrualTickDuration.Observe(time.Since(start).Seconds())
	}

	uc.logger.Debug().
		Int("processed", result.Processed).
		Int("advanced", result.Advanced).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Str("accrued", result.Accrued.String()).
		Msg("accrual tick finished")

	return result, nil
}

func (uc *AccrualUseCase) accruePosition(ctx context.Context, p *domain.Position, now time.Time) (accrualOutcome, domain.Accrual) {
	acc := p.ComputeAccrual(now, uc.cfg.Period)
	outcome := uc.applyAccrual(ctx, p, acc)
	if uc.metrics != nil {
		uc.metrics.AccrualPositions.WithLabelValues(outcome.String()).Inc()
		if acc.Clamped {
			uc.metrics.AccrualInvariantClamp.Inc()
		}
	}
	return outcome, acc
}

func (uc *AccrualUseCase) applyAccrual(ctx context.Context, p *domain.Position, acc domain.Accrual) accrualOutcome {
	if acc.Clamped {
		uc.logger.Warn().
			Str("position_id", p.ID).
			Str("principal", p.Principal.String()).
			Str("rate", p.Rate.String()).
			Msg("invalid position data, accruing zero")
	}

	if !acc.Advances() {
		return outcomeUnchanged
	}

	ok, err := uc.positionRepo.AdvanceAccrual(ctx, p.ID, acc.ExpectedCursor, acc.NewCursor, acc.Increment)
	if err != nil {
		uc.logger.Error().Err(err).Str("position_id", p.ID).Msg("failed to advance accrual")
		return outcomeFailed
	}
	if !ok {
		// Another worker advanced the cursor or the position closed.
		uc.logger.Debug().Str("position_id", p.ID).Msg("accrual cursor moved, skipping position")
		return outcomeSkipped
	}

	if acc.Increment.IsPositive() {
		uc.recordAccrual(ctx, p, acc)
	}
	return outcomeAdvanced
}

// recordAccrual appends the audit entry for an applied accrual. The position
// row is authoritative, so a failure here is only logged.
func (uc *AccrualUseCase) recordAccrual(ctx context.Context, p *domain.Position, acc domain.Accrual) {
	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:        uc.idGen.Generate(),
		AccountID: p.AccountID,
		Reference: domain.AccrualReference(p.ID, acc.NewCursor),
		Category:  domain.CategoryReturnAccrual,
		Amount:    acc.Increment,
		Status:    domain.EntryStatusConfirmed,
		Metadata:  map[string]any{"position_id": p.ID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, _, err := uc.entryRepo.InsertIfAbsent(ctx, nil, entry); err != nil {
		uc.logger.Warn().Err(err).Str("position_id", p.ID).Msg("failed to record accrual entry")
	}
}
