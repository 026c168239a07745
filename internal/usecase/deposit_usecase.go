package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
)

const addressCachePrefix = "address:"

// DepositListener credits inbound token transfers exactly once. Exactly-once
// comes from settling each event under its chain transaction hash.
type DepositListener struct {
	accountRepo AccountRepository
	cache       Cache
	cacheTTL    time.Duration
	settlement  *SettlementUseCase
	internal    []string
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewDepositListener creates a new DepositListener. Transfers sent from any
// of internalAddresses are system plumbing and never credited.
func NewDepositListener(
	accountRepo AccountRepository,
	cache Cache,
	cacheTTL time.Duration,
	settlement *SettlementUseCase,
	internalAddresses []string,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *DepositListener {
	if cacheTTL <= 0 {
		cacheTTL = DefaultAddressCacheTTL
	}
	internal := make([]string, 0, len(internalAddresses))
	for _, a := range internalAddresses {
		if a != "" {
			internal = append(internal, domain.NormalizeAddress(a))
		}
	}
	return &DepositListener{
		accountRepo: accountRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		settlement:  settlement,
		internal:    internal,
		metrics:     metrics,
		logger:      logger.With().Str("component", "deposit_listener").Logger(),
	}
}

// Run consumes feed until ctx is cancelled.
func (l *DepositListener) Run(ctx context.Context, feed EventFeed) error {
	l.logger.Info().Msg("deposit listener started")
	err := feed.Run(ctx, l.HandleTransfer)
	if err != nil && !errors.Is(err, context.Canceled) {
		l.logger.Error().Err(err).Msg("deposit listener stopped")
		return err
	}
	l.logger.Info().Msg("deposit listener stopped")
	return nil
}

// HandleTransfer settles one observed transfer. Events that are not user
// deposits are acknowledged and dropped. A returned error means the event
// should be redelivered.
func (l *DepositListener) HandleTransfer(ctx context.Context, event TransferEvent) error {
	log := l.logger.With().
		Str("reference", event.Reference).
		Str("from", event.From).
		Str("to", event.To).
		Logger()

	if l.isInternal(event.From) {
		l.count("internal")
		log.Debug().Msg("ignoring transfer from internal wallet")
		return nil
	}
	if !event.Amount.IsPositive() {
		l.count("invalid")
		log.Debug().Msg("ignoring non-positive transfer")
		return nil
	}
	if err := domain.ValidateReference(event.Reference); err != nil {
		l.count("invalid")
		log.Warn().Err(err).Msg("ignoring transfer without reference")
		return nil
	}

	account, err := l.resolve(ctx, event.To)
	if errors.Is(err, domain.ErrAccountNotFound) {
		l.count("unknown_address")
		log.Debug().Msg("ignoring transfer to unknown address")
		return nil
	}
	if err != nil {
		l.count("error")
		return err
	}

	result, err := l.settlement.Settle(ctx, SettleInput{
		AccountID:   account.ID,
		Category:    domain.CategoryDeposit,
		Amount:      event.Amount,
		Reference:   event.Reference,
		ChainTxHash: event.Reference,
		Metadata:    map[string]any{"from": event.From, "to": event.To, "block": event.Block},
	})
	if err != nil {
		l.count("error")
		log.Error().Err(err).Msg("failed to settle deposit")
		return err
	}

	if result.Applied {
		l.count("credited")
		log.Info().Str("account_id", account.ID).Str("amount", event.Amount.String()).Msg("deposit credited")
	} else {
		l.count("duplicate")
		log.Debug().Msg("deposit already settled")
	}
	return nil
}

func (l *DepositListener) isInternal(address string) bool {
	for _, a := range l.internal {
		if domain.SameAddress(a, address) {
			return true
		}
	}
	return false
}

// resolve maps a deposit address to its account, caching the account id.
// Cache failures fall through to the repository.
func (l *DepositListener) resolve(ctx context.Context, address string) (*domain.Account, error) {
	key := addressCachePrefix + domain.NormalizeAddress(address)

	if l.cache != nil {
		if id, err := l.cache.Get(ctx, key); err == nil && len(id) > 0 {
			account, err := l.accountRepo.GetByID(ctx, string(id))
			if err == nil {
				return account, nil
			}
			l.logger.Debug().Err(err).Str("address", address).Msg("cached account lookup failed")
		}
	}

	account, err := l.accountRepo.GetByDepositAddress(ctx, domain.NormalizeAddress(address))
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, key, []byte(account.ID), l.cacheTTL); err != nil {
			l.logger.Debug().Err(err).Msg("failed to cache address lookup")
		}
	}
	return account, nil
}

func (l *DepositListener) count(outcome string) {
	if l.metrics != nil {
		l.metrics.FeedEvents.WithLabelValues(outcome).Inc()
	}
}
