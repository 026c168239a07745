package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/poolledger/internal/domain"
)

// PostgreSQL error codes for retryable errors.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
)

// Retrier implements usecase.Retrier with exponential backoff.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	retryable       func(error) bool
	logger          zerolog.Logger
}

// NewRetrier creates a retrier for deadlocks and serialization failures.
func NewRetrier() *Retrier {
	return &Retrier{
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     1 * time.Second,
		maxElapsedTime:  10 * time.Second,
		retryable:       isRetryableError,
		logger:          zerolog.Nop(),
	}
}

// NewSettlementRetrier creates the retrier used to record a settlement after
// money already moved. Any infrastructure error is retried; the entry
// reference makes repeated attempts safe.
func NewSettlementRetrier() *Retrier {
	return &Retrier{
		maxRetries:      8,
		initialInterval: 100 * time.Millisecond,
		maxInterval:     5 * time.Second,
		maxElapsedTime:  time.Minute,
		retryable:       isInfrastructureError,
		logger:          zerolog.Nop(),
	}
}

// WithLogger sets the logger used to report retries.
func (r *Retrier) WithLogger(logger zerolog.Logger) *Retrier {
	r.logger = logger
	return r
}

// Retry executes an operation with exponential backoff on retryable errors.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	retryCount := 0

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !r.retryable(err) {
			return backoff.Permanent(err)
		}

		retryCount++
		if retryCount > r.maxRetries {
			return backoff.Permanent(err)
		}

		r.logger.Warn().Err(err).Int("retry", retryCount).Msg("retryable database error, retrying")

		return err
	}, backoff.WithContext(b, ctx))
}

// isRetryableError checks if a PostgreSQL error should trigger a retry.
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure:
			return true
		}
	}
	return false
}

// permanentErrors are outcomes that repeating the operation cannot change.
var permanentErrors = []error{
	context.Canceled,
	context.DeadlineExceeded,
	domain.ErrConflict,
	domain.ErrInsufficientFunds,
	domain.ErrAccountNotFound,
	domain.ErrInvalidBalanceField,
	domain.ErrInvalidCategory,
	domain.ErrInvalidReference,
	domain.ErrInvalidAmount,
	domain.ErrReferenceCollision,
}

func isInfrastructureError(err error) bool {
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return false
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 23 is an integrity constraint violation.
		return len(pgErr.Code) < 2 || pgErr.Code[:2] != "23"
	}

	return true
}
