package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultAccrualPeriod is the length of the period a position's rate applies to
	DefaultAccrualPeriod = 24 * time.Hour

	// DefaultAccrualBatchSize is how many open positions are loaded per page during a tick
	DefaultAccrualBatchSize = 500

	// DefaultAccrualWorkers bounds concurrent position updates within a tick
	DefaultAccrualWorkers = 8

	// DefaultClaimLockTTL is how long a claim lock is honoured before it may be taken over
	DefaultClaimLockTTL = 10 * time.Minute

	// DefaultWithdrawalLockTTL is how long a disposition holds a withdrawal
	DefaultWithdrawalLockTTL = 10 * time.Minute

	// DefaultAddressCacheTTL is how long address lookups are cached
	DefaultAddressCacheTTL = time.Hour

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// SystemActor is recorded as the actor of unattended actions
	SystemActor = "system"
)
