package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Settlement metrics
	SettlementsApplied   *prometheus.CounterVec
	SettlementsDuplicate *prometheus.CounterVec
	SettlementErrors     *prometheus.CounterVec

	// Accrual metrics
	AccrualTicks          prometheus.Counter
	AccrualTickDuration   prometheus.Histogram
	AccrualPositions      *prometheus.CounterVec
	AccrualInvariantClamp prometheus.Counter

	// Claim metrics
	Claims        *prometheus.CounterVec
	ClaimDuration prometheus.Histogram

	// Position metrics
	PositionsOpened prometheus.Counter
	Disinvestments  *prometheus.CounterVec
	SweepFailures   prometheus.Counter

	// Withdrawal metrics
	Withdrawals *prometheus.CounterVec

	// Listener metrics
	FeedEvents        *prometheus.CounterVec
	FeedEventsDropped *prometheus.CounterVec
	FeedReconnects    prometheus.Counter

	// External transfer metrics
	ChainTransfers        *prometheus.CounterVec
	ChainTransferDuration prometheus.Histogram

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxErrors    prometheus.Counter

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all Prometheus metrics registered on reg
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Settlement metrics
		SettlementsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_settlements_applied_total",
				Help: "Settlements that credited a balance, by category",
			},
			[]string{"category"},
		),
		SettlementsDuplicate: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_settlements_duplicate_total",
				Help: "Settlements skipped because the reference was already logged",
			},
			[]string{"category"},
		),
		SettlementErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_settlement_errors_total",
				Help: "Settlement failures by category",
			},
			[]string{"category"},
		),

		// Accrual metrics
		AccrualTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolledger_accrual_ticks_total",
			Help: "Total accrual ticks run",
		}),
		AccrualTickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "poolledger_accrual_tick_duration_seconds",
			Help:    "Duration of accrual ticks",
			Buckets: prometheus.DefBuckets,
		}),
		AccrualPositions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_accrual_positions_total",
				Help: "Positions processed by accrual, by outcome",
			},
			[]string{"outcome"},
		),
		AccrualInvariantClamp: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolledger_accrual_clamped_total",
			Help: "Accruals forced to zero because of invalid position data",
		}),

		// Claim metrics
		Claims: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_claims_total",
				Help: "Return claims by outcome",
			},
			[]string{"outcome"},
		),
		ClaimDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "poolledger_claim_duration_seconds",
			Help:    "Duration of return claims",
			Buckets: prometheus.DefBuckets,
		}),

		// Position metrics
		PositionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolledger_positions_opened_total",
			Help: "Total positions opened",
		}),
		Disinvestments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_disinvestments_total",
				Help: "Disinvestments by outcome",
			},
			[]string{"outcome"},
		),
		SweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolledger_sweep_failures_total",
			Help: "Failed sweeps of invested funds into the pool wallet",
		}),

		// Withdrawal metrics
		Withdrawals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_withdrawals_total",
				Help: "Withdrawal state changes by status",
			},
			[]string{"status"},
		),

		// Listener metrics
		FeedEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_feed_events_total",
				Help: "Transfer events received from the feed, by outcome",
			},
			[]string{"outcome"},
		),
		FeedEventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_feed_events_dropped_total",
				Help: "Transfer events the feed gave up on and will not redeliver, by reason",
			},
			[]string{"reason"},
		),
		FeedReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolledger_feed_reconnects_total",
			Help: "Event feed reconnect attempts",
		}),

		// External transfer metrics
		ChainTransfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_chain_transfers_total",
				Help: "External transfers by kind and status",
			},
			[]string{"kind", "status"},
		),
		ChainTransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "poolledger_chain_transfer_duration_seconds",
			Help:    "Time spent waiting on external transfers",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poolledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		// Outbox metrics
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolledger_outbox_published_total",
			Help: "Outbox events published",
		}),
		OutboxErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolledger_outbox_errors_total",
			Help: "Outbox publish failures",
		}),

		// Audit metrics
		AuditLogsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolledger_audit_logs_total",
				Help: "Total audit logs created",
			},
			[]string{"action", "status"},
		),
	}
}
