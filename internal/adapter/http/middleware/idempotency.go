package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/poolledger/internal/adapter/repository/redis"
	"github.com/iho/poolledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader  = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
)

// IdempotencyMiddleware replays the stored response of a POST that carries
// an Idempotency-Key seen before. Keys are scoped to the caller and route.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// cachedResponse is what is stored per key.
type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, logger zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, logger: logger}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > 255 {
			writeError(w, http.StatusBadRequest, "idempotency key too long")
			return
		}
		scoped := scopeKey(r, key)

		exists, stored, err := m.store.CheckAndSet(r.Context(), scoped, nil, m.ttl)
		if err != nil {
			m.logger.Error().Err(err).Msg("idempotency check failed")
			writeError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}

		if exists {
			if len(stored) == 0 || string(stored) == redis.ProcessingMarker {
				writeError(w, http.StatusConflict, "request with this idempotency key is in progress")
				return
			}
			var cached cachedResponse
			if err := json.Unmarshal(stored, &cached); err != nil || cached.Status == 0 {
				writeError(w, http.StatusInternalServerError, "corrupt idempotency record")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Idempotency-Replay", "true")
			w.WriteHeader(cached.Status)
			_, _ = w.Write(cached.Body)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		// The client may be gone; the record must still be finalized.
		ctx := context.WithoutCancel(r.Context())
		if recorder.statusCode >= 200 && recorder.statusCode < 300 && json.Valid(recorder.body.Bytes()) {
			data, _ := json.Marshal(cachedResponse{Status: recorder.statusCode, Body: recorder.body.Bytes()})
			if err := m.store.Update(ctx, scoped, data, m.ttl); err != nil {
				m.logger.Error().Err(err).Msg("failed to store idempotent response")
			}
			return
		}
		if err := m.store.Release(ctx, scoped); err != nil {
			m.logger.Error().Err(err).Msg("failed to release idempotency key")
		}
	})
}

func scopeKey(r *http.Request, key string) string {
	caller := "anonymous"
	if p, ok := PrincipalFromContext(r.Context()); ok {
		caller = p.AccountID
	}
	return caller + ":" + r.Method + ":" + r.URL.Path + ":" + key
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
