package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, zerolog.Nop())
	ran := make(chan struct{}, 1)
	require.NoError(t, s.Register("tick", "* * * * * *", func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))

	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, zerolog.Nop())
	var running, maxRunning atomic.Int32
	require.NoError(t, s.Register("slow", "* * * * * *", func(ctx context.Context) error {
		n := running.Add(1)
		defer running.Add(-1)
		if n > maxRunning.Load() {
			maxRunning.Store(n)
		}
		time.Sleep(2500 * time.Millisecond)
		return errors.New("slow job done")
	}))

	s.Start()
	time.Sleep(4 * time.Second)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	s.Stop(stopCtx)

	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := New(context.Background(), zerolog.Nop())
	err := s.Register("bad", "every minute", func(context.Context) error { return nil })
	assert.ErrorContains(t, err, "register bad job")
}

func TestSchedulerSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(ctx, zerolog.Nop())
	var calls atomic.Int32
	s.wrap("noop", func(context.Context) error {
		calls.Add(1)
		return nil
	})()
	assert.Zero(t, calls.Load())
}
