package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type countingResyncer struct {
	calls   atomic.Int32
	timeout atomic.Int64
}

func (c *countingResyncer) ResyncPending(_ context.Context, timeout time.Duration) int {
	c.calls.Add(1)
	c.timeout.Store(int64(timeout))
	return 1
}

func TestResyncWorker_Retries_On_Every_Tick(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	router := &countingResyncer{}
	worker := NewResyncWorker(log, router, 10*time.Millisecond, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool { return router.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	// Then the worker exits cleanly so the supervisor does not restart it
	req.NoError(<-done)
	req.Equal(int64(2*time.Second), router.timeout.Load())
}
