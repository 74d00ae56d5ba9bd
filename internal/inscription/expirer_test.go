package inscription

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) ExpirePendingInscriptions(context.Context, time.Duration) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

func TestExpirerSweepsOnStartAndTick(t *testing.T) {
	sweeper := &countingSweeper{}
	e := NewExpirer(zap.NewNop(), sweeper, time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for sweeper.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 sweeps, got %d", sweeper.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expirer did not stop on context cancel")
	}
}
