// Package inscription holds the background expiry sweep for pending
// card registrations.
package inscription

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the part of the service the expirer drives.
type Sweeper interface {
	ExpirePendingInscriptions(ctx context.Context, olderThan time.Duration) (int, error)
}

// Expirer periodically expires PENDING inscriptions that were never
// finished. One sweep runs at startup so a restart does not postpone
// overdue expirations by a full interval.
type Expirer struct {
	log      *zap.Logger
	svc      Sweeper
	ttl      time.Duration
	interval time.Duration
}

func NewExpirer(log *zap.Logger, svc Sweeper, ttl, interval time.Duration) *Expirer {
	return &Expirer{log: log, svc: svc, ttl: ttl, interval: interval}
}

func (e *Expirer) Run(ctx context.Context) {
	e.log.Info("inscription expirer started",
		zap.Duration("pending_ttl", e.ttl),
		zap.Duration("interval", e.interval))

	e.sweep(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("inscription expirer stopped")
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *Expirer) sweep(ctx context.Context) {
	expired, err := e.svc.ExpirePendingInscriptions(ctx, e.ttl)
	if err != nil {
		e.log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		e.log.Info("expiry sweep finished", zap.Int("expired", expired))
	}
}
