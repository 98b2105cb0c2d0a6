package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/moynul/taptosell-server/internal/infrastructure/observability"
	"github.com/moynul/taptosell-server/internal/models"
)

// Sweeper periodically flips subscriptions past their end date from
// active to expired. Safe to run in multiple instances: SetStatus is a
// compare-and-set, so a losing sweeper sees the transition already
// applied and moves on.
type Sweeper struct {
	subscriptions SubscriptionService
	interval      time.Duration
	now           func() time.Time
}

func NewSweeper(subscriptions SubscriptionService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		subscriptions: subscriptions,
		interval:      interval,
		now:           time.Now,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	slog.Info("expiry sweeper started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass and returns the number of subscriptions it
// expired.
func (s *Sweeper) Sweep(ctx context.Context) int {
	now := s.now().UTC()
	expired, err := s.subscriptions.ListExpired(ctx, now)
	if err != nil {
		slog.Error("sweep failed to list expired subscriptions", "error", err)
		return 0
	}

	count := 0
	for _, sub := range expired {
		if err := s.subscriptions.SetStatus(ctx, sub.ID, models.SubStatusExpired); err != nil {
			slog.Error("sweep failed to expire subscription", "subscription_id", sub.ID, "error", err)
			continue
		}
		count++
		observability.SubscriptionsExpired.Inc()
	}

	if count > 0 {
		slog.Info("sweep expired subscriptions", "count", count)
	}
	return count
}
