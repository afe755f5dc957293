// Package sweeper moves time-driven state forward: pending booking requests whose token lapsed
// become expired and polls past their deadline close.
package sweeper

import (
	"context"
	"time"

	"rendezvous/pkg/logger"
)

type RequestExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

type PollCloser interface {
	CloseExpired(ctx context.Context) (int, error)
}

type Sweeper struct {
	requests RequestExpirer
	polls    PollCloser
	interval time.Duration
	log      *logger.Logger
}

func New(requests RequestExpirer, polls PollCloser, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		requests: requests,
		polls:    polls,
		interval: interval,
		log:      log,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("Expiry sweeper started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Sweep(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass. A failing half is logged and does not stop the other.
func (s *Sweeper) Sweep(ctx context.Context) (expired, closed int) {
	expired, err := s.requests.ExpireStale(ctx)
	if err != nil {
		s.log.Error("Failed to expire booking requests", "error", err)
	}
	closed, err = s.polls.CloseExpired(ctx)
	if err != nil {
		s.log.Error("Failed to close polls past deadline", "error", err)
	}
	return expired, closed
}
