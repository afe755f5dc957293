package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"rendezvous/pkg/logger"
)

type fakeExpirer struct {
	calls atomic.Int32
	n     int
	err   error
}

func (f *fakeExpirer) ExpireStale(context.Context) (int, error) {
	f.calls.Add(1)
	return f.n, f.err
}

type fakeCloser struct {
	calls atomic.Int32
	n     int
}

func (f *fakeCloser) CloseExpired(context.Context) (int, error) {
	f.calls.Add(1)
	return f.n, nil
}

func TestSweep_ContinuesPastFailure(t *testing.T) {
	requests := &fakeExpirer{err: errors.New("mongo down")}
	polls := &fakeCloser{n: 2}
	s := New(requests, polls, time.Minute, logger.Nop())

	expired, closed := s.Sweep(context.Background())
	if expired != 0 || closed != 2 {
		t.Errorf("Sweep() = %d, %d, want 0, 2", expired, closed)
	}
	if polls.calls.Load() != 1 {
		t.Errorf("poll closer calls = %d, want 1", polls.calls.Load())
	}
}

func TestRun_SweepsUntilCancelled(t *testing.T) {
	requests := &fakeExpirer{n: 1}
	polls := &fakeCloser{}
	s := New(requests, polls, 5*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for requests.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("sweeps = %d, want at least 3", requests.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
