package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logx "almanac/pkg/logx"
)

func TestAddBeforeStartFails(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop())
	if err := s.AddInterval("tick", time.Second, 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("expected error before Start")
	}
}

func TestIntervalJobRuns(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Config{Workers: 1}, logx.Nop())
	s.Start(ctx)
	defer s.Stop()

	var runs atomic.Int64
	if err := s.AddInterval("tick", time.Second, 0, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("AddInterval: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("interval job never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestInvalidSpecRejected(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Config{}, logx.Nop())
	s.Start(ctx)
	defer s.Stop()

	if err := s.AddCron("bad", "not a spec", 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("invalid spec should be rejected")
	}
	if err := s.AddInterval("bad", 0, 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("non-positive interval should be rejected")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Config{}, logx.Nop())
	s.Start(ctx)
	s.Stop()
	s.Stop()
}
