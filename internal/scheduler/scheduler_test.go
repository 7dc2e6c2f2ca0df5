package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/secondbrain/internal/testutil"
)

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(testutil.Logger(), Job{Name: "process", Spec: "every five minutes", Run: func(context.Context) {}})
	if err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestRunFiresJobsUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	s, err := New(testutil.Logger(), Job{
		Name: "tick",
		Spec: "@every 1s",
		Run:  func(context.Context) { runs.Add(1) },
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if n := runs.Load(); n < 1 {
		t.Errorf("job ran %d times", n)
	}
}

func TestRunSkipsOverlappingRuns(t *testing.T) {
	var (
		running atomic.Int32
		maxSeen atomic.Int32
	)
	s, err := New(testutil.Logger(), Job{
		Name: "slow",
		Spec: "@every 1s",
		Run: func(ctx context.Context) {
			n := running.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			select {
			case <-time.After(1500 * time.Millisecond):
			case <-ctx.Done():
			}
			running.Add(-1)
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if maxSeen.Load() != 1 {
		t.Errorf("concurrent runs = %d, want 1", maxSeen.Load())
	}
}
