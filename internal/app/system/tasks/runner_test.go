package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunner_RunsUntilStopped(t *testing.T) {
	var n atomic.Int32
	r := NewRunner(zap.NewNop(), Job{
		Name:     "count",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			n.Add(1)
			return nil
		},
	})
	r.Start()

	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	r.Stop()

	if n.Load() < 2 {
		t.Fatalf("expected at least 2 runs, got %d", n.Load())
	}
	after := n.Load()
	time.Sleep(30 * time.Millisecond)
	if n.Load() != after {
		t.Error("job kept running after Stop")
	}
}

func TestNewRunner_SkipsDisabled(t *testing.T) {
	r := NewRunner(zap.NewNop(),
		Job{Name: "off", Interval: 0, Run: func(context.Context) error { return nil }},
		Job{Name: "nil-run", Interval: time.Second},
		Job{Name: "on", Interval: time.Second, Run: func(context.Context) error { return nil }},
	)
	if len(r.jobs) != 1 || r.jobs[0].Name != "on" {
		t.Errorf("jobs = %+v, want only \"on\"", r.jobs)
	}
}

func TestRunOnce_LogsError(t *testing.T) {
	r := NewRunner(zap.NewNop())
	called := false
	r.RunOnce(Job{Name: "fail", Run: func(context.Context) error {
		called = true
		return errors.New("boom")
	}})
	if !called {
		t.Error("expected job to run")
	}
}

type countSweeper int

func (c countSweeper) Sweep(time.Time) int { return int(c) }

func TestRateLimitSweepJob(t *testing.T) {
	j := RateLimitSweepJob(zap.NewNop(), countSweeper(2), countSweeper(3))
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
