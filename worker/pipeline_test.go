package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPipelineRunsImmediatelyAndOnInterval(t *testing.T) {
	var (
		mu    sync.Mutex
		dates []time.Time
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fixed := time.Date(2024, 7, 3, 23, 59, 0, 0, time.FixedZone("PDT", -7*3600))
	w := &Pipeline{
		Interval: 5 * time.Millisecond,
		Now:      func() time.Time { return fixed },
		Run: func(ctx context.Context, date time.Time) error {
			mu.Lock()
			defer mu.Unlock()
			dates = append(dates, date)
			if len(dates) == 3 {
				cancel()
			}
			return errors.New("failures do not stop the worker")
		},
	}
	done := make(chan error, 1)
	go func() { done <- NewManager(w).Start(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not run three times")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(dates) < 3 {
		t.Fatalf("runs = %d", len(dates))
	}
	want := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	if !dates[0].Equal(want) {
		t.Fatalf("date = %v, want %v", dates[0], want)
	}
}

type failingWorker struct{ err error }

func (f failingWorker) Start(ctx context.Context) error { return f.err }

func TestManagerReportsWorkerError(t *testing.T) {
	boom := errors.New("boom")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := NewManager(failingWorker{err: boom}).Start(ctx); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}

type blockingWorker struct{ stopped chan struct{} }

func (b blockingWorker) Start(ctx context.Context) error {
	<-ctx.Done()
	close(b.stopped)
	return nil
}

func TestManagerFailureStopsOtherWorkers(t *testing.T) {
	boom := errors.New("boom")
	other := blockingWorker{stopped: make(chan struct{})}

	done := make(chan error, 1)
	go func() { done <- NewManager(other, failingWorker{err: boom}).Start(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("want boom, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop after a worker failure")
	}
	select {
	case <-other.stopped:
	default:
		t.Fatal("sibling worker still running")
	}
}
