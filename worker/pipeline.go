package worker

import (
	"context"
	"log/slog"
	"time"
)

// Pipeline runs the daily collect and enrich batch for the current UTC date,
// once at start and then every Interval.
type Pipeline struct {
	Run      func(ctx context.Context, date time.Time) error
	Interval time.Duration
	Now      func() time.Time // defaults to time.Now
}

func (w *Pipeline) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 24 * time.Hour
	}
	if w.Now == nil {
		w.Now = time.Now
	}

	// initial run
	w.runOnce(ctx)

	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Pipeline) runOnce(ctx context.Context) {
	y, m, d := w.Now().UTC().Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	partition := date.Format("20060102")

	started := time.Now()
	slog.Info("pipeline: run started", "partition", partition)
	if err := w.Run(ctx, date); err != nil {
		slog.Error("pipeline: run failed", "partition", partition, "error", err)
		return
	}
	slog.Info("pipeline: run completed", "partition", partition, "took", time.Since(started).Round(time.Second))
}
