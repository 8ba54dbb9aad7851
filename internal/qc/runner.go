package qc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/mftqc/internal/monitoring"
)

// Source yields records in batches. ReadBatch returns io.EOF only when
// no record is left.
type Source[T any] interface {
	ReadBatch(n int) ([]T, error)
}

// Runner drives a DataTask through one activity: each batch of
// CycleSize records is one cycle, checked when the cycle ends.
type Runner[T any] struct {
	Name      string
	Task      DataTask[T]
	Check     Check
	CycleSize int

	// OnCycle, if set, receives every cycle summary. Returning an error
	// stops the run.
	OnCycle func(Activity, CycleSummary) error
}

// Run consumes src until it is exhausted or ctx is cancelled and returns
// the number of completed cycles.
func (r *Runner[T]) Run(ctx context.Context, act Activity, src Source[T]) (int, error) {
	if r.CycleSize <= 0 {
		return 0, fmt.Errorf("runner %s: cycle size must be positive, got %d", r.Name, r.CycleSize)
	}

	r.Task.StartOfActivity(act)
	monitoring.Logf("%s: start of activity %s (run %d)", r.Name, act.ID, act.RunNumber)

	cycles := 0
	for {
		if err := ctx.Err(); err != nil {
			r.Task.EndOfActivity(act)
			return cycles, err
		}

		batch, err := src.ReadBatch(r.CycleSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.Task.EndOfActivity(act)
			return cycles, fmt.Errorf("runner %s: cycle %d: %w", r.Name, cycles, err)
		}

		r.Task.StartOfCycle()
		r.Task.MonitorData(batch)
		r.Task.EndOfCycle()

		summary := CycleSummary{Cycle: cycles, Task: r.Name, Records: len(batch), Quality: QualityNull}
		if s, ok := r.Task.(Summarizer); ok {
			stats := s.Summary()
			summary.Skipped = stats.Skipped
			summary.ActiveChips = stats.ActiveChips
			summary.OccupancyMean = stats.OccupancyMean
			summary.OccupancyStdDev = stats.OccupancyStdDev
			summary.OccupancyMedian = stats.OccupancyMedian
		}
		if r.Check != nil {
			summary.Quality = r.Check.Check(r.Task.Objects().Map())
		}
		monitoring.Logf("%s: cycle %d records=%d skipped=%d quality=%s", r.Name, cycles, summary.Records, summary.Skipped, summary.Quality)

		if r.OnCycle != nil {
			if err := r.OnCycle(act, summary); err != nil {
				r.Task.EndOfActivity(act)
				return cycles, fmt.Errorf("runner %s: cycle %d: %w", r.Name, cycles, err)
			}
		}
		cycles++
	}

	r.Task.EndOfActivity(act)
	monitoring.Logf("%s: end of activity %s after %d cycles", r.Name, act.ID, cycles)
	return cycles, nil
}
