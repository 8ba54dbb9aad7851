package qc

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CycleSummary is the record of one finished cycle. Records and Skipped
// count the cycle's own records.
type CycleSummary struct {
	Cycle   int
	Task    string
	Quality Quality
	Records int
	Skipped uint64

	// Statistics over the per-chip counts of the chips with at least one
	// record since the start of the activity.
	ActiveChips     int
	OccupancyMean   float64
	OccupancyStdDev float64
	OccupancyMedian float64
}

// SummarizeCounts fills the occupancy statistics of s from per-chip
// counts. Zero counts are ignored.
func (s *CycleSummary) SummarizeCounts(counts []float64) {
	active := make([]float64, 0, len(counts))
	for _, c := range counts {
		if c > 0 {
			active = append(active, c)
		}
	}
	s.ActiveChips = len(active)
	s.OccupancyMean, s.OccupancyStdDev, s.OccupancyMedian = 0, 0, 0
	if len(active) == 0 {
		return
	}
	sort.Float64s(active)
	s.OccupancyMean = stat.Mean(active, nil)
	s.OccupancyMedian = stat.Quantile(0.5, stat.Empirical, active, nil)
	if len(active) > 1 {
		if sd := stat.StdDev(active, nil); !math.IsNaN(sd) {
			s.OccupancyStdDev = sd
		}
	}
}
