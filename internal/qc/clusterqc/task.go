// Package clusterqc counts MFT clusters per sensor and per pattern id.
package clusterqc

import (
	"sync/atomic"

	"go-hep.org/x/hep/hbook"

	"github.com/banshee-data/mftqc/internal/geometry"
	"github.com/banshee-data/mftqc/internal/hits"
	"github.com/banshee-data/mftqc/internal/monitoring"
	"github.com/banshee-data/mftqc/internal/qc"
)

const (
	TaskName = "QcMFTClusterTask"

	SensorIndexName  = "mMFTClusterSensorIndex"
	PatternIndexName = "mMFTClusterPatternIndex"

	// NumPatterns is the size of the cluster pattern dictionary.
	NumPatterns = 2048
)

// Task fills the sensor and pattern distributions of the clusters.
type Task struct {
	objects *qc.ObjectsManager
	sensors *hbook.H1D
	pattern *hbook.H1D

	// Per-sensor counts for the cycle summary.
	counts []float64
	// Clusters whose sensor or pattern falls outside the histogram range.
	skipped      atomic.Uint64
	cycleSkipped uint64
}

// New returns a task with empty histograms.
func New() *Task {
	t := &Task{objects: qc.NewObjectsManager(), counts: make([]float64, geometry.NumChips)}
	t.newHistograms()
	return t
}

func (t *Task) newHistograms() {
	t.sensors = hbook.NewH1D(geometry.NumChips, -0.5, geometry.NumChips-0.5)
	t.sensors.Ann["name"] = SensorIndexName
	t.pattern = hbook.NewH1D(NumPatterns, -0.5, NumPatterns-0.5)
	t.pattern.Ann["name"] = PatternIndexName
}

func (t *Task) Initialize() error {
	monitoring.Logf("%s: initialize", TaskName)
	if err := t.objects.StartPublishing(SensorIndexName, t.sensors); err != nil {
		return err
	}
	return t.objects.StartPublishing(PatternIndexName, t.pattern)
}

func (t *Task) StartOfActivity(act qc.Activity) {
	monitoring.Logf("%s: start of activity %s", TaskName, act.ID)
	t.Reset()
}

func (t *Task) StartOfCycle() {
	t.cycleSkipped = t.skipped.Load()
}

// MonitorData fills both distributions from batch.
func (t *Task) MonitorData(batch []hits.Cluster) {
	for _, c := range batch {
		if c.SensorID < 0 || c.SensorID >= geometry.NumChips || c.PatternID < 0 || c.PatternID >= NumPatterns {
			t.skipped.Add(1)
			continue
		}
		t.sensors.Fill(float64(c.SensorID), 1)
		t.pattern.Fill(float64(c.PatternID), 1)
		t.counts[c.SensorID]++
	}
}

func (t *Task) EndOfCycle() {}

func (t *Task) EndOfActivity(act qc.Activity) {
	monitoring.Logf("%s: end of activity %s", TaskName, act.ID)
}

// Reset clears both histograms.
func (t *Task) Reset() {
	monitoring.Logf("%s: resetting the histograms", TaskName)
	t.newHistograms()
	if _, ok := t.objects.Get(SensorIndexName); ok {
		_ = t.objects.Replace(SensorIndexName, t.sensors)
		_ = t.objects.Replace(PatternIndexName, t.pattern)
	}
	for i := range t.counts {
		t.counts[i] = 0
	}
	t.skipped.Store(0)
	t.cycleSkipped = 0
}

func (t *Task) Objects() *qc.ObjectsManager { return t.objects }

// Skipped returns the number of clusters dropped since the last reset.
func (t *Task) Skipped() uint64 { return t.skipped.Load() }

// Summary reports the clusters skipped in the current cycle and the
// per-sensor statistics accumulated since the last reset.
func (t *Task) Summary() qc.CycleSummary {
	s := qc.CycleSummary{Task: TaskName, Skipped: t.skipped.Load() - t.cycleSkipped}
	s.SummarizeCounts(t.counts)
	return s
}

// Check cycles through the qualities with the cluster count of the probe
// sensor: count mod 3 gives Good, Medium or Bad.
type Check struct {
	ProbeSensor int
}

func (c Check) AcceptedType() string { return qc.TypeH1D }

func (c Check) Check(objs map[string]qc.MonitorObject) qc.Quality {
	mo, ok := objs[SensorIndexName]
	if !ok {
		return qc.QualityNull
	}
	h, ok := mo.Object.(*hbook.H1D)
	if !ok || c.ProbeSensor < 0 || c.ProbeSensor >= len(h.Binning.Bins) {
		return qc.QualityNull
	}
	switch int(h.Binning.Bins[c.ProbeSensor].SumW()) % 3 {
	case 0:
		return qc.QualityGood
	case 1:
		return qc.QualityMedium
	default:
		return qc.QualityBad
	}
}
