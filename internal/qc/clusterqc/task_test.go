package clusterqc

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/hbook"

	"github.com/banshee-data/mftqc/internal/hits"
	"github.com/banshee-data/mftqc/internal/monitoring"
	"github.com/banshee-data/mftqc/internal/qc"
)

func quiet(t *testing.T) {
	t.Helper()
	logf := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = logf })
}

func TestMonitorData(t *testing.T) {
	quiet(t)
	task := New()
	require.NoError(t, task.Initialize())
	assert.Equal(t, 2, task.Objects().Len())

	task.MonitorData([]hits.Cluster{
		{SensorID: 400, PatternID: 7},
		{SensorID: 400, PatternID: 2047},
		{SensorID: 0, PatternID: 7},
		{SensorID: 936, PatternID: 1},
		{SensorID: 3, PatternID: 2048},
	})
	assert.Equal(t, uint64(2), task.Skipped())

	sensors, ok := task.Objects().Get(SensorIndexName)
	require.True(t, ok)
	h := sensors.Object.(*hbook.H1D)
	assert.Equal(t, int64(3), h.Entries())
	assert.Equal(t, 2.0, h.Binning.Bins[400].SumW())
	assert.Equal(t, 1.0, h.Binning.Bins[0].SumW())

	patterns, _ := task.Objects().Get(PatternIndexName)
	p := patterns.Object.(*hbook.H1D)
	assert.Equal(t, 2.0, p.Binning.Bins[7].SumW())
	assert.Equal(t, 1.0, p.Binning.Bins[2047].SumW())

	s := task.Summary()
	assert.Equal(t, 2, s.ActiveChips)
	assert.Equal(t, 1.5, s.OccupancyMean)

	task.Reset()
	sensors, _ = task.Objects().Get(SensorIndexName)
	assert.Equal(t, int64(0), sensors.Object.(*hbook.H1D).Entries())
	assert.Equal(t, uint64(0), task.Skipped())
	assert.Equal(t, 0, task.Summary().ActiveChips)
}

func TestCheckCyclesWithProbeCount(t *testing.T) {
	quiet(t)
	task := New()
	require.NoError(t, task.Initialize())
	check := Check{ProbeSensor: 400}
	assert.Equal(t, qc.TypeH1D, check.AcceptedType())

	want := []qc.Quality{qc.QualityMedium, qc.QualityBad, qc.QualityGood, qc.QualityMedium}
	assert.Equal(t, qc.QualityGood, check.Check(task.Objects().Map()), "empty probe bin")
	for i, w := range want {
		task.MonitorData([]hits.Cluster{{SensorID: 400, PatternID: 1}})
		assert.Equal(t, w, check.Check(task.Objects().Map()), "after %d clusters", i+1)
	}

	assert.Equal(t, qc.QualityNull, check.Check(nil))
	assert.Equal(t, qc.QualityNull, Check{ProbeSensor: -1}.Check(task.Objects().Map()))
}

func TestRunWithClusterReader(t *testing.T) {
	quiet(t)
	task := New()
	require.NoError(t, task.Initialize())

	input := "400 1\n400 2\n5 3\n400 4\n"
	var qualities []qc.Quality
	r := &qc.Runner[hits.Cluster]{
		Name:      TaskName,
		Task:      task,
		Check:     Check{ProbeSensor: 400},
		CycleSize: 2,
		OnCycle: func(_ qc.Activity, s qc.CycleSummary) error {
			qualities = append(qualities, s.Quality)
			return nil
		},
	}
	n, err := r.Run(context.Background(), qc.NewActivity(7), hits.NewClusterReader(strings.NewReader(input)))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []qc.Quality{qc.QualityBad, qc.QualityGood}, qualities)
}
