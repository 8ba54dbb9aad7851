package qc

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/hbook"

	"github.com/banshee-data/mftqc/internal/monitoring"
)

func TestQualityString(t *testing.T) {
	tests := []struct {
		q    Quality
		want string
	}{
		{QualityNull, "Null"},
		{QualityGood, "Good"},
		{QualityMedium, "Medium"},
		{QualityBad, "Bad"},
		{Quality(9), "Quality(9)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.q.String())
	}

	for _, q := range []Quality{QualityNull, QualityGood, QualityMedium, QualityBad} {
		got, err := ParseQuality(q.String())
		require.NoError(t, err)
		assert.Equal(t, q, got)
	}
	_, err := ParseQuality("Purple")
	assert.Error(t, err)
}

func TestObjectsManager(t *testing.T) {
	m := NewObjectsManager()
	h1 := hbook.NewH1D(10, 0, 10)
	h2 := hbook.NewH2D(4, 0, 4, 2, 0, 2)

	require.NoError(t, m.StartPublishing("a", h1))
	require.NoError(t, m.StartPublishing("b", h2))
	assert.ErrorIs(t, m.StartPublishing("a", h1), ErrAlreadyPublished)
	assert.Equal(t, 2, m.Len())

	mo, ok := m.Get("b")
	require.True(t, ok)
	assert.Equal(t, TypeH2D, mo.TypeName())
	mo, _ = m.Get("a")
	assert.Equal(t, TypeH1D, mo.TypeName())

	var names []string
	for _, o := range m.Objects() {
		names = append(names, o.Name)
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("publishing order (-want +got):\n%s", diff)
	}

	other := hbook.NewH1D(5, 0, 5)
	require.NoError(t, m.Replace("a", other))
	mo, _ = m.Get("a")
	assert.Same(t, other, mo.Object)
	assert.ErrorIs(t, m.Replace("zzz", other), ErrNotPublished)

	m.StopPublishing("a")
	m.StopPublishing("never")
	_, ok = m.Get("a")
	assert.False(t, ok)
	assert.Len(t, m.Map(), 1)
	assert.Len(t, m.Objects(), 1)
}

func TestNewActivity(t *testing.T) {
	a := NewActivity(42)
	b := NewActivity(42)
	assert.Equal(t, 42, a.RunNumber)
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Started.IsZero())
}

func TestSummarizeCounts(t *testing.T) {
	var s CycleSummary
	s.SummarizeCounts([]float64{0, 2, 4, 0, 6, 8})
	assert.Equal(t, 4, s.ActiveChips)
	assert.InDelta(t, 5.0, s.OccupancyMean, 1e-12)
	assert.InDelta(t, 2.581988897, s.OccupancyStdDev, 1e-6)
	assert.Equal(t, 4.0, s.OccupancyMedian)

	s.SummarizeCounts([]float64{3})
	assert.Equal(t, 1, s.ActiveChips)
	assert.Equal(t, 3.0, s.OccupancyMean)
	assert.Equal(t, 0.0, s.OccupancyStdDev)

	s.SummarizeCounts(make([]float64, 10))
	assert.Equal(t, CycleSummary{}, s)
}

// countingTask records the lifecycle calls it receives.
type countingTask struct {
	objects *ObjectsManager
	h       *hbook.H1D
	calls   []string
	seen    int
}

func newCountingTask() *countingTask {
	ct := &countingTask{objects: NewObjectsManager(), h: hbook.NewH1D(10, -0.5, 9.5)}
	_ = ct.objects.StartPublishing("values", ct.h)
	return ct
}

func (ct *countingTask) Initialize() error { ct.calls = append(ct.calls, "init"); return nil }
func (ct *countingTask) StartOfActivity(Activity) { ct.calls = append(ct.calls, "soa") }
func (ct *countingTask) StartOfCycle() { ct.calls = append(ct.calls, "soc") }
func (ct *countingTask) EndOfCycle() { ct.calls = append(ct.calls, "eoc") }
func (ct *countingTask) EndOfActivity(Activity) { ct.calls = append(ct.calls, "eoa") }
func (ct *countingTask) Reset() {}
func (ct *countingTask) Objects() *ObjectsManager { return ct.objects }
func (ct *countingTask) Summary() CycleSummary { return CycleSummary{Skipped: 1} }
func (ct *countingTask) MonitorData(batch []int) {
	for _, v := range batch {
		ct.h.Fill(float64(v), 1)
		ct.seen++
	}
}

type sliceSource struct {
	vals []int
	err  error
}

func (s *sliceSource) ReadBatch(n int) ([]int, error) {
	if len(s.vals) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	if n > len(s.vals) {
		n = len(s.vals)
	}
	out := s.vals[:n]
	s.vals = s.vals[n:]
	return out, nil
}

type entriesCheck struct{ min int64 }

func (c entriesCheck) AcceptedType() string { return TypeH1D }
func (c entriesCheck) Check(objs map[string]MonitorObject) Quality {
	mo, ok := objs["values"]
	if !ok {
		return QualityNull
	}
	if mo.Object.(*hbook.H1D).Entries() >= c.min {
		return QualityGood
	}
	return QualityBad
}

func TestRunner(t *testing.T) {
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	defer func() { monitoring.Logf = orig }()

	task := newCountingTask()
	var got []CycleSummary
	r := &Runner[int]{
		Name:      "count",
		Task:      task,
		Check:     entriesCheck{min: 3},
		CycleSize: 2,
		OnCycle: func(_ Activity, s CycleSummary) error {
			got = append(got, s)
			return nil
		},
	}

	n, err := r.Run(context.Background(), NewActivity(1), &sliceSource{vals: []int{1, 2, 3, 4, 5}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 5, task.seen)

	want := []CycleSummary{
		{Cycle: 0, Task: "count", Quality: QualityBad, Records: 2, Skipped: 1},
		{Cycle: 1, Task: "count", Quality: QualityGood, Records: 2, Skipped: 1},
		{Cycle: 2, Task: "count", Quality: QualityGood, Records: 1, Skipped: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summaries (-want +got):\n%s", diff)
	}
	wantCalls := []string{"soa", "soc", "eoc", "soc", "eoc", "soc", "eoc", "eoa"}
	if diff := cmp.Diff(wantCalls, task.calls); diff != "" {
		t.Errorf("lifecycle (-want +got):\n%s", diff)
	}
}

func TestRunnerErrors(t *testing.T) {
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	defer func() { monitoring.Logf = orig }()

	r := &Runner[int]{Name: "bad", Task: newCountingTask()}
	_, err := r.Run(context.Background(), NewActivity(1), &sliceSource{})
	assert.Error(t, err, "zero cycle size")

	readErr := errors.New("disk on fire")
	r.CycleSize = 4
	_, err = r.Run(context.Background(), NewActivity(1), &sliceSource{vals: []int{1}, err: readErr})
	assert.ErrorIs(t, err, readErr)

	stop := errors.New("stop")
	r.OnCycle = func(Activity, CycleSummary) error { return stop }
	n, err := r.Run(context.Background(), NewActivity(1), &sliceSource{vals: []int{1, 2}})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 0, n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.OnCycle = nil
	_, err = r.Run(ctx, NewActivity(1), &sliceSource{vals: []int{1, 2}})
	assert.ErrorIs(t, err, context.Canceled)
}
