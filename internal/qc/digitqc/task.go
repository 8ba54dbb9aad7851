// Package digitqc fills the MFT digit histograms of one readout
// partition: integrated chip hit maps per half-disk face, a pixel hit map
// per chip and the chip occupancy summaries over the whole detector.
package digitqc

import (
	"fmt"
	"math"
	"sync/atomic"

	"go-hep.org/x/hep/hbook"

	"github.com/banshee-data/mftqc/internal/config"
	"github.com/banshee-data/mftqc/internal/geometry"
	"github.com/banshee-data/mftqc/internal/hits"
	"github.com/banshee-data/mftqc/internal/mapping"
	"github.com/banshee-data/mftqc/internal/monitoring"
	"github.com/banshee-data/mftqc/internal/qc"
)

// Names of the detector-wide summaries.
const (
	OccupancyName = "ChipHitMaps/mMFT_chip_index_H"
	StdDevName    = "ChipHitMaps/mMFT_chip_std_dev_H"
)

// TaskName identifies the digit task in logs and in the store.
const TaskName = "BasicDigitQcTask"

// ChipMapName returns the name of the integrated chip hit map of a
// half-disk face.
func ChipMapName(half, disk, face int) string {
	return fmt.Sprintf("ChipHitMaps/Half_%d/Disk_%d/Face_%d/mMFTChipHitMap", half, disk, face)
}

// PixelMapName returns the name of the pixel hit map of c.
func PixelMapName(c geometry.Chip) string {
	return fmt.Sprintf("PixelHitMaps/Half_%d/Disk_%d/Face_%d/mMFTPixelHitMap-z%d-l%d-s%d-tr%d",
		c.Half, c.Disk, c.Face, c.Zone, c.Ladder, c.Sensor, c.TransID)
}

// colStats accumulates the column moments of one chip.
type colStats struct {
	n, sum, sum2 float64
}

func (s colStats) stdDev() float64 {
	if s.n == 0 {
		return 0
	}
	mean := s.sum / s.n
	v := s.sum2/s.n - mean*mean
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// Task is the digit QC task of one partition. MonitorData must not be
// called concurrently; Skipped may be read at any time.
type Task struct {
	cfg        *config.TaskConfig
	tr         *mapping.Translator
	pixelShape mapping.MapShape
	objects    *qc.ObjectsManager

	// Indexed by vector index.
	chips      []geometry.Chip
	centers    [][2]float64
	mapOfChip  []int
	pixelMaps  []*hbook.H2D
	pixelNames []string
	cols       []colStats

	// Indexed by hit-map vector index.
	chipMaps      []*hbook.H2D
	chipMapNames  []string
	chipMapShapes []mapping.MapShape

	occupancy *hbook.H1D
	stdDev    *hbook.H1D

	skipped      atomic.Uint64
	cycleSkipped uint64
}

// New builds the lookup tables of the partition selected by cfg.
func New(cfg *config.TaskConfig, table *geometry.Table) (*Task, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("digit task: %w", err)
	}
	tr, err := mapping.NewTranslator(table, cfg.GetFLP())
	if err != nil {
		return nil, fmt.Errorf("digit task: %w", err)
	}
	bins, err := mapping.NewBinLocator(table)
	if err != nil {
		return nil, fmt.Errorf("digit task: %w", err)
	}
	pixelShape, err := mapping.PixelMapShapeWithWidth(cfg.GetPixelBinWidth())
	if err != nil {
		return nil, fmt.Errorf("digit task: %w", err)
	}

	n := tr.LocalChipCount()
	t := &Task{
		cfg:        cfg,
		tr:         tr,
		pixelShape: pixelShape,
		objects:    qc.NewObjectsManager(),
		chips:      make([]geometry.Chip, n),
		centers:    make([][2]float64, n),
		mapOfChip:  make([]int, n),
		pixelMaps:  make([]*hbook.H2D, n),
		pixelNames: make([]string, n),
		cols:       make([]colStats, n),
		chipMaps:   make([]*hbook.H2D, tr.LocalHitMapCount()),
	}
	for hv := 0; hv < tr.LocalHitMapCount(); hv++ {
		h, err := tr.HitMapIDOf(hv)
		if err != nil {
			return nil, fmt.Errorf("digit task: %w", err)
		}
		half, disk, face := mapping.HitMapCoords(h)
		shape, err := mapping.AggregateMapShapeOf(half, disk, face)
		if err != nil {
			return nil, fmt.Errorf("digit task: %w", err)
		}
		t.chipMapNames = append(t.chipMapNames, ChipMapName(half, disk, face))
		t.chipMapShapes = append(t.chipMapShapes, shape)
	}
	for v := 0; v < n; v++ {
		id, err := tr.ChipIDOf(v)
		if err != nil {
			return nil, fmt.Errorf("digit task: vector %d: %w", v, err)
		}
		c, err := table.Chip(id)
		if err != nil {
			return nil, fmt.Errorf("digit task: %w", err)
		}
		x, y, err := bins.CenterOf(id)
		if err != nil {
			return nil, fmt.Errorf("digit task: %w", err)
		}
		hv, err := tr.HitMapVectorIndexOf(id)
		if err != nil {
			return nil, fmt.Errorf("digit task: chip %d: %w", id, err)
		}
		t.chips[v] = c
		t.centers[v] = [2]float64{x, y}
		t.mapOfChip[v] = hv
		t.pixelNames[v] = PixelMapName(c)
	}
	t.newHistograms()
	return t, nil
}

// Initialize publishes the histograms selected by the task level.
func (t *Task) Initialize() error {
	monitoring.Logf("%s: initialize FLP=%d TaskLevel=%d", TaskName, t.tr.FLP(), t.cfg.GetTaskLevel())

	if t.cfg.ShowOccupancy() {
		if err := t.objects.StartPublishing(OccupancyName, t.occupancy); err != nil {
			return err
		}
		if err := t.objects.StartPublishing(StdDevName, t.stdDev); err != nil {
			return err
		}
	}
	if t.cfg.ShowChipMaps() {
		for hv, h := range t.chipMaps {
			if err := t.objects.StartPublishing(t.chipMapNames[hv], h); err != nil {
				return err
			}
		}
	}
	return nil
}

func newSummary(name string) *hbook.H1D {
	h := hbook.NewH1D(geometry.NumChips, -0.5, geometry.NumChips-0.5)
	h.Ann["name"] = name
	return h
}

func newMap(name string, s mapping.MapShape) *hbook.H2D {
	h := hbook.NewH2D(s.NBinsX, s.XMin, s.XMax, s.NBinsY, s.YMin, s.YMax)
	h.Ann["name"] = name
	return h
}

// newHistograms allocates empty summaries and chip maps. Pixel maps are
// created on the first digit of their chip.
func (t *Task) newHistograms() {
	t.occupancy = newSummary(OccupancyName)
	t.stdDev = newSummary(StdDevName)
	for hv := range t.chipMaps {
		t.chipMaps[hv] = newMap(t.chipMapNames[hv], t.chipMapShapes[hv])
	}
}

// republish points published names at the current histograms.
func (t *Task) republish() {
	replace := func(name string, obj hbook.Object) {
		if _, ok := t.objects.Get(name); ok {
			_ = t.objects.Replace(name, obj)
		}
	}
	replace(OccupancyName, t.occupancy)
	replace(StdDevName, t.stdDev)
	for hv, h := range t.chipMaps {
		replace(t.chipMapNames[hv], h)
	}
}

// Reset drops all accumulated data.
func (t *Task) Reset() {
	monitoring.Logf("%s: resetting the histograms", TaskName)
	t.newHistograms()
	t.republish()
	for v, h := range t.pixelMaps {
		if h != nil {
			t.objects.StopPublishing(t.pixelNames[v])
			t.pixelMaps[v] = nil
		}
	}
	for v := range t.cols {
		t.cols[v] = colStats{}
	}
	t.skipped.Store(0)
	t.cycleSkipped = 0
}

// StartOfActivity clears everything accumulated by a previous activity.
func (t *Task) StartOfActivity(act qc.Activity) {
	monitoring.Logf("%s: start of activity %s", TaskName, act.ID)
	t.Reset()
}

func (t *Task) StartOfCycle() {
	t.cycleSkipped = t.skipped.Load()
}

// MonitorData fills the histograms from batch. Digits on chips outside
// the partition are skipped and counted.
func (t *Task) MonitorData(batch []hits.Digit) {
	for _, d := range batch {
		v, err := t.tr.VectorIndexOf(d.ChipIndex)
		if err != nil {
			t.skipped.Add(1)
			continue
		}

		col := float64(d.Column)
		pm := t.pixelMaps[v]
		if pm == nil {
			pm = t.newPixelMap(v)
		}
		pm.Fill(col, float64(d.Row), 1)

		s := &t.cols[v]
		s.n++
		s.sum += col
		s.sum2 += col * col
		t.occupancy.Fill(float64(d.ChipIndex), 1)

		c := t.centers[v]
		t.chipMaps[t.mapOfChip[v]].Fill(c[0], c[1], 1)
	}
}

func (t *Task) newPixelMap(v int) *hbook.H2D {
	h := newMap(t.pixelNames[v], t.pixelShape)
	t.pixelMaps[v] = h
	if t.cfg.ShowPixelMaps() {
		if err := t.objects.StartPublishing(t.pixelNames[v], h); err != nil {
			monitoring.Warnf("%s: %v", TaskName, err)
		}
	}
	return h
}

// EndOfCycle refreshes the std-dev summary.
func (t *Task) EndOfCycle() {
	sd := newSummary(StdDevName)
	for v, s := range t.cols {
		if s.n == 0 {
			continue
		}
		sd.Fill(float64(t.chips[v].ID), s.stdDev())
	}
	t.stdDev = sd
	if _, ok := t.objects.Get(StdDevName); ok {
		_ = t.objects.Replace(StdDevName, sd)
	}

	if n := t.skipped.Load() - t.cycleSkipped; n > 0 {
		monitoring.Warnf("%s: skipped %d digits outside FLP %d", TaskName, n, t.tr.FLP())
	}
}

func (t *Task) EndOfActivity(act qc.Activity) {
	monitoring.Logf("%s: end of activity %s, %d digits skipped", TaskName, act.ID, t.skipped.Load())
}

// Objects returns the published monitor objects.
func (t *Task) Objects() *qc.ObjectsManager { return t.objects }

// Translator returns the partition's index translator.
func (t *Task) Translator() *mapping.Translator { return t.tr }

// Skipped returns the number of digits skipped since the last reset.
func (t *Task) Skipped() uint64 { return t.skipped.Load() }

// ChipEntries returns the number of digits recorded on chipID.
func (t *Task) ChipEntries(chipID int) (float64, error) {
	v, err := t.tr.VectorIndexOf(chipID)
	if err != nil {
		return 0, err
	}
	return t.cols[v].n, nil
}

// ChipStdDev returns the standard deviation of the digit columns of chipID.
func (t *Task) ChipStdDev(chipID int) (float64, error) {
	v, err := t.tr.VectorIndexOf(chipID)
	if err != nil {
		return 0, err
	}
	return t.cols[v].stdDev(), nil
}

// ChipMap returns the integrated hit map of a half-disk face owned by the
// partition.
func (t *Task) ChipMap(half, disk, face int) (*hbook.H2D, error) {
	hv, err := t.tr.HitMapVectorIndexOfID(mapping.HitMapID(half, disk, face))
	if err != nil {
		return nil, err
	}
	return t.chipMaps[hv], nil
}

// PixelMap returns the pixel hit map of chipID, or nil if the chip has
// no digit yet.
func (t *Task) PixelMap(chipID int) (*hbook.H2D, error) {
	v, err := t.tr.VectorIndexOf(chipID)
	if err != nil {
		return nil, err
	}
	return t.pixelMaps[v], nil
}

// Summary reports the digits skipped in the current cycle and the
// occupancy statistics accumulated since the last reset.
func (t *Task) Summary() qc.CycleSummary {
	counts := make([]float64, len(t.cols))
	for v, s := range t.cols {
		counts[v] = s.n
	}
	s := qc.CycleSummary{Task: TaskName, Skipped: t.skipped.Load() - t.cycleSkipped}
	s.SummarizeCounts(counts)
	return s
}
