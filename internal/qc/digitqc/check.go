package digitqc

import (
	"go-hep.org/x/hep/hbook"

	"github.com/banshee-data/mftqc/internal/qc"
)

// Check flags a dead probe chip: Bad when its occupancy bin is empty,
// Good otherwise and Null when the occupancy summary is not published.
type Check struct {
	ProbeChip int
}

func (c Check) AcceptedType() string { return qc.TypeH1D }

func (c Check) Check(objs map[string]qc.MonitorObject) qc.Quality {
	mo, ok := objs[OccupancyName]
	if !ok {
		return qc.QualityNull
	}
	h, ok := mo.Object.(*hbook.H1D)
	if !ok || c.ProbeChip < 0 || c.ProbeChip >= len(h.Binning.Bins) {
		return qc.QualityNull
	}
	if h.Binning.Bins[c.ProbeChip].SumW() == 0 {
		return qc.QualityBad
	}
	return qc.QualityGood
}
