// Package mapping translates chip IDs into partition ownership, dense
// per-partition array positions and aggregate hit-map bins.
//
// All tables are built once from a geometry.Table and never mutated
// afterwards, so lookups are safe for concurrent readers.
package mapping

import (
	"errors"
	"fmt"

	"github.com/banshee-data/mftqc/internal/geometry"
)

// NumFLPs is the number of readout partitions.
const NumFLPs = geometry.NumDisks

var (
	// ErrInvalidParameter is returned for a partition id outside [0,4].
	ErrInvalidParameter = errors.New("mapping: invalid parameter")
	// ErrOutOfPartition is returned for a chip or index the active
	// partition does not own.
	ErrOutOfPartition = errors.New("mapping: out of partition")
)

// FLP identifies a readout partition. Partition P owns disk P of half 0
// and disk 4-P of half 1.
type FLP int

// Validate reports whether f is in [0,4].
func (f FLP) Validate() error {
	if f < 0 || int(f) >= NumFLPs {
		return fmt.Errorf("FLP %d out of range [0,%d]: %w", int(f), NumFLPs-1, ErrInvalidParameter)
	}
	return nil
}

// OwnedDisk returns the disk f owns on the given half.
func (f FLP) OwnedDisk(half int) int {
	if half == 0 {
		return int(f)
	}
	return geometry.NumDisks - 1 - int(f)
}

// Owns reports whether chip c belongs to partition f.
func (f FLP) Owns(c geometry.Chip) bool {
	return c.Disk == f.OwnedDisk(c.Half)
}

// OwnsHitMap reports whether f owns the aggregate map of (half, disk).
func (f FLP) OwnsHitMap(half, disk int) bool {
	return disk == f.OwnedDisk(half)
}

// ChipsOwnedBy returns the IDs of the chips owned by flp, ascending.
func ChipsOwnedBy(t *geometry.Table, flp FLP) ([]int, error) {
	if err := flp.Validate(); err != nil {
		return nil, err
	}
	n, _ := LocalChipCount(flp)
	out := make([]int, 0, n)
	for _, c := range t.Chips() {
		if flp.Owns(c) {
			out = append(out, c.ID)
		}
	}
	return out, nil
}

// LocalChipCount is the number of chips owned by flp.
func LocalChipCount(flp FLP) (int, error) {
	if err := flp.Validate(); err != nil {
		return 0, err
	}
	return geometry.DiskChipCounts[flp.OwnedDisk(0)] + geometry.DiskChipCounts[flp.OwnedDisk(1)], nil
}

// LocalHitMapCount is the number of aggregate maps owned by flp: one per
// face on each half.
func LocalHitMapCount(flp FLP) (int, error) {
	if err := flp.Validate(); err != nil {
		return 0, err
	}
	return geometry.NumHalves * geometry.NumFaces, nil
}
