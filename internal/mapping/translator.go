package mapping

import (
	"fmt"

	"github.com/banshee-data/mftqc/internal/geometry"
)

const unassigned = -1

// Translator maps chip IDs to dense, partition-local indices and back.
//
// Two bijections are kept: chips owned by the partition onto
// [0, LocalChipCount), and the partition's aggregate (half, disk, face)
// maps onto [0, LocalHitMapCount). Both directions of each are filled in
// the same construction pass.
type Translator struct {
	flp FLP

	vectorOfChip [geometry.NumChips]int
	chipOfVector []int

	hitMapOfChip       [geometry.NumChips]int
	vectorOfHitMap     [geometry.NumHitMaps]int
	hitMapOfVector     []int
	hitMapVectorOfChip [geometry.NumChips]int
}

// NewTranslator builds the index tables for flp from t.
//
// Chips are enumerated half by half: the owned disk of half 0 takes
// indices 0..n0-1 and the owned disk of half 1 takes n0..n0+n1-1, each
// in ascending chip ID.
func NewTranslator(t *geometry.Table, flp FLP) (*Translator, error) {
	if err := flp.Validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("nil geometry table: %w", geometry.ErrConfiguration)
	}

	nChips, _ := LocalChipCount(flp)
	nMaps, _ := LocalHitMapCount(flp)
	tr := &Translator{
		flp:            flp,
		chipOfVector:   make([]int, 0, nChips),
		hitMapOfVector: make([]int, nMaps),
	}
	for i := range tr.vectorOfChip {
		tr.vectorOfChip[i] = unassigned
		tr.hitMapVectorOfChip[i] = unassigned
	}
	for i := range tr.vectorOfHitMap {
		tr.vectorOfHitMap[i] = unassigned
	}

	// Aggregate maps, opposite matching: the first two vector slots are
	// the faces of half 0, the last two the faces of half 1.
	for v := 0; v < nMaps; v++ {
		var h int
		if v/geometry.NumFaces == 0 {
			h = v + int(flp)*geometry.NumFaces
		} else {
			h = v%geometry.NumFaces + flp.OwnedDisk(1)*geometry.NumFaces + geometry.NumHitMaps/geometry.NumHalves
		}
		tr.hitMapOfVector[v] = h
		tr.vectorOfHitMap[h] = v
	}

	chips := t.Chips()
	for half := 0; half < geometry.NumHalves; half++ {
		disk := flp.OwnedDisk(half)
		for _, c := range chips {
			if c.Half != half || c.Disk != disk {
				continue
			}
			tr.vectorOfChip[c.ID] = len(tr.chipOfVector)
			tr.chipOfVector = append(tr.chipOfVector, c.ID)
		}
	}
	if len(tr.chipOfVector) != nChips {
		return nil, fmt.Errorf("FLP %d owns %d chips in the table, want %d: %w",
			flp, len(tr.chipOfVector), nChips, geometry.ErrConfiguration)
	}

	for _, c := range chips {
		h := c.HitMapID()
		tr.hitMapOfChip[c.ID] = h
		if tr.vectorOfChip[c.ID] != unassigned {
			tr.hitMapVectorOfChip[c.ID] = tr.vectorOfHitMap[h]
		}
	}

	return tr, nil
}

// FLP returns the partition the translator was built for.
func (tr *Translator) FLP() FLP { return tr.flp }

// LocalChipCount is the size of the chip index space.
func (tr *Translator) LocalChipCount() int { return len(tr.chipOfVector) }

// LocalHitMapCount is the size of the aggregate map index space.
func (tr *Translator) LocalHitMapCount() int { return len(tr.hitMapOfVector) }

// VectorIndexOf returns the dense index of chipID. It returns
// ErrOutOfPartition for chips the partition does not own.
func (tr *Translator) VectorIndexOf(chipID int) (int, error) {
	if chipID < 0 || chipID >= geometry.NumChips {
		return unassigned, ErrOutOfPartition
	}
	v := tr.vectorOfChip[chipID]
	if v == unassigned {
		return unassigned, ErrOutOfPartition
	}
	return v, nil
}

// ChipIDOf is the inverse of VectorIndexOf.
func (tr *Translator) ChipIDOf(vectorIndex int) (int, error) {
	if vectorIndex < 0 || vectorIndex >= len(tr.chipOfVector) {
		return unassigned, ErrOutOfPartition
	}
	return tr.chipOfVector[vectorIndex], nil
}

// HitMapIDOfChip returns the aggregate map ID of any chip, owned or not.
func (tr *Translator) HitMapIDOfChip(chipID int) (int, error) {
	if chipID < 0 || chipID >= geometry.NumChips {
		return unassigned, fmt.Errorf("chip %d: %w", chipID, ErrInvalidParameter)
	}
	return tr.hitMapOfChip[chipID], nil
}

// HitMapVectorIndexOf returns the dense aggregate-map index of the map
// chipID contributes to.
func (tr *Translator) HitMapVectorIndexOf(chipID int) (int, error) {
	if chipID < 0 || chipID >= geometry.NumChips {
		return unassigned, ErrOutOfPartition
	}
	v := tr.hitMapVectorOfChip[chipID]
	if v == unassigned {
		return unassigned, ErrOutOfPartition
	}
	return v, nil
}

// HitMapIDOf is the inverse of the aggregate-map index: it returns the
// hit-map ID stored at hitMapVectorIndex.
func (tr *Translator) HitMapIDOf(hitMapVectorIndex int) (int, error) {
	if hitMapVectorIndex < 0 || hitMapVectorIndex >= len(tr.hitMapOfVector) {
		return unassigned, ErrOutOfPartition
	}
	return tr.hitMapOfVector[hitMapVectorIndex], nil
}

// HitMapVectorIndexOfID returns the dense index of aggregate map h.
func (tr *Translator) HitMapVectorIndexOfID(h int) (int, error) {
	if h < 0 || h >= geometry.NumHitMaps {
		return unassigned, ErrOutOfPartition
	}
	v := tr.vectorOfHitMap[h]
	if v == unassigned {
		return unassigned, ErrOutOfPartition
	}
	return v, nil
}
