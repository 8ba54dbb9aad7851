package geometry

import (
	"errors"
	"fmt"
)

// Detector constants.
const (
	NumChips     = 936
	NumHalves    = 2
	NumDisks     = 5
	NumFaces     = 2
	NumZones     = 4
	NumLayers    = NumDisks * NumFaces
	NumHitMaps   = NumHalves * NumDisks * NumFaces
	ChipsPerHalf = NumChips / NumHalves
)

// DiskChipCounts is the number of chips on each disk of one half,
// both faces included. The halves are identical.
var DiskChipCounts = [NumDisks]int{66, 66, 82, 118, 136}

// ErrConfiguration is returned when the geometry source is missing,
// malformed or inconsistent.
var ErrConfiguration = errors.New("geometry: configuration error")

// ErrInvalidChipID is returned when a caller asks for a chip ID outside
// [0,NumChips).
var ErrInvalidChipID = errors.New("geometry: invalid chip id")

// Chip holds the fixed attributes of one sensor chip.
type Chip struct {
	ID      int
	Half    int
	Disk    int
	Face    int
	Zone    int
	Ladder  int // position within the zone
	Sensor  int // position within the ladder
	TransID int // readout cable
	Layer   int // 2*Disk + Face

	X, Y, Z float64 // centimetres

	BinX, BinY int // 1-based, inside the aggregate map of (Half, Disk, Face)
}

// HitMapID is the index of the chip's aggregate map among the 20
// (half, disk, face) maps.
func (c Chip) HitMapID() int {
	return c.Half*NumHitMaps/NumHalves + c.Layer
}

func (c Chip) String() string {
	return fmt.Sprintf("chip %d (h%d-d%d-f%d-z%d-l%d-s%d-tr%d)",
		c.ID, c.Half, c.Disk, c.Face, c.Zone, c.Ladder, c.Sensor, c.TransID)
}

func (c Chip) validate() error {
	switch {
	case c.Half < 0 || c.Half >= NumHalves:
		return fmt.Errorf("half %d out of range", c.Half)
	case c.Disk < 0 || c.Disk >= NumDisks:
		return fmt.Errorf("disk %d out of range", c.Disk)
	case c.Face < 0 || c.Face >= NumFaces:
		return fmt.Errorf("face %d out of range", c.Face)
	case c.Zone < 0 || c.Zone >= NumZones:
		return fmt.Errorf("zone %d out of range", c.Zone)
	case c.Ladder < 0:
		return fmt.Errorf("ladder %d is negative", c.Ladder)
	case c.Sensor < 0:
		return fmt.Errorf("sensor %d is negative", c.Sensor)
	case c.TransID < 0:
		return fmt.Errorf("transID %d is negative", c.TransID)
	case c.Layer != c.Disk*NumFaces+c.Face:
		return fmt.Errorf("layer %d does not match disk %d face %d", c.Layer, c.Disk, c.Face)
	case c.BinX < 1 || c.BinY < 1:
		return fmt.Errorf("bin (%d,%d) is not 1-based", c.BinX, c.BinY)
	}
	return nil
}

// FirstChipOf returns the lowest chip ID on the given half and disk.
// Chip IDs run half-major, then disk-major.
func FirstChipOf(half, disk int) int {
	id := half * ChipsPerHalf
	for d := 0; d < disk; d++ {
		id += DiskChipCounts[d]
	}
	return id
}
