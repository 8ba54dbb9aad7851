package mapping

import (
	"fmt"

	"github.com/banshee-data/mftqc/internal/geometry"
)

// MapShape is the binning of a 2-D hit map.
type MapShape struct {
	NBinsX     int
	XMin, XMax float64
	NBinsY     int
	YMin, YMax float64
}

// BinWidthX is the width of one x bin.
func (s MapShape) BinWidthX() float64 { return (s.XMax - s.XMin) / float64(s.NBinsX) }

// BinWidthY is the width of one y bin.
func (s MapShape) BinWidthY() float64 { return (s.YMax - s.YMin) / float64(s.NBinsY) }

// Center returns the centre of the 1-based bin b.
func (s MapShape) Center(b Bin) (x, y float64) {
	return s.XMin + (float64(b.X)-0.5)*s.BinWidthX(), s.YMin + (float64(b.Y)-0.5)*s.BinWidthY()
}

// Contains reports whether b is a valid bin of s.
func (s MapShape) Contains(b Bin) bool {
	return b.X >= 1 && b.X <= s.NBinsX && b.Y >= 1 && b.Y <= s.NBinsY
}

// Bin is a 1-based (x, y) bin coordinate.
type Bin struct {
	X, Y int
}

// aggregateShapes is indexed by hit-map ID (10*half + 2*disk + face).
// Disks 2 and 3 are not symmetric in x, so their faces mirror each other.
var aggregateShapes = [geometry.NumHitMaps]MapShape{
	// half 0
	{12, -10, 10, 4, -12, 0}, // disk 0 face 0
	{12, -10, 10, 4, -12, 0}, // disk 0 face 1
	{12, -10, 10, 4, -12, 0},
	{12, -10, 10, 4, -12, 0},
	{13, -11, 10, 4, -12, 0},
	{13, -10, 11, 4, -12, 0},
	{16, -13, 14, 5, -15, 0},
	{16, -14, 13, 5, -15, 0},
	{17, -14, 14, 5, -15, 0},
	{17, -14, 14, 5, -15, 0},

	// half 1
	{12, -10, 10, 4, 0, 12},
	{12, -10, 10, 4, 0, 12},
	{12, -10, 10, 4, 0, 12},
	{12, -10, 10, 4, 0, 12},
	{13, -10, 11, 4, 0, 12},
	{13, -11, 10, 4, 0, 12},
	{16, -14, 13, 5, 0, 15},
	{16, -13, 14, 5, 0, 15},
	{17, -14, 14, 5, 0, 15},
	{17, -14, 14, 5, 0, 15},
}

// Pixel hit maps cover one chip: 1024 columns by 512 rows, bins centred
// on integer pixel coordinates.
const (
	PixelColumns = 1024
	PixelRows    = 512
	pixelShift   = 0.5
)

// PixelMapShape returns the binning of a per-chip pixel hit map.
func PixelMapShape() MapShape {
	return MapShape{
		NBinsX: PixelColumns, XMin: -pixelShift, XMax: PixelColumns - pixelShift,
		NBinsY: PixelRows, YMin: -pixelShift, YMax: PixelRows - pixelShift,
	}
}

// PixelMapShapeWithWidth returns the pixel map grouped into square bins of
// width pixels. width must divide both PixelColumns and PixelRows.
func PixelMapShapeWithWidth(width int) (MapShape, error) {
	if width <= 0 || PixelColumns%width != 0 || PixelRows%width != 0 {
		return MapShape{}, fmt.Errorf("pixel bin width %d does not divide %dx%d: %w", width, PixelColumns, PixelRows, ErrInvalidParameter)
	}
	s := PixelMapShape()
	s.NBinsX /= width
	s.NBinsY /= width
	return s, nil
}

// HitMapID returns the aggregate map ID of (half, disk, face).
func HitMapID(half, disk, face int) int {
	return half*geometry.NumHitMaps/geometry.NumHalves + disk*geometry.NumFaces + face
}

// HitMapCoords is the inverse of HitMapID.
func HitMapCoords(h int) (half, disk, face int) {
	perHalf := geometry.NumHitMaps / geometry.NumHalves
	return h / perHalf, (h % perHalf) / geometry.NumFaces, (h % perHalf) % geometry.NumFaces
}

// AggregateMapShapeOf returns the fixed binning of the (half, disk, face)
// aggregate map.
func AggregateMapShapeOf(half, disk, face int) (MapShape, error) {
	if half < 0 || half >= geometry.NumHalves || disk < 0 || disk >= geometry.NumDisks || face < 0 || face >= geometry.NumFaces {
		return MapShape{}, fmt.Errorf("aggregate map h%d-d%d-f%d: %w", half, disk, face, ErrInvalidParameter)
	}
	return aggregateShapes[HitMapID(half, disk, face)], nil
}

type ladderKey struct {
	hitMap, zone, ladder, sensor int
}

// BinLocator places chips inside their aggregate map.
type BinLocator struct {
	bins     [geometry.NumChips]Bin
	centers  [geometry.NumChips][2]float64
	byLadder map[ladderKey]Bin
}

// NewBinLocator indexes the bin of every chip in t. It fails with
// geometry.ErrConfiguration when a bin lies outside its map or two chips
// share a bin of the same map.
func NewBinLocator(t *geometry.Table) (*BinLocator, error) {
	if t == nil {
		return nil, fmt.Errorf("nil geometry table: %w", geometry.ErrConfiguration)
	}
	bl := &BinLocator{byLadder: make(map[ladderKey]Bin, geometry.NumChips)}
	taken := make(map[[3]int]int, geometry.NumChips)
	for _, c := range t.Chips() {
		h := c.HitMapID()
		b := Bin{X: c.BinX, Y: c.BinY}
		if !aggregateShapes[h].Contains(b) {
			return nil, fmt.Errorf("%v: bin (%d,%d) outside map %d: %w", c, b.X, b.Y, h, geometry.ErrConfiguration)
		}
		cell := [3]int{h, b.X, b.Y}
		if other, ok := taken[cell]; ok {
			return nil, fmt.Errorf("%v: bin (%d,%d) of map %d already holds chip %d: %w",
				c, b.X, b.Y, h, other, geometry.ErrConfiguration)
		}
		taken[cell] = c.ID
		key := ladderKey{hitMap: h, zone: c.Zone, ladder: c.Ladder, sensor: c.Sensor}
		if other, ok := bl.byLadder[key]; ok {
			return nil, fmt.Errorf("%v: duplicate ladder position, bin (%d,%d) already assigned: %w",
				c, other.X, other.Y, geometry.ErrConfiguration)
		}
		bl.byLadder[key] = b
		bl.bins[c.ID] = b
		x, y := aggregateShapes[h].Center(b)
		bl.centers[c.ID] = [2]float64{x, y}
	}
	return bl, nil
}

// BinOf returns the aggregate-map bin of chipID.
func (bl *BinLocator) BinOf(chipID int) (Bin, error) {
	if chipID < 0 || chipID >= geometry.NumChips {
		return Bin{}, fmt.Errorf("chip %d: %w", chipID, ErrInvalidParameter)
	}
	return bl.bins[chipID], nil
}

// BinOfLadderSensor looks a bin up by physical position: the sensor'th
// chip of a ladder within a zone of the (half, disk, face) map.
func (bl *BinLocator) BinOfLadderSensor(half, disk, face, zone, ladder, sensor int) (Bin, bool) {
	b, ok := bl.byLadder[ladderKey{hitMap: HitMapID(half, disk, face), zone: zone, ladder: ladder, sensor: sensor}]
	return b, ok
}

// CenterOf returns the coordinates that fill chipID's bin in its
// aggregate map.
func (bl *BinLocator) CenterOf(chipID int) (x, y float64, err error) {
	if chipID < 0 || chipID >= geometry.NumChips {
		return 0, 0, fmt.Errorf("chip %d: %w", chipID, ErrInvalidParameter)
	}
	c := bl.centers[chipID]
	return c[0], c[1], nil
}
