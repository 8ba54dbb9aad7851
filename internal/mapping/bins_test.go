package mapping

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/banshee-data/mftqc/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHitMapIDCoords(t *testing.T) {
	for h := 0; h < geometry.NumHitMaps; h++ {
		half, disk, face := HitMapCoords(h)
		assert.Equal(t, h, HitMapID(half, disk, face))
	}
	half, disk, face := HitMapCoords(17)
	assert.Equal(t, []int{1, 3, 1}, []int{half, disk, face})
}

func TestAggregateMapShapeOf(t *testing.T) {
	s, err := AggregateMapShapeOf(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, MapShape{NBinsX: 12, XMin: -10, XMax: 10, NBinsY: 4, YMin: -12, YMax: 0}, s)

	s, err = AggregateMapShapeOf(1, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, MapShape{NBinsX: 16, XMin: -14, XMax: 13, NBinsY: 5, YMin: 0, YMax: 15}, s)

	// Faces of disks 2 and 3 mirror each other in x.
	for half := 0; half < geometry.NumHalves; half++ {
		for disk := 0; disk < geometry.NumDisks; disk++ {
			f0, err := AggregateMapShapeOf(half, disk, 0)
			require.NoError(t, err)
			f1, err := AggregateMapShapeOf(half, disk, 1)
			require.NoError(t, err)
			assert.Equal(t, f0.NBinsX, f1.NBinsX)
			assert.Equal(t, f0.XMin, -f1.XMax, "h%d d%d", half, disk)
		}
	}

	for _, c := range [][3]int{{2, 0, 0}, {0, 5, 0}, {0, 0, 2}, {-1, 0, 0}} {
		_, err := AggregateMapShapeOf(c[0], c[1], c[2])
		assert.ErrorIs(t, err, ErrInvalidParameter, "%v", c)
	}
}

func TestPixelMapShape(t *testing.T) {
	s := PixelMapShape()
	assert.Equal(t, 1024, s.NBinsX)
	assert.Equal(t, 512, s.NBinsY)
	assert.Equal(t, 1.0, s.BinWidthX())
	assert.Equal(t, 1.0, s.BinWidthY())

	x, y := s.Center(Bin{X: 1, Y: 1})
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
}

func TestBinLocatorOneChipPerBin(t *testing.T) {
	tbl := testTable(t)
	bl, err := NewBinLocator(tbl)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, c := range tbl.Chips() {
		b, err := bl.BinOf(c.ID)
		require.NoError(t, err)

		shape, err := AggregateMapShapeOf(c.Half, c.Disk, c.Face)
		require.NoError(t, err)
		require.True(t, shape.Contains(b), "%v bin %+v", c, b)

		key := fmt.Sprintf("%d/%d/%d", c.HitMapID(), b.X, b.Y)
		if other, ok := seen[key]; ok {
			t.Fatalf("chips %d and %d share bin %s", other, c.ID, key)
		}
		seen[key] = c.ID

		lb, ok := bl.BinOfLadderSensor(c.Half, c.Disk, c.Face, c.Zone, c.Ladder, c.Sensor)
		require.True(t, ok)
		require.Equal(t, b, lb)
	}

	_, ok := bl.BinOfLadderSensor(0, 0, 0, 0, 99, 0)
	assert.False(t, ok)
}

func TestBinLocatorCenterMatchesPosition(t *testing.T) {
	tbl := testTable(t)
	bl, err := NewBinLocator(tbl)
	require.NoError(t, err)

	for _, c := range tbl.Chips() {
		x, y, err := bl.CenterOf(c.ID)
		require.NoError(t, err)
		// The table stores positions rounded to 1e-4 cm.
		if math.Abs(x-c.X) > 1e-3 || math.Abs(y-c.Y) > 1e-3 {
			t.Fatalf("%v: centre (%.4f,%.4f) differs from position (%.4f,%.4f)", c, x, y, c.X, c.Y)
		}

		shape, _ := AggregateMapShapeOf(c.Half, c.Disk, c.Face)
		bx := int(math.Floor((x-shape.XMin)/shape.BinWidthX())) + 1
		by := int(math.Floor((y-shape.YMin)/shape.BinWidthY())) + 1
		require.Equal(t, Bin{X: c.BinX, Y: c.BinY}, Bin{X: bx, Y: by}, "%v", c)
	}

	_, _, err = bl.CenterOf(geometry.NumChips)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = bl.BinOf(-1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBinLocatorRejectsCollisions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, geometry.WriteTable(&buf, testTable(t)))
	lines := strings.Split(buf.String(), "\n")

	// Give chip 1 the bin of chip 0; both sit on half 0, disk 0, face 0.
	f0 := strings.Fields(lines[1])
	f1 := strings.Fields(lines[2])
	f1[11], f1[12] = f0[11], f0[12]
	lines[2] = strings.Join(f1, " ")

	tbl, err := geometry.Parse(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)

	_, err = NewBinLocator(tbl)
	assert.ErrorIs(t, err, geometry.ErrConfiguration)
}

func TestBinLocatorRejectsOutOfMapBin(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, geometry.WriteTable(&buf, testTable(t)))
	lines := strings.Split(buf.String(), "\n")

	f := strings.Fields(lines[1])
	f[11] = "13" // disk 0 maps have 12 x bins
	lines[1] = strings.Join(f, " ")

	tbl, err := geometry.Parse(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)

	_, err = NewBinLocator(tbl)
	assert.ErrorIs(t, err, geometry.ErrConfiguration)

	_, err = NewBinLocator(nil)
	assert.ErrorIs(t, err, geometry.ErrConfiguration)
}

func TestPixelMapShapeWithWidth(t *testing.T) {
	s, err := PixelMapShapeWithWidth(8)
	require.NoError(t, err)
	assert.Equal(t, 128, s.NBinsX)
	assert.Equal(t, 64, s.NBinsY)
	assert.Equal(t, 8.0, s.BinWidthX())
	assert.Equal(t, PixelMapShape().XMax, s.XMax)

	s, err = PixelMapShapeWithWidth(1)
	require.NoError(t, err)
	assert.Equal(t, PixelMapShape(), s)

	for _, w := range []int{0, -2, 3, 1024} {
		_, err := PixelMapShapeWithWidth(w)
		assert.ErrorIs(t, err, ErrInvalidParameter, "width %d", w)
	}
}
