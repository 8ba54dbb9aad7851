package mapping

import (
	"errors"
	"testing"

	"github.com/banshee-data/mftqc/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *geometry.Table {
	t.Helper()
	tbl, err := geometry.Load(geometry.EmbeddedSource{})
	require.NoError(t, err)
	return tbl
}

func TestFLPValidate(t *testing.T) {
	for flp := FLP(0); flp < NumFLPs; flp++ {
		assert.NoError(t, flp.Validate())
	}
	for _, flp := range []FLP{-1, 5, 42} {
		err := flp.Validate()
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("FLP(%d).Validate() = %v, want ErrInvalidParameter", flp, err)
		}
	}
}

func TestOwnedDiskOppositeMatching(t *testing.T) {
	tests := []struct {
		flp          FLP
		half0, half1 int
	}{
		{0, 0, 4},
		{1, 1, 3},
		{2, 2, 2},
		{3, 3, 1},
		{4, 4, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.half0, tt.flp.OwnedDisk(0), "FLP %d half 0", tt.flp)
		assert.Equal(t, tt.half1, tt.flp.OwnedDisk(1), "FLP %d half 1", tt.flp)
	}
}

func TestLocalChipCount(t *testing.T) {
	total := 0
	for flp := FLP(0); flp < NumFLPs; flp++ {
		n, err := LocalChipCount(flp)
		require.NoError(t, err)
		want := geometry.DiskChipCounts[flp] + geometry.DiskChipCounts[4-flp]
		assert.Equal(t, want, n, "FLP %d", flp)
		total += n
	}
	assert.Equal(t, geometry.NumChips, total)

	perHalf := 0
	for _, n := range geometry.DiskChipCounts {
		perHalf += n
	}
	assert.Equal(t, geometry.ChipsPerHalf, perHalf)

	n, err := LocalChipCount(0)
	require.NoError(t, err)
	assert.Equal(t, 202, n)

	_, err = LocalChipCount(5)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestLocalHitMapCount(t *testing.T) {
	for flp := FLP(0); flp < NumFLPs; flp++ {
		n, err := LocalHitMapCount(flp)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	}
	_, err := LocalHitMapCount(-1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestChipsOwnedByDisjointCover(t *testing.T) {
	tbl := testTable(t)

	owner := make(map[int]FLP, geometry.NumChips)
	for flp := FLP(0); flp < NumFLPs; flp++ {
		ids, err := ChipsOwnedBy(tbl, flp)
		require.NoError(t, err)

		n, _ := LocalChipCount(flp)
		require.Len(t, ids, n)
		for i, id := range ids {
			if i > 0 && ids[i-1] >= id {
				t.Fatalf("FLP %d: chip IDs not ascending at %d", flp, i)
			}
			if prev, ok := owner[id]; ok {
				t.Fatalf("chip %d owned by both FLP %d and FLP %d", id, prev, flp)
			}
			owner[id] = flp
		}
	}
	assert.Len(t, owner, geometry.NumChips)
}

func TestChipsOwnedByExcludesOtherDisks(t *testing.T) {
	tbl := testTable(t)

	c, err := tbl.Chip(0)
	require.NoError(t, err)
	require.Equal(t, 0, c.Half)
	require.Equal(t, 0, c.Disk)

	ids, err := ChipsOwnedBy(tbl, 1)
	require.NoError(t, err)
	assert.NotContains(t, ids, 0)

	ids, err = ChipsOwnedBy(tbl, 0)
	require.NoError(t, err)
	assert.Contains(t, ids, 0)

	_, err = ChipsOwnedBy(tbl, 7)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
