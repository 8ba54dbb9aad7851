package store

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go-hep.org/x/hep/hbook"
)

// ErrNoSnapshot is returned when no snapshot matches a lookup.
var ErrNoSnapshot = errors.New("store: no snapshot")

// Snapshot is the persisted content of a 2-D hit map. Contents are bin
// sums of weights stored row by row, x fastest.
type Snapshot struct {
	Name       string
	NX         int
	XMin, XMax float64
	NY         int
	YMin, YMax float64
	Entries    int64
	Contents   []float64
}

// NewSnapshot captures the bins of h.
func NewSnapshot(name string, h *hbook.H2D) Snapshot {
	bng := &h.Binning
	s := Snapshot{
		Name:     name,
		NX:       bng.Nx,
		XMin:     bng.XRange.Min,
		XMax:     bng.XRange.Max,
		NY:       bng.Ny,
		YMin:     bng.YRange.Min,
		YMax:     bng.YRange.Max,
		Entries:  h.Entries(),
		Contents: make([]float64, len(bng.Bins)),
	}
	for i := range bng.Bins {
		s.Contents[i] = bng.Bins[i].SumW()
	}
	return s
}

// Content returns the sum of weights of bin (ix, iy), 0-based.
func (s Snapshot) Content(ix, iy int) float64 {
	if ix < 0 || ix >= s.NX || iy < 0 || iy >= s.NY {
		return 0
	}
	return s.Contents[iy*s.NX+ix]
}

// H2D rebuilds a histogram with the snapshot's bin contents. Each
// non-empty bin becomes one weighted fill at its centre.
func (s Snapshot) H2D() *hbook.H2D {
	h := hbook.NewH2D(s.NX, s.XMin, s.XMax, s.NY, s.YMin, s.YMax)
	h.Ann["name"] = s.Name
	wx := (s.XMax - s.XMin) / float64(s.NX)
	wy := (s.YMax - s.YMin) / float64(s.NY)
	for iy := 0; iy < s.NY; iy++ {
		for ix := 0; ix < s.NX; ix++ {
			if w := s.Contents[iy*s.NX+ix]; w != 0 {
				h.Fill(s.XMin+(float64(ix)+0.5)*wx, s.YMin+(float64(iy)+0.5)*wy, w)
			}
		}
	}
	return h
}

func encodeSnapshot(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(zw).Encode(s); err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", s.Name, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot %s: %w", s.Name, err)
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(blob []byte) (Snapshot, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return Snapshot{}, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer zr.Close()
	var s Snapshot
	if err := gob.NewDecoder(zr).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(s.Contents) != s.NX*s.NY {
		return Snapshot{}, fmt.Errorf("snapshot %s: %d contents for %dx%d bins", s.Name, len(s.Contents), s.NX, s.NY)
	}
	return s, nil
}

// SaveSnapshot stores h as the state of name at the end of cycle.
func (s *Store) SaveSnapshot(activityID uuid.UUID, cycle int, name string, h *hbook.H2D) error {
	blob, err := encodeSnapshot(NewSnapshot(name, h))
	if err != nil {
		return err
	}
	_, err = s.Exec(`INSERT INTO snapshots (activity_id, cycle, name, data) VALUES (?, ?, ?, ?)`,
		activityID.String(), cycle, name, blob)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot returns the latest snapshot of name in an activity.
func (s *Store) LoadSnapshot(activityID uuid.UUID, name string) (Snapshot, int, error) {
	var (
		cycle int
		blob  []byte
	)
	err := s.QueryRow(`
		SELECT cycle, data FROM snapshots
		WHERE activity_id = ? AND name = ?
		ORDER BY cycle DESC, snapshot_id DESC LIMIT 1`, activityID.String(), name).Scan(&cycle, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, 0, fmt.Errorf("%s in %s: %w", name, activityID, ErrNoSnapshot)
	}
	if err != nil {
		return Snapshot{}, 0, err
	}
	snap, err := decodeSnapshot(blob)
	if err != nil {
		return Snapshot{}, 0, err
	}
	return snap, cycle, nil
}
