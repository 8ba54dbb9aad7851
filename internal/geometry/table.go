package geometry

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// numFields is the column count of the text table.
const numFields = 13

// Table is the immutable chip geometry indexed by chip ID.
type Table struct {
	chips [NumChips]Chip
}

// Chip returns the attributes of chip id.
func (t *Table) Chip(id int) (Chip, error) {
	if id < 0 || id >= NumChips {
		return Chip{}, fmt.Errorf("chip %d out of range [0,%d): %w", id, NumChips, ErrInvalidChipID)
	}
	return t.chips[id], nil
}

// Len returns the number of chips in the table.
func (t *Table) Len() int { return len(t.chips) }

// Chips returns a copy of all chips in ID order.
func (t *Table) Chips() []Chip {
	out := make([]Chip, NumChips)
	copy(out, t.chips[:])
	return out
}

// Fingerprint hashes the canonical text form of the table.
// Two tables with the same fingerprint produce identical output from
// WriteTable.
func (t *Table) Fingerprint() uint64 {
	d := xxhash.New()
	// xxhash.Digest never returns a write error.
	_ = writeRows(d, t)
	return d.Sum64()
}

// Parse reads a text table. See the package documentation for the
// layout. All failures wrap ErrConfiguration.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	n := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if n >= NumChips {
			return nil, fmt.Errorf("line %d: more than %d chip rows: %w", lineNo, NumChips, ErrConfiguration)
		}
		c, err := parseRow(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", lineNo, err, ErrConfiguration)
		}
		c.ID = n
		t.chips[n] = c
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read geometry table: %w: %w", err, ErrConfiguration)
	}
	if n < NumChips {
		return nil, fmt.Errorf("geometry table has %d chip rows, want %d: %w", n, NumChips, ErrConfiguration)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func parseRow(line string) (Chip, error) {
	f := strings.Fields(line)
	if len(f) != numFields {
		return Chip{}, fmt.Errorf("got %d fields, want %d", len(f), numFields)
	}

	ints := make([]int, 0, 10)
	for _, i := range []int{0, 1, 2, 3, 4, 5, 6, 7, 11, 12} {
		v, err := strconv.Atoi(f[i])
		if err != nil {
			return Chip{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		ints = append(ints, v)
	}
	var xyz [3]float64
	for j, i := range []int{8, 9, 10} {
		v, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return Chip{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		xyz[j] = v
	}

	c := Chip{
		Half:    ints[0],
		Disk:    ints[1],
		Face:    ints[2],
		Zone:    ints[3],
		Ladder:  ints[4],
		Sensor:  ints[5],
		TransID: ints[6],
		Layer:   ints[7],
		X:       xyz[0],
		Y:       xyz[1],
		Z:       xyz[2],
		BinX:    ints[8],
		BinY:    ints[9],
	}
	if err := c.validate(); err != nil {
		return Chip{}, err
	}
	return c, nil
}

// validate checks the table-wide invariants: chips are grouped half-major
// then disk-major in ID order and every disk holds DiskChipCounts chips.
func (t *Table) validate() error {
	var counts [NumHalves][NumDisks]int
	for _, c := range t.chips {
		counts[c.Half][c.Disk]++
	}
	for h := 0; h < NumHalves; h++ {
		for d := 0; d < NumDisks; d++ {
			if counts[h][d] != DiskChipCounts[d] {
				return fmt.Errorf("half %d disk %d has %d chips, want %d: %w",
					h, d, counts[h][d], DiskChipCounts[d], ErrConfiguration)
			}
		}
	}
	for _, c := range t.chips {
		first := FirstChipOf(c.Half, c.Disk)
		if c.ID < first || c.ID >= first+DiskChipCounts[c.Disk] {
			return fmt.Errorf("%v is outside the ID range of half %d disk %d: %w",
				c, c.Half, c.Disk, ErrConfiguration)
		}
	}
	return nil
}

// WriteTable writes t in canonical text form. Parsing the output yields
// an equal table.
func WriteTable(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	if _, err := io.WriteString(bw, "# half disk face zone ladder sensor transID layer x y z binx biny\n"); err != nil {
		return err
	}
	if err := writeRows(bw, t); err != nil {
		return err
	}
	return bw.Flush()
}

func writeRows(w io.Writer, t *Table) error {
	var buf bytes.Buffer
	for _, c := range t.chips {
		buf.Reset()
		fmt.Fprintf(&buf, "%d %d %d %d %d %d %d %d %.4f %.4f %.2f %d %d\n",
			c.Half, c.Disk, c.Face, c.Zone, c.Ladder, c.Sensor, c.TransID, c.Layer,
			c.X, c.Y, c.Z, c.BinX, c.BinY)
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
