// Package hits reads per-event detector records from text streams.
//
// One record per line, fields separated by whitespace. Blank lines and
// lines starting with '#' are skipped.
//
//	digits:   chip column row
//	clusters: chip pattern
package hits

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Digit is a single fired pixel.
type Digit struct {
	ChipIndex int
	Column    int
	Row       int
}

// Cluster is a compact cluster: the chip it was found on and the id of
// its pixel pattern.
type Cluster struct {
	SensorID  int
	PatternID int
}

type lineReader struct {
	scanner *bufio.Scanner
	line    int
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{scanner: bufio.NewScanner(r)}
}

// next returns the fields of the next record line, or io.EOF.
func (lr *lineReader) next(want int) ([]int, error) {
	for lr.scanner.Scan() {
		lr.line++
		text := strings.TrimSpace(lr.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != want {
			return nil, fmt.Errorf("line %d: got %d fields, want %d", lr.line, len(fields), want)
		}
		out := make([]int, want)
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: field %d: %w", lr.line, i+1, err)
			}
			out[i] = v
		}
		return out, nil
	}
	if err := lr.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// DigitReader decodes Digit records.
type DigitReader struct {
	lr *lineReader
}

// NewDigitReader returns a reader over r.
func NewDigitReader(r io.Reader) *DigitReader {
	return &DigitReader{lr: newLineReader(r)}
}

// Next returns the next digit, or io.EOF at the end of the stream.
func (dr *DigitReader) Next() (Digit, error) {
	f, err := dr.lr.next(3)
	if err != nil {
		return Digit{}, err
	}
	return Digit{ChipIndex: f[0], Column: f[1], Row: f[2]}, nil
}

// ReadBatch reads up to n digits. It returns io.EOF only when no digit
// was read.
func (dr *DigitReader) ReadBatch(n int) ([]Digit, error) {
	batch := make([]Digit, 0, n)
	for len(batch) < n {
		d, err := dr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return batch, err
		}
		batch = append(batch, d)
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// ClusterReader decodes Cluster records.
type ClusterReader struct {
	lr *lineReader
}

// NewClusterReader returns a reader over r.
func NewClusterReader(r io.Reader) *ClusterReader {
	return &ClusterReader{lr: newLineReader(r)}
}

// Next returns the next cluster, or io.EOF at the end of the stream.
func (cr *ClusterReader) Next() (Cluster, error) {
	f, err := cr.lr.next(2)
	if err != nil {
		return Cluster{}, err
	}
	return Cluster{SensorID: f[0], PatternID: f[1]}, nil
}

// ReadBatch reads up to n clusters. It returns io.EOF only when no
// cluster was read.
func (cr *ClusterReader) ReadBatch(n int) ([]Cluster, error) {
	batch := make([]Cluster, 0, n)
	for len(batch) < n {
		c, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return batch, err
		}
		batch = append(batch, c)
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}
