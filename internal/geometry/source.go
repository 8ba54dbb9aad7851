package geometry

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// chipmap.txt is the canonical chip table shipped with the binary.
//
//go:embed chipmap.txt
var embeddedTable []byte

// Source provides the raw text table.
type Source interface {
	Open() (io.ReadCloser, error)
	String() string
}

// EmbeddedSource reads the synthesized placeholder table compiled into
// the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(embeddedTable)), nil
}

func (EmbeddedSource) String() string { return "embedded chipmap.txt (placeholder)" }

// FileSource reads the table from a file on disk.
type FileSource struct {
	Path string
}

func (s FileSource) Open() (io.ReadCloser, error) {
	return os.Open(filepath.Clean(s.Path))
}

func (s FileSource) String() string { return s.Path }

// SourceFor returns the embedded source when path is empty and a
// FileSource otherwise.
func SourceFor(path string) Source {
	if path == "" {
		return EmbeddedSource{}
	}
	return FileSource{Path: path}
}

// Load reads and validates the table from src. Loading the same source
// twice yields equal tables.
func Load(src Source) (*Table, error) {
	if src == nil {
		return nil, fmt.Errorf("no geometry source: %w", ErrConfiguration)
	}
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("open geometry source %s: %w: %w", src, err, ErrConfiguration)
	}
	defer rc.Close()

	t, err := Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("load geometry from %s: %w", src, err)
	}
	return t, nil
}
