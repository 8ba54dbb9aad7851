package main

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/mftqc/internal/geometry"
	"github.com/banshee-data/mftqc/internal/mapping"
)

var cmdGeometry = &cobra.Command{
	Use:   "geometry",
	Short: "Inspect the chip geometry table",
	Long: `
The "geometry" commands print and validate the chip geometry table. Without
--geometry the table compiled into the binary is used.
`,
	DisableAutoGenTag: true,
}

var cmdGeometryDump = &cobra.Command{
	Use:               "dump",
	Short:             "Write the canonical geometry table",
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGeometryDump(geometryOptions.Output, geometryOptions.Path)
	},
}

var cmdGeometryCheck = &cobra.Command{
	Use:   "check",
	Short: "Validate the index translation of every partition",
	Long: `
The "geometry check" command loads the table, prints its fingerprint and
builds the index translator of all five partitions concurrently, verifying
that every chip and hit map translates both ways.

EXIT STATUS
===========

Exit status is 0 if every partition is consistent, and non-zero otherwise.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGeometryCheck(cmd.Context(), cmd.OutOrStdout(), geometryOptions.Path)
	},
}

// GeometryOptions bundles the options of the geometry commands.
type GeometryOptions struct {
	Path   string
	Output string
}

var geometryOptions GeometryOptions

func init() {
	cmdRoot.AddCommand(cmdGeometry)
	cmdGeometry.AddCommand(cmdGeometryDump, cmdGeometryCheck)

	f := cmdGeometry.PersistentFlags()
	f.StringVar(&geometryOptions.Path, "geometry", "", "geometry table `file` (default: embedded table)")

	cmdGeometryDump.Flags().StringVarP(&geometryOptions.Output, "output", "o", "-", "write the table to `file`, - for stdout")
}

func loadTable(path string) (*geometry.Table, error) {
	src := geometry.SourceFor(path)
	t, err := geometry.Load(src)
	if err != nil {
		return nil, err
	}
	if _, ok := src.(geometry.EmbeddedSource); ok {
		log.Warn("using the embedded placeholder geometry; set geometry_path or --geometry to the detector table")
	}
	log.WithFields(log.Fields{
		"source":      src.String(),
		"fingerprint": fmt.Sprintf("%016x", t.Fingerprint()),
	}).Debug("geometry loaded")
	return t, nil
}

func runGeometryDump(output, path string) error {
	t, err := loadTable(path)
	if err != nil {
		return err
	}
	w, err := openOutput(output)
	if err != nil {
		return err
	}
	if err := geometry.WriteTable(w, t); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// partitionReport is the outcome of checking one partition.
type partitionReport struct {
	Chips   int
	HitMaps int
}

func checkPartition(t *geometry.Table, flp mapping.FLP) (partitionReport, error) {
	tr, err := mapping.NewTranslator(t, flp)
	if err != nil {
		return partitionReport{}, err
	}
	want, _ := mapping.LocalChipCount(flp)
	if tr.LocalChipCount() != want {
		return partitionReport{}, fmt.Errorf("FLP %d: %d local chips, want %d", flp, tr.LocalChipCount(), want)
	}
	for v := 0; v < tr.LocalChipCount(); v++ {
		id, err := tr.ChipIDOf(v)
		if err != nil {
			return partitionReport{}, fmt.Errorf("FLP %d: vector %d: %w", flp, v, err)
		}
		back, err := tr.VectorIndexOf(id)
		if err != nil || back != v {
			return partitionReport{}, fmt.Errorf("FLP %d: chip %d maps back to %d (%v), want %d", flp, id, back, err, v)
		}
	}
	for hv := 0; hv < tr.LocalHitMapCount(); hv++ {
		h, err := tr.HitMapIDOf(hv)
		if err != nil {
			return partitionReport{}, fmt.Errorf("FLP %d: hit-map vector %d: %w", flp, hv, err)
		}
		back, err := tr.HitMapVectorIndexOfID(h)
		if err != nil || back != hv {
			return partitionReport{}, fmt.Errorf("FLP %d: hit map %d maps back to %d (%v), want %d", flp, h, back, err, hv)
		}
	}
	return partitionReport{Chips: tr.LocalChipCount(), HitMaps: tr.LocalHitMapCount()}, nil
}

func runGeometryCheck(ctx context.Context, w io.Writer, path string) error {
	t, err := loadTable(path)
	if err != nil {
		return err
	}
	if _, err := mapping.NewBinLocator(t); err != nil {
		return err
	}

	var reports [mapping.NumFLPs]partitionReport
	g, _ := errgroup.WithContext(ctx)
	for flp := 0; flp < mapping.NumFLPs; flp++ {
		g.Go(func() error {
			r, err := checkPartition(t, mapping.FLP(flp))
			reports[flp] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(w, "geometry %s fingerprint %016x\n", geometry.SourceFor(path), t.Fingerprint())
	total := 0
	for flp, r := range reports {
		fmt.Fprintf(w, "FLP %d: %d chips, %d hit maps\n", flp, r.Chips, r.HitMaps)
		total += r.Chips
	}
	if total != 2*geometry.ChipsPerHalf {
		return fmt.Errorf("partitions cover %d chips, want %d", total, 2*geometry.ChipsPerHalf)
	}
	fmt.Fprintln(w, "ok")
	return nil
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
