package main

import (
	"context"

	"github.com/spf13/cobra"
	"go-hep.org/x/hep/hbook"

	"github.com/banshee-data/mftqc/internal/hits"
	"github.com/banshee-data/mftqc/internal/qc"
	"github.com/banshee-data/mftqc/internal/qc/digitqc"
	"github.com/banshee-data/mftqc/internal/store"
)

var cmdDigits = &cobra.Command{
	Use:   "digits",
	Short: "Run the digit QC task over a digit stream",
	Long: `
The "digits" command fills the chip and pixel hit maps of the configured
FLP from digit records ("chip column row" per line). Every cycle_digits
records form one cycle; the check runs at the end of each cycle and the
result is stored together with snapshots of the chip hit maps.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDigits(cmd.Context(), runOptions)
	},
}

func init() {
	cmdRoot.AddCommand(cmdDigits)
	addRunFlags(cmdDigits)
}

func runDigits(ctx context.Context, opts RunOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	table, err := loadTable(cfg.GetGeometryPath())
	if err != nil {
		return err
	}
	task, err := digitqc.New(cfg, table)
	if err != nil {
		return err
	}
	if err := task.Initialize(); err != nil {
		return err
	}

	st, err := store.Open(cfg.GetDBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	in, err := openInput(opts.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	a := &activity[hits.Digit]{
		cfg:   cfg,
		store: st,
		runner: &qc.Runner[hits.Digit]{
			Name:      digitqc.TaskName,
			Task:      task,
			Check:     digitqc.Check{ProbeChip: cfg.GetProbeChip()},
			CycleSize: cfg.GetCycleDigits(),
		},
		stats: func() map[string]uint64 {
			return map[string]uint64{"digits.skipped": task.Skipped()}
		},
		maps: func() map[string]*hbook.H2D { return chipMaps(task.Objects()) },
	}
	return a.run(ctx, hits.NewDigitReader(in), opts.Listen)
}
