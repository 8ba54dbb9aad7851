package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mftqc/internal/hits"
	"github.com/banshee-data/mftqc/internal/qc"
	"github.com/banshee-data/mftqc/internal/qc/clusterqc"
	"github.com/banshee-data/mftqc/internal/store"
)

var cmdClusters = &cobra.Command{
	Use:   "clusters",
	Short: "Run the cluster QC task over a cluster stream",
	Long: `
The "clusters" command fills the sensor and pattern distributions from
cluster records ("chip pattern" per line) and checks the probe sensor at
the end of every cycle of cycle_digits records.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClusters(cmd.Context(), runOptions)
	},
}

func init() {
	cmdRoot.AddCommand(cmdClusters)
	addRunFlags(cmdClusters)
}

func runClusters(ctx context.Context, opts RunOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	task := clusterqc.New()
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

	a := &activity[hits.Cluster]{
		cfg:   cfg,
		store: st,
		runner: &qc.Runner[hits.Cluster]{
			Name:      clusterqc.TaskName,
			Task:      task,
			Check:     clusterqc.Check{ProbeSensor: cfg.GetProbeSensor()},
			CycleSize: cfg.GetCycleDigits(),
		},
		stats: func() map[string]uint64 {
			return map[string]uint64{"clusters.skipped": task.Skipped()}
		},
	}
	return a.run(ctx, hits.NewClusterReader(in), opts.Listen)
}
