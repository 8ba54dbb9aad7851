// Command mftqc runs the MFT quality-control tasks over recorded digit
// and cluster streams and serves the stored results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/banshee-data/mftqc/internal/monitoring"
	"github.com/banshee-data/mftqc/internal/version"
)

// GlobalOptions hold the flags shared by every command.
type GlobalOptions struct {
	LogLevel  string
	LogFormat string
}

var globalOptions GlobalOptions

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "mftqc",
	Short: "MFT detector quality control",
	Long: `
mftqc fills the MFT quality-control histograms of one readout partition
(FLP) from digit or cluster records, runs the checks at the end of every
cycle and stores the results in SQLite.
`,
	Version:           version.String(),
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(globalOptions)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

func init() {
	f := cmdRoot.PersistentFlags()
	f.StringVar(&globalOptions.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&globalOptions.LogFormat, "log-format", "text", "log format (text, json)")
}

func setupLogging(opts GlobalOptions) error {
	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	switch strings.ToLower(opts.LogFormat) {
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", opts.LogFormat)
	}
	monitoring.UseLogrus(log.StandardLogger())
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmdRoot.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
