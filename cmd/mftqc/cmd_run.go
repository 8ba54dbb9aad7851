package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go-hep.org/x/hep/hbook"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/mftqc/internal/config"
	"github.com/banshee-data/mftqc/internal/qc"
	"github.com/banshee-data/mftqc/internal/store"
)

// RunOptions bundles the options of the commands running a QC task.
type RunOptions struct {
	ConfigPath string
	Input      string
	Listen     string
}

var runOptions RunOptions

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&runOptions.ConfigPath, "config", "", "task configuration `file` (.json, default settings if empty)")
	f.StringVarP(&runOptions.Input, "input", "i", "-", "record `file` to read, - for stdin")
	f.StringVar(&runOptions.Listen, "listen", "", "serve the admin pages on `addr` while running")
}

func loadConfig(path string) (*config.TaskConfig, error) {
	if path == "" {
		cfg := config.DefaultTaskConfig()
		return cfg, cfg.Validate()
	}
	return config.LoadTaskConfig(path)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// activity is everything a QC command needs to run one task.
type activity[T any] struct {
	cfg    *config.TaskConfig
	store  *store.Store
	runner *qc.Runner[T]
	stats  store.StatsFunc
	// maps returns the histograms snapshotted after each cycle.
	maps func() map[string]*hbook.H2D
}

// run records the activity, drives the runner over src and, when listen
// is set, serves the admin pages until ctx is cancelled.
func (a *activity[T]) run(ctx context.Context, src qc.Source[T], listen string) error {
	act := qc.NewActivity(a.cfg.GetRunNumber())
	if err := a.store.RecordActivity(act, int(a.cfg.GetFLP()), a.cfg.GetTaskLevel()); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"activity": act.ID,
		"run":      act.RunNumber,
		"flp":      a.cfg.GetFLP(),
		"task":     a.runner.Name,
	}).Info("activity started")

	a.runner.OnCycle = func(act qc.Activity, s qc.CycleSummary) error {
		if err := a.store.RecordCycle(act.ID, s); err != nil {
			return err
		}
		if a.maps == nil {
			return nil
		}
		for name, h := range a.maps() {
			if err := a.store.SaveSnapshot(act.ID, s.Cycle, name, h); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if listen != "" {
		mux := http.NewServeMux()
		if err := a.store.AttachAdminRoutes(mux, a.stats); err != nil {
			return err
		}
		serveHTTP(gctx, g, listen, mux)
	}
	g.Go(func() error {
		cycles, err := a.runner.Run(gctx, act, src)
		if errors.Is(err, context.Canceled) {
			log.WithFields(log.Fields{"activity": act.ID, "cycles": cycles}).Warn("activity interrupted")
			return nil
		}
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"activity": act.ID, "cycles": cycles}).Info("activity finished")
		if listen != "" {
			log.Infof("admin pages still served on %s, interrupt to exit", listen)
		}
		return nil
	})
	return g.Wait()
}

// serveHTTP starts an admin server in g and shuts it down once ctx is
// done.
func serveHTTP(ctx context.Context, g *errgroup.Group, addr string, h http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Infof("admin server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("admin server shutdown: %v", err)
		}
		return nil
	})
}

// chipMaps picks the integrated chip hit maps out of the published
// objects.
func chipMaps(m *qc.ObjectsManager) map[string]*hbook.H2D {
	out := make(map[string]*hbook.H2D)
	for _, mo := range m.Objects() {
		h, ok := mo.Object.(*hbook.H2D)
		if ok && strings.HasPrefix(mo.Name, "ChipHitMaps/") {
			out[mo.Name] = h
		}
	}
	return out
}
