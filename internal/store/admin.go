package store

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// StatsFunc reports live counters, such as the skip counters of running
// tasks, keyed by name.
type StatsFunc func() map[string]uint64

// AttachAdminRoutes mounts the debug pages on mux: a tailsql console over
// the store, the live counters of stats and JSON listings of activities
// and cycles.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux, stats StatsFunc) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+s.path, s.DB, &tailsql.DBOptions{
		Label: "MFT QC DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	if stats != nil {
		debug.KVFunc("QC counters", func() any { return stats() })
	}
	debug.KVFunc("Cycle qualities", func() any {
		counts, err := s.QualityCounts()
		if err != nil {
			return err.Error()
		}
		return counts
	})

	debug.Handle("activities", "Stored QC activities (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acts, err := s.Activities()
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to list activities: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, acts)
	}))

	debug.Handle("cycles", "Cycle results of one activity (JSON, ?activity=<id>)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.URL.Query().Get("activity"))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid activity id: %v", err), http.StatusBadRequest)
			return
		}
		cycles, err := s.Cycles(id)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to list cycles: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, cycles)
	}))
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
