package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/mftqc/internal/store"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin pages of a quality store",
	Long: `
The "serve" command opens a quality store and serves its debug pages: the
stored activities and cycles as JSON and a tailsql console. Pages only
answer local or tailnet callers.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), serveOptions)
	},
}

// ServeOptions bundles the options of the serve command.
type ServeOptions struct {
	DBPath string
	Listen string
}

var serveOptions ServeOptions

func init() {
	cmdRoot.AddCommand(cmdServe)

	f := cmdServe.Flags()
	f.StringVar(&serveOptions.DBPath, "db", "mftqc.db", "quality store `file`")
	f.StringVar(&serveOptions.Listen, "listen", ":8090", "listen `addr`")
}

func runServe(ctx context.Context, opts ServeOptions) error {
	st, err := store.Open(opts.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	mux := http.NewServeMux()
	if err := st.AttachAdminRoutes(mux, nil); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	serveHTTP(gctx, g, opts.Listen, mux)
	return g.Wait()
}
