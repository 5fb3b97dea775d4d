package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mickamy/planview/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		inputs []string
		title  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve plans as interactive HTML views",
		Example: `  planview serve --input plan.json
  planview serve --input a.json --input b.txt --addr :8080 --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := stateFrom(cmd)
			srv := server.New(server.Config{
				Addr:            st.cfg.Server.Addr,
				Watch:           st.cfg.Server.Watch,
				ShutdownTimeout: st.cfg.Server.ShutdownTimeout,
				View:            st.cfg.ViewConfig(),
				Title:           title,
				Logger:          st.logger,
			})
			for _, path := range inputs {
				id, err := srv.LoadFile(path)
				if err != nil {
					return fmt.Errorf("load %s: %w", path, err)
				}
				st.logger.Info().Str("file", path).Str("url", "/views/"+id).Msg("plan loaded")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&inputs, "input", "i", nil, "Plan files to serve (repeatable)")
	f.String("addr", "", "Listen address (default from config, 127.0.0.1:8080)")
	f.Bool("watch", false, "Reload views when their plan files change")
	f.StringVar(&title, "title", "planview report", "Page title")
	addViewFlags(cmd)
	return cmd
}
