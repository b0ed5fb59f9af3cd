package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasktree/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	var addr, token string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference backend over the local catalog database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(store.Catalog, server.WithToken(token), server.WithLogger(app.logger()))
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", app.Config.DBPath, addr)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", app.Config.Addr, "listen address")
	cmd.Flags().StringVar(&token, "token", app.Config.APIToken, "require this bearer token on /api requests")
	return cmd
}
