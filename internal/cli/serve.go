package cli

import (
	"github.com/spf13/cobra"

	"github.com/driftlock/mailsync/internal/api"
	"github.com/driftlock/mailsync/internal/checkpointstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the connector admin API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := commandContext(cmd)

		logger, shutdown, err := setup(ctx)
		if err != nil {
			return err
		}
		defer shutdown(ctx) //nolint:errcheck

		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		addr, err := cmd.Flags().GetString("addr")
		if err != nil {
			return err
		}

		store, err := checkpointstore.FromConfig(cfg.Checkpoint)
		if err != nil {
			return err
		}

		server, err := api.NewServer(
			api.WithServerLogger(logger),
			api.WithStore(store),
		)
		if err != nil {
			return err
		}

		return server.Listen(addr)
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file (or set MAILSYNC_CONFIG)")
	serveCmd.Flags().String("addr", ":8080", "Address for the admin API to listen on")
}
