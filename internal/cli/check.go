package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/driftlock/mailsync/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate config and credentials by connecting to the server",
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
		fmt.Fprintln(cmd.OutOrStdout(), config.Summary(cfg))

		conn, err := newConnector(cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close() //nolint:errcheck

		info, err := conn.TestConnection(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Connected to %s\n", info.Host)
		fmt.Fprintf(out, "- capabilities: %s\n", strings.Join(info.Capabilities, " "))
		fmt.Fprintf(out, "- folders: %d\n", len(info.Folders))
		fmt.Fprintf(out, "- inbox messages: %d\n", info.InboxMessages)
		return nil
	},
}

func init() {
	checkCmd.Flags().String("config", "", "Path to YAML config file (or set MAILSYNC_CONFIG)")
}
