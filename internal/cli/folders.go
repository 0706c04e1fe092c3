package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List server folders and show which ones a sync would visit",
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

		conn, err := newConnector(cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close() //nolint:errcheck

		all, err := conn.ListFolders(ctx)
		if err != nil {
			return err
		}
		resolved, err := conn.ResolvedFolders(ctx)
		if err != nil {
			return err
		}

		selected := make(map[string]bool, len(resolved))
		for _, folder := range resolved {
			selected[folder] = true
		}

		out := cmd.OutOrStdout()
		for _, folder := range all {
			marker := " "
			if selected[folder] {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s\n", marker, folder)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d folders, %d selected for sync\n", len(all), len(resolved))
		return nil
	},
}

func init() {
	foldersCmd.Flags().String("config", "", "Path to YAML config file (or set MAILSYNC_CONFIG)")
}
