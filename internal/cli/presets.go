package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/driftlock/mailsync/internal/config"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Show connection presets for common mail providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		presets := config.Presets()

		names := make([]string, 0, len(presets))
		for name := range presets {
			names = append(names, name)
		}
		sort.Strings(names)

		out := cmd.OutOrStdout()
		for _, name := range names {
			p := presets[name]
			fmt.Fprintf(out, "%-10s %s:%d (%s) %s\n", name, p.Host, p.Port, p.Security, p.Note)
		}
		return nil
	},
}
