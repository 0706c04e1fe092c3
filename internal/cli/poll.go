package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftlock/mailsync/internal/connector"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Emit documents updated within a time window",
	Long: "Poll fetches only messages whose date falls in [--start, --end). " +
		"Messages without a parseable date are skipped; run sync to pick those up.",
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

		start, end, err := resolveWindow(cmd)
		if err != nil {
			return err
		}

		conn, err := newConnector(cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close() //nolint:errcheck

		out, closeOut, err := openOutput(cmd)
		if err != nil {
			return err
		}
		defer closeOut()

		// Poll is stateless; windows are the caller's cursor.
		run := conn.Poll(ctx, connector.NewCheckpoint(), start, end)
		total := 0
		for run.Next() {
			batch := run.Batch()
			if err := writeDocuments(out, batch); err != nil {
				return err
			}
			total += len(batch.Documents)
		}
		if err := run.Err(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Emitted %d documents between %s and %s\n",
			total, start.Format(time.RFC3339), end.Format(time.RFC3339))
		return nil
	},
}

func init() {
	pollCmd.Flags().String("config", "", "Path to YAML config file (or set MAILSYNC_CONFIG)")
	pollCmd.Flags().String("output", "", "Write documents to this file instead of stdout")
	pollCmd.Flags().String("start", "", "Window start, RFC 3339 (default: one hour before end)")
	pollCmd.Flags().String("end", "", "Window end, RFC 3339, exclusive (default: now)")
}

func resolveWindow(cmd *cobra.Command) (time.Time, time.Time, error) {
	startRaw, err := cmd.Flags().GetString("start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endRaw, err := cmd.Flags().GetString("end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end := time.Now().UTC()
	if endRaw != "" {
		end, err = time.Parse(time.RFC3339, endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
		}
	}

	start := end.Add(-time.Hour)
	if startRaw != "" {
		start, err = time.Parse(time.RFC3339, startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
		}
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--start must be before --end")
	}
	return start, end, nil
}
