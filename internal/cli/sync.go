package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftlock/mailsync/internal/checkpointstore"
	"github.com/driftlock/mailsync/internal/config"
	"github.com/driftlock/mailsync/internal/connector"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full, checkpointed sync and emit documents as JSON lines",
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
		fmt.Fprintln(cmd.ErrOrStderr(), config.Summary(cfg))

		conn, err := newConnector(cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close() //nolint:errcheck

		store, err := checkpointstore.FromConfig(cfg.Checkpoint)
		if err != nil {
			return err
		}

		cp := connector.NewCheckpoint()
		fresh, err := cmd.Flags().GetBool("fresh")
		if err != nil {
			return err
		}
		if !fresh {
			loaded, found, err := store.Load(ctx)
			if err != nil {
				return err
			}
			if found {
				logger.Info("resuming from checkpoint")
				cp = loaded
			}
		}

		out, closeOut, err := openOutput(cmd)
		if err != nil {
			return err
		}
		defer closeOut()

		run := conn.FullSync(ctx, cp)
		total := 0
		for run.Next() {
			batch := run.Batch()
			if err := writeDocuments(out, batch); err != nil {
				return err
			}
			total += len(batch.Documents)

			if err := store.Save(ctx, run.Checkpoint()); err != nil {
				return err
			}
		}
		if err := run.Err(); err != nil {
			// Persist what was consumed so the next run resumes here.
			if saveErr := store.Save(ctx, run.Checkpoint()); saveErr != nil {
				logger.Warn("checkpoint save failed", "error", saveErr)
			}
			return err
		}

		if err := store.Save(ctx, run.Checkpoint()); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Synced %d documents\n", total)
		return nil
	},
}

func init() {
	syncCmd.Flags().String("config", "", "Path to YAML config file (or set MAILSYNC_CONFIG)")
	syncCmd.Flags().String("output", "", "Write documents to this file instead of stdout")
	syncCmd.Flags().Bool("fresh", false, "Ignore any existing checkpoint and sync from scratch")
}

func openOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	path, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil //nolint:errcheck
}

func writeDocuments(out io.Writer, batch connector.Batch) error {
	enc := json.NewEncoder(out)
	for _, doc := range batch.Documents {
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	return nil
}
