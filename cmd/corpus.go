package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/corpus"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/resilience"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the training corpus",
}

var corpusImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Append records from a JSONL or XLSX feed",
	Long:  "Parses the feed and appends its records to the corpus. Records whose video ID is already stored are skipped, so re-running an import is safe.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path := args[0]
		var records []model.TrainingRecord
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jsonl", ".ndjson":
			records, err = corpus.ReadJSONL(path)
		case ".xlsx":
			records, err = corpus.ReadXLSX(path)
		default:
			return eris.Errorf("unsupported feed format %q (want .jsonl or .xlsx)", filepath.Ext(path))
		}
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		var inserted int
		err = resilience.Do(ctx, resilience.DefaultRetryConfig(), "corpus append", func(ctx context.Context) error {
			n, err := env.Store.AppendRecords(ctx, records)
			if err != nil {
				return err
			}
			inserted = n
			return nil
		})
		if err != nil {
			return err
		}

		zap.L().Info("corpus: import complete",
			zap.String("file", path),
			zap.Int("parsed", len(records)),
			zap.Int("inserted", inserted),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d records (%d already present)\n",
			inserted, len(records), len(records)-inserted)
		return nil
	},
}

var corpusStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus size and training-window coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Store.CorpusStats(ctx, time.Now().UTC(), cfg.Corpus.WindowDays)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total records:     %d\n", stats.Total)
		fmt.Fprintf(out, "In %d-day window:  %d\n", cfg.Corpus.WindowDays, stats.InWindow)
		fmt.Fprintf(out, "Usable (vph > 0):  %d\n", stats.Usable)
		if stats.NewestRow != nil {
			fmt.Fprintf(out, "Newest record:     %s\n", stats.NewestRow.Format(time.RFC3339))
		}
		if stats.Usable < cfg.Trainer.MinSamples {
			fmt.Fprintf(out, "\nBelow the %d-sample training minimum.\n", cfg.Trainer.MinSamples)
		}
		return nil
	},
}

func init() {
	corpusCmd.AddCommand(corpusImportCmd)
	corpusCmd.AddCommand(corpusStatusCmd)
	rootCmd.AddCommand(corpusCmd)
}
