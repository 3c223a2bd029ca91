package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/ensemble"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/features"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/monitoring"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/validate"
)

var trainNotes string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and validate a new model from the corpus window",
	Long:  "Loads the rolling training window, fits the ensemble, validates it against the acceptance gate, and promotes it when it passes. A run whose model fails the gate still records its metrics and exits cleanly.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		now := time.Now().UTC()
		records, err := env.Store.LoadWindow(ctx, now, cfg.Corpus.WindowDays)
		if err != nil {
			return err
		}
		zap.L().Info("train: corpus window loaded",
			zap.Int("records", len(records)),
			zap.Int("window_days", cfg.Corpus.WindowDays),
		)

		trainer := ensemble.NewTrainer(cfg.Trainer, env.Extract)
		artifact, err := trainer.Fit(records)
		if err != nil {
			var insufficient *model.InsufficientDataError
			if errors.As(err, &insufficient) {
				fmt.Fprintf(cmd.OutOrStdout(), "[ERROR] dataset too small: %d records, need %d\n",
					insufficient.Count, insufficient.Min)
				fmt.Fprintln(cmd.OutOrStdout(), "[ERROR] wait for the corpus to grow before retraining")
			}
			return err
		}

		validator := validate.New(cfg.Validator, cfg.Trainer, env.Buckets, env.Extract)
		report, verr := validator.Validate(artifact, records)
		if verr != nil {
			var holdout *model.InsufficientHoldoutError
			if errors.As(verr, &holdout) && report != nil {
				// Record the failed attempt before bailing out.
				meta := buildMetadata(report, len(records), verr.Error())
				if _, rerr := env.Registry.Record(ctx, meta); rerr != nil {
					zap.L().Error("train: record failed attempt", zap.Error(rerr))
				}
			}
			return verr
		}

		prev := lastAccepted(ctx, env)

		meta := buildMetadata(report, len(records), trainNotes)
		version, err := env.Registry.Promote(ctx, artifact, meta)
		if err != nil {
			return err
		}

		alerter := monitoring.NewAlerter(cfg.Alerts)
		alerter.SendAlerts(ctx, alerter.Evaluate(meta, prev))

		printTrainReport(cmd, meta, report, artifact, version)
		return nil
	},
}

// lastAccepted returns the most recent accepted model's metadata, or nil.
// Lookup failure is not fatal, alerting just loses its baseline.
func lastAccepted(ctx context.Context, env *env) *model.ModelMetadata {
	metas, err := env.Registry.List(ctx, 50)
	if err != nil {
		zap.L().Warn("train: load previous attempts", zap.Error(err))
		return nil
	}
	for i := range metas {
		if metas[i].Accepted {
			return &metas[i]
		}
	}
	return nil
}

// buildMetadata assembles the audit row for one training attempt.
func buildMetadata(report *validate.Report, datasetSize int, notes string) *model.ModelMetadata {
	now := time.Now().UTC()
	return &model.ModelMetadata{
		Label:          now.Format("2006.01"),
		MAE:            report.MAE,
		R2:             report.R2,
		Precision:      report.Precision,
		CVForestMAE:    report.CVForestMean(),
		CVBoostMAE:     report.CVBoostMean(),
		DatasetSize:    datasetSize,
		FeatureNames:   append([]string(nil), features.Names...),
		TrainedAt:      now,
		SourceRevision: sourceRevision(),
		Notes:          notes,
		Accepted:       report.Accepted,
	}
}

func sourceRevision() string {
	if sha := os.Getenv("GITHUB_SHA"); sha != "" {
		return sha
	}
	return "local"
}

func printTrainReport(cmd *cobra.Command, meta *model.ModelMetadata, report *validate.Report, artifact *ensemble.Artifact, version int) {
	out := cmd.OutOrStdout()
	rule := strings.Repeat("=", 80)

	status := "REJECTED"
	if meta.Accepted {
		status = "ACCEPTED"
	}

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "MONTHLY TRAINING REPORT")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Version:    %d (%s)\n", version, meta.Label)
	fmt.Fprintf(out, "Status:     %s\n", status)
	fmt.Fprintf(out, "Dataset:    %d records (train %d / holdout %d)\n",
		meta.DatasetSize, report.TrainSize, report.HoldoutSize)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "MAE:        %.2f VPH\n", report.MAE)
	fmt.Fprintf(out, "R2:         %.4f\n", report.R2)
	fmt.Fprintf(out, "Precision:  %.1f%%\n", report.Precision)
	fmt.Fprintf(out, "CV forest MAE: %.2f\n", report.CVForestMean())
	fmt.Fprintf(out, "CV boost MAE:  %.2f\n", report.CVBoostMean())
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Top features:")
	for i, fi := range topImportances(artifact, 5) {
		fmt.Fprintf(out, "  %d. %s: %.4f\n", i+1, fi.name, fi.value)
	}
	fmt.Fprintln(out)

	if meta.Accepted {
		fmt.Fprintln(out, "Model promoted to current.")
	} else {
		fmt.Fprintln(out, "Model did not pass the acceptance gate; the previous model stays current.")
	}
	fmt.Fprintln(out, rule)
}

type featureImportance struct {
	name  string
	value float64
}

func topImportances(artifact *ensemble.Artifact, n int) []featureImportance {
	all := artifact.Importances()
	out := make([]featureImportance, 0, len(all))
	for name, v := range all {
		out = append(out, featureImportance{name: name, value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value > out[j].value
		}
		return out[i].name < out[j].name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func init() {
	trainCmd.Flags().StringVar(&trainNotes, "notes", "", "free-form note stored with the model metadata")
	rootCmd.AddCommand(trainCmd)
}
