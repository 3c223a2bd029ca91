package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

var (
	modelsLimit      int
	modelsExportPath string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model registry",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List training attempts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		metas, err := env.Registry.List(ctx, modelsLimit)
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No training attempts recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tLABEL\tSTATUS\tMAE\tR2\tPRECISION\tSAMPLES\tTRAINED")
		for _, m := range metas {
			status := "rejected"
			if m.Accepted {
				status = "accepted"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.4f\t%.1f%%\t%d\t%s\n",
				m.Version, m.Label, status, m.MAE, m.R2, m.Precision,
				m.DatasetSize, m.TrainedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var modelsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export model metadata to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		metas, err := env.Registry.List(ctx, modelsLimit)
		if err != nil {
			return err
		}

		if err := writeModelsXLSX(modelsExportPath, metas); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d attempts to %s\n", len(metas), modelsExportPath)
		return nil
	},
}

func writeModelsXLSX(path string, metas []model.ModelMetadata) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("models")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"version", "label", "accepted", "mae", "r2", "precision_pct",
		"cv_forest_mae", "cv_boost_mae", "dataset_size", "trained_at",
		"source_revision", "notes",
	} {
		header.AddCell().Value = h
	}

	for _, m := range metas {
		row := sheet.AddRow()
		row.AddCell().SetInt(m.Version)
		row.AddCell().Value = m.Label
		row.AddCell().Value = strconv.FormatBool(m.Accepted)
		row.AddCell().SetFloat(m.MAE)
		row.AddCell().SetFloat(m.R2)
		row.AddCell().SetFloat(m.Precision)
		row.AddCell().SetFloat(m.CVForestMAE)
		row.AddCell().SetFloat(m.CVBoostMAE)
		row.AddCell().SetInt(m.DatasetSize)
		row.AddCell().Value = m.TrainedAt.Format(time.RFC3339)
		row.AddCell().Value = m.SourceRevision
		row.AddCell().Value = m.Notes
	}

	return eris.Wrap(f.Save(path), "xlsx: save")
}

func init() {
	modelsListCmd.Flags().IntVar(&modelsLimit, "limit", 50, "maximum attempts to show")
	modelsExportCmd.Flags().IntVar(&modelsLimit, "limit", 50, "maximum attempts to export")
	modelsExportCmd.Flags().StringVar(&modelsExportPath, "out", "models.xlsx", "output path")
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsExportCmd)
	rootCmd.AddCommand(modelsCmd)
}
