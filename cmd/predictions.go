package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var predictionsLimit int

var predictionsCmd = &cobra.Command{
	Use:   "predictions",
	Short: "List recently served predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := env.Store.ListPredictions(ctx, predictionsLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No predictions logged.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tTITLE\tVPH\tBUCKET\tMODEL\tACTUAL")
		for _, e := range entries {
			actual := "-"
			if e.ActualVPH != nil {
				actual = fmt.Sprintf("%.2f", *e.ActualVPH)
			}
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%d\t%s\n",
				e.CreatedAt.Format("2006-01-02 15:04"), truncate(e.Candidate.Title, 40),
				e.VPH, e.Bucket, e.ModelVersion, actual)
		}
		return w.Flush()
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	predictionsCmd.Flags().IntVar(&predictionsLimit, "limit", 100, "maximum predictions to show")
	rootCmd.AddCommand(predictionsCmd)
}
