package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/predictor"
)

var (
	predictTitle       string
	predictDuration    int
	predictPublishAt   string
	predictNicheScore  float64
	predictCategory    int
	predictSubscribers int64
	predictThumbText   bool
	predictDaysSince   int
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict VPH for an unpublished video candidate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		publishAt, err := time.Parse(time.RFC3339, predictPublishAt)
		if err != nil {
			return eris.Wrapf(err, "parse --publish-at %q", predictPublishAt)
		}

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		candidate := model.Candidate{
			Title:              predictTitle,
			DurationSeconds:    predictDuration,
			PublishedAt:        publishAt,
			NicheScore:         predictNicheScore,
			CategoryID:         predictCategory,
			ChannelSubscribers: predictSubscribers,
			ThumbnailTextHit:   predictThumbText,
		}
		if cmd.Flags().Changed("days-since-upload") {
			d := predictDaysSince
			candidate.DaysSinceLastUpload = &d
		}

		svc := predictor.New(env.Registry, env.Extract, env.Buckets, cfg.Predictor, env.Store)
		pred, err := svc.Predict(ctx, candidate)
		if err != nil {
			var noModel *model.NoModelAvailableError
			if errors.As(err, &noModel) {
				fmt.Fprintln(cmd.OutOrStdout(), "[ERROR] no accepted model available, run `predictor train` first")
			}
			return err
		}

		printPrediction(cmd, candidate, pred)
		return nil
	},
}

func printPrediction(cmd *cobra.Command, c model.Candidate, pred *model.Prediction) {
	out := cmd.OutOrStdout()
	rule := strings.Repeat("=", 80)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "PREDICTION")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Title:          %s\n", c.Title)
	fmt.Fprintf(out, "Publish at:     %s\n", c.PublishedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Predicted VPH:  %.2f\n", pred.VPH)
	fmt.Fprintf(out, "Bucket:         %s\n", pred.Bucket)
	fmt.Fprintf(out, "Model version:  %d\n", pred.ModelVersion)
	fmt.Fprintln(out)

	switch pred.Bucket {
	case model.BucketHigh:
		fmt.Fprintln(out, "High potential. Recommended: publish.")
	case model.BucketAverage:
		fmt.Fprintln(out, "Acceptable, but there is room to improve before publishing.")
	default:
		fmt.Fprintln(out, "High risk of underperforming. Recommended: rework before publishing.")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Advisories:")
	for _, a := range pred.Advisories {
		fmt.Fprintf(out, "  - %s\n", a)
	}
	fmt.Fprintln(out, rule)
}

func init() {
	predictCmd.Flags().StringVar(&predictTitle, "title", "", "candidate title")
	predictCmd.Flags().IntVar(&predictDuration, "duration", 0, "duration in seconds")
	predictCmd.Flags().StringVar(&predictPublishAt, "publish-at", "", "planned publish time (RFC 3339)")
	predictCmd.Flags().Float64Var(&predictNicheScore, "niche-score", 0, "niche relevance score 0-100")
	predictCmd.Flags().IntVar(&predictCategory, "category", 0, "category id")
	predictCmd.Flags().Int64Var(&predictSubscribers, "subscribers", 0, "channel subscriber count")
	predictCmd.Flags().BoolVar(&predictThumbText, "thumbnail-text", false, "thumbnail carries text overlay")
	predictCmd.Flags().IntVar(&predictDaysSince, "days-since-upload", 0, "days since the channel's previous upload")
	predictCmd.MarkFlagRequired("title")
	predictCmd.MarkFlagRequired("publish-at")
	rootCmd.AddCommand(predictCmd)
}
