// Package validate implements the acceptance gate that decides whether a
// freshly trained ensemble may replace the model currently serving
// predictions: a chronological hold-out evaluation against classification
// and R² thresholds, plus time-ordered cross-validation diagnostics.
package validate

import (
	"runtime"
	"slices"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/ensemble"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/features"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

// Report carries the validation metrics and the accept/reject decision.
// The cross-validated errors are diagnostic only; the decision rests on
// hold-out classification precision and R².
type Report struct {
	MAE         float64   `json:"mae"`
	R2          float64   `json:"r2"`
	Precision   float64   `json:"precision"` // percent, 0-100
	CVForestMAE []float64 `json:"cv_forest_mae,omitempty"`
	CVBoostMAE  []float64 `json:"cv_boost_mae,omitempty"`
	TrainSize   int       `json:"train_size"`
	HoldoutSize int       `json:"holdout_size"`
	Accepted    bool      `json:"accepted"`
}

// CVForestMean returns the mean cross-validated forest MAE.
func (r *Report) CVForestMean() float64 { return mean(r.CVForestMAE) }

// CVBoostMean returns the mean cross-validated boost MAE.
func (r *Report) CVBoostMean() float64 { return mean(r.CVBoostMAE) }

// Validator evaluates trained artifacts. The trainer config is needed to
// refit per-fold tree models during cross-validation.
type Validator struct {
	cfg     config.ValidatorConfig
	trainer config.TrainerConfig
	buckets model.BucketThresholds
	ex      *features.Extractor
}

// New creates a Validator.
func New(cfg config.ValidatorConfig, trainer config.TrainerConfig, buckets model.BucketThresholds, ex *features.Extractor) *Validator {
	return &Validator{cfg: cfg, trainer: trainer, buckets: buckets, ex: ex}
}

// Validate evaluates the artifact as-is against the chronologically most
// recent slice of records. The artifact was fit on the full dataset, so
// hold-out rows were seen during fitting; the optimism this introduces is a
// known limitation the acceptance thresholds were calibrated against, not a
// bug to fix silently. Fails closed when the hold-out is too small.
func (v *Validator) Validate(artifact *ensemble.Artifact, records []model.TrainingRecord) (*Report, error) {
	recs := make([]model.TrainingRecord, len(records))
	copy(recs, records)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].PublishedAt.Before(recs[j].PublishedAt) })

	X, y, err := ensemble.DesignMatrix(v.ex, recs)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(artifact.FeatureNames, features.Names) {
		missing := missingNames(artifact.FeatureNames, features.Names)
		return nil, &model.FeatureSchemaMismatchError{Missing: missing}
	}

	split := int(float64(len(recs)) * (1 - v.cfg.HoldoutFraction))
	holdout := len(recs) - split
	report := &Report{TrainSize: split, HoldoutSize: holdout}

	if holdout < v.cfg.MinHoldout {
		// Fail closed: the report stays rejected.
		return report, &model.InsufficientHoldoutError{Count: holdout, Min: v.cfg.MinHoldout}
	}

	preds := make([]float64, holdout)
	actuals := make([]float64, holdout)
	for i := 0; i < holdout; i++ {
		preds[i] = artifact.Predict(X[split+i])
		actuals[i] = y[split+i]
	}

	report.MAE = meanAbsoluteError(preds, actuals)
	report.R2 = rSquared(preds, actuals)
	report.Precision = classificationPrecision(preds, actuals, v.buckets) * 100

	report.CVForestMAE, report.CVBoostMAE = v.crossValidate(artifact, X, y)

	report.Accepted = report.Precision >= v.cfg.MinPrecision && report.R2 >= v.cfg.MinR2

	zap.L().Info("validator: evaluation complete",
		zap.Float64("mae", report.MAE),
		zap.Float64("r2", report.R2),
		zap.Float64("precision", report.Precision),
		zap.Int("holdout", holdout),
		zap.Bool("accepted", report.Accepted),
	)

	return report, nil
}

// crossValidate runs time-ordered cross-validation on the two tree-based
// regressors, refitting a fresh clone per fold. Folds never train on data
// chronologically after their test slice. Rows are scaled with the
// artifact's scaler, matching how the models see data in production.
func (v *Validator) crossValidate(artifact *ensemble.Artifact, X [][]float64, y []float64) (forestMAE, boostMAE []float64) {
	folds := timeSeriesSplit(len(y), v.cfg.CVFolds)
	if len(folds) == 0 {
		return nil, nil
	}

	scaled := artifact.Scaler.TransformMatrix(X)
	forestMAE = make([]float64, len(folds))
	boostMAE = make([]float64, len(folds))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for fi, fold := range folds {
		g.Go(func() error {
			trainX, trainY := scaled[:fold.TrainEnd], y[:fold.TrainEnd]
			forest := ensemble.FitForest(trainX, trainY, v.trainer)
			boost := ensemble.FitBoost(trainX, trainY, v.trainer)

			n := fold.TestEnd - fold.TrainEnd
			fp := make([]float64, n)
			bp := make([]float64, n)
			actual := y[fold.TrainEnd:fold.TestEnd]
			for i := 0; i < n; i++ {
				fp[i] = forest.Predict(scaled[fold.TrainEnd+i])
				bp[i] = boost.Predict(scaled[fold.TrainEnd+i])
			}
			forestMAE[fi] = meanAbsoluteError(fp, actual)
			boostMAE[fi] = meanAbsoluteError(bp, actual)
			return nil
		})
	}
	_ = g.Wait()

	return forestMAE, boostMAE
}

func missingNames(wanted, have []string) []string {
	var missing []string
	for _, w := range wanted {
		if !slices.Contains(have, w) {
			missing = append(missing, w)
		}
	}
	if len(missing) == 0 {
		// Same names, different order: the schema contract is positional.
		missing = append(missing, "(feature order mismatch)")
	}
	return missing
}
