package ensemble

import (
	"go.uber.org/zap"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/features"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

// Trainer fits the full ensemble from a window of training records.
type Trainer struct {
	cfg config.TrainerConfig
	ex  *features.Extractor
}

// NewTrainer creates a Trainer with the given hyperparameters and
// feature extractor.
func NewTrainer(cfg config.TrainerConfig, ex *features.Extractor) *Trainer {
	return &Trainer{cfg: cfg, ex: ex}
}

// Fit extracts features from every record, fits the scaler and the three
// regressors, and packages the artifact. The artifact is not promoted here;
// acceptance is the validator's decision. Refuses to fit below the minimum
// sample count.
func (t *Trainer) Fit(records []model.TrainingRecord) (*Artifact, error) {
	if len(records) < t.cfg.MinSamples {
		return nil, &model.InsufficientDataError{Count: len(records), Min: t.cfg.MinSamples}
	}

	X, y, err := DesignMatrix(t.ex, records)
	if err != nil {
		return nil, err
	}

	scaler := FitScaler(X)
	scaled := scaler.TransformMatrix(X)

	zap.L().Info("trainer: fitting ensemble",
		zap.Int("samples", len(y)),
		zap.Int("features", len(X[0])),
		zap.Int64("seed", t.cfg.Seed),
	)

	forest := FitForest(scaled, y, t.cfg)
	boost := FitBoost(scaled, y, t.cfg)
	ridge, err := FitRidge(scaled, y, t.cfg.RidgeAlpha)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(features.Names))
	copy(names, features.Names)

	return &Artifact{
		FeatureNames: names,
		Scaler:       scaler,
		Forest:       forest,
		Boost:        boost,
		Ridge:        ridge,
		Weights: Weights{
			Forest: t.cfg.WeightForest,
			Boost:  t.cfg.WeightBoost,
			Ridge:  t.cfg.WeightRidge,
		},
	}, nil
}

// DesignMatrix extracts the feature matrix and target vector for a record
// slice. Feature extraction errors identify the offending record.
func DesignMatrix(ex *features.Extractor, records []model.TrainingRecord) ([][]float64, []float64, error) {
	X := make([][]float64, 0, len(records))
	y := make([]float64, 0, len(records))
	for _, rec := range records {
		set, err := ex.Extract(rec.Candidate())
		if err != nil {
			return nil, nil, err
		}
		X = append(X, set.Values)
		y = append(y, rec.VPH)
	}
	return X, y, nil
}
