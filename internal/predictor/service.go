// Package predictor serves VPH predictions for unpublished video candidates
// using the current model from the registry.
package predictor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/features"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/registry"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/store"
)

// Service answers prediction requests. It is safe for concurrent use: the
// artifact is immutable and the registry cache is lock-free on the read
// path.
type Service struct {
	reg     *registry.Registry
	ex      *features.Extractor
	buckets model.BucketThresholds
	cfg     config.PredictorConfig
	store   store.Store
}

// New creates a prediction service. The store may be nil when prediction
// logging is disabled.
func New(reg *registry.Registry, ex *features.Extractor, buckets model.BucketThresholds, cfg config.PredictorConfig, s store.Store) *Service {
	return &Service{reg: reg, ex: ex, buckets: buckets, cfg: cfg, store: s}
}

// Predict extracts features for the candidate, runs the current ensemble,
// classifies the result, and attaches pre-publication advisories. The same
// candidate against the same model version always yields the same answer.
func (s *Service) Predict(ctx context.Context, c model.Candidate) (*model.Prediction, error) {
	artifact, version, err := s.reg.Current(ctx)
	if err != nil {
		return nil, err
	}

	set, err := s.ex.Extract(c)
	if err != nil {
		return nil, err
	}

	values, missing := set.Select(artifact.FeatureNames)
	if len(missing) > 0 {
		return nil, &model.FeatureSchemaMismatchError{Missing: missing}
	}

	vph := artifact.Predict(values)
	pred := &model.Prediction{
		VPH:          vph,
		Bucket:       model.ClassifyVPH(vph, s.buckets),
		Advisories:   s.advise(set),
		ModelVersion: version,
	}

	if s.cfg.LogPredictions && s.store != nil {
		entry := &model.PredictionLog{
			ID:           uuid.New().String(),
			CreatedAt:    time.Now().UTC(),
			Candidate:    c,
			VPH:          pred.VPH,
			Bucket:       pred.Bucket,
			ModelVersion: version,
		}
		if err := s.store.LogPrediction(ctx, entry); err != nil {
			// Logging is best effort, the prediction still stands.
			zap.L().Warn("predictor: log prediction failed", zap.Error(err))
		}
	}

	return pred, nil
}

// advise lists concrete changes that would move the candidate toward the
// patterns the model rewards. An empty checklist yields a single
// confirmation line.
func (s *Service) advise(set *features.Set) []string {
	var out []string
	val := func(name string) float64 {
		v, _ := set.Value(name)
		return v
	}

	if val("tiene_gancho") == 0 {
		out = append(out, "Add a hook word to the title (SECRET, TRICK, HIDDEN)")
	}
	if val("tiene_ano") == 0 {
		out = append(out, "Include the current year in the title")
	}
	if val("titulo_len_cat") == 0 {
		out = append(out, "Title is short, aim for 60-80 characters")
	}
	if val("dia_tipo") == 0 {
		out = append(out, "Better publish day: Friday or the weekend")
	}
	if val("hora_tipo") == 0 {
		out = append(out, "Better publish hour: afternoon prime time")
	}
	if val("duracion_optima") == 0 {
		if val("es_short") == 1 {
			out = append(out, fmt.Sprintf("Optimal short runs %d-%d seconds", s.ex.Config().ShortOptimalMinSecs, s.ex.Config().ShortOptimalMaxSecs))
		} else {
			out = append(out, fmt.Sprintf("Optimal long-form runs %d-%d seconds", s.ex.Config().LongOptimalMinSecs, s.ex.Config().LongOptimalMaxSecs))
		}
	}
	if val("es_nicho_core") == 0 {
		out = append(out, "Candidate sits outside the core niche")
	}

	if len(out) == 0 {
		out = append(out, "Candidate matches all known best practices")
	}
	return out
}
