package predictor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/ensemble"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/features"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/registry"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/store"
)

func testPredictorConfig(logPredictions bool) config.PredictorConfig {
	return config.PredictorConfig{
		HighVPH:          120,
		MidVPH:           60,
		MinAcceptableVPH: 30,
		LogPredictions:   logPredictions,
	}
}

func testBuckets() model.BucketThresholds {
	return model.BucketThresholds{High: 120, Mid: 60}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "predictor.db"),
	})
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// constantArtifact predicts base for every candidate.
func constantArtifact(base float64) *ensemble.Artifact {
	d := len(features.Names)
	std := make([]float64, d)
	for i := range std {
		std[i] = 1
	}
	names := make([]string, d)
	copy(names, features.Names)
	return &ensemble.Artifact{
		FeatureNames: names,
		Scaler:       &ensemble.Scaler{Mean: make([]float64, d), Std: std},
		Forest:       &ensemble.Forest{Features: d},
		Boost:        &ensemble.Boost{Base: base},
		Ridge:        &ensemble.Ridge{Coef: make([]float64, d)},
		Weights:      ensemble.Weights{Boost: 1},
	}
}

func acceptedMeta() *model.ModelMetadata {
	return &model.ModelMetadata{
		Label:          "2025.06",
		FeatureNames:   features.Names,
		TrainedAt:      time.Now().UTC(),
		SourceRevision: "local",
		Accepted:       true,
	}
}

func promote(t *testing.T, reg *registry.Registry, base float64) {
	t.Helper()
	_, err := reg.Promote(context.Background(), constantArtifact(base), acceptedMeta())
	require.NoError(t, err)
}

// strongCandidate matches every pattern the advisor checks.
func strongCandidate() model.Candidate {
	days := 5
	return model.Candidate{
		Title:               "The SECRET nobody told you about cameras in 2025, full honest breakdown",
		DurationSeconds:     45,
		PublishedAt:         time.Date(2025, 6, 6, 17, 30, 0, 0, time.UTC), // Friday prime time
		NicheScore:          85,
		CategoryID:          27,
		ChannelSubscribers:  50_000,
		ThumbnailTextHit:    true,
		DaysSinceLastUpload: &days,
	}
}

func TestPredict_NoModelAvailable(t *testing.T) {
	st := newTestStore(t)
	svc := New(registry.New(st), features.New(features.DefaultConfig()), testBuckets(), testPredictorConfig(false), nil)

	_, err := svc.Predict(context.Background(), strongCandidate())
	require.Error(t, err)

	var noModel *model.NoModelAvailableError
	assert.ErrorAs(t, err, &noModel)
}

func TestPredict_ClassifiesAndVersions(t *testing.T) {
	st := newTestStore(t)
	reg := registry.New(st)
	promote(t, reg, 150)
	svc := New(reg, features.New(features.DefaultConfig()), testBuckets(), testPredictorConfig(false), nil)

	pred, err := svc.Predict(context.Background(), strongCandidate())
	require.NoError(t, err)
	assert.InDelta(t, 150.0, pred.VPH, 1e-9)
	assert.Equal(t, model.BucketHigh, pred.Bucket)
	assert.Equal(t, 1, pred.ModelVersion)
}

func TestPredict_IsDeterministic(t *testing.T) {
	st := newTestStore(t)
	reg := registry.New(st)
	promote(t, reg, 90)
	svc := New(reg, features.New(features.DefaultConfig()), testBuckets(), testPredictorConfig(false), nil)

	first, err := svc.Predict(context.Background(), strongCandidate())
	require.NoError(t, err)
	second, err := svc.Predict(context.Background(), strongCandidate())
	require.NoError(t, err)

	assert.Equal(t, first.VPH, second.VPH)
	assert.Equal(t, first.Bucket, second.Bucket)
	assert.Equal(t, first.Advisories, second.Advisories)
}

func TestPredict_AdvisesWeakCandidate(t *testing.T) {
	st := newTestStore(t)
	reg := registry.New(st)
	promote(t, reg, 50)
	svc := New(reg, features.New(features.DefaultConfig()), testBuckets(), testPredictorConfig(false), nil)

	// Monday morning, no hook, no year, short title, off-niche, awkward length.
	pred, err := svc.Predict(context.Background(), model.Candidate{
		Title:           "vlog",
		DurationSeconds: 120,
		PublishedAt:     time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		NicheScore:      20,
	})
	require.NoError(t, err)
	assert.Equal(t, model.BucketLow, pred.Bucket)

	assert.Contains(t, pred.Advisories, "Add a hook word to the title (SECRET, TRICK, HIDDEN)")
	assert.Contains(t, pred.Advisories, "Include the current year in the title")
	assert.Contains(t, pred.Advisories, "Title is short, aim for 60-80 characters")
	assert.Contains(t, pred.Advisories, "Better publish day: Friday or the weekend")
	assert.Contains(t, pred.Advisories, "Better publish hour: afternoon prime time")
	assert.Contains(t, pred.Advisories, "Candidate sits outside the core niche")
}

func TestPredict_StrongCandidateGetsConfirmation(t *testing.T) {
	st := newTestStore(t)
	reg := registry.New(st)
	promote(t, reg, 130)
	svc := New(reg, features.New(features.DefaultConfig()), testBuckets(), testPredictorConfig(false), nil)

	pred, err := svc.Predict(context.Background(), strongCandidate())
	require.NoError(t, err)
	assert.Equal(t, []string{"Candidate matches all known best practices"}, pred.Advisories)
}

func TestPredict_LogsWhenEnabled(t *testing.T) {
	st := newTestStore(t)
	reg := registry.New(st)
	promote(t, reg, 90)
	svc := New(reg, features.New(features.DefaultConfig()), testBuckets(), testPredictorConfig(true), st)

	pred, err := svc.Predict(context.Background(), strongCandidate())
	require.NoError(t, err)

	entries, err := st.ListPredictions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, pred.VPH, entries[0].VPH)
	assert.Equal(t, pred.Bucket, entries[0].Bucket)
	assert.Equal(t, 1, entries[0].ModelVersion)
	assert.Equal(t, strongCandidate().Title, entries[0].Candidate.Title)
}

func TestPredict_MissingPublishTime(t *testing.T) {
	st := newTestStore(t)
	reg := registry.New(st)
	promote(t, reg, 90)
	svc := New(reg, features.New(features.DefaultConfig()), testBuckets(), testPredictorConfig(false), nil)

	_, err := svc.Predict(context.Background(), model.Candidate{Title: "no date"})
	require.Error(t, err)

	var extractErr *model.FeatureExtractionError
	assert.ErrorAs(t, err, &extractErr)
}
