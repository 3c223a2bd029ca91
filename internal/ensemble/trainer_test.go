package ensemble

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/features"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

// syntheticRecords builds a chronological corpus whose VPH loosely tracks
// the encoded features, enough signal for the models to pick up.
func syntheticRecords(n int, seed int64) []model.TrainingRecord {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	records := make([]model.TrainingRecord, n)
	for i := range records {
		published := start.Add(time.Duration(i) * 6 * time.Hour)
		niche := rng.Float64() * 100
		duration := 30 + rng.Intn(900)

		vph := 20 + niche*0.8 + rng.Float64()*10
		if published.Weekday() == time.Friday {
			vph += 25
		}
		if duration < 90 {
			vph += 15
		}

		title := fmt.Sprintf("video number %d", i)
		if i%3 == 0 {
			title = fmt.Sprintf("The SECRET behind video %d (2025)", i)
			vph += 20
		}

		records[i] = model.TrainingRecord{
			VideoID:            fmt.Sprintf("vid-%04d", i),
			PublishedAt:        published,
			Title:              title,
			DurationSeconds:    duration,
			CategoryID:         22 + i%8,
			ChannelSubscribers: int64(10_000 + rng.Intn(500_000)),
			NicheScore:         niche,
			VPH:                vph,
		}
	}
	return records
}

func TestTrainer_RefusesSmallDataset(t *testing.T) {
	cfg := testTrainerConfig()
	cfg.MinSamples = 100
	trainer := NewTrainer(cfg, features.New(features.DefaultConfig()))

	_, err := trainer.Fit(syntheticRecords(40, 1))
	require.Error(t, err)

	var insufficient *model.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 40, insufficient.Count)
	assert.Equal(t, 100, insufficient.Min)
}

func TestTrainer_FitProducesCompleteArtifact(t *testing.T) {
	trainer := NewTrainer(testTrainerConfig(), features.New(features.DefaultConfig()))

	artifact, err := trainer.Fit(syntheticRecords(150, 2))
	require.NoError(t, err)

	assert.Equal(t, features.Names, artifact.FeatureNames)
	require.NotNil(t, artifact.Scaler)
	require.NotNil(t, artifact.Forest)
	require.NotNil(t, artifact.Boost)
	require.NotNil(t, artifact.Ridge)
	assert.Equal(t, 0.4, artifact.Weights.Forest)
	assert.Equal(t, 0.4, artifact.Weights.Boost)
	assert.Equal(t, 0.2, artifact.Weights.Ridge)
	assert.Len(t, artifact.Forest.Importance, len(features.Names))
}

func TestTrainer_FitIsDeterministic(t *testing.T) {
	records := syntheticRecords(150, 3)
	trainer := NewTrainer(testTrainerConfig(), features.New(features.DefaultConfig()))

	a1, err := trainer.Fit(records)
	require.NoError(t, err)
	a2, err := trainer.Fit(records)
	require.NoError(t, err)

	ex := features.New(features.DefaultConfig())
	X, _, err := DesignMatrix(ex, records[:25])
	require.NoError(t, err)
	for _, x := range X {
		assert.Equal(t, a1.Predict(x), a2.Predict(x))
	}
}

func TestDesignMatrix_PropagatesExtractionError(t *testing.T) {
	ex := features.New(features.DefaultConfig())
	records := []model.TrainingRecord{{VideoID: "broken", Title: "no publish time"}}

	_, _, err := DesignMatrix(ex, records)
	require.Error(t, err)

	var extractErr *model.FeatureExtractionError
	assert.ErrorAs(t, err, &extractErr)
}
