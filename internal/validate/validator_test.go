package validate

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/ensemble"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/features"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

func testTrainerConfig() config.TrainerConfig {
	return config.TrainerConfig{
		MinSamples:        20,
		Seed:              42,
		ForestTrees:       10,
		ForestMaxDepth:    4,
		ForestMinSplit:    4,
		ForestMinLeaf:     2,
		BoostRounds:       20,
		BoostMaxDepth:     3,
		BoostMinSplit:     4,
		BoostMinLeaf:      2,
		BoostLearningRate: 0.1,
		BoostSubsample:    0.8,
		RidgeAlpha:        1.0,
		WeightForest:      0.4,
		WeightBoost:       0.4,
		WeightRidge:       0.2,
	}
}

func testValidatorConfig() config.ValidatorConfig {
	return config.ValidatorConfig{
		HoldoutFraction: 0.2,
		MinHoldout:      10,
		CVFolds:         5,
		MinPrecision:    60.0,
		MinR2:           0.20,
	}
}

func testBuckets() model.BucketThresholds {
	return model.BucketThresholds{High: 120, Mid: 60}
}

func syntheticRecords(n int, seed int64) []model.TrainingRecord {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	records := make([]model.TrainingRecord, n)
	for i := range records {
		published := start.Add(time.Duration(i) * 6 * time.Hour)
		niche := rng.Float64() * 100
		vph := 20 + niche*1.2 + rng.Float64()*5

		records[i] = model.TrainingRecord{
			VideoID:            fmt.Sprintf("vid-%04d", i),
			PublishedAt:        published,
			Title:              fmt.Sprintf("video number %d", i),
			DurationSeconds:    30 + rng.Intn(900),
			CategoryID:         22 + i%8,
			ChannelSubscribers: int64(10_000 + rng.Intn(500_000)),
			NicheScore:         niche,
			VPH:                vph,
		}
	}
	return records
}

func trainArtifact(t *testing.T, records []model.TrainingRecord) *ensemble.Artifact {
	t.Helper()
	trainer := ensemble.NewTrainer(testTrainerConfig(), features.New(features.DefaultConfig()))
	artifact, err := trainer.Fit(records)
	require.NoError(t, err)
	return artifact
}

func TestValidate_ReportStructure(t *testing.T) {
	records := syntheticRecords(150, 1)
	artifact := trainArtifact(t, records)

	v := New(testValidatorConfig(), testTrainerConfig(), testBuckets(), features.New(features.DefaultConfig()))
	report, err := v.Validate(artifact, records)
	require.NoError(t, err)

	assert.Equal(t, 120, report.TrainSize)
	assert.Equal(t, 30, report.HoldoutSize)
	assert.Len(t, report.CVForestMAE, 5)
	assert.Len(t, report.CVBoostMAE, 5)
	assert.GreaterOrEqual(t, report.MAE, 0.0)
	assert.GreaterOrEqual(t, report.Precision, 0.0)
	assert.LessOrEqual(t, report.Precision, 100.0)

	// The decision must follow the gate exactly.
	wantAccepted := report.Precision >= 60.0 && report.R2 >= 0.20
	assert.Equal(t, wantAccepted, report.Accepted)
}

func TestValidate_IsDeterministic(t *testing.T) {
	records := syntheticRecords(150, 2)
	artifact := trainArtifact(t, records)

	v := New(testValidatorConfig(), testTrainerConfig(), testBuckets(), features.New(features.DefaultConfig()))
	r1, err := v.Validate(artifact, records)
	require.NoError(t, err)
	r2, err := v.Validate(artifact, records)
	require.NoError(t, err)

	assert.Equal(t, r1.MAE, r2.MAE)
	assert.Equal(t, r1.R2, r2.R2)
	assert.Equal(t, r1.Precision, r2.Precision)
	assert.Equal(t, r1.CVForestMAE, r2.CVForestMAE)
	assert.Equal(t, r1.CVBoostMAE, r2.CVBoostMAE)
}

func TestValidate_SmallHoldoutFailsClosed(t *testing.T) {
	records := syntheticRecords(30, 3)
	artifact := trainArtifact(t, records)

	// 20% of 30 records leaves a 6-row holdout, below the minimum of 10.
	v := New(testValidatorConfig(), testTrainerConfig(), testBuckets(), features.New(features.DefaultConfig()))
	report, err := v.Validate(artifact, records)
	require.Error(t, err)

	var holdout *model.InsufficientHoldoutError
	require.ErrorAs(t, err, &holdout)
	assert.Equal(t, 6, holdout.Count)
	assert.Equal(t, 10, holdout.Min)

	require.NotNil(t, report)
	assert.False(t, report.Accepted)
}

func TestValidate_SortsChronologically(t *testing.T) {
	records := syntheticRecords(150, 4)
	artifact := trainArtifact(t, records)

	// Shuffle the input; the validator must still hold out the most recent
	// rows, so the report matches the sorted run.
	shuffled := make([]model.TrainingRecord, len(records))
	copy(shuffled, records)
	rng := rand.New(rand.NewSource(9))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	v := New(testValidatorConfig(), testTrainerConfig(), testBuckets(), features.New(features.DefaultConfig()))
	sorted, err := v.Validate(artifact, records)
	require.NoError(t, err)
	fromShuffled, err := v.Validate(artifact, shuffled)
	require.NoError(t, err)

	assert.Equal(t, sorted.MAE, fromShuffled.MAE)
	assert.Equal(t, sorted.Precision, fromShuffled.Precision)
}
