package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/ensemble"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/features"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/validate"
)

func TestBuildMetadata(t *testing.T) {
	report := &validate.Report{
		MAE:         15.2,
		R2:          0.31,
		Precision:   68.5,
		CVForestMAE: []float64{10, 20},
		CVBoostMAE:  []float64{12, 18},
		TrainSize:   120,
		HoldoutSize: 30,
		Accepted:    true,
	}

	meta := buildMetadata(report, 150, "monthly run")

	assert.Equal(t, time.Now().UTC().Format("2006.01"), meta.Label)
	assert.Equal(t, 15.2, meta.MAE)
	assert.Equal(t, 0.31, meta.R2)
	assert.Equal(t, 68.5, meta.Precision)
	assert.Equal(t, 15.0, meta.CVForestMAE)
	assert.Equal(t, 15.0, meta.CVBoostMAE)
	assert.Equal(t, 150, meta.DatasetSize)
	assert.Equal(t, features.Names, meta.FeatureNames)
	assert.Equal(t, "monthly run", meta.Notes)
	assert.True(t, meta.Accepted)
	assert.NotEmpty(t, meta.SourceRevision)
}

func TestSourceRevision(t *testing.T) {
	t.Setenv("GITHUB_SHA", "")
	assert.Equal(t, "local", sourceRevision())

	t.Setenv("GITHUB_SHA", "abc123")
	assert.Equal(t, "abc123", sourceRevision())
}

func TestTopImportances(t *testing.T) {
	artifact := &ensemble.Artifact{
		FeatureNames: []string{"a", "b", "c", "d"},
		Forest: &ensemble.Forest{
			Importance: []float64{0.1, 0.4, 0.4, 0.1},
		},
	}

	top := topImportances(artifact, 3)
	require.Len(t, top, 3)

	// Ties break alphabetically so the order is stable.
	assert.Equal(t, "b", top[0].name)
	assert.Equal(t, "c", top[1].name)
	assert.Equal(t, "a", top[2].name)
	assert.Equal(t, 0.4, top[0].value)
}

func TestTopImportances_FewerThanRequested(t *testing.T) {
	artifact := &ensemble.Artifact{
		FeatureNames: []string{"a", "b"},
		Forest:       &ensemble.Forest{Importance: []float64{0.7, 0.3}},
	}

	top := topImportances(artifact, 5)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].name)
}
