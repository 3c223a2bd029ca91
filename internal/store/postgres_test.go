package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgres_InsertModelMetadata_ReturnsVersion(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("INSERT INTO model_metadata").
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(7))

	version, err := st.InsertModelMetadata(context.Background(), &model.ModelMetadata{
		Label:        "2025.06",
		FeatureNames: []string{"a"},
		TrainedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CurrentModel_NoneAvailable(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT a.version, a.payload").
		WillReturnRows(pgxmock.NewRows([]string{"version", "payload"}))

	_, _, err := st.CurrentModel(context.Background())
	require.Error(t, err)

	var noModel *model.NoModelAvailableError
	assert.ErrorAs(t, err, &noModel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CurrentModel(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT a.version, a.payload").
		WillReturnRows(pgxmock.NewRows([]string{"version", "payload"}).
			AddRow(3, []byte("artifact")))

	version, payload, err := st.CurrentModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, version)
	assert.Equal(t, "artifact", string(payload))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveCurrentModel_SingleTransaction(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO model_artifacts").
		WithArgs(4, []byte("payload")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO current_model").
		WithArgs(4, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := st.SaveCurrentModel(context.Background(), 4, []byte("payload"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadWindow_ScansRecords(t *testing.T) {
	st, mock := newMockPostgresStore(t)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	published := end.AddDate(0, 0, -10)
	days := 4
	source := "snapshot"

	mock.ExpectQuery("SELECT video_id, published_at").
		WithArgs(end.AddDate(0, 0, -180), end).
		WillReturnRows(pgxmock.NewRows([]string{
			"video_id", "published_at", "title", "duration_seconds", "category_id",
			"channel_subscribers", "niche_score", "thumbnail_text_hit",
			"days_since_last_upload", "vph", "is_own", "source",
		}).AddRow("vid-1", published, "a title", 300, 22, int64(50_000), 70.0, true, &days, 85.5, false, &source))

	records, err := st.LoadWindow(context.Background(), end, 180)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "vid-1", r.VideoID)
	assert.True(t, r.PublishedAt.Equal(published))
	assert.Equal(t, 85.5, r.VPH)
	assert.True(t, r.ThumbnailTextHit)
	require.NotNil(t, r.DaysSinceLastUpload)
	assert.Equal(t, 4, *r.DaysSinceLastUpload)
	assert.Equal(t, "snapshot", r.Source)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LogPrediction(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO prediction_log").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := st.LogPrediction(context.Background(), &model.PredictionLog{
		ID:           "pred-1",
		CreatedAt:    time.Now().UTC(),
		Candidate:    model.Candidate{Title: "t", PublishedAt: time.Now().UTC()},
		VPH:          42,
		Bucket:       model.BucketLow,
		ModelVersion: 1,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
