package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/db"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS training_records (
	video_id               TEXT PRIMARY KEY,
	published_at           TIMESTAMPTZ NOT NULL,
	title                  TEXT NOT NULL,
	duration_seconds       INTEGER NOT NULL,
	category_id            INTEGER NOT NULL,
	channel_subscribers    BIGINT NOT NULL,
	niche_score            DOUBLE PRECISION NOT NULL,
	thumbnail_text_hit     BOOLEAN NOT NULL,
	days_since_last_upload INTEGER,
	vph                    DOUBLE PRECISION NOT NULL,
	is_own                 BOOLEAN NOT NULL,
	source                 TEXT,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS model_metadata (
	version         INTEGER PRIMARY KEY GENERATED ALWAYS AS IDENTITY,
	label           TEXT NOT NULL,
	mae             DOUBLE PRECISION NOT NULL,
	r2              DOUBLE PRECISION NOT NULL,
	precision_pct   DOUBLE PRECISION NOT NULL,
	cv_forest_mae   DOUBLE PRECISION NOT NULL,
	cv_boost_mae    DOUBLE PRECISION NOT NULL,
	dataset_size    INTEGER NOT NULL,
	feature_names   JSONB NOT NULL,
	trained_at      TIMESTAMPTZ NOT NULL,
	source_revision TEXT NOT NULL,
	notes           TEXT,
	accepted        BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS model_artifacts (
	version  INTEGER PRIMARY KEY REFERENCES model_metadata(version),
	payload  BYTEA NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS current_model (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	version    INTEGER NOT NULL REFERENCES model_artifacts(version),
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS prediction_log (
	id            TEXT PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	candidate     JSONB NOT NULL,
	vph           DOUBLE PRECISION NOT NULL,
	bucket        TEXT NOT NULL,
	model_version INTEGER NOT NULL,
	actual_vph    DOUBLE PRECISION,
	resolved_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_training_records_published_at ON training_records(published_at);
CREATE INDEX IF NOT EXISTS idx_prediction_log_created_at ON prediction_log(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var recordColumns = []string{
	"video_id", "published_at", "title", "duration_seconds", "category_id",
	"channel_subscribers", "niche_score", "thumbnail_text_hit",
	"days_since_last_upload", "vph", "is_own", "source",
}

// AppendRecords bulk-inserts records via COPY, skipping video IDs already
// stored. Returns the number of rows actually inserted.
func (s *PostgresStore) AppendRecords(ctx context.Context, records []model.TrainingRecord) (int, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		var source any
		if r.Source != "" {
			source = r.Source
		}
		rows = append(rows, []any{
			r.VideoID, r.PublishedAt.UTC(), r.Title, r.DurationSeconds, r.CategoryID,
			r.ChannelSubscribers, r.NicheScore, r.ThumbnailTextHit,
			r.DaysSinceLastUpload, r.VPH, r.IsOwn, source,
		})
	}

	n, err := db.BulkInsertIgnore(ctx, s.pool, db.InsertIgnoreConfig{
		Table:        "training_records",
		Columns:      recordColumns,
		ConflictKeys: []string{"video_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: append records")
	}
	return int(n), nil
}

func (s *PostgresStore) LoadWindow(ctx context.Context, end time.Time, windowDays int) ([]model.TrainingRecord, error) {
	start := end.AddDate(0, 0, -windowDays)
	rows, err := s.pool.Query(ctx,
		`SELECT video_id, published_at, title, duration_seconds, category_id, channel_subscribers,
		        niche_score, thumbnail_text_hit, days_since_last_upload, vph, is_own, source
		 FROM training_records
		 WHERE vph > 0 AND published_at >= $1 AND published_at <= $2
		 ORDER BY published_at ASC`,
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load window")
	}
	defer rows.Close()

	var records []model.TrainingRecord
	for rows.Next() {
		var r model.TrainingRecord
		var days *int
		var source *string
		if err := rows.Scan(&r.VideoID, &r.PublishedAt, &r.Title, &r.DurationSeconds,
			&r.CategoryID, &r.ChannelSubscribers, &r.NicheScore, &r.ThumbnailTextHit,
			&days, &r.VPH, &r.IsOwn, &source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		r.PublishedAt = r.PublishedAt.UTC()
		r.DaysSinceLastUpload = days
		if source != nil {
			r.Source = *source
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: load window iterate")
}

func (s *PostgresStore) CorpusStats(ctx context.Context, end time.Time, windowDays int) (*CorpusStats, error) {
	start := end.AddDate(0, 0, -windowDays)

	var stats CorpusStats
	var newest *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE published_at >= $1 AND published_at <= $2),
		        COUNT(*) FILTER (WHERE published_at >= $1 AND published_at <= $2 AND vph > 0),
		        MAX(published_at)
		 FROM training_records`,
		start.UTC(), end.UTC(),
	).Scan(&stats.Total, &stats.InWindow, &stats.Usable, &newest)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: corpus stats")
	}
	if newest != nil {
		t := newest.UTC()
		stats.NewestRow = &t
	}
	return &stats, nil
}

func (s *PostgresStore) InsertModelMetadata(ctx context.Context, meta *model.ModelMetadata) (int, error) {
	namesJSON, err := json.Marshal(meta.FeatureNames)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: marshal feature names")
	}

	var notes *string
	if meta.Notes != "" {
		notes = &meta.Notes
	}

	var version int
	err = s.pool.QueryRow(ctx,
		`INSERT INTO model_metadata
		 (label, mae, r2, precision_pct, cv_forest_mae, cv_boost_mae, dataset_size,
		  feature_names, trained_at, source_revision, notes, accepted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING version`,
		meta.Label, meta.MAE, meta.R2, meta.Precision, meta.CVForestMAE, meta.CVBoostMAE,
		meta.DatasetSize, namesJSON, meta.TrainedAt.UTC(), meta.SourceRevision,
		notes, meta.Accepted,
	).Scan(&version)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert model metadata")
	}
	return version, nil
}

func (s *PostgresStore) SaveCurrentModel(ctx context.Context, version int, payload []byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save model")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO model_artifacts (version, payload) VALUES ($1, $2)
		 ON CONFLICT (version) DO UPDATE SET payload = EXCLUDED.payload, saved_at = now()`,
		version, payload,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert artifact v%d", version)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO current_model (id, version, updated_at) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`,
		version, time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "postgres: point current model at v%d", version)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save model")
}

func (s *PostgresStore) CurrentModel(ctx context.Context) (int, []byte, error) {
	var version int
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT a.version, a.payload
		 FROM current_model c JOIN model_artifacts a ON a.version = c.version
		 WHERE c.id = 1`,
	).Scan(&version, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, &model.NoModelAvailableError{}
	}
	if err != nil {
		return 0, nil, eris.Wrap(err, "postgres: current model")
	}
	return version, payload, nil
}

func (s *PostgresStore) ListModelMetadata(ctx context.Context, limit int) ([]model.ModelMetadata, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT version, label, mae, r2, precision_pct, cv_forest_mae, cv_boost_mae,
		        dataset_size, feature_names, trained_at, source_revision, notes, accepted
		 FROM model_metadata ORDER BY version DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list model metadata")
	}
	defer rows.Close()

	var metas []model.ModelMetadata
	for rows.Next() {
		var m model.ModelMetadata
		var namesJSON []byte
		var notes *string
		if err := rows.Scan(&m.Version, &m.Label, &m.MAE, &m.R2, &m.Precision,
			&m.CVForestMAE, &m.CVBoostMAE, &m.DatasetSize, &namesJSON,
			&m.TrainedAt, &m.SourceRevision, &notes, &m.Accepted); err != nil {
			return nil, eris.Wrap(err, "postgres: scan model metadata")
		}
		if err := json.Unmarshal(namesJSON, &m.FeatureNames); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal feature names")
		}
		if notes != nil {
			m.Notes = *notes
		}
		m.TrainedAt = m.TrainedAt.UTC()
		metas = append(metas, m)
	}
	return metas, eris.Wrap(rows.Err(), "postgres: list model metadata iterate")
}

func (s *PostgresStore) LogPrediction(ctx context.Context, entry *model.PredictionLog) error {
	candidateJSON, err := json.Marshal(entry.Candidate)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal candidate")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO prediction_log
		 (id, created_at, candidate, vph, bucket, model_version, actual_vph, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.CreatedAt.UTC(), candidateJSON, entry.VPH,
		string(entry.Bucket), entry.ModelVersion, entry.ActualVPH, entry.ResolvedAt,
	)
	return eris.Wrap(err, "postgres: insert prediction")
}

func (s *PostgresStore) ListPredictions(ctx context.Context, limit int) ([]model.PredictionLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, candidate, vph, bucket, model_version, actual_vph, resolved_at
		 FROM prediction_log ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list predictions")
	}
	defer rows.Close()

	var entries []model.PredictionLog
	for rows.Next() {
		var e model.PredictionLog
		var candidateJSON []byte
		var actual *float64
		var resolved *time.Time
		if err := rows.Scan(&e.ID, &e.CreatedAt, &candidateJSON, &e.VPH, &e.Bucket,
			&e.ModelVersion, &actual, &resolved); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prediction")
		}
		if err := json.Unmarshal(candidateJSON, &e.Candidate); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal candidate")
		}
		e.ActualVPH = actual
		if resolved != nil {
			t := resolved.UTC()
			e.ResolvedAt = &t
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list predictions iterate")
}
