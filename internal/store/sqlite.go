package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS training_records (
	video_id               TEXT PRIMARY KEY,
	published_at           DATETIME NOT NULL,
	title                  TEXT NOT NULL,
	duration_seconds       INTEGER NOT NULL,
	category_id            INTEGER NOT NULL,
	channel_subscribers    INTEGER NOT NULL,
	niche_score            REAL NOT NULL,
	thumbnail_text_hit     INTEGER NOT NULL,
	days_since_last_upload INTEGER,
	vph                    REAL NOT NULL,
	is_own                 INTEGER NOT NULL,
	source                 TEXT,
	created_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS model_metadata (
	version         INTEGER PRIMARY KEY AUTOINCREMENT,
	label           TEXT NOT NULL,
	mae             REAL NOT NULL,
	r2              REAL NOT NULL,
	precision_pct   REAL NOT NULL,
	cv_forest_mae   REAL NOT NULL,
	cv_boost_mae    REAL NOT NULL,
	dataset_size    INTEGER NOT NULL,
	feature_names   TEXT NOT NULL,
	trained_at      DATETIME NOT NULL,
	source_revision TEXT NOT NULL,
	notes           TEXT,
	accepted        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS model_artifacts (
	version  INTEGER PRIMARY KEY REFERENCES model_metadata(version),
	payload  BLOB NOT NULL,
	saved_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS current_model (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	version    INTEGER NOT NULL REFERENCES model_artifacts(version),
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS prediction_log (
	id            TEXT PRIMARY KEY,
	created_at    DATETIME NOT NULL,
	candidate     TEXT NOT NULL,
	vph           REAL NOT NULL,
	bucket        TEXT NOT NULL,
	model_version INTEGER NOT NULL,
	actual_vph    REAL,
	resolved_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_training_records_published_at ON training_records(published_at);
CREATE INDEX IF NOT EXISTS idx_prediction_log_created_at ON prediction_log(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendRecords inserts records, silently skipping video IDs already stored.
// Returns the number of rows actually inserted.
func (s *SQLiteStore) AppendRecords(ctx context.Context, records []model.TrainingRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin append")
	}
	defer tx.Rollback()

	var inserted int64
	for _, r := range records {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO training_records
			 (video_id, published_at, title, duration_seconds, category_id, channel_subscribers,
			  niche_score, thumbnail_text_hit, days_since_last_upload, vph, is_own, source)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.VideoID, r.PublishedAt.UTC(), r.Title, r.DurationSeconds, r.CategoryID,
			r.ChannelSubscribers, r.NicheScore, boolToInt(r.ThumbnailTextHit),
			r.DaysSinceLastUpload, r.VPH, boolToInt(r.IsOwn), nullString(r.Source),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert record %s", r.VideoID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit append")
	}
	return int(inserted), nil
}

// LoadWindow returns usable records published within windowDays before end,
// oldest first. Rows with a non-positive realized VPH are excluded.
func (s *SQLiteStore) LoadWindow(ctx context.Context, end time.Time, windowDays int) ([]model.TrainingRecord, error) {
	start := end.AddDate(0, 0, -windowDays)
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, published_at, title, duration_seconds, category_id, channel_subscribers,
		        niche_score, thumbnail_text_hit, days_since_last_upload, vph, is_own, source
		 FROM training_records
		 WHERE vph > 0 AND published_at >= ? AND published_at <= ?
		 ORDER BY published_at ASC`,
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load window")
	}
	defer rows.Close()

	var records []model.TrainingRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: load window iterate")
}

func (s *SQLiteStore) CorpusStats(ctx context.Context, end time.Time, windowDays int) (*CorpusStats, error) {
	start := end.AddDate(0, 0, -windowDays)

	var stats CorpusStats
	var newest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE published_at >= ?1 AND published_at <= ?2),
		        COUNT(*) FILTER (WHERE published_at >= ?1 AND published_at <= ?2 AND vph > 0),
		        MAX(published_at)
		 FROM training_records`,
		start.UTC(), end.UTC(),
	).Scan(&stats.Total, &stats.InWindow, &stats.Usable, &newest)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: corpus stats")
	}
	if newest.Valid {
		// MAX() strips the column's declared type, so the driver hands the
		// stored text back instead of a time.Time.
		t, err := parseSQLiteTime(newest.String)
		if err != nil {
			return nil, err
		}
		stats.NewestRow = &t
	}
	return &stats, nil
}

// InsertModelMetadata writes one audit row and returns the store-assigned
// version number.
func (s *SQLiteStore) InsertModelMetadata(ctx context.Context, meta *model.ModelMetadata) (int, error) {
	namesJSON, err := json.Marshal(meta.FeatureNames)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: marshal feature names")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO model_metadata
		 (label, mae, r2, precision_pct, cv_forest_mae, cv_boost_mae, dataset_size,
		  feature_names, trained_at, source_revision, notes, accepted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.Label, meta.MAE, meta.R2, meta.Precision, meta.CVForestMAE, meta.CVBoostMAE,
		meta.DatasetSize, string(namesJSON), meta.TrainedAt.UTC(), meta.SourceRevision,
		nullString(meta.Notes), boolToInt(meta.Accepted),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert model metadata")
	}
	version, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: last insert id")
	}
	return int(version), nil
}

// SaveCurrentModel stores the serialized artifact and repoints the current
// model at it in a single transaction.
func (s *SQLiteStore) SaveCurrentModel(ctx context.Context, version int, payload []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save model")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO model_artifacts (version, payload) VALUES (?, ?)
		 ON CONFLICT(version) DO UPDATE SET payload = excluded.payload, saved_at = datetime('now')`,
		version, payload,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert artifact v%d", version)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO current_model (id, version, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version, updated_at = excluded.updated_at`,
		version, time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "sqlite: point current model at v%d", version)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save model")
}

func (s *SQLiteStore) CurrentModel(ctx context.Context) (int, []byte, error) {
	var version int
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT a.version, a.payload
		 FROM current_model c JOIN model_artifacts a ON a.version = c.version
		 WHERE c.id = 1`,
	).Scan(&version, &payload)
	if err == sql.ErrNoRows {
		return 0, nil, &model.NoModelAvailableError{}
	}
	if err != nil {
		return 0, nil, eris.Wrap(err, "sqlite: current model")
	}
	return version, payload, nil
}

func (s *SQLiteStore) ListModelMetadata(ctx context.Context, limit int) ([]model.ModelMetadata, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, label, mae, r2, precision_pct, cv_forest_mae, cv_boost_mae,
		        dataset_size, feature_names, trained_at, source_revision, notes, accepted
		 FROM model_metadata ORDER BY version DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list model metadata")
	}
	defer rows.Close()

	var metas []model.ModelMetadata
	for rows.Next() {
		var m model.ModelMetadata
		var namesJSON string
		var notes sql.NullString
		var accepted int
		if err := rows.Scan(&m.Version, &m.Label, &m.MAE, &m.R2, &m.Precision,
			&m.CVForestMAE, &m.CVBoostMAE, &m.DatasetSize, &namesJSON,
			&m.TrainedAt, &m.SourceRevision, &notes, &accepted); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan model metadata")
		}
		if err := json.Unmarshal([]byte(namesJSON), &m.FeatureNames); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal feature names")
		}
		m.Notes = notes.String
		m.Accepted = accepted != 0
		m.TrainedAt = m.TrainedAt.UTC()
		metas = append(metas, m)
	}
	return metas, eris.Wrap(rows.Err(), "sqlite: list model metadata iterate")
}

func (s *SQLiteStore) LogPrediction(ctx context.Context, entry *model.PredictionLog) error {
	candidateJSON, err := json.Marshal(entry.Candidate)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal candidate")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prediction_log
		 (id, created_at, candidate, vph, bucket, model_version, actual_vph, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.CreatedAt.UTC(), string(candidateJSON), entry.VPH,
		string(entry.Bucket), entry.ModelVersion, entry.ActualVPH, entry.ResolvedAt,
	)
	return eris.Wrap(err, "sqlite: insert prediction")
}

func (s *SQLiteStore) ListPredictions(ctx context.Context, limit int) ([]model.PredictionLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, candidate, vph, bucket, model_version, actual_vph, resolved_at
		 FROM prediction_log ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list predictions")
	}
	defer rows.Close()

	var entries []model.PredictionLog
	for rows.Next() {
		var e model.PredictionLog
		var candidateJSON string
		var actual sql.NullFloat64
		var resolved sql.NullTime
		if err := rows.Scan(&e.ID, &e.CreatedAt, &candidateJSON, &e.VPH, &e.Bucket,
			&e.ModelVersion, &actual, &resolved); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prediction")
		}
		if err := json.Unmarshal([]byte(candidateJSON), &e.Candidate); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal candidate")
		}
		if actual.Valid {
			e.ActualVPH = &actual.Float64
		}
		if resolved.Valid {
			t := resolved.Time.UTC()
			e.ResolvedAt = &t
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list predictions iterate")
}

// helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseSQLiteTime(s string) (time.Time, error) {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("sqlite: unparsable time %q", s)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.TrainingRecord, error) {
	var r model.TrainingRecord
	var thumb, own int
	var days sql.NullInt64
	var source sql.NullString

	err := row.Scan(&r.VideoID, &r.PublishedAt, &r.Title, &r.DurationSeconds, &r.CategoryID,
		&r.ChannelSubscribers, &r.NicheScore, &thumb, &days, &r.VPH, &own, &source)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan record")
	}

	r.PublishedAt = r.PublishedAt.UTC()
	r.ThumbnailTextHit = thumb != 0
	r.IsOwn = own != 0
	if days.Valid {
		d := int(days.Int64)
		r.DaysSinceLastUpload = &d
	}
	r.Source = source.String
	return &r, nil
}
