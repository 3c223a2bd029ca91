// Package store persists the training corpus, model artifacts, model
// metadata, and served predictions. Two drivers implement the same
// interface: SQLite for local and single-node deployments, Postgres for
// shared ones.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

// CorpusStats summarizes the state of the training corpus.
type CorpusStats struct {
	Total     int        `json:"total"`
	InWindow  int        `json:"in_window"`
	Usable    int        `json:"usable"` // in window and vph > 0
	NewestRow *time.Time `json:"newest_row,omitempty"`
}

// Store defines the persistence interface for the prediction engine.
type Store interface {
	// Corpus
	AppendRecords(ctx context.Context, records []model.TrainingRecord) (int, error)
	LoadWindow(ctx context.Context, end time.Time, windowDays int) ([]model.TrainingRecord, error)
	CorpusStats(ctx context.Context, end time.Time, windowDays int) (*CorpusStats, error)

	// Models
	InsertModelMetadata(ctx context.Context, meta *model.ModelMetadata) (int, error)
	SaveCurrentModel(ctx context.Context, version int, payload []byte) error
	CurrentModel(ctx context.Context) (int, []byte, error)
	ListModelMetadata(ctx context.Context, limit int) ([]model.ModelMetadata, error)

	// Prediction log
	LogPrediction(ctx context.Context, entry *model.PredictionLog) error
	ListPredictions(ctx context.Context, limit int) ([]model.PredictionLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
