// Package model defines the core domain types shared across the prediction
// engine: training records, candidates, feature sets, model metadata, and
// the VPH bucket classifier.
package model

import "time"

// TrainingRecord is one historical video with its realized outcome. Records
// come from the external capture feed and are append-only: once stored they
// are never mutated, only excluded from a training slice when they age out
// of the rolling window or carry a non-positive VPH.
type TrainingRecord struct {
	VideoID             string    `json:"video_id"`
	PublishedAt         time.Time `json:"published_at"`
	Title               string    `json:"title"`
	DurationSeconds     int       `json:"duration_seconds"`
	CategoryID          int       `json:"category_id"`
	ChannelSubscribers  int64     `json:"channel_subscribers"`
	NicheScore          float64   `json:"niche_score"`
	ThumbnailTextHit    bool      `json:"thumbnail_text_hit"`
	DaysSinceLastUpload *int      `json:"days_since_last_upload,omitempty"`
	VPH                 float64   `json:"vph"`
	IsOwn               bool      `json:"is_own"`
	Source              string    `json:"source,omitempty"`
}

// Candidate is a not-yet-published video evaluated by the predictor. It
// carries the same raw attributes as a TrainingRecord minus the outcome.
type Candidate struct {
	Title               string    `json:"title"`
	DurationSeconds     int       `json:"duration_seconds"`
	PublishedAt         time.Time `json:"publish_at"`
	NicheScore          float64   `json:"niche_score"`
	CategoryID          int       `json:"category_id"`
	ChannelSubscribers  int64     `json:"channel_subscribers"`
	ThumbnailTextHit    bool      `json:"thumbnail_text_hit"`
	DaysSinceLastUpload *int      `json:"days_since_last_upload,omitempty"`
}

// Candidate returns the candidate view of a training record, used when
// re-deriving features during training and validation.
func (r TrainingRecord) Candidate() Candidate {
	return Candidate{
		Title:               r.Title,
		DurationSeconds:     r.DurationSeconds,
		PublishedAt:         r.PublishedAt,
		NicheScore:          r.NicheScore,
		CategoryID:          r.CategoryID,
		ChannelSubscribers:  r.ChannelSubscribers,
		ThumbnailTextHit:    r.ThumbnailTextHit,
		DaysSinceLastUpload: r.DaysSinceLastUpload,
	}
}

// ModelMetadata is the audit record for one training attempt. One row is
// written per attempt whether or not the model was accepted; only accepted
// rows can ever be referenced as current.
type ModelMetadata struct {
	Version        int       `json:"version"`
	Label          string    `json:"label"`
	MAE            float64   `json:"mae"`
	R2             float64   `json:"r2"`
	Precision      float64   `json:"precision"`
	CVForestMAE    float64   `json:"cv_forest_mae"`
	CVBoostMAE     float64   `json:"cv_boost_mae"`
	DatasetSize    int       `json:"dataset_size"`
	FeatureNames   []string  `json:"feature_names"`
	TrainedAt      time.Time `json:"trained_at"`
	SourceRevision string    `json:"source_revision"`
	Notes          string    `json:"notes,omitempty"`
	Accepted       bool      `json:"accepted"`
}

// Prediction is the predictor service's answer for one candidate.
type Prediction struct {
	VPH          float64  `json:"vph"`
	Bucket       Bucket   `json:"bucket"`
	Advisories   []string `json:"advisories,omitempty"`
	ModelVersion int      `json:"model_version"`
}

// PredictionLog is a served prediction persisted for later comparison
// against the realized outcome once the video has been published.
type PredictionLog struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	Candidate    Candidate  `json:"candidate"`
	VPH          float64    `json:"vph"`
	Bucket       Bucket     `json:"bucket"`
	ModelVersion int        `json:"model_version"`
	ActualVPH    *float64   `json:"actual_vph,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}
