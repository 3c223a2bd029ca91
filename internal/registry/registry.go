// Package registry manages model versions: it records every training
// attempt, promotes accepted models to current, and serves the current
// artifact to the predictor from an in-memory cache.
package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/ensemble"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/store"
)

type cached struct {
	version  int
	artifact *ensemble.Artifact
}

// Registry is safe for concurrent use: reads go through an atomic pointer,
// writes are serialized by a mutex.
type Registry struct {
	store store.Store

	mu    sync.Mutex
	cache atomic.Pointer[cached]
}

// New creates a Registry backed by the given store.
func New(s store.Store) *Registry {
	return &Registry{store: s}
}

// Record inserts the metadata row for a training attempt and returns the
// store-assigned version. Every attempt gets a row, accepted or not.
func (r *Registry) Record(ctx context.Context, meta *model.ModelMetadata) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	version, err := r.store.InsertModelMetadata(ctx, meta)
	if err != nil {
		return 0, eris.Wrap(err, "registry: record attempt")
	}
	meta.Version = version
	return version, nil
}

// Promote records the attempt and, when the metadata is marked accepted,
// stores the artifact and repoints current at it. A rejected model gets its
// audit row but never becomes current. Returns the assigned version.
func (r *Registry) Promote(ctx context.Context, artifact *ensemble.Artifact, meta *model.ModelMetadata) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	version, err := r.store.InsertModelMetadata(ctx, meta)
	if err != nil {
		return 0, eris.Wrap(err, "registry: record attempt")
	}
	meta.Version = version

	if !meta.Accepted {
		zap.L().Warn("registry: model rejected, current model unchanged",
			zap.Int("version", version),
			zap.Float64("precision", meta.Precision),
			zap.Float64("r2", meta.R2),
		)
		return version, nil
	}

	payload, err := artifact.Encode()
	if err != nil {
		return 0, eris.Wrapf(err, "registry: encode artifact v%d", version)
	}
	if err := r.store.SaveCurrentModel(ctx, version, payload); err != nil {
		return 0, eris.Wrapf(err, "registry: promote v%d", version)
	}

	r.cache.Store(&cached{version: version, artifact: artifact})
	zap.L().Info("registry: model promoted", zap.Int("version", version))
	return version, nil
}

// Current returns the current artifact and its version. The first call
// loads from the store; later calls serve the cached artifact. Returns
// model.NoModelAvailableError when no model was ever promoted.
func (r *Registry) Current(ctx context.Context) (*ensemble.Artifact, int, error) {
	if c := r.cache.Load(); c != nil {
		return c.artifact, c.version, nil
	}
	return r.Reload(ctx)
}

// Reload bypasses the cache and loads the current model from the store.
func (r *Registry) Reload(ctx context.Context) (*ensemble.Artifact, int, error) {
	version, payload, err := r.store.CurrentModel(ctx)
	if err != nil {
		return nil, 0, err
	}
	artifact, err := ensemble.Decode(payload)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "registry: decode artifact v%d", version)
	}
	r.cache.Store(&cached{version: version, artifact: artifact})
	return artifact, version, nil
}

// List returns the most recent training attempts, newest first.
func (r *Registry) List(ctx context.Context, limit int) ([]model.ModelMetadata, error) {
	return r.store.ListModelMetadata(ctx, limit)
}
