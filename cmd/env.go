package main

import (
	"context"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/features"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/registry"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/store"
)

// env wires the shared subsystems commands depend on.
type env struct {
	Store    store.Store
	Registry *registry.Registry
	Extract  *features.Extractor
	Buckets  model.BucketThresholds
}

func initEnv(ctx context.Context, cfg *config.Config) (*env, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	return &env{
		Store:    st,
		Registry: registry.New(st),
		Extract:  features.New(cfg.Features),
		Buckets:  model.BucketThresholds{High: cfg.Predictor.HighVPH, Mid: cfg.Predictor.MidVPH},
	}, nil
}

func (e *env) Close() {
	e.Store.Close()
}
