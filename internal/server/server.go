// Package server exposes the prediction engine over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/predictor"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/registry"
)

// Handler serves the prediction API.
type Handler struct {
	svc *predictor.Service
	reg *registry.Registry
}

// NewHandler constructs a Handler bound to the prediction service and
// model registry.
func NewHandler(svc *predictor.Service, reg *registry.Registry) *Handler {
	return &Handler{svc: svc, reg: reg}
}

// NewRouter registers routes and the middleware stack.
func NewRouter(h *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(rateLimiter(cfg))

	r.Get("/health", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/predict", h.predict)
		r.Get("/models/current", h.currentModel)
	})

	return r
}

// rateLimiter bounds the request rate across all clients. The predict
// endpoint is CPU-bound, one global limiter is enough at this scale.
func rateLimiter(cfg config.ServerConfig) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type predictRequest struct {
	Title               string  `json:"title"`
	DurationSeconds     int     `json:"duration_seconds"`
	PublishAt           string  `json:"publish_at"`
	NicheScore          float64 `json:"niche_score"`
	CategoryID          int     `json:"category_id"`
	ChannelSubscribers  int64   `json:"channel_subscribers"`
	ThumbnailTextHit    bool    `json:"thumbnail_text_hit"`
	DaysSinceLastUpload *int    `json:"days_since_last_upload,omitempty"`
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	publishAt, err := time.Parse(time.RFC3339, req.PublishAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "publish_at must be RFC 3339")
		return
	}

	candidate := model.Candidate{
		Title:               req.Title,
		DurationSeconds:     req.DurationSeconds,
		PublishedAt:         publishAt,
		NicheScore:          req.NicheScore,
		CategoryID:          req.CategoryID,
		ChannelSubscribers:  req.ChannelSubscribers,
		ThumbnailTextHit:    req.ThumbnailTextHit,
		DaysSinceLastUpload: req.DaysSinceLastUpload,
	}

	pred, err := h.svc.Predict(r.Context(), candidate)
	if err != nil {
		status, msg := classifyPredictError(err)
		if status == http.StatusInternalServerError {
			zap.L().Error("server: predict failed", zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, pred)
}

func (h *Handler) currentModel(w http.ResponseWriter, r *http.Request) {
	metas, err := h.reg.List(r.Context(), 50)
	if err != nil {
		zap.L().Error("server: list models failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	for _, m := range metas {
		if m.Accepted {
			writeJSON(w, http.StatusOK, m)
			return
		}
	}
	writeError(w, http.StatusServiceUnavailable, "no model available")
}

// classifyPredictError maps domain errors to HTTP status codes. A missing
// model is an availability problem, bad candidate attributes are the
// caller's.
func classifyPredictError(err error) (int, string) {
	var noModel *model.NoModelAvailableError
	if errors.As(err, &noModel) {
		return http.StatusServiceUnavailable, err.Error()
	}
	var extraction *model.FeatureExtractionError
	if errors.As(err, &extraction) {
		return http.StatusUnprocessableEntity, err.Error()
	}
	var schema *model.FeatureSchemaMismatchError
	if errors.As(err, &schema) {
		return http.StatusUnprocessableEntity, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
