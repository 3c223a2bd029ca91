// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Corpus    CorpusConfig    `yaml:"corpus" mapstructure:"corpus"`
	Features  FeaturesConfig  `yaml:"features" mapstructure:"features"`
	Trainer   TrainerConfig   `yaml:"trainer" mapstructure:"trainer"`
	Validator ValidatorConfig `yaml:"validator" mapstructure:"validator"`
	Predictor PredictorConfig `yaml:"predictor" mapstructure:"predictor"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Alerts    AlertsConfig    `yaml:"alerts" mapstructure:"alerts"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AlertsConfig configures training-health alerting. An empty webhook URL
// disables delivery; evaluation still runs and logs.
type AlertsConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	PrecisionDropPct     float64 `yaml:"precision_drop_pct" mapstructure:"precision_drop_pct"`
	CorpusShrinkFraction float64 `yaml:"corpus_shrink_fraction" mapstructure:"corpus_shrink_fraction"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CorpusConfig bounds the training slice.
type CorpusConfig struct {
	WindowDays int `yaml:"window_days" mapstructure:"window_days"`
}

// FeaturesConfig holds every threshold and vocabulary the feature extractor
// depends on. Neutral defaults for missing optional attributes are part of
// the extractor contract, not of this config.
type FeaturesConfig struct {
	CoreNicheThreshold  float64  `yaml:"core_niche_threshold" mapstructure:"core_niche_threshold"`
	ShortMaxSeconds     int      `yaml:"short_max_seconds" mapstructure:"short_max_seconds"`
	ShortOptimalMinSecs int      `yaml:"short_optimal_min_secs" mapstructure:"short_optimal_min_secs"`
	ShortOptimalMaxSecs int      `yaml:"short_optimal_max_secs" mapstructure:"short_optimal_max_secs"`
	LongOptimalMinSecs  int      `yaml:"long_optimal_min_secs" mapstructure:"long_optimal_min_secs"`
	LongOptimalMaxSecs  int      `yaml:"long_optimal_max_secs" mapstructure:"long_optimal_max_secs"`
	TitleShortMaxChars  int      `yaml:"title_short_max_chars" mapstructure:"title_short_max_chars"`
	TitleOKMaxChars     int      `yaml:"title_ok_max_chars" mapstructure:"title_ok_max_chars"`
	HookWords           []string `yaml:"hook_words" mapstructure:"hook_words"`
	ValidYears          []string `yaml:"valid_years" mapstructure:"valid_years"`
	PriorityCategories  []int    `yaml:"priority_categories" mapstructure:"priority_categories"`
	SmallChannelSubs    int64    `yaml:"small_channel_subs" mapstructure:"small_channel_subs"`
	CadenceMinDays      int      `yaml:"cadence_min_days" mapstructure:"cadence_min_days"`
	CadenceMaxDays      int      `yaml:"cadence_max_days" mapstructure:"cadence_max_days"`
}

// TrainerConfig holds ensemble hyperparameters. All three regressors are
// tuned for strong regularization: the corpus is small (hundreds of rows)
// and non-stationary, so shallow trees and heavy penalties beat
// expressiveness.
type TrainerConfig struct {
	MinSamples int   `yaml:"min_samples" mapstructure:"min_samples"`
	Seed       int64 `yaml:"seed" mapstructure:"seed"`

	ForestTrees    int `yaml:"forest_trees" mapstructure:"forest_trees"`
	ForestMaxDepth int `yaml:"forest_max_depth" mapstructure:"forest_max_depth"`
	ForestMinSplit int `yaml:"forest_min_split" mapstructure:"forest_min_split"`
	ForestMinLeaf  int `yaml:"forest_min_leaf" mapstructure:"forest_min_leaf"`

	BoostRounds       int     `yaml:"boost_rounds" mapstructure:"boost_rounds"`
	BoostMaxDepth     int     `yaml:"boost_max_depth" mapstructure:"boost_max_depth"`
	BoostMinSplit     int     `yaml:"boost_min_split" mapstructure:"boost_min_split"`
	BoostMinLeaf      int     `yaml:"boost_min_leaf" mapstructure:"boost_min_leaf"`
	BoostLearningRate float64 `yaml:"boost_learning_rate" mapstructure:"boost_learning_rate"`
	BoostSubsample    float64 `yaml:"boost_subsample" mapstructure:"boost_subsample"`

	RidgeAlpha float64 `yaml:"ridge_alpha" mapstructure:"ridge_alpha"`

	WeightForest float64 `yaml:"weight_forest" mapstructure:"weight_forest"`
	WeightBoost  float64 `yaml:"weight_boost" mapstructure:"weight_boost"`
	WeightRidge  float64 `yaml:"weight_ridge" mapstructure:"weight_ridge"`
}

// ValidatorConfig holds the acceptance gate thresholds.
type ValidatorConfig struct {
	HoldoutFraction float64 `yaml:"holdout_fraction" mapstructure:"holdout_fraction"`
	MinHoldout      int     `yaml:"min_holdout" mapstructure:"min_holdout"`
	CVFolds         int     `yaml:"cv_folds" mapstructure:"cv_folds"`
	MinPrecision    float64 `yaml:"min_precision" mapstructure:"min_precision"`
	MinR2           float64 `yaml:"min_r2" mapstructure:"min_r2"`
}

// PredictorConfig holds the bucket thresholds and advisory cutoffs.
type PredictorConfig struct {
	HighVPH          float64 `yaml:"high_vph" mapstructure:"high_vph"`
	MidVPH           float64 `yaml:"mid_vph" mapstructure:"mid_vph"`
	MinAcceptableVPH float64 `yaml:"min_acceptable_vph" mapstructure:"min_acceptable_vph"`
	LogPredictions   bool    `yaml:"log_predictions" mapstructure:"log_predictions"`
}

// ServerConfig configures the prediction API server.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PREDICTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "predictor.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("corpus.window_days", 180)

	v.SetDefault("features.core_niche_threshold", 60)
	v.SetDefault("features.short_max_seconds", 90)
	v.SetDefault("features.short_optimal_min_secs", 20)
	v.SetDefault("features.short_optimal_max_secs", 60)
	v.SetDefault("features.long_optimal_min_secs", 180)
	v.SetDefault("features.long_optimal_max_secs", 600)
	v.SetDefault("features.title_short_max_chars", 60)
	v.SetDefault("features.title_ok_max_chars", 80)
	v.SetDefault("features.hook_words", []string{
		"SECRETO", "SECRET", "TRUCO", "TRICK", "OCULTO", "HIDDEN",
		"NADIE", "INCREÍBLE", "SORPRENDENTE", "DESCUBRE", "REVELADO",
		"FUNCIONA", "ESCONDIDO", "FUNCION", "TIP",
	})
	v.SetDefault("features.valid_years", []string{"2024", "2025", "2026"})
	v.SetDefault("features.priority_categories", []int{22, 26, 27, 28})
	v.SetDefault("features.small_channel_subs", 100_000)
	v.SetDefault("features.cadence_min_days", 3)
	v.SetDefault("features.cadence_max_days", 7)

	v.SetDefault("trainer.min_samples", 100)
	v.SetDefault("trainer.seed", 42)
	v.SetDefault("trainer.forest_trees", 100)
	v.SetDefault("trainer.forest_max_depth", 7)
	v.SetDefault("trainer.forest_min_split", 30)
	v.SetDefault("trainer.forest_min_leaf", 10)
	v.SetDefault("trainer.boost_rounds", 100)
	v.SetDefault("trainer.boost_max_depth", 6)
	v.SetDefault("trainer.boost_min_split", 25)
	v.SetDefault("trainer.boost_min_leaf", 10)
	v.SetDefault("trainer.boost_learning_rate", 0.05)
	v.SetDefault("trainer.boost_subsample", 0.8)
	v.SetDefault("trainer.ridge_alpha", 10.0)
	v.SetDefault("trainer.weight_forest", 0.4)
	v.SetDefault("trainer.weight_boost", 0.4)
	v.SetDefault("trainer.weight_ridge", 0.2)

	v.SetDefault("validator.holdout_fraction", 0.2)
	v.SetDefault("validator.min_holdout", 10)
	v.SetDefault("validator.cv_folds", 5)
	v.SetDefault("validator.min_precision", 60.0)
	v.SetDefault("validator.min_r2", 0.20)

	v.SetDefault("predictor.high_vph", 120.0)
	v.SetDefault("predictor.mid_vph", 60.0)
	v.SetDefault("predictor.min_acceptable_vph", 30.0)
	v.SetDefault("predictor.log_predictions", true)

	v.SetDefault("alerts.precision_drop_pct", 10.0)
	v.SetDefault("alerts.corpus_shrink_fraction", 0.3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
