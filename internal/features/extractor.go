// Package features implements the fixed 12-feature encoding of a video's
// raw attributes. Extraction is pure and deterministic: no I/O, no clock
// reads, no randomness. The feature names are the legacy column names of
// the historical corpus and must never be reordered; a model fitted against
// them is only ever invoked with vectors exposing the same names in the
// same positions.
package features

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

// Names is the fixed, ordered feature schema.
var Names = []string{
	"nicho_score_norm",
	"es_nicho_core",
	"dia_tipo",
	"hora_tipo",
	"es_short",
	"duracion_optima",
	"titulo_len_cat",
	"tiene_gancho",
	"tiene_ano",
	"categoria_prioritaria",
	"canal_pequeno",
	"frecuencia_buena",
}

// Set is an extracted feature vector: Names-ordered values plus the names
// themselves so downstream code can verify schema compatibility.
type Set struct {
	Names  []string
	Values []float64
}

// Value returns the value for a named feature.
func (s *Set) Value(name string) (float64, bool) {
	for i, n := range s.Names {
		if n == name {
			return s.Values[i], true
		}
	}
	return 0, false
}

// Select returns values reordered to match the given names. The second
// return lists names the set cannot produce.
func (s *Set) Select(names []string) ([]float64, []string) {
	out := make([]float64, 0, len(names))
	var missing []string
	for _, name := range names {
		v, ok := s.Value(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		out = append(out, v)
	}
	return out, missing
}

// DefaultConfig returns a FeaturesConfig with the documented defaults.
// Kept in sync with the viper defaults in internal/config.
func DefaultConfig() config.FeaturesConfig {
	return config.FeaturesConfig{
		CoreNicheThreshold:  60,
		ShortMaxSeconds:     90,
		ShortOptimalMinSecs: 20,
		ShortOptimalMaxSecs: 60,
		LongOptimalMinSecs:  180,
		LongOptimalMaxSecs:  600,
		TitleShortMaxChars:  60,
		TitleOKMaxChars:     80,
		HookWords: []string{
			"SECRETO", "SECRET", "TRUCO", "TRICK", "OCULTO", "HIDDEN",
			"NADIE", "INCREÍBLE", "SORPRENDENTE", "DESCUBRE", "REVELADO",
			"FUNCIONA", "ESCONDIDO", "FUNCION", "TIP",
		},
		ValidYears:         []string{"2024", "2025", "2026"},
		PriorityCategories: []int{22, 26, 27, 28},
		SmallChannelSubs:   100_000,
		CadenceMinDays:     3,
		CadenceMaxDays:     7,
	}
}

// Extractor derives feature sets from raw candidate attributes.
type Extractor struct {
	cfg config.FeaturesConfig
}

// Config returns the thresholds and vocabularies in force.
func (e *Extractor) Config() config.FeaturesConfig {
	return e.cfg
}

// New creates an Extractor with the given thresholds and vocabularies.
func New(cfg config.FeaturesConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract encodes a candidate into the fixed schema. Missing optional
// attributes degrade to neutral defaults (niche score 0, unknown cadence
// treated as healthy); only a structurally invalid required attribute
// (zero publish time) is an error.
func (e *Extractor) Extract(c model.Candidate) (*Set, error) {
	if c.PublishedAt.IsZero() {
		return nil, &model.FeatureExtractionError{Attr: "publish_at", Reason: "missing or unparsable timestamp"}
	}

	values := make([]float64, 0, len(Names))
	values = append(values,
		e.nicheScoreNorm(c.NicheScore),
		boolFeature(c.NicheScore >= e.cfg.CoreNicheThreshold),
		e.dayType(c.PublishedAt),
		e.hourType(c.PublishedAt),
		boolFeature(e.isShort(c.DurationSeconds)),
		boolFeature(e.durationOptimal(c.DurationSeconds)),
		e.titleLengthCategory(c.Title),
		boolFeature(e.hasHook(c.Title)),
		boolFeature(e.hasYear(c.Title)),
		boolFeature(e.isPriorityCategory(c.CategoryID)),
		boolFeature(c.ChannelSubscribers < e.cfg.SmallChannelSubs),
		e.cadenceHealthy(c.DaysSinceLastUpload),
	)

	return &Set{Names: Names, Values: values}, nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// nicheScoreNorm maps the raw 0-100 niche relevance score to [0,1].
func (e *Extractor) nicheScoreNorm(score float64) float64 {
	norm := score / 100.0
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

// dayType buckets the publish weekday: 0 Monday-Thursday, 1 Friday,
// 2 weekend. Uses the video's own publish time, never server time.
func (e *Extractor) dayType(t time.Time) float64 {
	switch t.Weekday() {
	case time.Friday:
		return 1
	case time.Saturday, time.Sunday:
		return 2
	default:
		return 0
	}
}

// hourType buckets the publish hour: 1 for 14:00-16:59 (afternoon),
// 2 for 17:00-20:59 (prime time), 0 otherwise.
func (e *Extractor) hourType(t time.Time) float64 {
	h := t.Hour()
	switch {
	case h >= 14 && h < 17:
		return 1
	case h >= 17 && h < 21:
		return 2
	default:
		return 0
	}
}

func (e *Extractor) isShort(durationSecs int) bool {
	return durationSecs < e.cfg.ShortMaxSeconds
}

// durationOptimal reports whether the duration falls in the optimal band
// for its form. The band differs for short-form and long-form content.
func (e *Extractor) durationOptimal(durationSecs int) bool {
	if e.isShort(durationSecs) {
		return durationSecs >= e.cfg.ShortOptimalMinSecs && durationSecs <= e.cfg.ShortOptimalMaxSecs
	}
	return durationSecs >= e.cfg.LongOptimalMinSecs && durationSecs <= e.cfg.LongOptimalMaxSecs
}

// titleLengthCategory buckets the title's character count: 0 short,
// 1 acceptable, 2 long.
func (e *Extractor) titleLengthCategory(title string) float64 {
	n := utf8.RuneCountInString(title)
	switch {
	case n < e.cfg.TitleShortMaxChars:
		return 0
	case n <= e.cfg.TitleOKMaxChars:
		return 1
	default:
		return 2
	}
}

func (e *Extractor) hasHook(title string) bool {
	upper := strings.ToUpper(title)
	for _, hook := range e.cfg.HookWords {
		if strings.Contains(upper, hook) {
			return true
		}
	}
	return false
}

func (e *Extractor) hasYear(title string) bool {
	for _, year := range e.cfg.ValidYears {
		if strings.Contains(title, year) {
			return true
		}
	}
	return false
}

func (e *Extractor) isPriorityCategory(categoryID int) bool {
	for _, id := range e.cfg.PriorityCategories {
		if categoryID == id {
			return true
		}
	}
	return false
}

// cadenceHealthy reports whether the channel's publishing interval falls in
// the healthy band. Unknown history defaults to healthy (neutral value,
// matching the historical corpus where interval data is sparse).
func (e *Extractor) cadenceHealthy(days *int) float64 {
	if days == nil {
		return 1
	}
	return boolFeature(*days >= e.cfg.CadenceMinDays && *days <= e.cfg.CadenceMaxDays)
}
