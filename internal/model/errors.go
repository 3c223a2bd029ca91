package model

import (
	"fmt"
	"strings"
)

// InsufficientDataError reports that the filtered training slice is smaller
// than the configured minimum. The trainer refuses to fit in this case.
type InsufficientDataError struct {
	Count int
	Min   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data: %d records, need at least %d", e.Count, e.Min)
}

// InsufficientHoldoutError reports that the chronological hold-out slice is
// too small to evaluate a model. Validation fails closed: the artifact is
// rejected.
type InsufficientHoldoutError struct {
	Count int
	Min   int
}

func (e *InsufficientHoldoutError) Error() string {
	return fmt.Sprintf("insufficient hold-out data: %d records, need at least %d", e.Count, e.Min)
}

// FeatureExtractionError reports a structurally invalid required attribute.
// Missing optional attributes never produce this error; they degrade to
// documented neutral defaults.
type FeatureExtractionError struct {
	Attr   string
	Reason string
}

func (e *FeatureExtractionError) Error() string {
	return fmt.Sprintf("feature extraction: invalid attribute %q: %s", e.Attr, e.Reason)
}

// FeatureSchemaMismatchError reports that a candidate cannot produce every
// feature name the current artifact was fitted with.
type FeatureSchemaMismatchError struct {
	Missing []string
}

func (e *FeatureSchemaMismatchError) Error() string {
	return fmt.Sprintf("feature schema mismatch: candidate missing features %s", strings.Join(e.Missing, ", "))
}

// NoModelAvailableError reports a prediction request before any model has
// ever been accepted.
type NoModelAvailableError struct{}

func (e *NoModelAvailableError) Error() string {
	return "no accepted model available"
}
