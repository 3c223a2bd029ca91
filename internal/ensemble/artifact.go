package ensemble

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Weights are the ensemble combination weights in force at fit time. The
// tree-based models carry more weight than the linear baseline.
type Weights struct {
	Forest float64 `json:"forest"`
	Boost  float64 `json:"boost"`
	Ridge  float64 `json:"ridge"`
}

// Artifact is the unit of deployment: three fitted regressors, the fitted
// feature scaler, the ordered feature-name list, and the combination
// weights. Once accepted by the gate an artifact is immutable; concurrent
// prediction requests share it without locking.
type Artifact struct {
	FeatureNames []string `json:"feature_names"`
	Scaler       *Scaler  `json:"scaler"`
	Forest       *Forest  `json:"forest"`
	Boost        *Boost   `json:"boost"`
	Ridge        *Ridge   `json:"ridge"`
	Weights      Weights  `json:"weights"`
}

// Predict scales the raw feature values with the artifact's own scaler and
// returns the weighted-average ensemble prediction, clamped at zero.
func (a *Artifact) Predict(values []float64) float64 {
	x := a.Scaler.Transform(values)
	p := a.Weights.Forest*a.Forest.Predict(x) +
		a.Weights.Boost*a.Boost.Predict(x) +
		a.Weights.Ridge*a.Ridge.Predict(x)
	if p < 0 {
		return 0
	}
	return p
}

// Importances maps feature names to the forest's normalized impurity
// importances, used for the metadata notes.
func (a *Artifact) Importances() map[string]float64 {
	out := make(map[string]float64, len(a.FeatureNames))
	for i, name := range a.FeatureNames {
		if i < len(a.Forest.Importance) {
			out[name] = a.Forest.Importance[i]
		}
	}
	return out
}

// Encode serializes the artifact for the registry.
func (a *Artifact) Encode() ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, eris.Wrap(err, "ensemble: encode artifact")
	}
	return data, nil
}

// Decode restores an artifact from its serialized form and verifies it is
// structurally complete.
func Decode(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrap(err, "ensemble: decode artifact")
	}
	if a.Scaler == nil || a.Forest == nil || a.Boost == nil || a.Ridge == nil {
		return nil, eris.New("ensemble: decoded artifact missing fitted models")
	}
	if len(a.FeatureNames) == 0 {
		return nil, eris.New("ensemble: decoded artifact missing feature names")
	}
	return &a, nil
}
