// Package model loads a pre-trained anomaly predictor and exposes it through
// the narrow predict contract the scorer consumes. Training happens
// elsewhere; this package only knows how to read the artifact and evaluate
// it.
package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ransomguard/ransomguard/internal/rgerrors"
)

// Prediction is the outcome of evaluating a feature vector against the
// model: a decision value (more negative means more anomalous, mirroring
// an isolation-forest-style decision function) and the model's own binary
// verdict.
type Prediction struct {
	Decision  float64
	IsAnomaly bool
}

// Predictor is the narrow contract the scorer depends on. Anything that can
// turn a feature vector into a Prediction satisfies it — a real trained
// model, a stub, or a test fake.
type Predictor interface {
	Predict(features []float64) (Prediction, error)
	// Width reports the number of features this model was trained on, used
	// by the scorer's pad/truncate adapter.
	Width() int
}

// Artifact is the on-disk representation of a trained model: a linear
// decision function plus an optional standardization scaler. The training
// pipeline that produces this file is out of scope for this engine; the
// format is a flat JSON document intentionally simple enough that any
// training tool (in any language) can emit it.
type Artifact struct {
	// Weights and Bias define the decision function:
	// decision = dot(standardized_features, Weights) + Bias
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	// AnomalyThreshold: decision values below this are anomalies.
	AnomalyThreshold float64 `json:"anomaly_threshold"`
	// Scaler, if present, standardizes raw features before scoring:
	// standardized[i] = (raw[i] - Mean[i]) / Scale[i]
	Scaler *Scaler `json:"scaler,omitempty"`
}

// Scaler holds per-feature mean/scale for standardization, mirroring
// scikit-learn's StandardScaler contract (mean_, scale_).
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LinearModel is a Predictor backed by an Artifact.
type LinearModel struct {
	artifact Artifact
}

// Load reads and decodes a model artifact from path. Returns
// rgerrors.ModelUnavailable on any failure so callers can degrade to
// threshold+rule detection without treating this as fatal.
func Load(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rgerrors.ModelUnavailable(err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, rgerrors.ModelUnavailable(err)
	}

	if len(a.Weights) == 0 {
		return nil, rgerrors.ModelUnavailable(fmt.Errorf("model artifact %s has no weights", path))
	}

	if a.Scaler != nil && (len(a.Scaler.Mean) != len(a.Weights) || len(a.Scaler.Scale) != len(a.Weights)) {
		return nil, rgerrors.ModelUnavailable(fmt.Errorf("model artifact %s: scaler dimension mismatch", path))
	}

	return &LinearModel{artifact: a}, nil
}

// Width reports the number of features this model expects.
func (m *LinearModel) Width() int {
	return len(m.artifact.Weights)
}

// Predict evaluates features against the linear decision function. Features
// shorter or longer than Width() must be adapted (padded/truncated) by the
// caller — the scorer owns that policy, not this package.
func (m *LinearModel) Predict(features []float64) (Prediction, error) {
	if len(features) != m.Width() {
		return Prediction{}, rgerrors.FeatureShape(len(features), m.Width())
	}

	decision := m.artifact.Bias
	for i, w := range m.artifact.Weights {
		x := features[i]
		if m.artifact.Scaler != nil {
			scale := m.artifact.Scaler.Scale[i]
			if scale == 0 {
				scale = 1
			}
			x = (x - m.artifact.Scaler.Mean[i]) / scale
		}
		decision += w * x
	}

	return Prediction{
		Decision:  decision,
		IsAnomaly: decision < m.artifact.AnomalyThreshold,
	}, nil
}

// NoopPredictor is a Predictor that never loaded a model: every prediction
// is non-anomalous. Used when ModelUnavailable degrades the scorer to
// threshold+rule mode without special-casing a nil *LinearModel everywhere.
type NoopPredictor struct{ width int }

// NewNoopPredictor returns a Predictor that always reports "normal" for
// vectors of the given width.
func NewNoopPredictor(width int) *NoopPredictor { return &NoopPredictor{width: width} }

// Width implements Predictor.
func (n *NoopPredictor) Width() int { return n.width }

// Predict implements Predictor, always returning a non-anomalous verdict.
func (n *NoopPredictor) Predict([]float64) (Prediction, error) {
	return Prediction{Decision: 1, IsAnomaly: false}, nil
}
