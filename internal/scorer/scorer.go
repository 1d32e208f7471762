// Package scorer implements the hybrid anomaly classifier: a weighted
// linear threshold, a rule ensemble, and an optional pre-trained model, all
// evaluated against the same feature vector and combined into one verdict.
package scorer

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/ransomguard/ransomguard/internal/features"
	"github.com/ransomguard/ransomguard/internal/model"
)

// Config holds the scorer's tunable thresholds and weights. Field names and
// defaults mirror the engine's flat configuration keys one for one.
type Config struct {
	OpThreshold      float64 // FILE_OP_FREQUENCY_THRESHOLD (T_op)
	ExtThreshold     int     // EXTENSION_CHANGE_THRESHOLD (T_ext)
	EntropyThreshold float64 // ENTROPY_THRESHOLD (T_ent)

	OpWeight      float64 // FREQUENCY_WEIGHT (W_op, percentage points)
	ExtWeight     float64 // EXTENSION_WEIGHT (W_ext, percentage points)
	EntropyWeight float64 // ENTROPY_WEIGHT (W_ent, percentage points)

	DetectionThreshold       float64 // DETECTION_THRESHOLD
	RequireModelConfirmation bool    // REQUIRE_MODEL_CONFIRMATION
}

// DefaultConfig returns the engine's documented default thresholds.
func DefaultConfig() Config {
	return Config{
		OpThreshold:              10.0,
		ExtThreshold:             3,
		EntropyThreshold:         0.8,
		OpWeight:                 30.0,
		ExtWeight:                50.0,
		EntropyWeight:            20.0,
		DetectionThreshold:       0.6,
		RequireModelConfirmation: true,
	}
}

// Source identifies which sub-classifier contributed to a verdict.
type Source string

const (
	SourceThreshold Source = "threshold"
	SourceRule      Source = "rule"
	SourceModel     Source = "model"
)

// Verdict is the Scorer's output for one feature vector.
type Verdict struct {
	Suspicious bool
	Confidence float64
	Reason     string
	Sources    []Source
}

// Scorer combines the weighted threshold, rule ensemble, and optional model
// into one verdict per call to Score.
type Scorer struct {
	cfg       Config
	predictor model.Predictor
	logger    *slog.Logger

	unavailableOnce sync.Once
}

// New constructs a Scorer. predictor may be model.NewNoopPredictor when no
// trained model is configured; the scorer degrades identically whether the
// model was never loaded or failed at load time.
func New(cfg Config, predictor model.Predictor, logger *slog.Logger) *Scorer {
	return &Scorer{cfg: cfg, predictor: predictor, logger: logger}
}

// Score evaluates v against the threshold, rule, and model classifiers and
// returns the combined verdict. Callers (the Dispatcher) must not invoke
// Score unless features.Extractor.HasMinimumData reports true.
func (s *Scorer) Score(v features.Vector) Verdict {
	score := s.weightedScore(v)
	thresholdPositive := score >= s.cfg.DetectionThreshold

	firedRules := s.matchRules(v)
	rulePositive := len(firedRules) > 0

	decision, modelPositive := s.evaluateModel(v)

	var suspicious bool
	if s.cfg.RequireModelConfirmation {
		suspicious = thresholdPositive && (rulePositive || modelPositive)
	} else {
		suspicious = thresholdPositive || rulePositive || modelPositive
	}

	var sources []Source
	if thresholdPositive {
		sources = append(sources, SourceThreshold)
	}
	if rulePositive {
		sources = append(sources, SourceRule)
	}
	if modelPositive {
		sources = append(sources, SourceModel)
	}

	return Verdict{
		Suspicious: suspicious,
		Confidence: confidence(decision, v.ExtChanges),
		Reason:     reason(score, firedRules, modelPositive, v),
		Sources:    sources,
	}
}

func (s *Scorer) weightedScore(v features.Vector) float64 {
	extThreshold := math.Max(1, float64(s.cfg.ExtThreshold))

	return (v.OpRate/s.cfg.OpThreshold)*(s.cfg.OpWeight/100) +
		(float64(v.ExtChanges)/extThreshold)*(s.cfg.ExtWeight/100) +
		(v.MeanEntropy/s.cfg.EntropyThreshold)*(s.cfg.EntropyWeight/100)
}

// matchRules returns the 1-indexed rule numbers that fired, per §4.3's
// four-rule ensemble.
func (s *Scorer) matchRules(v features.Vector) []int {
	var fired []int
	if v.ExtChanges >= 5 {
		fired = append(fired, 1)
	}
	if v.OpRate >= 12 && v.ExtChanges >= 3 {
		fired = append(fired, 2)
	}
	if v.OpRate >= 12 && v.MeanEntropy >= 0.8 {
		fired = append(fired, 3)
	}
	if v.ExtChanges >= 3 && v.MeanEntropy >= 0.85 {
		fired = append(fired, 4)
	}
	return fired
}

// evaluateModel adapts v to the predictor's expected width and returns its
// decision value and anomaly verdict. A predictor error degrades to
// non-anomalous for this call without failing the overall score, logging
// the degradation once per process.
func (s *Scorer) evaluateModel(v features.Vector) (decision float64, positive bool) {
	width := s.predictor.Width()
	adapted := adaptFeatures([]float64{v.OpRate, float64(v.ExtChanges), v.MeanEntropy}, width)

	pred, err := s.predictor.Predict(adapted)
	if err != nil {
		s.unavailableOnce.Do(func() {
			s.logger.Warn("anomaly model unavailable, degrading to threshold+rules", "error", err)
		})
		return 0, false
	}

	return pred.Decision, pred.IsAnomaly
}

// adaptFeatures zero-pads or truncates raw to exactly width entries, the
// policy §9 requires live in an adapter rather than the hot scoring path.
func adaptFeatures(raw []float64, width int) []float64 {
	if len(raw) == width {
		return raw
	}
	adapted := make([]float64, width)
	copy(adapted, raw) // short raw zero-pads the tail; long raw truncates
	return adapted
}

// confidence maps a model decision value plus the extension-change bonus to
// a 0..100 score, per §4.3's exact shape.
func confidence(decision float64, extChanges int) float64 {
	bonus := math.Min(30, float64(extChanges)*10)

	var c float64
	if decision < 0 {
		c = 50 + math.Abs(decision)*50 + bonus
	} else {
		c = 50 - decision*25 + bonus
	}

	return math.Max(0, math.Min(100, c))
}

func reason(score float64, firedRules []int, modelPositive bool, v features.Vector) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("weighted score %.2f (op_rate=%.1f/s, ext_changes=%d, entropy=%.2f)",
		score, v.OpRate, v.ExtChanges, v.MeanEntropy))

	if len(firedRules) > 0 {
		names := make([]string, len(firedRules))
		for i, n := range firedRules {
			names[i] = fmt.Sprintf("#%d", n)
		}
		parts = append(parts, "rules "+strings.Join(names, ","))
	}

	if modelPositive {
		parts = append(parts, "model anomaly")
	}

	return strings.Join(parts, "; ")
}
