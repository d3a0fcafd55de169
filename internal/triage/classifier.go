package triage

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Classifier is the interface for any tumor classification backend.
type Classifier interface {
	Classify(ctx context.Context, imageURL string) (*Classification, error)
}

// ErrMalformed reports that a classifier backend returned output that does not
// parse or validate as a classification. Backends wrap it so the engine can
// treat malformed output and transport failures uniformly.
var ErrMalformed = errors.New("malformed classifier response")

// Validate checks a decoded classification against the expected schema:
// known tumor type and finite numeric fields. Backends call it before
// returning external payloads to the engine.
func Validate(c *Classification) error {
	if c == nil {
		return fmt.Errorf("%w: empty result", ErrMalformed)
	}
	if !c.TumorType.Valid() {
		return fmt.Errorf("%w: unknown tumor type %q", ErrMalformed, c.TumorType)
	}
	if math.IsNaN(c.Confidence) || math.IsInf(c.Confidence, 0) {
		return fmt.Errorf("%w: non-finite confidence", ErrMalformed)
	}
	for name, p := range c.Probabilities {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: non-finite probability for %s", ErrMalformed, name)
		}
	}
	return nil
}

// Normalize clamps each probability to [0,1] and renormalizes the distribution
// to sum to 1.0 only when the clamped sum is positive. An all-zero or negative
// distribution is left as-is; severity is driven by TumorPresent, not the
// distribution. Confidence is clamped to [0,1] independently.
func Normalize(c *Classification) {
	var sum float64
	for name, p := range c.Probabilities {
		p = clamp01(p)
		c.Probabilities[name] = p
		sum += p
	}
	if sum > 0 {
		for name, p := range c.Probabilities {
			c.Probabilities[name] = p / sum
		}
	}
	c.Confidence = clamp01(c.Confidence)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Fallback returns the deterministic low-confidence result used when the
// classifier is unreachable or persistently malformed. The pipeline always
// produces some triage outcome for a validly-submitted image.
func Fallback(note string) *Classification {
	return &Classification{
		TumorPresent: false,
		TumorType:    TumorNone,
		Probabilities: map[string]float64{
			string(TumorGlioma):     0.1,
			string(TumorMeningioma): 0.1,
			string(TumorPituitary):  0.1,
			string(TumorNone):       0.7,
		},
		Confidence: 0.5,
		Analysis:   note,
	}
}
