package triage

import (
	"math"
	"testing"
)

const probTolerance = 1e-6

func TestNormalize_ClampsAndRenormalizes(t *testing.T) {
	t.Parallel()

	c := &Classification{
		TumorPresent: true,
		TumorType:    TumorGlioma,
		Probabilities: map[string]float64{
			"Glioma":     1.6,  // clamps to 1.0
			"Meningioma": -0.2, // clamps to 0.0
			"Pituitary":  0.5,
			"NoTumor":    0.5,
		},
		Confidence: 0.8,
	}

	Normalize(c)

	var sum float64
	for name, p := range c.Probabilities {
		if p < 0 || p > 1 {
			t.Errorf("probability %s = %v, want in [0,1]", name, p)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > probTolerance {
		t.Errorf("probability sum = %v, want 1.0 +- %v", sum, probTolerance)
	}
	if c.Probabilities["Meningioma"] != 0 {
		t.Errorf("Meningioma = %v, want 0 after clamp", c.Probabilities["Meningioma"])
	}
}

func TestNormalize_AllZeroLeftAsIs(t *testing.T) {
	t.Parallel()

	c := &Classification{
		Probabilities: map[string]float64{"Glioma": 0, "NoTumor": 0},
		Confidence:    0.4,
	}

	Normalize(c)

	for name, p := range c.Probabilities {
		if p != 0 {
			t.Errorf("probability %s = %v, want 0 (all-zero distribution left as-is)", name, p)
		}
	}
}

func TestNormalize_NegativeOnlyLeftUnnormalized(t *testing.T) {
	t.Parallel()

	c := &Classification{
		Probabilities: map[string]float64{"Glioma": -0.3, "NoTumor": -0.7},
	}

	Normalize(c)

	// negatives clamp to zero, and a zero sum skips renormalization
	if c.Probabilities["Glioma"] != 0 || c.Probabilities["NoTumor"] != 0 {
		t.Errorf("probabilities = %v, want all zero", c.Probabilities)
	}
}

func TestNormalize_ConfidenceClampedIndependently(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{3.7, 1},
	}

	for _, tt := range tests {
		c := &Classification{Confidence: tt.in, Probabilities: map[string]float64{}}
		Normalize(c)
		if c.Confidence != tt.want {
			t.Errorf("confidence %v normalized to %v, want %v", tt.in, c.Confidence, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		c       *Classification
		wantErr bool
	}{
		{"valid", &Classification{TumorType: TumorGlioma, Confidence: 0.8, Probabilities: map[string]float64{"Glioma": 0.8}}, false},
		{"nil", nil, true},
		{"unknown type", &Classification{TumorType: "Sarcoma", Confidence: 0.5}, true},
		{"empty type", &Classification{TumorType: "", Confidence: 0.5}, true},
		{"nan confidence", &Classification{TumorType: TumorNone, Confidence: math.NaN()}, true},
		{"inf probability", &Classification{TumorType: TumorNone, Probabilities: map[string]float64{"Glioma": math.Inf(1)}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tt.c)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFallback_Deterministic(t *testing.T) {
	t.Parallel()

	c := Fallback("classifier down")

	if c.TumorPresent {
		t.Error("fallback TumorPresent = true, want false")
	}
	if c.TumorType != TumorNone {
		t.Errorf("fallback TumorType = %s, want NoTumor", c.TumorType)
	}
	if c.Confidence != 0.5 {
		t.Errorf("fallback Confidence = %v, want 0.5", c.Confidence)
	}
	want := map[string]float64{"Glioma": 0.1, "Meningioma": 0.1, "Pituitary": 0.1, "NoTumor": 0.7}
	for name, p := range want {
		if c.Probabilities[name] != p {
			t.Errorf("fallback probability %s = %v, want %v", name, c.Probabilities[name], p)
		}
	}
	if c.Analysis != "classifier down" {
		t.Errorf("fallback Analysis = %q, want note passed through", c.Analysis)
	}
	if ResolveSeverity(c) != SeverityGreen {
		t.Errorf("fallback severity = %s, want GREEN", ResolveSeverity(c))
	}
}

func TestDeriveMetrics(t *testing.T) {
	t.Parallel()

	m := DeriveMetrics("pred-1", 0.8)

	if m.PredictionID != "pred-1" {
		t.Errorf("PredictionID = %q, want pred-1", m.PredictionID)
	}
	for name, got := range map[string]float64{
		"Accuracy":    m.Accuracy,
		"Precision":   m.Precision,
		"Recall":      m.Recall,
		"F1Score":     m.F1Score,
		"Sensitivity": m.Sensitivity,
	} {
		if got != 0.8 {
			t.Errorf("%s = %v, want 0.8", name, got)
		}
	}
	if math.Abs(m.Specificity-0.2) > probTolerance {
		t.Errorf("Specificity = %v, want 0.2", m.Specificity)
	}
}
