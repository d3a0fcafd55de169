package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// ClassifyAttempts bounds the classify-retry loop: one call plus one retry
// with the same input before falling back.
const ClassifyAttempts = 2

// ArtifactGenerator produces a tumor localization overlay for an image and
// returns the storage path of the rendered artifact.
type ArtifactGenerator interface {
	Generate(ctx context.Context, patientID, imageURL string, tumorType TumorType) (string, error)
}

// EngineHooks receives engine events for instrumentation. Nil funcs are skipped.
type EngineHooks struct {
	OnClassifierCall func(attempt int, duration float64, failed bool)
	OnFallback       func()
	OnArtifact       func(duration float64, failed bool)
}

// Engine runs the classifier and artifact steps of the pipeline. It holds no
// store dependency and never returns a hard classification failure.
type Engine struct {
	classifier Classifier
	artifacts  ArtifactGenerator // nil disables overlay generation
	logger     log.Logger
	hooks      EngineHooks
}

// NewEngine creates a new triage engine with the given dependencies.
func NewEngine(classifier Classifier, artifacts ArtifactGenerator, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		classifier: classifier,
		artifacts:  artifacts,
		logger:     logger,
		hooks:      hooks,
	}
}

// Classify obtains a classification for imageURL. A malformed or failed call
// is retried exactly once with the same input; a second failure yields the
// deterministic NoTumor fallback with an explanatory note. Successful results
// are normalized before being returned.
func (e *Engine) Classify(ctx context.Context, imageURL string) *Classification {
	var lastErr error

	for attempt := 1; attempt <= ClassifyAttempts; attempt++ {
		start := time.Now()
		c, err := e.classifier.Classify(ctx, imageURL)
		if e.hooks.OnClassifierCall != nil {
			e.hooks.OnClassifierCall(attempt, time.Since(start).Seconds(), err != nil)
		}
		if err == nil {
			Normalize(c)
			return c
		}
		lastErr = err
		e.logger.Warn(ctx, "classifier call failed", "attempt", attempt, "error", err)
	}

	if e.hooks.OnFallback != nil {
		e.hooks.OnFallback()
	}
	e.logger.Error(ctx, lastErr, "classifier unavailable after retry, using fallback")

	return Fallback(fmt.Sprintf(
		"Automatic classification was unavailable (%v). Returning a low-confidence NoTumor assessment; manual review of this scan is recommended.",
		lastErr,
	))
}

// GenerateArtifact renders the tumor localization overlay best-effort. It
// returns nil when generation is disabled, not applicable (no tumor), or
// fails; artifact failure never aborts a triage request.
func (e *Engine) GenerateArtifact(ctx context.Context, patientID, imageURL string, c *Classification) *string {
	if e.artifacts == nil || !c.TumorPresent || c.TumorType == TumorNone {
		return nil
	}

	start := time.Now()
	path, err := e.artifacts.Generate(ctx, patientID, imageURL, c.TumorType)
	if e.hooks.OnArtifact != nil {
		e.hooks.OnArtifact(time.Since(start).Seconds(), err != nil)
	}
	if err != nil {
		e.logger.Warn(ctx, "artifact generation failed", "patient_id", patientID, "error", err)
		return nil
	}
	return &path
}
