// Package triage provides the business boundary for the brain-MRI triage
// pipeline. It defines the Service (request orchestration), Engine (classifier
// retry/fallback and artifact generation), Store interface (persistence), the
// severity resolver, and domain models.
package triage
