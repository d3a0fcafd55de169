package triage

import (
	"context"
	"errors"
)

// Sentinel errors surfaced across the store boundary.
var (
	// ErrInvalidRequest means the triage request is missing its patient or
	// image references. Rejected before any side effects.
	ErrInvalidRequest = errors.New("invalid triage request")

	// ErrPatientNotFound means a record referenced a patient that does not
	// exist. Fatal for the request.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrDuplicateCase means intake reused an existing case code.
	ErrDuplicateCase = errors.New("duplicate case id")
)

// Store is the persistence interface for the triage domain. Predictions and
// their metrics are append-only: the store exposes no update or delete for
// them, and queue ranks are never recomputed once assigned.
type Store interface {
	CreatePatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, id string) (*Patient, bool, error)
	ListPatients(ctx context.Context) ([]*Patient, error)

	// RecordUpload assigns the next upload_order for the patient and persists
	// the row, reporting the assigned order back on u.
	RecordUpload(ctx context.Context, u *Upload) error
	ListUploads(ctx context.Context, patientID string) ([]*Upload, error)

	// CountBySeverity returns the number of predictions already recorded in
	// the given tier. The count-then-insert sequence is intentionally not
	// serialized against InsertPrediction; see Service.nextRank.
	CountBySeverity(ctx context.Context, sev Severity) (int, error)
	InsertPrediction(ctx context.Context, p *Prediction) error
	InsertPredictionMetrics(ctx context.Context, m *PredictionMetrics) error
	GetPrediction(ctx context.Context, id string) (*Prediction, bool, error)
	GetPredictionMetrics(ctx context.Context, predictionID string) (*PredictionMetrics, bool, error)
	ListPredictionsByPatient(ctx context.Context, patientID string) ([]*Prediction, error)

	// ListQueue returns all predictions ordered RED, YELLOW, GREEN and by
	// queue rank ascending within each tier.
	ListQueue(ctx context.Context) ([]*QueueEntry, error)

	SaveContactMessage(ctx context.Context, m *ContactMessage) error
}
