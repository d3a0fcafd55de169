// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/neurotriage/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// PostgreSQL error codes mapped to domain sentinels.
const (
	pgCodeForeignKeyViolation = "23503"
	pgCodeUniqueViolation     = "23505"
)

// Store persists the triage domain in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store. The pool is owned by the
// caller and not closed here.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// translateErr maps FK and unique violations to domain sentinels.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeForeignKeyViolation:
			return triage.ErrPatientNotFound
		case pgCodeUniqueViolation:
			return triage.ErrDuplicateCase
		}
	}
	return err
}

// CreatePatient inserts one intake record.
func (s *Store) CreatePatient(ctx context.Context, p *triage.Patient) error {
	ctx, span := startSpan(ctx, "pgstore.CreatePatient", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO patients (id, case_id, patient_name, age, gender, seizure, headache_severity, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.CaseID, p.Name, p.Age, p.Gender, p.Seizure, string(p.HeadacheSeverity), p.CreatedAt,
	)
	if err != nil {
		failSpan(span, err)
		return fmt.Errorf("insert patient: %w", translateErr(err))
	}
	return nil
}

const patientColumns = `id, case_id, patient_name, age, gender, seizure, headache_severity, created_at`

// GetPatient retrieves a patient by ID.
func (s *Store) GetPatient(ctx context.Context, id string) (*triage.Patient, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetPatient", "SELECT")
	defer span.End()

	row := s.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		failSpan(span, err)
		return nil, false, err
	}
	return p, true, nil
}

// ListPatients returns all patients, newest first.
func (s *Store) ListPatients(ctx context.Context) ([]*triage.Patient, error) {
	ctx, span := startSpan(ctx, "pgstore.ListPatients", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY created_at DESC`)
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	var out []*triage.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			failSpan(span, err)
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return out, nil
}

// RecordUpload inserts the upload with the next upload_order for the patient.
func (s *Store) RecordUpload(ctx context.Context, u *triage.Upload) error {
	ctx, span := startSpan(ctx, "pgstore.RecordUpload", "INSERT")
	defer span.End()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO mri_uploads (id, patient_id, image_path, upload_order, created_at)
		 VALUES ($1, $2, $3,
		         (SELECT COALESCE(MAX(upload_order), 0) + 1 FROM mri_uploads WHERE patient_id = $2),
		         $4)
		 RETURNING upload_order`,
		u.ID, u.PatientID, u.ImagePath, u.CreatedAt,
	).Scan(&u.UploadOrder)
	if err != nil {
		failSpan(span, err)
		return fmt.Errorf("insert upload: %w", translateErr(err))
	}
	return nil
}

// ListUploads returns a patient's uploads in upload order.
func (s *Store) ListUploads(ctx context.Context, patientID string) ([]*triage.Upload, error) {
	ctx, span := startSpan(ctx, "pgstore.ListUploads", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, patient_id, image_path, upload_order, created_at
		 FROM mri_uploads WHERE patient_id = $1 ORDER BY upload_order`,
		patientID,
	)
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var out []*triage.Upload
	for rows.Next() {
		var u triage.Upload
		if err := rows.Scan(&u.ID, &u.PatientID, &u.ImagePath, &u.UploadOrder, &u.CreatedAt); err != nil {
			failSpan(span, err)
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return out, nil
}

// CountBySeverity returns the number of predictions in a tier. Deliberately
// not serialized against InsertPrediction; see triage.Service.
func (s *Store) CountBySeverity(ctx context.Context, sev triage.Severity) (int, error) {
	ctx, span := startSpan(ctx, "pgstore.CountBySeverity", "SELECT")
	defer span.End()

	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM predictions WHERE severity_level = $1`, string(sev),
	).Scan(&n)
	if err != nil {
		failSpan(span, err)
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return n, nil
}

// InsertPrediction appends one immutable prediction row.
func (s *Store) InsertPrediction(ctx context.Context, p *triage.Prediction) error {
	ctx, span := startSpan(ctx, "pgstore.InsertPrediction", "INSERT")
	defer span.End()

	probsJSON, err := json.Marshal(p.Probabilities)
	if err != nil {
		return fmt.Errorf("marshal probabilities: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO predictions (id, patient_id, tumor_present, tumor_type, probabilities,
		                          severity_level, queue_rank, gradcam_path, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.PatientID, p.TumorPresent, string(p.TumorType), probsJSON,
		string(p.Severity), p.QueueRank, p.GradcamPath, p.CreatedAt,
	)
	if err != nil {
		failSpan(span, err)
		return fmt.Errorf("insert prediction: %w", translateErr(err))
	}
	return nil
}

// InsertPredictionMetrics writes the confidence-derived companion row.
func (s *Store) InsertPredictionMetrics(ctx context.Context, m *triage.PredictionMetrics) error {
	ctx, span := startSpan(ctx, "pgstore.InsertPredictionMetrics", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO metrics (prediction_id, accuracy, "precision", recall, f1_score, recall_sensitivity, specificity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.PredictionID, m.Accuracy, m.Precision, m.Recall, m.F1Score, m.Sensitivity, m.Specificity,
	)
	if err != nil {
		failSpan(span, err)
		return fmt.Errorf("insert metrics: %w", translateErr(err))
	}
	return nil
}

const predictionColumns = `id, patient_id, tumor_present, tumor_type, probabilities, severity_level, queue_rank, gradcam_path, created_at`

// GetPrediction retrieves a prediction by ID.
func (s *Store) GetPrediction(ctx context.Context, id string) (*triage.Prediction, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetPrediction", "SELECT")
	defer span.End()

	row := s.pool.QueryRow(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE id = $1`, id)
	p, err := scanPrediction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		failSpan(span, err)
		return nil, false, err
	}
	return p, true, nil
}

// GetPredictionMetrics retrieves the companion metrics for a prediction.
func (s *Store) GetPredictionMetrics(ctx context.Context, predictionID string) (*triage.PredictionMetrics, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetPredictionMetrics", "SELECT")
	defer span.End()

	var m triage.PredictionMetrics
	err := s.pool.QueryRow(ctx,
		`SELECT prediction_id, accuracy, "precision", recall, f1_score, recall_sensitivity, specificity
		 FROM metrics WHERE prediction_id = $1`,
		predictionID,
	).Scan(&m.PredictionID, &m.Accuracy, &m.Precision, &m.Recall, &m.F1Score, &m.Sensitivity, &m.Specificity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		failSpan(span, err)
		return nil, false, fmt.Errorf("scan metrics: %w", err)
	}
	return &m, true, nil
}

// ListPredictionsByPatient returns a patient's predictions, newest first.
func (s *Store) ListPredictionsByPatient(ctx context.Context, patientID string) ([]*triage.Prediction, error) {
	ctx, span := startSpan(ctx, "pgstore.ListPredictionsByPatient", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT `+predictionColumns+` FROM predictions WHERE patient_id = $1 ORDER BY created_at DESC`,
		patientID,
	)
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []*triage.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			failSpan(span, err)
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return out, nil
}

// ListQueue returns all predictions in triage queue order, joined with
// patient identity for display.
func (s *Store) ListQueue(ctx context.Context) ([]*triage.QueueEntry, error) {
	ctx, span := startSpan(ctx, "pgstore.ListQueue", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT p.id, p.patient_id, p.tumor_present, p.tumor_type, p.probabilities,
		        p.severity_level, p.queue_rank, p.gradcam_path, p.created_at,
		        pa.case_id, pa.patient_name
		 FROM predictions p
		 JOIN patients pa ON pa.id = p.patient_id
		 ORDER BY CASE p.severity_level WHEN 'RED' THEN 0 WHEN 'YELLOW' THEN 1 ELSE 2 END,
		          p.queue_rank`,
	)
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	var out []*triage.QueueEntry
	for rows.Next() {
		var (
			e         triage.QueueEntry
			tumorType string
			severity  string
			probsJSON []byte
		)
		if err := rows.Scan(
			&e.ID, &e.PatientID, &e.TumorPresent, &tumorType, &probsJSON,
			&severity, &e.QueueRank, &e.GradcamPath, &e.CreatedAt,
			&e.CaseID, &e.PatientName,
		); err != nil {
			failSpan(span, err)
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		e.TumorType = triage.TumorType(tumorType)
		e.Severity = triage.Severity(severity)
		if len(probsJSON) > 0 {
			if err := json.Unmarshal(probsJSON, &e.Probabilities); err != nil {
				failSpan(span, err)
				return nil, fmt.Errorf("unmarshal probabilities: %w", err)
			}
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("iterate queue: %w", err)
	}
	return out, nil
}

// SaveContactMessage stores one contact form submission.
func (s *Store) SaveContactMessage(ctx context.Context, m *triage.ContactMessage) error {
	ctx, span := startSpan(ctx, "pgstore.SaveContactMessage", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO contact_messages (id, name, email, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Name, m.Email, m.Message, m.CreatedAt,
	)
	if err != nil {
		failSpan(span, err)
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

func scanPatient(row pgx.Row) (*triage.Patient, error) {
	var (
		p        triage.Patient
		headache string
	)
	err := row.Scan(&p.ID, &p.CaseID, &p.Name, &p.Age, &p.Gender, &p.Seizure, &headache, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	p.HeadacheSeverity = triage.HeadacheSeverity(headache)
	return &p, nil
}

func scanPrediction(row pgx.Row) (*triage.Prediction, error) {
	var (
		p         triage.Prediction
		tumorType string
		severity  string
		probsJSON []byte
	)
	err := row.Scan(&p.ID, &p.PatientID, &p.TumorPresent, &tumorType, &probsJSON,
		&severity, &p.QueueRank, &p.GradcamPath, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan prediction: %w", err)
	}
	p.TumorType = triage.TumorType(tumorType)
	p.Severity = triage.Severity(severity)
	if len(probsJSON) > 0 {
		if err := json.Unmarshal(probsJSON, &p.Probabilities); err != nil {
			return nil, fmt.Errorf("unmarshal probabilities: %w", err)
		}
	}
	return &p, nil
}
