package pgstore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/neurotriage/internal/postgres"
	"github.com/linnemanlabs/neurotriage/internal/triage"
	"github.com/linnemanlabs/neurotriage/internal/triage/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("NEUROTRIAGE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("NEUROTRIAGE_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func createPatient(t *testing.T, s *pgstore.Store) *triage.Patient {
	t.Helper()
	p := &triage.Patient{
		ID:               ulid.Make().String(),
		CaseID:           "CASE-" + ulid.Make().String(),
		Name:             "Integration Patient",
		Age:              61,
		Gender:           "male",
		Seizure:          true,
		HeadacheSeverity: triage.HeadacheSevere,
		CreatedAt:        time.Now().Truncate(time.Microsecond).UTC(),
	}
	if err := s.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	return p
}

func TestPatientRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	p := createPatient(t, s)

	got, ok, err := s.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if !ok {
		t.Fatal("GetPatient returned ok=false, want true")
	}
	if got.CaseID != p.CaseID || got.Name != p.Name || got.Age != p.Age {
		t.Errorf("patient mismatch: got %+v, want %+v", got, p)
	}
	if got.HeadacheSeverity != triage.HeadacheSevere {
		t.Errorf("HeadacheSeverity = %s, want Severe", got.HeadacheSeverity)
	}
	if !got.Seizure {
		t.Error("Seizure = false, want true")
	}
}

func TestCreatePatient_DuplicateCase(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	p := createPatient(t, s)

	dup := *p
	dup.ID = ulid.Make().String()
	err := s.CreatePatient(ctx, &dup)
	if !errors.Is(err, triage.ErrDuplicateCase) {
		t.Fatalf("err = %v, want ErrDuplicateCase", err)
	}
}

func TestPredictionRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	p := createPatient(t, s)

	gradcam := p.ID + "/1700000000_gradcam.png"
	pred := &triage.Prediction{
		ID:           ulid.Make().String(),
		PatientID:    p.ID,
		TumorPresent: true,
		TumorType:    triage.TumorGlioma,
		Probabilities: map[string]float64{
			"Glioma": 0.8, "Meningioma": 0.1, "Pituitary": 0.05, "NoTumor": 0.05,
		},
		Severity:    triage.SeverityRed,
		QueueRank:   1,
		GradcamPath: &gradcam,
		CreatedAt:   time.Now().Truncate(time.Microsecond).UTC(),
	}
	if err := s.InsertPrediction(ctx, pred); err != nil {
		t.Fatalf("InsertPrediction: %v", err)
	}

	got, ok, err := s.GetPrediction(ctx, pred.ID)
	if err != nil {
		t.Fatalf("GetPrediction: %v", err)
	}
	if !ok {
		t.Fatal("GetPrediction returned ok=false, want true")
	}
	if got.TumorType != triage.TumorGlioma || got.Severity != triage.SeverityRed {
		t.Errorf("prediction mismatch: got type=%s severity=%s", got.TumorType, got.Severity)
	}
	if got.Probabilities["Glioma"] != 0.8 {
		t.Errorf("Probabilities = %v, want Glioma 0.8", got.Probabilities)
	}
	if got.GradcamPath == nil || *got.GradcamPath != gradcam {
		t.Errorf("GradcamPath = %v, want %q", got.GradcamPath, gradcam)
	}
}

func TestInsertPrediction_UnknownPatient(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	pred := &triage.Prediction{
		ID:        ulid.Make().String(),
		PatientID: "does-not-exist",
		TumorType: triage.TumorNone,
		Severity:  triage.SeverityGreen,
		QueueRank: 1,
		CreatedAt: time.Now().UTC(),
	}
	err := s.InsertPrediction(ctx, pred)
	if !errors.Is(err, triage.ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound", err)
	}
}

func TestCountBySeverity_NextRankProperty(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	p := createPatient(t, s)

	before, err := s.CountBySeverity(ctx, triage.SeverityYellow)
	if err != nil {
		t.Fatalf("CountBySeverity: %v", err)
	}

	// two reads without an intervening insert observe the same count
	again, err := s.CountBySeverity(ctx, triage.SeverityYellow)
	if err != nil {
		t.Fatalf("CountBySeverity: %v", err)
	}
	if before != again {
		t.Errorf("counts = %d and %d, want identical without an intervening insert", before, again)
	}

	pred := &triage.Prediction{
		ID:        ulid.Make().String(),
		PatientID: p.ID,
		TumorType: triage.TumorPituitary,
		Severity:  triage.SeverityYellow,
		QueueRank: before + 1,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.InsertPrediction(ctx, pred); err != nil {
		t.Fatalf("InsertPrediction: %v", err)
	}

	after, err := s.CountBySeverity(ctx, triage.SeverityYellow)
	if err != nil {
		t.Fatalf("CountBySeverity: %v", err)
	}
	if after != before+1 {
		t.Errorf("count after insert = %d, want %d", after, before+1)
	}
}

func TestMetricsRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	p := createPatient(t, s)
	pred := &triage.Prediction{
		ID:        ulid.Make().String(),
		PatientID: p.ID,
		TumorType: triage.TumorNone,
		Severity:  triage.SeverityGreen,
		QueueRank: 1,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.InsertPrediction(ctx, pred); err != nil {
		t.Fatalf("InsertPrediction: %v", err)
	}

	if err := s.InsertPredictionMetrics(ctx, triage.DeriveMetrics(pred.ID, 0.5)); err != nil {
		t.Fatalf("InsertPredictionMetrics: %v", err)
	}

	m, ok, err := s.GetPredictionMetrics(ctx, pred.ID)
	if err != nil {
		t.Fatalf("GetPredictionMetrics: %v", err)
	}
	if !ok {
		t.Fatal("expected metrics row")
	}
	if m.Accuracy != 0.5 || m.Specificity != 0.5 {
		t.Errorf("metrics = %+v, want confidence-derived values", m)
	}
}

func TestUploadsAssignOrder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	p := createPatient(t, s)

	for i := 1; i <= 2; i++ {
		u := &triage.Upload{
			ID:        ulid.Make().String(),
			PatientID: p.ID,
			ImagePath: fmt.Sprintf("%s/scan%d.png", p.ID, i),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.RecordUpload(ctx, u); err != nil {
			t.Fatalf("RecordUpload: %v", err)
		}
		if u.UploadOrder != i {
			t.Errorf("UploadOrder = %d, want %d", u.UploadOrder, i)
		}
	}

	uploads, err := s.ListUploads(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListUploads: %v", err)
	}
	if len(uploads) != 2 {
		t.Fatalf("uploads = %d, want 2", len(uploads))
	}
}

func TestContactMessage(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	m := &triage.ContactMessage{
		ID:        ulid.Make().String(),
		Name:      "Dr. Chen",
		Email:     "chen@example.org",
		Message:   "Queue screen feedback",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveContactMessage(ctx, m); err != nil {
		t.Fatalf("SaveContactMessage: %v", err)
	}
}
