package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

func testPatient(id, caseID string) *triage.Patient {
	return &triage.Patient{
		ID:               id,
		CaseID:           caseID,
		Name:             "Test Patient",
		Age:              52,
		Gender:           "female",
		HeadacheSeverity: triage.HeadacheMedium,
		CreatedAt:        time.Now(),
	}
}

func TestCreateAndGetPatient(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.CreatePatient(ctx, testPatient("p-1", "CASE-001")); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	got, ok, err := s.GetPatient(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if !ok {
		t.Fatal("expected patient to be found")
	}
	if got.CaseID != "CASE-001" {
		t.Errorf("CaseID = %q, want CASE-001", got.CaseID)
	}
}

func TestCreatePatient_DuplicateCase(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.CreatePatient(ctx, testPatient("p-1", "CASE-001")); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	err := s.CreatePatient(ctx, testPatient("p-2", "CASE-001"))
	if !errors.Is(err, triage.ErrDuplicateCase) {
		t.Fatalf("err = %v, want ErrDuplicateCase", err)
	}
}

func TestGetPatient_Missing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.GetPatient(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing patient")
	}
}

func TestRecordUpload_AssignsOrder(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.CreatePatient(ctx, testPatient("p-1", "CASE-001")); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	for i := 1; i <= 3; i++ {
		u := &triage.Upload{ID: fmt.Sprintf("u-%d", i), PatientID: "p-1", ImagePath: fmt.Sprintf("p-1/scan%d.png", i)}
		if err := s.RecordUpload(ctx, u); err != nil {
			t.Fatalf("RecordUpload %d: %v", i, err)
		}
		if u.UploadOrder != i {
			t.Errorf("UploadOrder = %d, want %d", u.UploadOrder, i)
		}
	}

	uploads, err := s.ListUploads(ctx, "p-1")
	if err != nil {
		t.Fatalf("ListUploads: %v", err)
	}
	if len(uploads) != 3 {
		t.Fatalf("uploads = %d, want 3", len(uploads))
	}
	for i, u := range uploads {
		if u.UploadOrder != i+1 {
			t.Errorf("uploads[%d].UploadOrder = %d, want %d", i, u.UploadOrder, i+1)
		}
	}
}

func TestRecordUpload_UnknownPatient(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.RecordUpload(context.Background(), &triage.Upload{ID: "u-1", PatientID: "ghost"})
	if !errors.Is(err, triage.ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound", err)
	}
}

func TestInsertPrediction_UnknownPatient(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.InsertPrediction(context.Background(), &triage.Prediction{ID: "pr-1", PatientID: "ghost"})
	if !errors.Is(err, triage.ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound", err)
	}

	n, err := s.CountBySeverity(context.Background(), triage.SeverityGreen)
	if err != nil {
		t.Fatalf("CountBySeverity: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0 after failed insert", n)
	}
}

func TestCountBySeverity(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.CreatePatient(ctx, testPatient("p-1", "CASE-001")); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	severities := []triage.Severity{triage.SeverityRed, triage.SeverityRed, triage.SeverityYellow}
	for i, sev := range severities {
		p := &triage.Prediction{ID: fmt.Sprintf("pr-%d", i), PatientID: "p-1", Severity: sev, QueueRank: i + 1}
		if err := s.InsertPrediction(ctx, p); err != nil {
			t.Fatalf("InsertPrediction: %v", err)
		}
	}

	tests := []struct {
		sev  triage.Severity
		want int
	}{
		{triage.SeverityRed, 2},
		{triage.SeverityYellow, 1},
		{triage.SeverityGreen, 0},
	}
	for _, tt := range tests {
		n, err := s.CountBySeverity(ctx, tt.sev)
		if err != nil {
			t.Fatalf("CountBySeverity(%s): %v", tt.sev, err)
		}
		if n != tt.want {
			t.Errorf("CountBySeverity(%s) = %d, want %d", tt.sev, n, tt.want)
		}
	}
}

func TestListQueue_Ordering(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.CreatePatient(ctx, testPatient("p-1", "CASE-001")); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	// insert out of order on purpose
	rows := []struct {
		id   string
		sev  triage.Severity
		rank int
	}{
		{"pr-g1", triage.SeverityGreen, 1},
		{"pr-r2", triage.SeverityRed, 2},
		{"pr-y1", triage.SeverityYellow, 1},
		{"pr-r1", triage.SeverityRed, 1},
	}
	for _, r := range rows {
		p := &triage.Prediction{ID: r.id, PatientID: "p-1", Severity: r.sev, QueueRank: r.rank}
		if err := s.InsertPrediction(ctx, p); err != nil {
			t.Fatalf("InsertPrediction: %v", err)
		}
	}

	queue, err := s.ListQueue(ctx)
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}

	wantOrder := []string{"pr-r1", "pr-r2", "pr-y1", "pr-g1"}
	if len(queue) != len(wantOrder) {
		t.Fatalf("queue len = %d, want %d", len(queue), len(wantOrder))
	}
	for i, want := range wantOrder {
		if queue[i].ID != want {
			t.Errorf("queue[%d] = %s, want %s", i, queue[i].ID, want)
		}
	}
	if queue[0].CaseID != "CASE-001" {
		t.Errorf("queue[0].CaseID = %q, want joined patient case", queue[0].CaseID)
	}
}

func TestPredictionMetrics_RoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.InsertPredictionMetrics(ctx, triage.DeriveMetrics("pr-1", 0.9)); err != nil {
		t.Fatalf("InsertPredictionMetrics: %v", err)
	}

	m, ok, err := s.GetPredictionMetrics(ctx, "pr-1")
	if err != nil {
		t.Fatalf("GetPredictionMetrics: %v", err)
	}
	if !ok {
		t.Fatal("expected metrics to be found")
	}
	if m.Accuracy != 0.9 {
		t.Errorf("Accuracy = %v, want 0.9", m.Accuracy)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.CreatePatient(ctx, testPatient("p-1", "CASE-001")); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	got, _, err := s.GetPatient(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	got.Name = "mutated"

	again, _, err := s.GetPatient(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if again.Name == "mutated" {
		t.Error("GetPatient should return a copy, not shared state")
	}
}

func TestConcurrentInserts(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.CreatePatient(ctx, testPatient("p-1", "CASE-001")); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &triage.Prediction{ID: fmt.Sprintf("pr-%d", i), PatientID: "p-1", Severity: triage.SeverityGreen, QueueRank: i + 1}
			if err := s.InsertPrediction(ctx, p); err != nil {
				t.Errorf("InsertPrediction: %v", err)
			}
		}(i)
	}
	wg.Wait()

	n, err := s.CountBySeverity(ctx, triage.SeverityGreen)
	if err != nil {
		t.Fatalf("CountBySeverity: %v", err)
	}
	if n != 50 {
		t.Errorf("count = %d, want 50", n)
	}
}
