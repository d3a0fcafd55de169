// Package memstore provides an in-memory implementation of triage.Store.
// Suitable for dev and testing; data does not survive a restart.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

// Store holds triage domain records in memory.
type Store struct {
	mu          sync.RWMutex
	patients    map[string]*triage.Patient // patient ID -> patient
	caseIDs     map[string]string          // case code -> patient ID (uniqueness)
	uploads     []*triage.Upload
	predictions []*triage.Prediction
	metrics     map[string]*triage.PredictionMetrics // prediction ID -> metrics
	contacts    []*triage.ContactMessage
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		patients: make(map[string]*triage.Patient),
		caseIDs:  make(map[string]string),
		metrics:  make(map[string]*triage.PredictionMetrics),
	}
}

// CreatePatient stores a copy of the patient, enforcing case code uniqueness.
func (s *Store) CreatePatient(_ context.Context, p *triage.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.caseIDs[p.CaseID]; taken {
		return triage.ErrDuplicateCase
	}
	cp := *p
	s.patients[p.ID] = &cp
	s.caseIDs[p.CaseID] = p.ID
	return nil
}

// GetPatient retrieves a patient by ID. Returns a copy.
func (s *Store) GetPatient(_ context.Context, id string) (*triage.Patient, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

// ListPatients returns all patients ordered by creation time, newest first.
func (s *Store) ListPatients(_ context.Context) ([]*triage.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*triage.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// RecordUpload assigns the next upload order for the patient and stores the row.
func (s *Store) RecordUpload(_ context.Context, u *triage.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[u.PatientID]; !ok {
		return triage.ErrPatientNotFound
	}
	order := 1
	for _, existing := range s.uploads {
		if existing.PatientID == u.PatientID && existing.UploadOrder >= order {
			order = existing.UploadOrder + 1
		}
	}
	u.UploadOrder = order
	cp := *u
	s.uploads = append(s.uploads, &cp)
	return nil
}

// ListUploads returns a patient's uploads in upload order.
func (s *Store) ListUploads(_ context.Context, patientID string) ([]*triage.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*triage.Upload
	for _, u := range s.uploads {
		if u.PatientID == patientID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadOrder < out[j].UploadOrder })
	return out, nil
}

// CountBySeverity returns the number of predictions recorded in a tier.
func (s *Store) CountBySeverity(_ context.Context, sev triage.Severity) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	for _, p := range s.predictions {
		if p.Severity == sev {
			n++
		}
	}
	return n, nil
}

// InsertPrediction appends a copy of the prediction after checking that the
// referenced patient exists.
func (s *Store) InsertPrediction(_ context.Context, p *triage.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[p.PatientID]; !ok {
		return triage.ErrPatientNotFound
	}
	cp := *p
	s.predictions = append(s.predictions, &cp)
	return nil
}

// InsertPredictionMetrics stores the write-once companion record.
func (s *Store) InsertPredictionMetrics(_ context.Context, m *triage.PredictionMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.metrics[m.PredictionID] = &cp
	return nil
}

// GetPrediction retrieves a prediction by ID. Returns a copy.
func (s *Store) GetPrediction(_ context.Context, id string) (*triage.Prediction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.predictions {
		if p.ID == id {
			cp := *p
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

// GetPredictionMetrics retrieves the metrics companion for a prediction.
func (s *Store) GetPredictionMetrics(_ context.Context, predictionID string) (*triage.PredictionMetrics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metrics[predictionID]
	if !ok {
		return nil, false, nil
	}
	cp := *m
	return &cp, true, nil
}

// ListPredictionsByPatient returns a patient's predictions, newest first.
func (s *Store) ListPredictionsByPatient(_ context.Context, patientID string) ([]*triage.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*triage.Prediction
	for _, p := range s.predictions {
		if p.PatientID == patientID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

var severityOrder = map[triage.Severity]int{
	triage.SeverityRed:    0,
	triage.SeverityYellow: 1,
	triage.SeverityGreen:  2,
}

// ListQueue returns all predictions ordered RED, YELLOW, GREEN and by queue
// rank within each tier, joined with patient identity.
func (s *Store) ListQueue(_ context.Context) ([]*triage.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*triage.QueueEntry, 0, len(s.predictions))
	for _, p := range s.predictions {
		entry := &triage.QueueEntry{Prediction: *p}
		if pat, ok := s.patients[p.PatientID]; ok {
			entry.CaseID = pat.CaseID
			entry.PatientName = pat.Name
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if severityOrder[out[i].Severity] != severityOrder[out[j].Severity] {
			return severityOrder[out[i].Severity] < severityOrder[out[j].Severity]
		}
		return out[i].QueueRank < out[j].QueueRank
	})
	return out, nil
}

// SaveContactMessage appends a copy of the contact message.
func (s *Store) SaveContactMessage(_ context.Context, m *triage.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.contacts = append(s.contacts, &cp)
	return nil
}
