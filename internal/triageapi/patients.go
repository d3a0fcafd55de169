package triageapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

type createPatientRequest struct {
	CaseID           string                  `json:"case_id"`
	Name             string                  `json:"patient_name"`
	Age              int                     `json:"age"`
	Gender           string                  `json:"gender"`
	Seizure          bool                    `json:"seizure"`
	HeadacheSeverity triage.HeadacheSeverity `json:"headache_severity"`
}

func (req *createPatientRequest) validate() error {
	if req.CaseID == "" {
		return errors.New("case_id is required")
	}
	if req.Name == "" {
		return errors.New("patient_name is required")
	}
	if req.Age <= 0 || req.Age > 150 {
		return errors.New("age must be between 1 and 150")
	}
	if !req.HeadacheSeverity.Valid() {
		return errors.New("headache_severity must be Mild, Medium, or Severe")
	}
	return nil
}

func (a *API) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := req.validate(); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &triage.Patient{
		ID:               ulid.Make().String(),
		CaseID:           req.CaseID,
		Name:             req.Name,
		Age:              req.Age,
		Gender:           req.Gender,
		Seizure:          req.Seizure,
		HeadacheSeverity: req.HeadacheSeverity,
		CreatedAt:        time.Now().UTC(),
	}

	if err := a.store.CreatePatient(r.Context(), p); err != nil {
		if errors.Is(err, triage.ErrDuplicateCase) {
			a.writeError(w, http.StatusConflict, "case id already exists")
			return
		}
		a.logger.Error(r.Context(), err, "create patient failed", "case_id", req.CaseID)
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.logger.Info(r.Context(), "patient created", "patient_id", p.ID, "case_id", p.CaseID)
	a.writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := a.store.ListPatients(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "list patients failed")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

func (a *API) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok, err := a.store.GetPatient(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "get patient failed", "patient_id", id)
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		a.writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	a.writeJSON(w, http.StatusOK, p)
}

type recordUploadRequest struct {
	ImagePath string `json:"image_path"`
}

func (a *API) handleRecordUpload(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")

	var req recordUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ImagePath == "" {
		a.writeError(w, http.StatusBadRequest, "image_path is required")
		return
	}

	u := &triage.Upload{
		ID:        ulid.Make().String(),
		PatientID: patientID,
		ImagePath: req.ImagePath,
		CreatedAt: time.Now().UTC(),
	}

	if err := a.store.RecordUpload(r.Context(), u); err != nil {
		if errors.Is(err, triage.ErrPatientNotFound) {
			a.writeError(w, http.StatusNotFound, "patient not found")
			return
		}
		a.logger.Error(r.Context(), err, "record upload failed", "patient_id", patientID)
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.writeJSON(w, http.StatusCreated, u)
}

func (a *API) handleListUploads(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")

	uploads, err := a.store.ListUploads(r.Context(), patientID)
	if err != nil {
		a.logger.Error(r.Context(), err, "list uploads failed", "patient_id", patientID)
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"uploads": uploads})
}
