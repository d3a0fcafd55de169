package triageapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

type resultEntry struct {
	*triage.Prediction
	Metrics *triage.PredictionMetrics `json:"metrics,omitempty"`
}

// handleListResults returns a patient's prediction history, newest first,
// with the confidence-derived metrics attached where present.
func (a *API) handleListResults(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")

	_, ok, err := a.store.GetPatient(r.Context(), patientID)
	if err != nil {
		a.logger.Error(r.Context(), err, "get patient failed", "patient_id", patientID)
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		a.writeError(w, http.StatusNotFound, "patient not found")
		return
	}

	predictions, err := a.store.ListPredictionsByPatient(r.Context(), patientID)
	if err != nil {
		a.logger.Error(r.Context(), err, "list predictions failed", "patient_id", patientID)
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	entries := make([]resultEntry, 0, len(predictions))
	for _, p := range predictions {
		entry := resultEntry{Prediction: p}
		// A missing metrics row means the companion insert failed; the
		// prediction itself is still returned.
		if m, ok, err := a.store.GetPredictionMetrics(r.Context(), p.ID); err == nil && ok {
			entry.Metrics = m
		}
		entries = append(entries, entry)
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"results": entries})
}
