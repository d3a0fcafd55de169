package triageapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req triage.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("neurotriage.case_id", req.CaseID),
		attribute.String("neurotriage.patient_id", req.PatientID),
		attribute.Int("neurotriage.image_count", len(req.ImageURLs)),
	)

	result, err := a.svc.Triage(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, triage.ErrInvalidRequest):
			a.writeError(w, http.StatusBadRequest, "patient id and at least one image url are required")
		case errors.Is(err, triage.ErrPatientNotFound):
			a.writeError(w, http.StatusNotFound, "patient not found")
		default:
			a.logger.Error(r.Context(), err, "triage failed",
				"case_id", req.CaseID, "patient_id", req.PatientID)
			a.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	span.SetAttributes(
		attribute.String("neurotriage.severity", string(result.Severity)),
		attribute.String("neurotriage.tumor_type", string(result.TumorType)),
	)

	a.writeJSON(w, http.StatusOK, result)
}
