// Package triageapi exposes the triage pipeline and patient records over HTTP.
package triageapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

// TriageService defines the business operations triageapi needs.
type TriageService interface {
	Triage(ctx context.Context, req *triage.Request) (*triage.Result, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
	store  triage.Store
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService, store triage.Store) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	if store == nil {
		panic(xerrors.New("store is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		store:  store,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict", a.handlePredict)

		r.Post("/patients", a.handleCreatePatient)
		r.Get("/patients", a.handleListPatients)
		r.Get("/patients/{id}", a.handleGetPatient)
		r.Post("/patients/{id}/uploads", a.handleRecordUpload)
		r.Get("/patients/{id}/uploads", a.handleListUploads)
		r.Get("/patients/{id}/results", a.handleListResults)

		r.Get("/queue", a.handleQueue)

		r.Post("/contact", a.handleContact)
	})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}
