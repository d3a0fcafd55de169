package triageapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/neurotriage/internal/triage"
)

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (a *API) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" || req.Message == "" {
		a.writeError(w, http.StatusBadRequest, "name and message are required")
		return
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		a.writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	m := &triage.ContactMessage{
		ID:        ulid.Make().String(),
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}

	if err := a.store.SaveContactMessage(r.Context(), m); err != nil {
		a.logger.Error(r.Context(), err, "save contact message failed")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.writeJSON(w, http.StatusCreated, map[string]string{"id": m.ID})
}
