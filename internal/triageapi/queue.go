package triageapi

import "net/http"

func (a *API) handleQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := a.store.ListQueue(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "list queue failed")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"queue": entries})
}
