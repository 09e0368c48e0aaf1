package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bonellirj/EchoDo/internal/prefs"
)

// PreferencesHandler serves the user preferences document. Change
// notifications go out through the store's OnChange hook, which also
// covers edits picked up by the file watcher.
type PreferencesHandler struct {
	store *prefs.Store
}

func NewPreferencesHandler(store *prefs.Store) *PreferencesHandler {
	return &PreferencesHandler{store: store}
}

// Routes registers preference routes on the given router.
func (h *PreferencesHandler) Routes(r chi.Router) {
	r.Get("/preferences", h.Get)
	r.Put("/preferences", h.Update)
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.store.Get())
}

// Update replaces the preferences wholesale; empty fields fall back to
// the defaults.
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p prefs.Preferences
	if err := DecodeJSON(r, &p); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.store.Update(p); err != nil {
		WriteError(w, http.StatusInternalServerError, "could not save preferences")
		return
	}
	WriteJSON(w, http.StatusOK, h.store.Get())
}
