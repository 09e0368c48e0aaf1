package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/bonellirj/EchoDo/internal/capture"
	"github.com/bonellirj/EchoDo/internal/pipeline"
)

// RecordingHandler drives the voice recording session over HTTP. The
// session itself lives in the orchestrator; these endpoints only
// trigger transitions and report state.
type RecordingHandler struct {
	orch *pipeline.Orchestrator
}

func NewRecordingHandler(orch *pipeline.Orchestrator) *RecordingHandler {
	return &RecordingHandler{orch: orch}
}

// Routes registers recording routes on the given router.
func (h *RecordingHandler) Routes(r chi.Router) {
	r.Get("/recording/state", h.State)
	r.Post("/recording/start", h.Start)
	r.Post("/recording/stop", h.Stop)
	r.Post("/recording/reset", h.Reset)
}

func (h *RecordingHandler) State(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.orch.State())
}

func (h *RecordingHandler) Start(w http.ResponseWriter, r *http.Request) {
	err := h.orch.Start(r.Context())
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, h.orch.State())
	case errors.Is(err, pipeline.ErrSessionBusy):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, capture.ErrUnsupported):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("recording start failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// Stop ends the recording and kicks off processing. Stopping when idle
// is a no-op, matching the auto-stop race semantics.
func (h *RecordingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.orch.Stop()
	WriteJSON(w, http.StatusOK, h.orch.State())
}

func (h *RecordingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.orch.Reset()
	WriteJSON(w, http.StatusOK, h.orch.State())
}
