package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/bonellirj/EchoDo/internal/metrics"
	"github.com/bonellirj/EchoDo/internal/pipeline"
	"github.com/bonellirj/EchoDo/internal/task"
)

// TasksHandler serves CRUD and filter operations over the task store.
type TasksHandler struct {
	store *task.Store
	bus   *pipeline.Bus
}

func NewTasksHandler(store *task.Store, bus *pipeline.Bus) *TasksHandler {
	return &TasksHandler{store: store, bus: bus}
}

// Routes registers task routes on the given router.
func (h *TasksHandler) Routes(r chi.Router) {
	r.Get("/tasks", h.List)
	r.Post("/tasks", h.Create)
	r.Delete("/tasks/completed", h.ClearCompleted)
	r.Get("/tasks/{id}", h.Get)
	r.Put("/tasks/{id}", h.Update)
	r.Delete("/tasks/{id}", h.Delete)
	r.Post("/tasks/{id}/toggle", h.Toggle)
}

// List returns tasks, optionally filtered by ?date=YYYY-MM-DD (calendar
// day of the due date) and ?status=pending|completed.
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	day, hasDay, err := QueryDate(r, "date")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var tasks []task.Task
	switch status, _ := QueryString(r, "status"); status {
	case "":
		tasks = h.store.All()
	case "pending":
		tasks = h.store.Pending()
	case "completed":
		tasks = h.store.Completed()
	default:
		WriteError(w, http.StatusBadRequest, "invalid status: want pending or completed")
		return
	}

	if hasDay {
		y, m, d := day.Date()
		filtered := tasks[:0:0]
		for _, t := range tasks {
			if t.DueDate == nil {
				continue
			}
			ty, tm, td := t.DueDate.Date()
			if ty == y && tm == m && td == d {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	if tasks == nil {
		tasks = []task.Task{}
	}
	WriteJSON(w, http.StatusOK, tasks)
}

func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		WriteError(w, http.StatusNotFound, "task not found")
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
}

// Create adds a task directly, outside the voice pipeline.
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		WriteError(w, http.StatusBadRequest, "title is required")
		return
	}

	priority := task.PriorityMedium
	if req.Priority != "" {
		priority = task.Priority(req.Priority)
		if !priority.Valid() {
			WriteError(w, http.StatusBadRequest, "invalid priority: want low, medium or high")
			return
		}
	}

	var due *time.Time
	if req.DueDate != "" {
		parsed, err := task.ParseAPIDate(req.DueDate)
		if err != nil {
			WriteErrorDetail(w, http.StatusBadRequest, "invalid due_date", err.Error())
			return
		}
		due = &parsed
	}

	t, err := h.store.Create(task.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		Priority:    priority,
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "could not save task")
		return
	}
	metrics.TasksCreated.Inc()
	h.publish(pipeline.EventTaskCreated, t)

	hlog.FromRequest(r).Info().Str("task_id", t.ID).Msg("task created via api")
	WriteJSON(w, http.StatusCreated, t)
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	// A present-but-empty due_date clears the existing one.
	DueDate   *string `json:"due_date"`
	Priority  *string `json:"priority"`
	Completed *bool   `json:"completed"`
}

// Update applies a partial update; absent fields are left untouched.
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	u := task.Update{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		WriteError(w, http.StatusBadRequest, "title cannot be empty")
		return
	}
	if req.Priority != nil {
		p := task.Priority(*req.Priority)
		if !p.Valid() {
			WriteError(w, http.StatusBadRequest, "invalid priority: want low, medium or high")
			return
		}
		u.Priority = &p
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			u.ClearDue = true
		} else {
			parsed, err := task.ParseAPIDate(*req.DueDate)
			if err != nil {
				WriteErrorDetail(w, http.StatusBadRequest, "invalid due_date", err.Error())
				return
			}
			u.DueDate = &parsed
		}
	}

	t, ok := h.store.Apply(chi.URLParam(r, "id"), u)
	if !ok {
		WriteError(w, http.StatusNotFound, "task not found")
		return
	}
	h.publish(pipeline.EventTaskUpdated, t)
	WriteJSON(w, http.StatusOK, t)
}

// Delete removes a task. Unknown ids get a 404 and leave the stored
// list untouched.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.store.Delete(id) {
		WriteError(w, http.StatusNotFound, "task not found")
		return
	}
	h.publish(pipeline.EventTaskDeleted, map[string]string{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *TasksHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	t, ok := h.store.ToggleCompletion(chi.URLParam(r, "id"))
	if !ok {
		WriteError(w, http.StatusNotFound, "task not found")
		return
	}
	h.publish(pipeline.EventTaskUpdated, t)
	WriteJSON(w, http.StatusOK, t)
}

func (h *TasksHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	removed := h.store.ClearCompleted()
	if removed > 0 {
		h.publish(pipeline.EventTaskDeleted, map[string]int{"removed": removed})
	}
	WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (h *TasksHandler) publish(typ pipeline.EventType, payload any) {
	if h.bus != nil {
		h.bus.Publish(typ, payload)
	}
}
