package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/pipeline"
	"github.com/bonellirj/EchoDo/internal/task"
)

func newTasksRouter(t *testing.T) (*chi.Mux, *task.Store) {
	t.Helper()
	store, err := task.NewStore(t.TempDir(), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	r := chi.NewRouter()
	NewTasksHandler(store, pipeline.NewBus()).Routes(r)
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTask(t *testing.T) {
	r, _ := newTasksRouter(t)

	w := doJSON(t, r, http.MethodPost, "/tasks", map[string]string{
		"title":    "Buy milk",
		"due_date": "2025-07-25T00:00:00.000Z",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	var created task.Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Title != "Buy milk" {
		t.Errorf("Title = %q", created.Title)
	}
	if created.Priority != task.PriorityMedium {
		t.Errorf("Priority = %q, want medium default", created.Priority)
	}
	if created.DueDate == nil {
		t.Fatal("DueDate is nil")
	}
	// UTC-marked wire dates keep their wall-clock day locally.
	if y, m, d := created.DueDate.Date(); y != 2025 || m != time.July || d != 25 {
		t.Errorf("DueDate = %v, want July 25 2025", created.DueDate)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	r, _ := newTasksRouter(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing_title", map[string]string{"description": "no title"}},
		{"blank_title", map[string]string{"title": "   "}},
		{"bad_priority", map[string]string{"title": "x", "priority": "urgent"}},
		{"bad_due_date", map[string]string{"title": "x", "due_date": "next tuesday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/tasks", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetTaskNotFound(t *testing.T) {
	r, _ := newTasksRouter(t)
	w := doJSON(t, r, http.MethodGet, "/tasks/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteUnknownTaskLeavesStoreIntact(t *testing.T) {
	r, store := newTasksRouter(t)

	created, err := store.Create(task.CreateParams{Title: "keep me", Priority: task.PriorityLow})
	if err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodDelete, "/tasks/unknown-id", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if _, ok := store.Get(created.ID); !ok {
		t.Error("existing task vanished after failed delete")
	}
}

func TestDeleteTask(t *testing.T) {
	r, store := newTasksRouter(t)
	created, _ := store.Create(task.CreateParams{Title: "x", Priority: task.PriorityMedium})

	w := doJSON(t, r, http.MethodDelete, "/tasks/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if _, ok := store.Get(created.ID); ok {
		t.Error("task still present after delete")
	}
}

func TestUpdateTask(t *testing.T) {
	r, store := newTasksRouter(t)
	created, _ := store.Create(task.CreateParams{Title: "old", Priority: task.PriorityMedium})

	w := doJSON(t, r, http.MethodPut, "/tasks/"+created.ID, map[string]any{
		"title":    "new",
		"priority": "high",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var updated task.Task
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Title != "new" || updated.Priority != task.PriorityHigh {
		t.Errorf("updated = %+v", updated)
	}
}

func TestUpdateClearsDueDate(t *testing.T) {
	r, store := newTasksRouter(t)
	due := time.Now()
	created, _ := store.Create(task.CreateParams{Title: "x", DueDate: &due, Priority: task.PriorityMedium})

	w := doJSON(t, r, http.MethodPut, "/tasks/"+created.ID, map[string]any{"due_date": ""})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	got, _ := store.Get(created.ID)
	if got.DueDate != nil {
		t.Errorf("DueDate = %v, want cleared", got.DueDate)
	}
}

func TestToggleTask(t *testing.T) {
	r, store := newTasksRouter(t)
	created, _ := store.Create(task.CreateParams{Title: "x", Priority: task.PriorityMedium})

	w := doJSON(t, r, http.MethodPost, "/tasks/"+created.ID+"/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var toggled task.Task
	json.Unmarshal(w.Body.Bytes(), &toggled)
	if !toggled.Completed {
		t.Error("Completed = false after toggle")
	}
}

func TestListFilters(t *testing.T) {
	r, store := newTasksRouter(t)

	day := time.Date(2025, 7, 25, 9, 0, 0, 0, time.Local)
	store.Create(task.CreateParams{Title: "due that day", DueDate: &day, Priority: task.PriorityMedium})
	other := day.AddDate(0, 0, 1)
	store.Create(task.CreateParams{Title: "due next day", DueDate: &other, Priority: task.PriorityMedium})
	done, _ := store.Create(task.CreateParams{Title: "done", Priority: task.PriorityMedium})
	store.ToggleCompletion(done.ID)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"by_date", "?date=2025-07-25", 1},
		{"pending", "?status=pending", 2},
		{"completed", "?status=completed", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodGet, "/tasks"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var tasks []task.Task
			if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
				t.Fatal(err)
			}
			if len(tasks) != tt.want {
				t.Errorf("len = %d, want %d", len(tasks), tt.want)
			}
		})
	}

	t.Run("bad_status", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/tasks?status=archived", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
	t.Run("bad_date", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/tasks?date=07-25-2025", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestClearCompleted(t *testing.T) {
	r, store := newTasksRouter(t)
	for i := 0; i < 3; i++ {
		created, _ := store.Create(task.CreateParams{Title: fmt.Sprintf("t%d", i), Priority: task.PriorityMedium})
		if i < 2 {
			store.ToggleCompletion(created.ID)
		}
	}

	w := doJSON(t, r, http.MethodDelete, "/tasks/completed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]int
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["removed"] != 2 {
		t.Errorf("removed = %d, want 2", resp["removed"])
	}
	if got := len(store.All()); got != 1 {
		t.Errorf("remaining tasks = %d, want 1", got)
	}
}
