package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/telemetry"
)

const tasksFile = "tasks.json"

// Store persists the task list as one JSON file, loaded eagerly and
// rewritten wholesale on every mutation. Read failures degrade to an
// empty list and write failures on non-create mutations fail silently
// with a false result; both are logged and emitted to telemetry.
type Store struct {
	mu        sync.RWMutex
	path      string
	tasks     []Task
	telemetry *telemetry.Client
	log       zerolog.Logger
}

// NewStore opens (or creates) the task file under dataDir.
func NewStore(dataDir string, tc *telemetry.Client, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{
		path:      filepath.Join(dataDir, tasksFile),
		telemetry: tc,
		log:       log,
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = nil
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.storageError("load", err)
		return
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&s.tasks); err != nil && !errors.Is(err, io.EOF) {
		s.storageError("load", err)
		s.tasks = nil
	}
}

// CreateParams are the inputs for a new task.
type CreateParams struct {
	Title         string
	Description   string
	DueDate       *time.Time
	Priority      Priority
	Transcription string
	TransactionID string
}

// Create appends a new task and rewrites the file.
func (s *Store) Create(p CreateParams) (Task, error) {
	now := time.Now()
	t := Task{
		ID:            uuid.NewString(),
		Title:         p.Title,
		Description:   p.Description,
		DueDate:       p.DueDate,
		Priority:      p.Priority,
		Completed:     false,
		CreatedAt:     now,
		UpdatedAt:     now,
		Transcription: p.Transcription,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append(s.tasks, t)
	if err := s.saveLocked(); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		s.storageError("create", err)
		return Task{}, fmt.Errorf("save tasks: %w", err)
	}

	s.telemetry.Info("task created: "+t.Title, p.TransactionID, map[string]any{
		"task_id": t.ID,
		"title":   t.Title,
	})
	return t, nil
}

// All returns every stored task.
func (s *Store) All() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Update is a partial task update; nil fields are left untouched.
type Update struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	ClearDue    bool
	Priority    *Priority
	Completed   *bool
}

// Apply merges the update into a stored task, returning false when
// nothing exists under the id or the rewrite fails.
func (s *Store) Apply(id string, u Update) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		prev := s.tasks[i]
		t := &s.tasks[i]
		if u.Title != nil {
			t.Title = *u.Title
		}
		if u.Description != nil {
			t.Description = *u.Description
		}
		if u.ClearDue {
			t.DueDate = nil
		} else if u.DueDate != nil {
			t.DueDate = u.DueDate
		}
		if u.Priority != nil {
			t.Priority = *u.Priority
		}
		if u.Completed != nil {
			t.Completed = *u.Completed
		}
		t.UpdatedAt = time.Now()

		if err := s.saveLocked(); err != nil {
			s.tasks[i] = prev
			s.storageError("update", err)
			return Task{}, false
		}
		s.telemetry.Info("task updated: "+id, "", map[string]any{"task_id": id})
		return *t, true
	}
	return Task{}, false
}

// Delete removes the task. Returns false without mutating stored state
// when the id is unknown.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		removed := s.tasks[i]
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		if err := s.saveLocked(); err != nil {
			s.tasks = append(s.tasks[:i], append([]Task{removed}, s.tasks[i:]...)...)
			s.storageError("delete", err)
			return false
		}
		s.telemetry.Info("task deleted: "+id, "", map[string]any{"task_id": id})
		return true
	}
	return false
}

// ToggleCompletion flips the completed flag.
func (s *Store) ToggleCompletion(id string) (Task, bool) {
	t, ok := s.Get(id)
	if !ok {
		return Task{}, false
	}
	completed := !t.Completed
	return s.Apply(id, Update{Completed: &completed})
}

// ByDate returns tasks whose due date falls on the same calendar day.
func (s *Store) ByDate(day time.Time) []Task {
	y, m, d := day.Date()
	var out []Task
	for _, t := range s.All() {
		if t.DueDate == nil {
			continue
		}
		ty, tm, td := t.DueDate.Date()
		if ty == y && tm == m && td == d {
			out = append(out, t)
		}
	}
	return out
}

// Completed returns all completed tasks.
func (s *Store) Completed() []Task {
	return s.filter(func(t Task) bool { return t.Completed })
}

// Pending returns all tasks not yet completed.
func (s *Store) Pending() []Task {
	return s.filter(func(t Task) bool { return !t.Completed })
}

// ClearCompleted removes every completed task, returning the count removed.
func (s *Store) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.tasks
	kept := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	removed := len(s.tasks) - len(kept)
	if removed == 0 {
		return 0
	}

	s.tasks = kept
	if err := s.saveLocked(); err != nil {
		s.tasks = prev
		s.storageError("clear_completed", err)
		return 0
	}
	return removed
}

func (s *Store) filter(keep func(Task) bool) []Task {
	var out []Task
	for _, t := range s.All() {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// saveLocked rewrites the whole file atomically via temp file + rename.
func (s *Store) saveLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.tasks); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *Store) storageError(op string, err error) {
	s.log.Error().Err(err).Str("op", op).Msg("task storage error")
	s.telemetry.Error(fmt.Sprintf("storage error during %s: %v", op, err), "", map[string]any{
		"operation": op,
	})
}
