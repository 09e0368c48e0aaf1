// Package task owns the persisted task model, its JSON-file store, and
// the materialization of backend task descriptions into stored tasks.
package task

import "time"

// Priority of a task. The backend supplies none, so materialized tasks
// default to medium.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is one persisted task record. DueDate, when present, is a
// wall-clock local date/time: the UTC-to-local reinterpretation happens
// exactly once, at materialization.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Priority      Priority   `json:"priority,omitempty"`
	Completed     bool       `json:"completed"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Transcription string     `json:"transcription,omitempty"`
}
