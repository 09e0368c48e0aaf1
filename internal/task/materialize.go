package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/backend"
	"github.com/bonellirj/EchoDo/internal/metrics"
	"github.com/bonellirj/EchoDo/internal/telemetry"
)

// ErrIncompleteTask means the backend response did not carry a usable task.
var ErrIncompleteTask = errors.New("backend task processing failed")

// Materializer converts backend task descriptions into stored tasks.
type Materializer struct {
	store     *Store
	telemetry *telemetry.Client
	log       zerolog.Logger
}

// NewMaterializer creates a materializer writing into the given store.
func NewMaterializer(store *Store, tc *telemetry.Client, log zerolog.Logger) *Materializer {
	return &Materializer{store: store, telemetry: tc, log: log}
}

// Materialize persists a task from a successful backend response.
// The transcription is copied verbatim and priority defaults to medium
// since the backend supplies none. A due date that fails to parse
// degrades to a task without one rather than aborting creation.
func (m *Materializer) Materialize(resp *backend.TaskResponse, transactionID string) (Task, error) {
	if !resp.Task.Success {
		return Task{}, ErrIncompleteTask
	}

	data := resp.Task.Data

	var due *time.Time
	if data.DueDate != "" {
		parsed, err := ParseAPIDate(data.DueDate)
		if err != nil {
			m.log.Warn().Err(err).Str("due_date", data.DueDate).Msg("due date unparseable, creating task without one")
			m.telemetry.Error(fmt.Sprintf("date parsing failed for %q: %v", data.DueDate, err), transactionID, map[string]any{
				"input": data.DueDate,
			})
		} else {
			due = &parsed
		}
	}

	t, err := m.store.Create(CreateParams{
		Title:         data.Title,
		Description:   data.Description,
		DueDate:       due,
		Priority:      PriorityMedium,
		Transcription: resp.Transcription,
		TransactionID: transactionID,
	})
	if err != nil {
		return Task{}, err
	}
	metrics.TasksCreated.Inc()
	return t, nil
}

// apiDateLayout matches the backend's wire format with the zone marker
// stripped; the fractional part is optional.
const apiDateLayout = "2006-01-02T15:04:05.999999999"

// ParseAPIDate interprets a backend due-date string. A "Z"-suffixed
// string encodes the user's intended wall-clock values using UTC
// notation as a transport convention, so the marker is discarded: the
// calendar components are rebuilt in the local zone unchanged. Applying
// the offset instead would shift midnight due dates to the previous day
// for anyone west of Greenwich. Strings without the marker are parsed
// normally.
func ParseAPIDate(s string) (time.Time, error) {
	if strings.HasSuffix(s, "Z") {
		parsed, err := time.Parse(apiDateLayout, strings.TrimSuffix(s, "Z"))
		if err != nil {
			return time.Time{}, fmt.Errorf("parse UTC-marked date %q: %w", s, err)
		}
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
			parsed.Hour(), parsed.Minute(), parsed.Second(), parsed.Nanosecond(),
			time.Local), nil
	}

	for _, layout := range []string{time.RFC3339, apiDateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}
