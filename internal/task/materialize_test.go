package task

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/backend"
)

func TestParseAPIDateUTCKeepsWallClockComponents(t *testing.T) {
	tests := []struct {
		input               string
		year                int
		month               time.Month
		day, hour, min, sec int
	}{
		{"2025-07-25T00:00:00Z", 2025, time.July, 25, 0, 0, 0},
		{"2025-12-31T23:59:59Z", 2025, time.December, 31, 23, 59, 59},
		{"2026-01-01T09:30:00Z", 2026, time.January, 1, 9, 30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAPIDate(tt.input)
			if err != nil {
				t.Fatalf("ParseAPIDate: %v", err)
			}
			y, m, d := got.Date()
			h, mi, s := got.Clock()
			if y != tt.year || m != tt.month || d != tt.day || h != tt.hour || mi != tt.min || s != tt.sec {
				t.Errorf("components = %d-%d-%d %d:%d:%d, want %d-%d-%d %d:%d:%d",
					y, m, d, h, mi, s, tt.year, tt.month, tt.day, tt.hour, tt.min, tt.sec)
			}
			// The zone marker must be discarded, not applied: the result
			// lives in the local zone with identical literal components.
			if got.Location() != time.Local {
				t.Errorf("Location = %v, want time.Local", got.Location())
			}
		})
	}
}

func TestParseAPIDateComponentsStableAcrossZones(t *testing.T) {
	// A naive UTC-to-local conversion would turn midnight into the
	// previous day west of Greenwich. Verify the decompose-and-rebuild
	// step against a fixed western zone.
	orig := time.Local
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("zone data unavailable: %v", err)
	}
	time.Local = loc
	defer func() { time.Local = orig }()

	got, err := ParseAPIDate("2025-07-25T00:00:00Z")
	if err != nil {
		t.Fatalf("ParseAPIDate: %v", err)
	}
	y, m, d := got.Date()
	h, _, _ := got.Clock()
	if y != 2025 || m != time.July || d != 25 || h != 0 {
		t.Errorf("got %d-%d-%d %dh, want 2025-7-25 0h (no offset shift)", y, m, d, h)
	}
}

func TestParseAPIDateNonUTC(t *testing.T) {
	got, err := ParseAPIDate("2025-07-25T10:00:00+02:00")
	if err != nil {
		t.Fatalf("ParseAPIDate: %v", err)
	}
	if got.Hour() != 10 {
		t.Errorf("Hour = %d, want 10", got.Hour())
	}
	_, offset := got.Zone()
	if offset != 2*3600 {
		t.Errorf("offset = %d, want 7200", offset)
	}
}

func TestParseAPIDateBareDay(t *testing.T) {
	got, err := ParseAPIDate("2025-07-25")
	if err != nil {
		t.Fatalf("ParseAPIDate: %v", err)
	}
	y, m, d := got.Date()
	if y != 2025 || m != time.July || d != 25 {
		t.Errorf("got %d-%d-%d, want 2025-7-25", y, m, d)
	}
}

func TestParseAPIDateRejectsGarbage(t *testing.T) {
	for _, input := range []string{"next tuesday", "25/07/2025", ""} {
		if _, err := ParseAPIDate(input); err == nil {
			t.Errorf("ParseAPIDate(%q) succeeded, want error", input)
		}
	}
}

func successResponse(dueDate string) *backend.TaskResponse {
	return &backend.TaskResponse{
		Timestamp:     "1753400000",
		Transcription: "buy milk tomorrow",
		Task: backend.TaskResult{
			Success: true,
			Data: backend.TaskData{
				Title:       "Buy milk",
				Description: "Buy milk at the store",
				DueDate:     dueDate,
				Meta:        backend.TaskMeta{LLMProvider: "groq", ModelUsed: "llama-3.1"},
			},
		},
	}
}

func newTestMaterializer(t *testing.T) (*Materializer, *Store) {
	t.Helper()
	store, err := NewStore(t.TempDir(), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewMaterializer(store, nil, zerolog.Nop()), store
}

func TestMaterializeCreatesTask(t *testing.T) {
	m, store := newTestMaterializer(t)

	created, err := m.Materialize(successResponse("2025-07-25T00:00:00Z"), "1753400000")
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if created.Title != "Buy milk" {
		t.Errorf("Title = %q", created.Title)
	}
	if created.Transcription != "buy milk tomorrow" {
		t.Errorf("Transcription = %q, want verbatim backend transcription", created.Transcription)
	}
	if created.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want medium", created.Priority)
	}
	if created.Completed {
		t.Error("Completed = true, want false")
	}
	if created.DueDate == nil {
		t.Fatal("DueDate = nil, want set")
	}
	y, mo, d := created.DueDate.Date()
	if y != 2025 || mo != time.July || d != 25 {
		t.Errorf("DueDate = %d-%d-%d, want 2025-7-25", y, mo, d)
	}

	stored, ok := store.Get(created.ID)
	if !ok {
		t.Fatal("created task not found in store")
	}
	if stored.Title != created.Title {
		t.Errorf("stored Title = %q", stored.Title)
	}
}

func TestMaterializeIncompleteTask(t *testing.T) {
	m, store := newTestMaterializer(t)

	resp := successResponse("")
	resp.Task.Success = false
	_, err := m.Materialize(resp, "tx")
	if !errors.Is(err, ErrIncompleteTask) {
		t.Fatalf("error = %v, want ErrIncompleteTask", err)
	}
	if n := len(store.All()); n != 0 {
		t.Errorf("store has %d tasks, want 0", n)
	}
}

func TestMaterializeBadDueDateDegrades(t *testing.T) {
	m, _ := newTestMaterializer(t)

	created, err := m.Materialize(successResponse("whenever"), "tx")
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if created.DueDate != nil {
		t.Errorf("DueDate = %v, want nil for unparseable input", created.DueDate)
	}
}
