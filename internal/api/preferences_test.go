package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/prefs"
)

func newPrefsRouter(t *testing.T) (*chi.Mux, *prefs.Store) {
	t.Helper()
	store, err := prefs.NewStore(t.TempDir(), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	r := chi.NewRouter()
	NewPreferencesHandler(store).Routes(r)
	return r, store
}

func TestGetPreferencesDefaults(t *testing.T) {
	r, _ := newPrefsRouter(t)

	w := doJSON(t, r, http.MethodGet, "/preferences", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var p prefs.Preferences
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p != prefs.Defaults() {
		t.Errorf("preferences = %+v, want defaults", p)
	}
}

func TestUpdatePreferences(t *testing.T) {
	r, store := newPrefsRouter(t)

	w := doJSON(t, r, http.MethodPut, "/preferences", map[string]any{
		"theme":            "dark",
		"text_to_task_llm": "openai",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	var p prefs.Preferences
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.Theme != "dark" || p.TextToTaskLLM != "openai" {
		t.Errorf("response = %+v", p)
	}
	// Empty fields come back filled from defaults.
	if p.Language != "en" || p.SpeechToTextLLM != "openai" {
		t.Errorf("defaults not merged: %+v", p)
	}
	if got := store.Get(); got.Theme != "dark" {
		t.Errorf("store = %+v", got)
	}
}

func TestUpdatePreferencesBadBody(t *testing.T) {
	r, _ := newPrefsRouter(t)
	w := doJSON(t, r, http.MethodPut, "/preferences", "not an object")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
