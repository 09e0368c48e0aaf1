// Package prefs persists user preferences as a single JSON file,
// read-through with defaults when the file is missing or corrupt.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/telemetry"
)

const prefsFile = "preferences.json"

// Preferences are the user-tunable settings. The model selectors feed
// the backend submission parameters.
type Preferences struct {
	Language        string `json:"language"`
	Theme           string `json:"theme"`
	Notifications   bool   `json:"notifications"`
	SpeechToTextLLM string `json:"speech_to_text_llm"`
	TextToTaskLLM   string `json:"text_to_task_llm"`
}

// Defaults returns the out-of-the-box preferences.
func Defaults() Preferences {
	return Preferences{
		Language:        "en",
		Theme:           "light",
		Notifications:   true,
		SpeechToTextLLM: "openai",
		TextToTaskLLM:   "groq",
	}
}

// merge fills empty fields of p from the defaults.
func merge(p Preferences) Preferences {
	d := Defaults()
	if p.Language == "" {
		p.Language = d.Language
	}
	if p.Theme == "" {
		p.Theme = d.Theme
	}
	if p.SpeechToTextLLM == "" {
		p.SpeechToTextLLM = d.SpeechToTextLLM
	}
	if p.TextToTaskLLM == "" {
		p.TextToTaskLLM = d.TextToTaskLLM
	}
	return p
}

// Store guards the preferences file. Mutations rewrite it wholesale.
type Store struct {
	mu        sync.RWMutex
	path      string
	prefs     Preferences
	onChange  []func(Preferences)
	telemetry *telemetry.Client
	log       zerolog.Logger
}

// NewStore opens (or seeds) the preferences file under dataDir.
func NewStore(dataDir string, tc *telemetry.Client, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{
		path:      filepath.Join(dataDir, prefsFile),
		telemetry: tc,
		log:       log,
	}
	s.prefs = s.read()
	return s, nil
}

// read loads the file, falling back to defaults on any failure.
func (s *Store) read() Preferences {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults()
	}
	if err != nil {
		s.storageError("read", err)
		return Defaults()
	}

	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		s.storageError("read", err)
		return Defaults()
	}
	return merge(p)
}

// Get returns the current preferences.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Selectors returns the model selectors fed into backend submissions.
func (s *Store) Selectors() (speechToText, textToTask string) {
	p := s.Get()
	return p.SpeechToTextLLM, p.TextToTaskLLM
}

// Update replaces the preferences and rewrites the file. Empty fields
// are filled from the defaults first.
func (s *Store) Update(p Preferences) error {
	p = merge(p)

	s.mu.Lock()
	s.prefs = p
	listeners := append([]func(Preferences){}, s.onChange...)
	err := s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		s.storageError("update", err)
		return err
	}
	for _, fn := range listeners {
		fn(p)
	}
	return nil
}

// OnChange registers a callback invoked after every preference change,
// whether via Update or an external file edit picked up by the watcher.
func (s *Store) OnChange(fn func(Preferences)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// reload re-reads the file (after an external change) and notifies
// listeners if anything actually changed.
func (s *Store) reload() {
	fresh := s.read()

	s.mu.Lock()
	changed := fresh != s.prefs
	s.prefs = fresh
	listeners := append([]func(Preferences){}, s.onChange...)
	s.mu.Unlock()

	if !changed {
		return
	}
	s.log.Info().Msg("preferences reloaded from disk")
	for _, fn := range listeners {
		fn(fresh)
	}
}

func (s *Store) saveLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.prefs); err != nil {
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
	s.log.Error().Err(err).Str("op", op).Msg("preferences storage error")
	s.telemetry.Error(fmt.Sprintf("storage error during preferences %s: %v", op, err), "", map[string]any{
		"operation": op,
	})
}
