// Package session holds the observable state of one voice-recording
// session: the recording flag, elapsed time, processing flag, last error
// and the captured clip. The store is the single source of truth shared
// by the orchestrator and the HTTP surface.
package session

import "sync"

// State is a snapshot of the current recording session.
type State struct {
	Recording  bool   `json:"is_recording"`
	Elapsed    int    `json:"elapsed_seconds"`
	MaxSeconds int    `json:"max_seconds"`
	Processing bool   `json:"is_processing"`
	Err        string `json:"error,omitempty"`
	HasAudio   bool   `json:"has_audio"`
}

// Listener receives a state snapshot after every mutation.
type Listener func(State)

// Store guards the session state and notifies listeners on change.
// Recording and Processing are never both true.
type Store struct {
	mu        sync.Mutex
	state     State
	audio     []byte
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store in the idle state with the given recording limit.
func NewStore(maxSeconds int) *Store {
	return &Store{
		state:     State{MaxSeconds: maxSeconds},
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns an unsubscribe function.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Audio returns the captured clip from the last stopped recording, if any.
func (s *Store) Audio() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio
}

// StartRecording transitions to the recording state, resetting elapsed
// time and clearing any prior error and clip.
func (s *Store) StartRecording() {
	s.mutate(func(st *State) {
		st.Recording = true
		st.Processing = false
		st.Elapsed = 0
		st.Err = ""
		st.HasAudio = false
		s.audio = nil
	})
}

// StopRecording clears the recording flag. Elapsed time stops advancing.
func (s *Store) StopRecording() {
	s.mutate(func(st *State) {
		st.Recording = false
	})
}

// SetElapsed publishes a new elapsed-seconds value. Ignored once the
// session has left the recording state, so a timer tick racing the
// stop sequence cannot publish after the fact.
func (s *Store) SetElapsed(seconds int) {
	s.mu.Lock()
	if !s.state.Recording {
		s.mu.Unlock()
		return
	}
	s.state.Elapsed = seconds
	snapshot := s.state
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(snapshot)
	}
}

// SetAudio stores the finished clip.
func (s *Store) SetAudio(clip []byte) {
	s.mutate(func(st *State) {
		s.audio = clip
		st.HasAudio = len(clip) > 0
	})
}

// SetProcessing flips the processing flag. Recording is cleared first so
// the two are never both true.
func (s *Store) SetProcessing(processing bool) {
	s.mutate(func(st *State) {
		if processing {
			st.Recording = false
		}
		st.Processing = processing
	})
}

// SetError records the user-facing error message.
func (s *Store) SetError(msg string) {
	s.mutate(func(st *State) {
		st.Err = msg
	})
}

// Reset returns the session to its initial defaults. Always safe to call.
func (s *Store) Reset() {
	s.mutate(func(st *State) {
		*st = State{MaxSeconds: st.MaxSeconds}
		s.audio = nil
	})
}

func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	// Notify outside the lock so listeners can call back into the store.
	for _, l := range ls {
		l(snapshot)
	}
}
