package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestEmitPostsPayload(t *testing.T) {
	var mu sync.Mutex
	var got []logPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "test-token" {
			t.Errorf("Authorization = %q, want test-token", auth)
		}
		var p logPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token", false, zerolog.Nop())
	c.Error("submission failed", "1753400000", map[string]any{"status": 502})
	c.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("received %d payloads, want 1", len(got))
	}
	p := got[0]
	if p.Message != "submission failed" {
		t.Errorf("Message = %q", p.Message)
	}
	if p.Level != LevelError || p.Status != 500 {
		t.Errorf("Level/Status = %s/%d, want error/500", p.Level, p.Status)
	}
	if p.TransactionID != "1753400000" {
		t.Errorf("TransactionID = %q", p.TransactionID)
	}
	if p.System != "EchoDo" || p.Module != "engine" || p.UserID != "NA" {
		t.Errorf("identity fields = %s/%s/%s", p.System, p.Module, p.UserID)
	}
}

func TestDebugSuppressedOutsideDev(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	defer srv.Close()

	prod := NewClient(srv.URL, "", false, zerolog.Nop())
	prod.Debug("noisy detail", "", nil)
	prod.Flush()

	mu.Lock()
	if calls != 0 {
		t.Errorf("debug event shipped outside dev mode (%d calls)", calls)
	}
	mu.Unlock()

	dev := NewClient(srv.URL, "", true, zerolog.Nop())
	dev.Debug("noisy detail", "", nil)
	dev.Flush()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("dev debug event calls = %d, want 1", calls)
	}
}

func TestUnconfiguredClientIsLocalOnly(t *testing.T) {
	c := NewClient("", "", false, zerolog.Nop())
	c.Info("no remote", "", nil)
	c.Flush() // must not panic or block
}

func TestLevelStatusMapping(t *testing.T) {
	tests := []struct {
		level Level
		want  int
	}{
		{LevelInfo, 200},
		{LevelWarn, 400},
		{LevelError, 500},
		{LevelDebug, 100},
	}
	for _, tt := range tests {
		if got := statusForLevel(tt.level); got != tt.want {
			t.Errorf("statusForLevel(%s) = %d, want %d", tt.level, got, tt.want)
		}
	}
}
