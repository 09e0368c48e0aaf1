// Package telemetry ships structured diagnostic events to the remote
// EchoDo logging endpoint. Sends are fire-and-forget: failures are
// logged locally and never propagate to callers.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/metrics"
)

// Level is a telemetry severity level.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelDebug Level = "debug"
)

// statusForLevel maps a level to the numeric status the log API expects.
func statusForLevel(l Level) int {
	switch l {
	case LevelError:
		return 500
	case LevelWarn:
		return 400
	case LevelDebug:
		return 100
	default:
		return 200
	}
}

type logPayload struct {
	Message       string         `json:"message"`
	Status        int            `json:"status"`
	Level         Level          `json:"level"`
	TransactionID string         `json:"transactionId,omitempty"`
	System        string         `json:"system"`
	Module        string         `json:"module"`
	UserID        string         `json:"userId"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// Client posts log events to the remote collector with a static auth token.
// A zero-value URL disables remote sends entirely.
type Client struct {
	url    string
	token  string
	dev    bool
	client *http.Client
	log    zerolog.Logger
	wg     sync.WaitGroup
}

// NewClient creates a telemetry client. An empty url yields a client that
// only logs locally. Debug events are only shipped when dev is true.
func NewClient(url, token string, dev bool, log zerolog.Logger) *Client {
	return &Client{
		url:    url,
		token:  token,
		dev:    dev,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Emit sends one event. The transaction id correlates client and backend
// logs for a single logical operation; it may be empty. A nil client is
// a no-op, so telemetry stays optional for callers.
func (c *Client) Emit(level Level, message, transactionID string, meta map[string]any) {
	if c == nil {
		return
	}
	ev := c.log.Info()
	switch level {
	case LevelError:
		ev = c.log.Error()
	case LevelWarn:
		ev = c.log.Warn()
	case LevelDebug:
		ev = c.log.Debug()
	}
	ev.Str("transaction_id", transactionID).Fields(meta).Msg(message)

	if c.url == "" {
		return
	}
	if level == LevelDebug && !c.dev {
		return
	}

	payload := logPayload{
		Message:       message,
		Status:        statusForLevel(level),
		Level:         level,
		TransactionID: transactionID,
		System:        "EchoDo",
		Module:        "engine",
		UserID:        "NA",
		Meta:          meta,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.send(payload); err != nil {
			metrics.TelemetrySendFailures.Inc()
			c.log.Warn().Err(err).Msg("telemetry send failed")
		}
	}()
}

// Info emits an info-level event.
func (c *Client) Info(message, transactionID string, meta map[string]any) {
	c.Emit(LevelInfo, message, transactionID, meta)
}

// Warn emits a warn-level event.
func (c *Client) Warn(message, transactionID string, meta map[string]any) {
	c.Emit(LevelWarn, message, transactionID, meta)
}

// Error emits an error-level event.
func (c *Client) Error(message, transactionID string, meta map[string]any) {
	c.Emit(LevelError, message, transactionID, meta)
}

// Debug emits a debug-level event. Shipped remotely only in dev mode.
func (c *Client) Debug(message, transactionID string, meta map[string]any) {
	c.Emit(LevelDebug, message, transactionID, meta)
}

// Flush waits for in-flight sends to finish. Used on shutdown and in tests.
func (c *Client) Flush() {
	if c == nil {
		return
	}
	c.wg.Wait()
}

func (c *Client) send(payload logPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal log payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post log: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("log API returned status %d: %s", resp.StatusCode, msg)
	}
	return nil
}
