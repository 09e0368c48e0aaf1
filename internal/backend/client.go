// Package backend submits captured audio clips to the remote
// speech-to-text/task-extraction endpoint and classifies failures.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/metrics"
	"github.com/bonellirj/EchoDo/internal/telemetry"
)

// Submission is one audio clip plus the model-selection parameters.
// Timestamp (Unix seconds) doubles as the correlation id for telemetry.
type Submission struct {
	Audio           []byte
	SpeechToTextLLM string
	TextToTaskLLM   string
	Timestamp       int64
}

// TransactionID returns the correlation id derived from the timestamp.
func (s Submission) TransactionID() string {
	return strconv.FormatInt(s.Timestamp, 10)
}

// TaskMeta describes which provider and model produced the task.
type TaskMeta struct {
	LLMProvider string `json:"llm_provider"`
	ModelUsed   string `json:"model_used"`
}

// TaskData is the structured task description extracted from speech.
type TaskData struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"due_date"`
	Meta        TaskMeta `json:"meta"`
}

// TaskResult wraps the task data with the backend's success flag.
type TaskResult struct {
	Success bool     `json:"success"`
	Data    TaskData `json:"data"`
}

// TaskResponse is a successful backend answer.
type TaskResponse struct {
	Timestamp     string     `json:"timestamp"`
	Transcription string     `json:"transcription"`
	Task          TaskResult `json:"task"`
}

// Client posts audio to the task-extraction endpoint.
type Client struct {
	url       string
	timeout   time.Duration
	client    *http.Client
	telemetry *telemetry.Client
	log       zerolog.Logger
}

// NewClient creates a submission client with a fixed per-request timeout.
func NewClient(url string, timeout time.Duration, tc *telemetry.Client, log zerolog.Logger) *Client {
	return &Client{
		url:       url,
		timeout:   timeout,
		client:    &http.Client{},
		telemetry: tc,
		log:       log,
	}
}

// Process sends the clip and returns the structured task response.
// Failures are classified: ErrTimeout, *HTTPError for non-2xx statuses,
// ErrMalformedResponse for undecodable bodies, *BackendError when the
// backend explicitly signals failure.
func (c *Client) Process(ctx context.Context, sub Submission) (*TaskResponse, error) {
	if len(sub.Audio) == 0 {
		return nil, fmt.Errorf("empty audio clip")
	}

	txID := sub.TransactionID()
	c.telemetry.Info("audio submission started", txID, map[string]any{
		"audio_bytes":        len(sub.Audio),
		"speech_to_text_llm": sub.SpeechToTextLLM,
		"text_to_task_llm":   sub.TextToTaskLLM,
	})

	start := time.Now()
	resp, err := c.process(ctx, sub)
	metrics.SubmissionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		c.telemetry.Error("audio submission failed", txID, map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues("ok").Inc()
	c.telemetry.Info("audio submission succeeded", txID, map[string]any{
		"task_title":   resp.Task.Data.Title,
		"llm_provider": resp.Task.Data.Meta.LLMProvider,
		"model_used":   resp.Task.Data.Meta.ModelUsed,
	})
	return resp, nil
}

func (c *Client) process(ctx context.Context, sub Submission) (*TaskResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="recording.webm"`)
	hdr.Set("Content-Type", "audio/webm")
	part, err := w.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(sub.Audio); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	w.WriteField("TextToTaskLLM", sub.TextToTaskLLM)
	// Field name matches the backend contract, typo included.
	w.WriteField("SpeachToTextLLM", sub.SpeechToTextLLM)
	w.WriteField("timestamp", strconv.FormatInt(sub.Timestamp, 10))
	w.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	httpResp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Int("status", httpResp.StatusCode).
		Int("body_bytes", len(body)).
		Msg("backend response received")

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &HTTPError{Status: httpResp.StatusCode, Message: extractErrorMessage(body)}
	}

	var data struct {
		Error         string      `json:"error"`
		Timestamp     string      `json:"timestamp"`
		Transcription string      `json:"transcription"`
		Task          *TaskResult `json:"task"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if data.Error != "" {
		return nil, &BackendError{Message: data.Error}
	}
	if data.Task == nil {
		return nil, fmt.Errorf("%w: missing task field", ErrMalformedResponse)
	}
	if !data.Task.Success {
		return nil, &BackendError{Message: "Backend processing failed"}
	}

	return &TaskResponse{
		Timestamp:     data.Timestamp,
		Transcription: data.Transcription,
		Task:          *data.Task,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}

func outcomeLabel(err error) string {
	var httpErr *HTTPError
	var backendErr *BackendError
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.As(err, &backendErr):
		return "backend_error"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "network"
	}
}
