// Package pipeline composes capture, timing, submission and
// materialization into the record-then-submit session lifecycle.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/backend"
	"github.com/bonellirj/EchoDo/internal/capture"
	"github.com/bonellirj/EchoDo/internal/metrics"
	"github.com/bonellirj/EchoDo/internal/session"
	"github.com/bonellirj/EchoDo/internal/task"
	"github.com/bonellirj/EchoDo/internal/telemetry"
)

// ErrSessionBusy means Start was called while a session is recording or
// a submission is still in flight.
var ErrSessionBusy = errors.New("a recording session is already in progress")

// User-facing messages for submission failures, keyed by error kind.
const (
	msgTimeout  = "Request timeout - please try again"
	msgServer   = "Server error - please try again later"
	msgNetwork  = "Network error - check your connection"
	msgNoResult = "Could not process voice input - please try again"
)

// SubmissionClient sends a captured clip to the task-extraction backend.
type SubmissionClient interface {
	Process(ctx context.Context, sub backend.Submission) (*backend.TaskResponse, error)
}

// TaskMaterializer turns a backend response into a stored task.
type TaskMaterializer interface {
	Materialize(resp *backend.TaskResponse, transactionID string) (task.Task, error)
}

// ModelSelection supplies the current model-selector preferences.
type ModelSelection interface {
	Selectors() (speechToText, textToTask string)
}

// Options configures an Orchestrator.
type Options struct {
	Recorder     capture.Recorder
	Backend      SubmissionClient
	Materializer TaskMaterializer
	Models       ModelSelection
	Bus          *Bus
	Telemetry    *telemetry.Client
	MaxSeconds   int
	TickInterval time.Duration
	// OnTaskCreated is invoked after a successful materialization. Optional.
	OnTaskCreated func(task.Task)
	Log           zerolog.Logger
}

// Orchestrator owns one reusable recording session and drives it through
// Idle → Recording → Processing → Idle. Manual stop and timer auto-stop
// converge on a single guarded transition, so whichever fires second is
// a no-op.
type Orchestrator struct {
	opts    Options
	session *session.Store
	log     zerolog.Logger

	mu    sync.Mutex
	timer *session.Timer
	// gen identifies the current session; Reset bumps it so a
	// submission still in flight cannot write into a later session.
	gen uint64

	processing sync.WaitGroup

	// now is swapped out by tests that need fixed transaction ids.
	now func() time.Time
}

// New creates an orchestrator in the idle state. The session store it
// owns is exposed via Session for UI layers; state changes are also
// republished on the event bus.
func New(opts Options) *Orchestrator {
	if opts.MaxSeconds <= 0 {
		opts.MaxSeconds = 10
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 100 * time.Millisecond
	}

	o := &Orchestrator{
		opts:    opts,
		session: session.NewStore(opts.MaxSeconds),
		log:     opts.Log,
		now:     time.Now,
	}

	if opts.Bus != nil {
		o.session.Subscribe(func(st session.State) {
			opts.Bus.Publish(EventStateChanged, st)
		})
	}
	return o
}

// Session returns the observable session state store.
func (o *Orchestrator) Session() *session.Store { return o.session }

// State returns the current session snapshot.
func (o *Orchestrator) State() session.State { return o.session.State() }

// Start begins a new recording session: resets elapsed time, clears any
// prior error and clip, starts capture and the auto-stop timer.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := o.session.State()
	if st.Recording || st.Processing {
		return ErrSessionBusy
	}

	if !o.opts.Recorder.Supported() {
		err := capture.ErrUnsupported
		o.session.SetError(err.Error())
		o.opts.Telemetry.Error("voice recognition failed: "+err.Error(), o.errorTransactionID(), nil)
		return err
	}

	o.session.StartRecording()

	if err := o.opts.Recorder.Start(ctx); err != nil {
		o.session.StopRecording()
		o.session.SetError(err.Error())
		o.opts.Telemetry.Error("voice recognition failed: "+err.Error(), o.errorTransactionID(), nil)
		return err
	}

	metrics.RecordingsStarted.Inc()
	o.opts.Telemetry.Info("voice recognition started", "", nil)

	o.timer = session.NewTimer(o.opts.TickInterval, o.opts.MaxSeconds,
		o.session.SetElapsed,
		func() {
			metrics.RecordingsAutoStopped.Inc()
			o.stop()
		},
	)
	o.timer.Start()
	return nil
}

// Stop ends the recording manually. A no-op when not recording.
func (o *Orchestrator) Stop() {
	o.stop()
}

// stop is the single transition out of the recording state, invoked from
// both the manual path and the timer's auto-stop. The state re-check
// under the lock makes the second caller a no-op.
func (o *Orchestrator) stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.session.State().Recording {
		return
	}

	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.session.StopRecording()

	clip, err := o.opts.Recorder.Stop()
	if err != nil {
		o.session.SetError(err.Error())
		o.opts.Telemetry.Error("voice recognition failed: "+err.Error(), o.errorTransactionID(), nil)
		return
	}

	o.session.SetAudio(clip)
	o.session.SetProcessing(true)

	speechToText, textToTask := o.opts.Models.Selectors()
	sub := backend.Submission{
		Audio:           clip,
		SpeechToTextLLM: speechToText,
		TextToTaskLLM:   textToTask,
		Timestamp:       o.now().Unix(),
	}

	o.processing.Add(1)
	go o.process(sub, o.gen)
}

// process runs the submission + materialization sequence. One in-flight
// submission at most: Processing gates Start until this finishes. gen
// pins the session the submission belongs to; after a Reset the result
// is still recorded (telemetry, task) but no longer touches session
// state, which may already belong to a new recording.
func (o *Orchestrator) process(sub backend.Submission, gen uint64) {
	defer o.processing.Done()
	defer o.mutateSession(gen, func() { o.session.SetProcessing(false) })

	resp, err := o.opts.Backend.Process(context.Background(), sub)
	if err != nil {
		msg := userMessage(err)
		o.mutateSession(gen, func() { o.session.SetError(msg) })
		o.opts.Telemetry.Error("voice recognition failed: "+msg, sub.TransactionID(), map[string]any{
			"detail": err.Error(),
		})
		return
	}

	txID := resp.Timestamp
	if txID == "" {
		txID = sub.TransactionID()
	}

	created, err := o.opts.Materializer.Materialize(resp, txID)
	if err != nil {
		msg := msgNoResult
		if !errors.Is(err, task.ErrIncompleteTask) {
			msg = "Failed to save task - please try again"
		}
		o.mutateSession(gen, func() { o.session.SetError(msg) })
		o.opts.Telemetry.Error("voice recognition failed: "+msg, txID, map[string]any{
			"detail": err.Error(),
		})
		return
	}

	o.opts.Telemetry.Info("task created from voice input", txID, map[string]any{
		"task_id": created.ID,
	})
	if o.opts.Bus != nil {
		o.opts.Bus.Publish(EventTaskCreated, created)
	}
	if o.opts.OnTaskCreated != nil {
		o.opts.OnTaskCreated(created)
	}
}

// mutateSession applies fn only while the submission's session is still
// the current one.
func (o *Orchestrator) mutateSession(gen uint64, fn func()) {
	o.mu.Lock()
	current := gen == o.gen
	o.mu.Unlock()
	if current {
		fn()
	}
}

// Reset returns the session to its defaults, releasing the microphone if
// a recording is still active. Always safe to call; used to dismiss
// errors. An in-flight submission is orphaned: its task may still be
// created, but it can no longer write session state.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.gen++
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.session.State().Recording {
		// Discard the clip; the device must still be released.
		if _, err := o.opts.Recorder.Stop(); err != nil && !errors.Is(err, capture.ErrNotRecording) {
			o.log.Warn().Err(err).Msg("capture stop during reset")
		}
	}
	o.session.Reset()
}

// Close waits for any in-flight submission to finish.
func (o *Orchestrator) Close() {
	o.processing.Wait()
}

func (o *Orchestrator) errorTransactionID() string {
	return backend.Submission{Timestamp: o.now().Unix()}.TransactionID()
}

// userMessage maps an internal error to the short sentence shown to the
// user. HTTP errors surface the specific message extracted from the
// response body when one was found.
func userMessage(err error) string {
	var httpErr *backend.HTTPError
	var backendErr *backend.BackendError
	switch {
	case errors.Is(err, backend.ErrTimeout):
		return msgTimeout
	case errors.As(err, &httpErr):
		if httpErr.Message == "" || httpErr.Message == "Request failed" {
			return msgServer
		}
		return httpErr.Message
	case errors.As(err, &backendErr):
		if backendErr.Message == "" || backendErr.Message == "Backend processing failed" {
			return msgNoResult
		}
		return backendErr.Message
	case errors.Is(err, backend.ErrMalformedResponse), errors.Is(err, task.ErrIncompleteTask):
		return msgNoResult
	default:
		return msgNetwork
	}
}
