package pipeline

import (
	"context"
	"sync"
	"time"

	oerr "github.com/textlift/ocr-worker/internal/errors"
)

// EventType discriminates runner events.
type EventType string

const (
	// EventStage reports a stage boundary being entered.
	EventStage EventType = "stage"
	// EventCompleted, EventFailed, and EventCancelled are terminal and
	// carry the run's Result.
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventCancelled EventType = "cancelled"
	// EventWarning reports a history persistence failure for a completed
	// run. It arrives before the run's EventCompleted; the run itself
	// stays completed.
	EventWarning EventType = "warning"
)

// Event is one message on the runner's channel.
type Event struct {
	Type   EventType
	Stage  Stage
	Result *Result
	Err    error
}

const persistTimeout = 10 * time.Second

// Runner executes pipeline runs one at a time on a worker goroutine,
// keeping the submitting goroutine responsive. At most one run is in
// flight; a second submission is rejected with Busy, never queued.
// Completion, failure, cancellation, and persistence warnings are
// delivered on the Events channel in the order runs finish, which is
// submission order since runs are serialized.
type Runner struct {
	pipeline *Pipeline

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc

	events chan Event
}

// NewRunner wraps a pipeline in a single-flight asynchronous runner.
func NewRunner(p *Pipeline) *Runner {
	return &Runner{
		pipeline: p,
		events:   make(chan Event, 16),
	}
}

// Events returns the channel terminal and progress events arrive on.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start submits a run. It returns Busy while another run is in flight
// and InvalidConfiguration for a configuration that violates its
// invariants — in both cases no run starts and no work happens.
func (r *Runner) Start(src Source, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return oerr.NewBusy()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.running = true
	r.cancel = cancel
	r.mu.Unlock()

	go r.run(ctx, src, cfg)
	return nil
}

// Cancel signals the in-flight run, if any, to stop at the next stage
// boundary. Calling it with no run in flight, or after the run reached
// a terminal state, has no effect.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runner) run(ctx context.Context, src Source, cfg Config) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.cancel = nil
		r.mu.Unlock()
	}()

	result := r.pipeline.Execute(ctx, src, cfg, func(st Stage) {
		// Progress events are best-effort; a slow consumer never
		// stalls the run.
		select {
		case r.events <- Event{Type: EventStage, Stage: st}:
		default:
		}
	})

	switch result.Status {
	case StatusCompleted:
		// Persist before reporting completion, so a caller that exits on
		// the terminal event never races the history append. A failed
		// append surfaces as a warning first and leaves the run completed.
		persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if _, err := r.pipeline.Record(persistCtx, result); err != nil {
			r.events <- Event{Type: EventWarning, Result: result, Err: err}
		}

		r.events <- Event{Type: EventCompleted, Result: result}
	case StatusCancelled:
		r.events <- Event{Type: EventCancelled, Result: result}
	default:
		r.events <- Event{Type: EventFailed, Result: result, Err: result.Err}
	}
}
