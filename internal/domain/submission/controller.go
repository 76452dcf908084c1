// Package submission drives one session's prediction request lifecycle.
//
// A Controller moves Idle -> Pending -> Succeeded|Failed and back to Pending
// on the next submit. Every dispatch bumps a generation counter; completions
// carrying an older generation are discarded, so a late response can never
// overwrite the state of a newer request.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rulcast/internal/domain/form"
	model "github.com/okian/rulcast/internal/domain/model"
	"github.com/okian/rulcast/pkg/logger"
	"github.com/okian/rulcast/pkg/metrics"
)

// Dispatcher accepts prediction jobs without blocking. Enqueue is called with
// the controller locked and must not run the job's Done callback itself.
type Dispatcher interface {
	Enqueue(ctx context.Context, j model.Job) error
}

// History receives successful results.
type History interface {
	Append(ctx context.Context, requestID string, result model.PredictionResult) (model.HistoryEntry, error)
}

// Notifier receives notifications after the controller lock is released.
type Notifier func(ctx context.Context, n model.Notification)

// Controller owns the submission state of one session.
type Controller struct {
	mu        sync.Mutex
	phase     Phase
	seq       uint64
	requestID string
	result    *model.PredictionResult
	failure   *Failure
	closed    bool

	dispatcher Dispatcher
	history    History
	notify     Notifier
	sessionID  string
	newID      func() string
	now        func() time.Time
	logger     logger.Logger
}

// New creates an Idle controller.
func New(dispatcher Dispatcher, history History, opts ...Option) *Controller {
	c := &Controller{
		phase:      PhaseIdle,
		dispatcher: dispatcher,
		history:    history,
		notify:     func(context.Context, model.Notification) {},
		newID:      uuid.NewString,
		now:        time.Now,
		logger:     logger.Get().Named("submission"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessionID != "" {
		c.logger = c.logger.With(logger.String("session_id", c.sessionID))
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	st := State{Phase: c.phase, Seq: c.seq, RequestID: c.requestID}
	if c.result != nil {
		r := *c.result
		st.Result = &r
	}
	if c.failure != nil {
		f := *c.failure
		f.Keys = append([]string(nil), c.failure.Keys...)
		st.Failure = &f
	}
	return st
}

// Submit validates fs and dispatches a prediction request.
//
// It returns ErrInFlight when a request is pending, a *form.ValidationError
// when fs is incomplete (the controller is then Failed and nothing is
// dispatched), or an error wrapping ErrBusy when the job could not be queued.
func (c *Controller) Submit(ctx context.Context, fs form.State) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.phase == PhasePending {
		seq := c.seq
		c.mu.Unlock()
		metrics.RecordSubmissionIgnored()
		c.logger.Debug(ctx, "submit ignored while pending", logger.Uint64("seq", seq))
		return ErrInFlight
	}
	metrics.RecordSubmission()

	if err := form.Validate(fs); err != nil {
		var keys []string
		var ve *form.ValidationError
		if errors.As(err, &ve) {
			keys = ve.Keys
		}
		c.fail(&Failure{Kind: FailureValidation, Message: err.Error(), Keys: keys})
		c.mu.Unlock()
		metrics.RecordPredictionFailed(string(FailureValidation))
		return err
	}

	payload, err := form.Serialize(fs)
	if err != nil {
		c.fail(&Failure{Kind: FailureInternal, Message: err.Error()})
		c.mu.Unlock()
		metrics.RecordPredictionFailed(string(FailureInternal))
		return err
	}

	c.seq++
	seq := c.seq
	requestID := c.newID()
	c.phase = PhasePending
	c.requestID = requestID
	c.result = nil
	c.failure = nil

	job := model.Job{
		ID:        requestID,
		SessionID: c.sessionID,
		Seq:       seq,
		Payload:   payload,
		Done: func(ctx context.Context, res model.PredictionResult, err error) {
			c.Complete(ctx, seq, res, err)
		},
	}

	if err := c.dispatcher.Enqueue(ctx, job); err != nil {
		c.fail(&Failure{Kind: FailureBusy, Message: "prediction service is busy, try again"})
		note := c.notification(model.NotificationFailure, "Failed to fetch prediction: service busy", seq)
		c.mu.Unlock()
		metrics.RecordPredictionFailed(string(FailureBusy))
		c.logger.Warn(ctx, "prediction dispatch refused", logger.String("request_id", requestID), logger.Error(err))
		c.notify(ctx, note)
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	c.mu.Unlock()

	c.logger.Debug(ctx, "prediction dispatched", logger.String("request_id", requestID), logger.Uint64("seq", seq))
	return nil
}

// Complete applies the outcome of the request issued as generation seq.
// It returns false when the completion is stale and was discarded.
func (c *Controller) Complete(ctx context.Context, seq uint64, res model.PredictionResult, err error) bool {
	c.mu.Lock()

	if seq != c.seq || c.phase != PhasePending {
		current, phase := c.seq, c.phase
		c.mu.Unlock()
		metrics.RecordStaleResponse()
		c.logger.Debug(ctx, "stale prediction response discarded",
			logger.Uint64("seq", seq),
			logger.Uint64("current_seq", current),
			logger.String("phase", string(phase)),
		)
		return false
	}
	requestID := c.requestID

	var note model.Notification
	if err != nil {
		f := classify(err)
		c.fail(f)
		note = c.notification(model.NotificationFailure, "Failed to fetch prediction: "+f.Message, seq)
		c.mu.Unlock()

		metrics.RecordPredictionFailed(string(f.Kind))
		if f.Kind == FailureMalformed {
			c.logger.Warn(ctx, "prediction response malformed",
				logger.String("request_id", requestID), logger.Error(err))
		} else {
			c.logger.Info(ctx, "prediction request failed",
				logger.String("request_id", requestID), logger.String("kind", string(f.Kind)), logger.Error(err))
		}
		c.notify(ctx, note)
		return true
	}

	entry, herr := c.history.Append(ctx, requestID, res)
	if herr != nil {
		c.fail(&Failure{Kind: FailureInternal, Message: "prediction could not be recorded"})
		note = c.notification(model.NotificationFailure, "Failed to record prediction", seq)
		c.mu.Unlock()

		metrics.RecordPredictionFailed(string(FailureInternal))
		c.logger.Error(ctx, "history append failed", logger.String("request_id", requestID), logger.Error(herr))
		c.notify(ctx, note)
		return true
	}

	r := res
	c.phase = PhaseSucceeded
	c.result = &r
	note = c.notification(model.NotificationSuccess, successMessage(res), seq)
	c.mu.Unlock()

	metrics.RecordPredictionSucceeded(res.FailureLabel(), res.PredictedRUL)
	c.logger.Debug(ctx, "prediction stored",
		logger.String("request_id", requestID),
		logger.Int("index", entry.Index),
		logger.String("failure_type", res.FailureLabel()),
		logger.Float64("predicted_rul", res.PredictedRUL),
	)
	c.notify(ctx, note)
	return true
}

// Abandon invalidates any pending request and returns to Idle. A response
// for the abandoned request is discarded when it arrives.
func (c *Controller) Abandon(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonLocked(ctx)
}

func (c *Controller) abandonLocked(ctx context.Context) {
	if c.phase != PhasePending {
		return
	}
	c.seq++
	c.phase = PhaseIdle
	c.requestID = ""
	c.logger.Debug(ctx, "pending request abandoned", logger.Uint64("seq", c.seq))
}

// Close abandons any pending request and makes every later Submit return
// ErrClosed. It is idempotent.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.abandonLocked(ctx)
}

// fail must be called with c.mu held.
func (c *Controller) fail(f *Failure) {
	c.phase = PhaseFailed
	c.result = nil
	c.failure = f
}

// notification must be called with c.mu held.
func (c *Controller) notification(kind model.NotificationKind, msg string, seq uint64) model.Notification {
	return model.Notification{ID: c.newID(), Kind: kind, Message: msg, Seq: seq, At: c.now().UTC()}
}

func classify(err error) *Failure {
	switch {
	case errors.Is(err, model.ErrMalformedResponse):
		return &Failure{Kind: FailureMalformed, Message: "unexpected response from prediction service"}
	case errors.Is(err, context.Canceled):
		return &Failure{Kind: FailureCancelled, Message: "request cancelled"}
	default:
		return &Failure{Kind: FailureService, Message: firstLine(err.Error())}
	}
}

func successMessage(res model.PredictionResult) string {
	return fmt.Sprintf("Prediction successful: %s, RUL %.2f", res.FailureLabel(), res.PredictedRUL)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
