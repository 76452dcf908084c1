package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rulcast/internal/adapters/repository"
	"github.com/okian/rulcast/internal/domain/aggregate"
	"github.com/okian/rulcast/internal/domain/form"
	model "github.com/okian/rulcast/internal/domain/model"
	"github.com/okian/rulcast/internal/domain/submission"
	"github.com/okian/rulcast/pkg/logger"
	"github.com/okian/rulcast/pkg/metrics"
)

const subscriberBuffer = 16

// Snapshot is everything the presentation boundary renders after a change.
// Version increases with every published change; a client holding a higher
// version has already seen newer state.
type Snapshot struct {
	SessionID           string                 `json:"session_id"`
	Version             uint64                 `json:"version"`
	Form                map[string]string      `json:"form"`
	Submission          submission.State       `json:"submission"`
	History             []model.HistoryEntry   `json:"history"`
	FailureDistribution aggregate.Distribution `json:"failure_distribution"`
	RulTrend            []aggregate.Point      `json:"rul_trend"`
}

// Update is pushed to stream subscribers. Exactly one field is set.
type Update struct {
	Snapshot     *Snapshot           `json:"snapshot,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// Session is one user's form, submission controller and prediction history.
// Field edits are applied in call order under mu; submission state is owned
// by the controller.
type Session struct {
	id string

	mu     sync.Mutex
	form   form.State
	closed bool

	ctrl    *submission.Controller
	history *repository.InMemoryHistory

	outMu     sync.Mutex
	outbox    []model.Notification
	outboxCap int

	// subMu also serializes publish so snapshots reach subscribers in version order.
	subMu   sync.Mutex
	subs    map[chan Update]struct{}
	version atomic.Uint64

	lastSeen atomic.Int64
	now      func() time.Time
	logger   logger.Logger
}

func newSession(id string, dispatcher submission.Dispatcher, outboxCap int, now func() time.Time, log logger.Logger) *Session {
	s := &Session{
		id:        id,
		form:      form.Initialize(),
		history:   repository.NewInMemoryHistory(),
		outboxCap: outboxCap,
		subs:      make(map[chan Update]struct{}),
		now:       now,
		logger:    log.With(logger.String("session_id", id)),
	}
	s.ctrl = submission.New(dispatcher, s.history,
		submission.WithSessionID(id),
		submission.WithNotifier(s.onNotification),
		submission.WithClock(now),
		submission.WithLogger(log.Named("submission")),
	)
	s.touch()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LastSeen returns the time of the last operation on the session.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

func (s *Session) touch() { s.lastSeen.Store(s.now().UnixNano()) }

// SetField records a raw field edit. Unknown keys yield *form.UnknownFieldError.
func (s *Session) SetField(ctx context.Context, key, raw string) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	next, err := form.SetField(s.form, key, raw)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error(ctx, "edit for unknown field rejected", logger.String("key", key))
		metrics.RecordErrorByComponent("session", "unknown_field")
		return Snapshot{}, err
	}
	s.form = next
	s.mu.Unlock()

	s.touch()
	return s.publish(ctx), nil
}

// Reset clears every form value. Submission state and history are kept.
func (s *Session) Reset(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	s.form = form.Reset()
	s.mu.Unlock()

	s.touch()
	return s.publish(ctx), nil
}

// Submit sends the current form for prediction. Errors are those of
// submission.Controller.Submit; the returned snapshot is valid either way.
func (s *Session) Submit(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	current := s.form
	s.mu.Unlock()

	s.touch()
	err := s.ctrl.Submit(ctx, current)
	if errors.Is(err, submission.ErrClosed) {
		return Snapshot{}, ErrSessionClosed
	}
	return s.publish(ctx), err
}

// Snapshot returns the current state without side effects.
func (s *Session) Snapshot(_ context.Context) Snapshot {
	return s.snapshot(s.version.Load())
}

func (s *Session) snapshot(version uint64) Snapshot {
	s.mu.Lock()
	values := s.form.Values()
	s.mu.Unlock()

	st := s.ctrl.State()
	// read after State so history is never behind the reported phase
	history := s.history.All(context.Background())
	return Snapshot{
		SessionID:           s.id,
		Version:             version,
		Form:                values,
		Submission:          st,
		History:             history,
		FailureDistribution: aggregate.FailureDistribution(history),
		RulTrend:            aggregate.RulTrend(history),
	}
}

// DrainNotifications returns and clears undelivered notifications, oldest first.
func (s *Session) DrainNotifications() []model.Notification {
	s.touch()
	s.outMu.Lock()
	defer s.outMu.Unlock()
	out := s.outbox
	s.outbox = nil
	if out == nil {
		out = []model.Notification{}
	}
	return out
}

// Subscribe registers a stream receiver. The channel is closed by cancel or
// when the session closes. Slow receivers miss updates rather than block.
func (s *Session) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)

	s.subMu.Lock()
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// Close abandons any pending request and releases subscribers and history.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.ctrl.Close(ctx)
	_ = s.history.Close()

	s.subMu.Lock()
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.subMu.Unlock()
	s.logger.Debug(ctx, "session closed")
}

func (s *Session) onNotification(ctx context.Context, n model.Notification) {
	s.outMu.Lock()
	if len(s.outbox) >= s.outboxCap {
		s.outbox = s.outbox[1:]
		metrics.RecordNotificationDrop()
	}
	s.outbox = append(s.outbox, n)
	s.outMu.Unlock()

	s.publish(ctx)
	s.broadcast(Update{Notification: &n})
}

// publish computes a snapshot and pushes it to subscribers. The snapshot is
// taken under subMu, so the last one queued always reflects the latest state.
func (s *Session) publish(_ context.Context) Snapshot {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	snap := s.snapshot(s.version.Add(1))
	for ch := range s.subs {
		send(ch, Update{Snapshot: &snap})
	}
	return snap
}

func (s *Session) broadcast(u Update) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		send(ch, u)
	}
}

// send queues u for one subscriber. When the buffer is full, queued snapshots
// other than the newest are discarded; notifications are kept unless they
// alone fill the buffer, in which case the oldest goes. Callers hold subMu,
// which makes them the only sender.
func send(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	metrics.RecordSubscriberDrop()

	queued := make([]Update, 0, cap(ch)+1)
	for drained := false; !drained; {
		select {
		case q := <-ch:
			queued = append(queued, q)
		default:
			drained = true
		}
	}
	queued = append(queued, u)

	newest := -1
	for i, q := range queued {
		if q.Snapshot != nil {
			newest = i
		}
	}
	kept := queued[:0]
	for i, q := range queued {
		if q.Snapshot == nil || i == newest {
			kept = append(kept, q)
		}
	}
	for len(kept) > cap(ch) {
		for i, q := range kept {
			if q.Snapshot == nil {
				kept = append(kept[:i], kept[i+1:]...)
				break
			}
		}
	}
	for _, q := range kept {
		ch <- q
	}
}
