// Package service owns the live prediction sessions and the dispatch
// machinery (queue, worker pool, prediction client) they share.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/rulcast/internal/adapters/mq/queue"
	workerpool "github.com/okian/rulcast/internal/adapters/mq/worker"
	"github.com/okian/rulcast/internal/adapters/predictor"
	"github.com/okian/rulcast/internal/domain/schema"
	"github.com/okian/rulcast/pkg/logger"
	"github.com/okian/rulcast/pkg/metrics"
)

const (
	defaultPredictorURL = "http://127.0.0.1:5000/predict"
	minSweepInterval    = time.Second
	serviceStopTimeout  = 10 * time.Second
)

// Service is the session registry.
type Service struct {
	mu sync.RWMutex

	// Core components
	queue      *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	predictor  workerpool.Predictor
	sessions   map[string]*Session

	// Configuration
	workerCount        int
	queueSize          int
	maxSessions        int
	idleTTL            time.Duration
	notificationBuffer int
	predictorURL       string
	predictorTimeout   time.Duration

	// State
	started bool
	stopCh  chan struct{}
	sweepWG sync.WaitGroup
	now     func() time.Time

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:           make(map[string]*Session),
		workerCount:        runtime.NumCPU() * 2,
		queueSize:          1024,
		maxSessions:        1000,
		idleTTL:            30 * time.Minute,
		notificationBuffer: 32,
		predictorURL:       defaultPredictorURL,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the dispatch queue and worker pool and begins idle expiry.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting prediction session service...")

	if s.predictor == nil {
		s.predictor = predictor.New(s.predictorURL,
			predictor.WithTimeout(s.predictorTimeout),
			predictor.WithLogger(s.logger.Named("predictor")),
		)
	}
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.predictor)
	// workers outlive the start context; Stop drains them
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.stopCh = make(chan struct{})
	if s.idleTTL > 0 {
		s.sweepWG.Add(1)
		go s.sweepLoop(context.WithoutCancel(ctx))
	}

	s.started = true
	metrics.UpdateActiveSessions(0)
	s.logger.Info(ctx, "prediction session service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxSessions", s.maxSessions),
		logger.Duration("idleTTL", s.idleTTL),
	)
	return nil
}

// Stop closes every session and drains the worker pool.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	ctx := context.Background()
	s.logger.Info(ctx, "stopping prediction session service...")

	close(s.stopCh)
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	pool := s.workerPool
	s.mu.Unlock()

	s.sweepWG.Wait()
	for _, sess := range sessions {
		sess.Close(ctx)
	}
	metrics.UpdateActiveSessions(0)

	shutdownCtx, cancel := context.WithTimeout(ctx, serviceStopTimeout)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.logger.Info(ctx, "prediction session service stopped")
}

// Fields returns the form schema.
func (s *Service) Fields() []schema.Field { return schema.Fields() }

// CreateSession opens a fresh session, evicting the least recently used one
// when the registry is full.
func (s *Service) CreateSession(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}

	var evicted *Session
	if len(s.sessions) >= s.maxSessions {
		evicted = s.oldestLocked()
		delete(s.sessions, evicted.ID())
	}

	sess := newSession(uuid.NewString(), s.queue, s.notificationBuffer, s.now, s.logger.Named("session"))
	s.sessions[sess.ID()] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	if evicted != nil {
		evicted.Close(ctx)
		metrics.RecordSessionExpired()
		s.logger.Info(ctx, "session evicted", logger.String("session_id", evicted.ID()))
	}
	metrics.RecordSessionOpened()
	metrics.UpdateActiveSessions(count)
	s.logger.Debug(ctx, "session opened", logger.String("session_id", sess.ID()))
	return sess, nil
}

// Session looks up a live session and marks it as used.
func (s *Service) Session(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.touch()
	return sess, nil
}

// CloseSession ends a session and discards its data.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Close(ctx)
	metrics.UpdateActiveSessions(count)
	return nil
}

// oldestLocked must be called with s.mu held and a non-empty registry.
func (s *Service) oldestLocked() *Session {
	var oldest *Session
	for _, sess := range s.sessions {
		if oldest == nil || sess.LastSeen().Before(oldest.LastSeen()) {
			oldest = sess
		}
	}
	return oldest
}

func (s *Service) sweepLoop(ctx context.Context) {
	defer s.sweepWG.Done()

	interval := s.idleTTL / 2
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.ExpireIdle(ctx)
		}
	}
}

// ExpireIdle closes sessions idle for longer than the configured TTL and
// returns how many were closed.
func (s *Service) ExpireIdle(ctx context.Context) int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close(ctx)
		metrics.RecordSessionExpired()
	}
	if len(expired) > 0 {
		metrics.UpdateActiveSessions(count)
		s.logger.Info(ctx, "idle sessions expired", logger.Int("count", len(expired)))
	}
	return len(expired)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"maxSessions":  s.maxSessions,
		"predictorURL": s.predictorURL,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		pending, entries := 0, 0
		for _, sess := range s.sessions {
			if sess.ctrl.State().Pending() {
				pending++
			}
			entries += sess.history.Len(ctx)
		}

		stats["queueLength"] = queueLen
		stats["activeSessions"] = len(s.sessions)
		stats["pendingRequests"] = pending
		stats["historyEntries"] = entries

		metrics.UpdateActiveSessions(len(s.sessions))
		metrics.UpdateHistoryEntries(entries)
	}
	return stats
}
