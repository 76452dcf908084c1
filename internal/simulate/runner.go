package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/okian/rulcast/internal/adapters/http/api"
	service "github.com/okian/rulcast/internal/app"
	model "github.com/okian/rulcast/internal/domain/model"
	"github.com/okian/rulcast/internal/domain/schema"
	"github.com/okian/rulcast/internal/domain/submission"
	"github.com/okian/rulcast/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const percentageMultiplier = 100

// Run executes a complete simulation and returns its statistics. A
// consistency violation in any session stops the run.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	log := logger.Named("simulate")

	if cfg.Embedded {
		baseURL, stop, err := startEmbedded(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("embedded service: %w", err)
		}
		defer stop()
		cfg.BaseURL = baseURL
	}

	r := &runner{
		cfg:    cfg,
		client: NewClient(cfg.BaseURL, cfg.Timeout),
		log:    log,
		stats: &Stats{
			FailuresByKind: make(map[string]int),
			Distribution:   make(map[string]int),
			StartTime:      time.Now(),
		},
	}

	log.Info(ctx, "starting session simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("submissions", cfg.Submissions),
		logger.Int("workers", cfg.Workers),
		logger.Uint64("seed", cfg.Seed),
		logger.Bool("embedded", cfg.Embedded),
	)

	if err := r.client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range cfg.Sessions {
		g.Go(func() error { return r.runSession(gctx, i) })
	}
	err := g.Wait()

	r.stats.EndTime = time.Now()
	r.stats.Duration = r.stats.EndTime.Sub(r.stats.StartTime)
	r.report(ctx)

	if err != nil {
		return r.stats, err
	}
	log.Info(ctx, "simulation completed successfully")
	return r.stats, nil
}

type runner struct {
	cfg    Config
	client *Client
	log    logger.Logger

	mu    sync.Mutex
	stats *Stats
}

// runSession opens a session, submits cfg.Submissions readings of rising wear,
// verifies the final snapshot and closes the session.
func (r *runner) runSession(ctx context.Context, idx int) error {
	snap, err := r.client.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("open session %d: %w", idx, err)
	}
	id := snap.SessionID
	r.record(func(s *Stats) { s.SessionsOpened++ })

	gen := NewGenerator(r.cfg.Seed + uint64(idx))
	var expected []model.PredictionResult

	for i := range r.cfg.Submissions {
		reading := gen.Reading(Wear(i, r.cfg.Submissions))
		for _, key := range schema.Keys() {
			if _, err := r.client.SetField(ctx, id, key, reading[key]); err != nil {
				return fmt.Errorf("session %s: set %s: %w", id, key, err)
			}
		}

		state, err := r.submit(ctx, id)
		if err != nil {
			return err
		}
		r.record(func(s *Stats) { s.Submitted++ })

		switch state.Phase {
		case submission.PhaseSucceeded:
			expected = append(expected, *state.Result)
			r.record(func(s *Stats) { s.Succeeded++ })
		case submission.PhaseFailed:
			kind := string(state.Failure.Kind)
			r.record(func(s *Stats) {
				s.Failed++
				s.FailuresByKind[kind]++
			})
		}
		if r.cfg.Verbose {
			r.log.Info(ctx, "submission finished",
				logger.String("session", id),
				logger.Int("submission", i+1),
				logger.String("phase", string(state.Phase)),
				logger.Uint64("seq", state.Seq),
			)
		}
	}

	final, err := r.client.Snapshot(ctx, id)
	if err != nil {
		return fmt.Errorf("session %s: snapshot: %w", id, err)
	}
	if err := VerifySnapshot(final, expected); err != nil {
		return err
	}
	r.record(func(s *Stats) {
		s.HistoryEntries += len(final.History)
		for _, b := range final.FailureDistribution {
			s.Distribution[b.Label] += b.Count
		}
	})

	if err := r.client.CloseSession(ctx, id); err != nil {
		return fmt.Errorf("session %s: close: %w", id, err)
	}
	r.record(func(s *Stats) { s.SessionsClosed++ })
	return nil
}

// submit dispatches the form and polls until the submission leaves Pending.
// A full dispatch queue comes back as a Failed busy state.
func (r *runner) submit(ctx context.Context, id string) (submission.State, error) {
	snap, err := r.client.Submit(ctx, id)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && apiErr.Code == "busy" {
			return submission.State{
				Phase:   submission.PhaseFailed,
				Failure: &submission.Failure{Kind: submission.FailureBusy, Message: apiErr.Message},
			}, nil
		}
		return submission.State{}, fmt.Errorf("session %s: submit: %w", id, err)
	}
	seq := snap.Submission.Seq

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for snap.Submission.Pending() {
		select {
		case <-ctx.Done():
			return submission.State{}, ctx.Err()
		case <-ticker.C:
		}
		if snap, err = r.client.Snapshot(ctx, id); err != nil {
			return submission.State{}, fmt.Errorf("session %s: poll: %w", id, err)
		}
	}

	if snap.Submission.Seq != seq {
		return submission.State{}, fmt.Errorf("%w: session %s: submission %d superseded by %d", ErrInconsistent, id, seq, snap.Submission.Seq)
	}
	return snap.Submission, nil
}

func (r *runner) record(fn func(*Stats)) {
	r.mu.Lock()
	fn(r.stats)
	r.mu.Unlock()
}

func (r *runner) report(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats

	var successRate, perSecond float64
	if s.Submitted > 0 {
		successRate = float64(s.Succeeded) / float64(s.Submitted) * percentageMultiplier
	}
	if s.Duration > 0 {
		perSecond = float64(s.Submitted) / s.Duration.Seconds()
	}

	r.log.Info(ctx, "final statistics",
		logger.Int("sessionsOpened", s.SessionsOpened),
		logger.Int("sessionsClosed", s.SessionsClosed),
		logger.Int("submitted", s.Submitted),
		logger.Int("succeeded", s.Succeeded),
		logger.Int("failed", s.Failed),
		logger.Any("failuresByKind", s.FailuresByKind),
		logger.Int("historyEntries", s.HistoryEntries),
		logger.Any("distribution", s.Distribution),
		logger.Duration("duration", s.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}

// startEmbedded runs the API in-process against a FakePredictor and returns
// its base URL.
func startEmbedded(ctx context.Context, cfg Config, log logger.Logger) (string, func(), error) {
	fake := httptest.NewServer(NewFakePredictor(cfg.FailEvery))

	svc := service.New(
		service.WithPredictorURL(fake.URL+"/predict"),
		service.WithPredictorTimeout(cfg.Timeout),
		service.WithWorkerCount(cfg.Workers),
		service.WithLogger(log.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		fake.Close()
		return "", nil, err
	}

	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)
	srv := httptest.NewServer(mux)

	return srv.URL, func() {
		srv.Close()
		svc.Stop()
		fake.Close()
	}, nil
}
