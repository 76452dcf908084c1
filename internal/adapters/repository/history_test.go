package repository

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	model "github.com/okian/rulcast/internal/domain/model"
)

func TestInMemoryHistory_AppendOrder(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	h := NewInMemoryHistory(WithCapacityHint(4), WithClock(func() time.Time { return at }))

	if n := h.Len(ctx); n != 0 {
		t.Fatalf("expected empty history, got %d", n)
	}

	results := []model.PredictionResult{
		{FailureType: "Stage 2", PredictedRUL: 87.5},
		{FailureType: "Stage 1", PredictedRUL: 140},
		{FailureType: "", PredictedRUL: 201},
	}
	for i, r := range results {
		e, err := h.Append(ctx, "req", r)
		if err != nil {
			t.Fatalf("append %d: unexpected error: %v", i, err)
		}
		if e.Index != i+1 {
			t.Errorf("expected index %d, got %d", i+1, e.Index)
		}
		if !e.At.Equal(at) {
			t.Errorf("expected timestamp %v, got %v", at, e.At)
		}
	}

	all := h.All(ctx)
	if len(all) != len(results) {
		t.Fatalf("expected %d entries, got %d", len(results), len(all))
	}
	for i, e := range all {
		if e.PredictionResult != results[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, results[i], e.PredictionResult)
		}
	}
}

func TestInMemoryHistory_AllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	h := NewInMemoryHistory()
	if _, err := h.Append(ctx, "a", model.PredictionResult{FailureType: "Stage 3", PredictedRUL: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := h.All(ctx)
	snap[0].PredictedRUL = 999

	if got := h.All(ctx)[0].PredictedRUL; got != 5 {
		t.Errorf("stored entry changed through returned slice: %v", got)
	}
}

func TestInMemoryHistory_RejectsNonFinite(t *testing.T) {
	ctx := context.Background()
	h := NewInMemoryHistory()
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := h.Append(ctx, "x", model.PredictionResult{PredictedRUL: v}); !errors.Is(err, ErrInvalidResult) {
			t.Errorf("expected ErrInvalidResult for %v, got %v", v, err)
		}
	}
	if n := h.Len(ctx); n != 0 {
		t.Errorf("rejected results must not be stored, got %d entries", n)
	}
}

func TestInMemoryHistory_Close(t *testing.T) {
	ctx := context.Background()
	h := NewInMemoryHistory()
	if _, err := h.Append(ctx, "a", model.PredictionResult{PredictedRUL: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if _, err := h.Append(ctx, "b", model.PredictionResult{PredictedRUL: 2}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if n := h.Len(ctx); n != 1 {
		t.Errorf("closed history should still be readable, got %d entries", n)
	}
}

func TestInMemoryHistory_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	h := NewInMemoryHistory()

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := h.Append(ctx, "c", model.PredictionResult{PredictedRUL: float64(i)}); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				_ = h.Len(ctx)
			}
		}()
	}
	wg.Wait()

	all := h.All(ctx)
	if len(all) != writers*perWriter {
		t.Fatalf("expected %d entries, got %d", writers*perWriter, len(all))
	}
	for i, e := range all {
		if e.Index != i+1 {
			t.Fatalf("index gap at position %d: got %d", i, e.Index)
		}
	}
}
