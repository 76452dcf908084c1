package simulate

import (
	"errors"
	"fmt"

	service "github.com/okian/rulcast/internal/app"
	model "github.com/okian/rulcast/internal/domain/model"
)

// ErrInconsistent is wrapped by every verification failure.
var ErrInconsistent = errors.New("inconsistent session state")

// VerifySnapshot checks a session's history against the results observed for
// its successful submissions, in order, and checks that both aggregate views
// are derived from that history.
func VerifySnapshot(snap service.Snapshot, expected []model.PredictionResult) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: session %s: %s", ErrInconsistent, snap.SessionID, fmt.Sprintf(format, args...)))
	}

	if len(snap.History) != len(expected) {
		fail("history has %d entries, %d submissions succeeded", len(snap.History), len(expected))
		return errors.Join(errs...)
	}

	counts := make(map[string]int)
	var order []string
	for i, entry := range snap.History {
		if entry.Index != i+1 {
			fail("entry %d has index %d", i, entry.Index)
		}
		if entry.PredictionResult != expected[i] {
			fail("entry %d is %+v, submission returned %+v", entry.Index, entry.PredictionResult, expected[i])
		}
		label := entry.FailureLabel()
		if counts[label] == 0 {
			order = append(order, label)
		}
		counts[label]++
	}

	if len(snap.FailureDistribution) != len(order) {
		fail("distribution has %d labels, history has %d", len(snap.FailureDistribution), len(order))
	} else {
		for i, b := range snap.FailureDistribution {
			if b.Label != order[i] || b.Count != counts[b.Label] {
				fail("distribution bucket %d is %s=%d, want %s=%d", i, b.Label, b.Count, order[i], counts[order[i]])
			}
		}
	}

	if len(snap.RulTrend) != len(snap.History) {
		fail("trend has %d points, history has %d entries", len(snap.RulTrend), len(snap.History))
	} else {
		for i, p := range snap.RulTrend {
			if p.Index != i+1 || p.PredictedRUL != snap.History[i].PredictedRUL {
				fail("trend point %d is (%d, %.2f)", i, p.Index, p.PredictedRUL)
			}
		}
	}

	return errors.Join(errs...)
}
