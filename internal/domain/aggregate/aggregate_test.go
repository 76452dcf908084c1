package aggregate_test

import (
	"testing"

	"github.com/okian/rulcast/internal/domain/aggregate"
	model "github.com/okian/rulcast/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func entries(results ...model.PredictionResult) []model.HistoryEntry {
	out := make([]model.HistoryEntry, len(results))
	for i, r := range results {
		out[i] = model.HistoryEntry{Index: i + 1, PredictionResult: r}
	}
	return out
}

func TestFailureDistribution(t *testing.T) {
	Convey("FailureDistribution", t, func() {
		Convey("returns an empty, non-nil distribution for empty history", func() {
			d := aggregate.FailureDistribution(nil)
			So(d, ShouldNotBeNil)
			So(d, ShouldBeEmpty)
			So(d.Total(), ShouldEqual, 0)
		})

		Convey("groups by failure type in first-seen order", func() {
			h := entries(
				model.PredictionResult{FailureType: "Stage 2", PredictedRUL: 87.5},
				model.PredictionResult{FailureType: "Stage 1", PredictedRUL: 140},
				model.PredictionResult{FailureType: "Stage 2", PredictedRUL: 60},
			)
			d := aggregate.FailureDistribution(h)
			So(d, ShouldResemble, aggregate.Distribution{
				{Label: "Stage 2", Count: 2},
				{Label: "Stage 1", Count: 1},
			})
			So(d.Total(), ShouldEqual, len(h))
		})

		Convey("counts empty failure types as None", func() {
			h := entries(
				model.PredictionResult{FailureType: "", PredictedRUL: 200},
				model.PredictionResult{FailureType: "", PredictedRUL: 190},
			)
			So(aggregate.FailureDistribution(h).Counts(), ShouldResemble, map[string]int{model.NoFailureLabel: 2})
		})

		Convey("does not mutate its input", func() {
			h := entries(model.PredictionResult{FailureType: "Stage 3", PredictedRUL: 5})
			_ = aggregate.FailureDistribution(h)
			So(h[0].FailureType, ShouldEqual, "Stage 3")
		})
	})
}

func TestRulTrend(t *testing.T) {
	Convey("RulTrend", t, func() {
		Convey("returns an empty series for empty history", func() {
			So(aggregate.RulTrend(nil), ShouldBeEmpty)
		})

		Convey("pairs 1-based positions with predicted RUL in arrival order", func() {
			h := entries(
				model.PredictionResult{FailureType: "Stage 2", PredictedRUL: 87.5},
				model.PredictionResult{FailureType: "Stage 1", PredictedRUL: 140},
			)
			So(aggregate.RulTrend(h), ShouldResemble, []aggregate.Point{
				{Index: 1, PredictedRUL: 87.5},
				{Index: 2, PredictedRUL: 140},
			})
		})

		Convey("uses position even when stored indexes differ", func() {
			h := []model.HistoryEntry{
				{Index: 7, PredictionResult: model.PredictionResult{PredictedRUL: 1}},
				{Index: 9, PredictionResult: model.PredictionResult{PredictedRUL: 2}},
			}
			pts := aggregate.RulTrend(h)
			So(pts[0].Index, ShouldEqual, 1)
			So(pts[1].Index, ShouldEqual, 2)
		})
	})
}
