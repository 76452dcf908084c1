// Package aggregate derives chart series from the prediction history.
//
// Both functions are pure and total over any history, including an empty one.
package aggregate

import model "github.com/okian/rulcast/internal/domain/model"

// Bucket counts predictions sharing one failure type.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Distribution is the failure-type histogram in first-seen order.
type Distribution []Bucket

// Counts returns the histogram as a map, mainly for assertions and stats.
func (d Distribution) Counts() map[string]int {
	out := make(map[string]int, len(d))
	for _, b := range d {
		out[b.Label] = b.Count
	}
	return out
}

// Total sums all bucket counts.
func (d Distribution) Total() int {
	n := 0
	for _, b := range d {
		n += b.Count
	}
	return n
}

// Point is one sample of the RUL trend.
type Point struct {
	Index        int     `json:"index"`
	PredictedRUL float64 `json:"predicted_rul"`
}

// FailureDistribution groups history entries by failure type. Empty failure
// types are reported under model.NoFailureLabel.
func FailureDistribution(history []model.HistoryEntry) Distribution {
	out := make(Distribution, 0)
	pos := make(map[string]int)
	for _, e := range history {
		label := e.FailureLabel()
		if i, ok := pos[label]; ok {
			out[i].Count++
			continue
		}
		pos[label] = len(out)
		out = append(out, Bucket{Label: label, Count: 1})
	}
	return out
}

// RulTrend maps each entry to (1-based position, predicted RUL) in arrival order.
func RulTrend(history []model.HistoryEntry) []Point {
	out := make([]Point, len(history))
	for i, e := range history {
		out[i] = Point{Index: i + 1, PredictedRUL: e.PredictedRUL}
	}
	return out
}
