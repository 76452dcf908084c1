package simulate

import (
	"encoding/json"
	"math"
	"net/http"
	"sync/atomic"

	model "github.com/okian/rulcast/internal/domain/model"
	"github.com/okian/rulcast/internal/domain/schema"
)

// Wear is estimated from the two readings with the widest drift.
const (
	wearSensor     = "sensor_measurement_4"
	wearSensorAlt  = "sensor_measurement_9"
	maxLifeCycles  = 200.0
	maxPayloadSize = 64 << 10
)

// FakePredictor answers prediction requests from the drift of the sensor
// readings the Generator produces. Every failEvery-th request, when set, gets
// a 503 instead.
type FakePredictor struct {
	failEvery int
	requests  atomic.Int64
}

// NewFakePredictor creates a fake prediction endpoint.
func NewFakePredictor(failEvery int) *FakePredictor {
	return &FakePredictor{failEvery: failEvery}
}

// Requests returns the number of requests served.
func (p *FakePredictor) Requests() int { return int(p.requests.Load()) }

func (p *FakePredictor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := p.requests.Add(1)
	if p.failEvery > 0 && n%int64(p.failEvery) == 0 {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
		return
	}

	var payload map[string]float64
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadSize)).Decode(&payload); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Diagnose(payload))
}

// Diagnose maps a payload to the result the fake endpoint returns.
func Diagnose(payload map[string]float64) model.PredictionResult {
	wear := (estimateWear(payload, wearSensor) + estimateWear(payload, wearSensorAlt)) / 2

	label := model.NoFailureLabel
	switch {
	case wear >= 0.85:
		label = "Stage 3"
	case wear >= 0.6:
		label = "Stage 2"
	case wear >= 0.35:
		label = "Stage 1"
	}
	rul := math.Round(maxLifeCycles*(1-wear)*100) / 100
	return model.PredictionResult{FailureType: label, PredictedRUL: rul}
}

func estimateWear(payload map[string]float64, key string) float64 {
	pos := schema.Position(key)
	v, ok := payload[key]
	if !ok || pos < 0 || bands[pos].drift == 0 {
		return 0
	}
	b := bands[pos]
	return min(max((v-b.base)/b.drift, 0), 1)
}
