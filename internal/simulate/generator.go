package simulate

import (
	"math/rand/v2"
	"strconv"

	"github.com/okian/rulcast/internal/domain/schema"
)

// band is the healthy operating range of one reading and how far it drifts
// by end of life.
type band struct {
	base, jitter, drift float64
	decimals            int
}

// Turbofan-like nominal values, in schema order.
var bands = [schema.Count]band{
	{0, 0.0022, 0, 4},        // op_setting_1
	{0, 0.0003, 0, 4},        // op_setting_2
	{100, 0, 0, 1},           // op_setting_3
	{518.67, 0, 0, 2},        // sensor 1
	{642.3, 0.5, 1.4, 2},     // sensor 2
	{1588.5, 6, 25, 2},       // sensor 3
	{1404.0, 9, 35, 2},       // sensor 4
	{14.62, 0, 0, 2},         // sensor 5
	{21.61, 0.001, 0, 2},     // sensor 6
	{554.0, 0.9, -3.5, 2},    // sensor 7
	{2388.06, 0.07, 0.25, 2}, // sensor 8
	{9050, 20, 60, 2},        // sensor 9
	{1.3, 0, 0, 2},           // sensor 10
	{47.4, 0.27, 0.9, 2},     // sensor 11
	{522.0, 0.7, -3, 2},      // sensor 12
	{2388.06, 0.07, 0.25, 2}, // sensor 13
	{8140, 15, 40, 2},        // sensor 14
	{8.42, 0.037, 0.1, 4},    // sensor 15
	{0.03, 0, 0, 2},          // sensor 16
	{392, 1.5, 4, 0},         // sensor 17
	{2388, 0, 0, 0},          // sensor 18
	{100, 0, 0, 2},           // sensor 19
	{38.8, 0.18, -0.6, 2},    // sensor 20
	{23.28, 0.11, -0.35, 4},  // sensor 21
}

// Generator produces complete form readings for a unit at a given wear level.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a deterministic generator for seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Reading returns raw string values for every schema key. wear is clamped to
// [0,1]; 0 is a fresh unit and 1 one at end of life.
func (g *Generator) Reading(wear float64) map[string]string {
	wear = min(max(wear, 0), 1)
	keys := schema.Keys()
	out := make(map[string]string, len(keys))
	for i, key := range keys {
		b := bands[i]
		v := b.base + b.drift*wear + b.jitter*(2*g.rng.Float64()-1)
		out[key] = strconv.FormatFloat(v, 'f', b.decimals, 64)
	}
	return out
}

// Wear returns the wear level for submission i of n, rising towards 1.
func Wear(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}
