// Package schema declares the fixed set of readings a prediction request carries.
package schema

import "strconv"

// Field counts.
const (
	OperationalSettings = 3
	SensorMeasurements  = 21
	Count               = OperationalSettings + SensorMeasurements
)

// Kind describes how a field is entered.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
)

// Field describes one form input.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
}

var (
	fields = build()
	index  = func() map[string]int {
		m := make(map[string]int, len(fields))
		for i, f := range fields {
			m[f.Key] = i
		}
		return m
	}()
)

func build() []Field {
	out := make([]Field, 0, Count)
	for i := 1; i <= OperationalSettings; i++ {
		n := strconv.Itoa(i)
		out = append(out, Field{Key: "op_setting_" + n, Label: "Operational Setting " + n, Kind: KindNumeric})
	}
	for i := 1; i <= SensorMeasurements; i++ {
		n := strconv.Itoa(i)
		out = append(out, Field{Key: "sensor_measurement_" + n, Label: "Sensor Measurement " + n, Kind: KindNumeric})
	}
	return out
}

// Fields returns the descriptors in submission order. The slice is a copy.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Keys returns the field keys in submission order.
func Keys() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Key
	}
	return out
}

// Lookup returns the descriptor for key.
func Lookup(key string) (Field, bool) {
	i, ok := index[key]
	if !ok {
		return Field{}, false
	}
	return fields[i], true
}

// Position returns the zero-based order of key, or -1.
func Position(key string) int {
	if i, ok := index[key]; ok {
		return i
	}
	return -1
}
