// Package form holds the raw values typed into the prediction form and turns
// them into a request payload.
package form

import (
	"errors"
	"strconv"
	"strings"

	"github.com/okian/rulcast/internal/domain/schema"
	"github.com/shopspring/decimal"
)

var (
	errEmpty      = errors.New("value is empty")
	errOutOfRange = errors.New("value is outside the float64 range")
)

// State maps every schema key to its raw input. The zero value is not usable;
// start from Initialize. A State is never modified in place.
type State struct {
	values map[string]string
}

// Initialize returns a state with every schema key mapped to "".
func Initialize() State {
	values := make(map[string]string, schema.Count)
	for _, k := range schema.Keys() {
		values[k] = ""
	}
	return State{values: values}
}

// Reset is Initialize under the name the session uses.
func Reset() State { return Initialize() }

// SetField returns a copy of s with key set to raw.
func SetField(s State, key, raw string) (State, error) {
	if _, ok := schema.Lookup(key); !ok {
		return s, &UnknownFieldError{Key: key}
	}
	values := make(map[string]string, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	values[key] = raw
	return State{values: values}, nil
}

// Get returns the raw value for key.
func (s State) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Values returns a copy of all raw values.
func (s State) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Len reports the number of keys held.
func (s State) Len() int { return len(s.values) }

// Validate returns nil when every field holds a finite number, otherwise a
// *ValidationError naming the offending keys.
func Validate(s State) error {
	var bad []string
	for _, k := range schema.Keys() {
		if _, err := ParseNumber(s.values[k]); err != nil {
			bad = append(bad, k)
		}
	}
	if len(bad) > 0 {
		return &ValidationError{Keys: bad}
	}
	return nil
}

// Serialize converts every field to its numeric value. It must only be called
// on a state that passed Validate.
func Serialize(s State) (map[string]float64, error) {
	out := make(map[string]float64, schema.Count)
	for _, k := range schema.Keys() {
		v, err := ParseNumber(s.values[k])
		if err != nil {
			return nil, &SerializationError{Key: k, Err: err}
		}
		out[k] = v
	}
	return out, nil
}

// ParseNumber accepts decimal and exponent notation with surrounding blanks.
// decimal checks the syntax, so hex, NaN and Inf spellings are rejected;
// strconv does the conversion, which stays cheap for any exponent. Values that
// overflow float64, or are non-zero but underflow to zero, are rejected.
func ParseNumber(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errEmpty
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errOutOfRange
	}
	if f == 0 && !d.IsZero() {
		return 0, errOutOfRange
	}
	return f, nil
}
