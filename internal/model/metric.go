package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Metric is a derived value that may be undefined, e.g. a mean over zero
// samples. An undefined Metric always carries a zero Value, so readers that
// ignore Valid see the plain zero-substitution behavior.
type Metric struct {
	Value float64
	Valid bool
}

// Defined returns a valid Metric holding v.
func Defined(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// Undefined is the zero Metric.
var Undefined = Metric{}

// Float64 returns the value, or 0 when undefined.
func (m Metric) Float64() float64 {
	if !m.Valid {
		return 0
	}
	return m.Value
}

func (m Metric) String() string {
	if !m.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(m.Value, 'g', -1, 64)
}

// MarshalJSON encodes an undefined metric as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Undefined
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}
