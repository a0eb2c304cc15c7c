package snn

import (
	"errors"
	"fmt"
	"math"
)

// NumSensors is the width of the sensor vector.
const NumSensors = 13

// SensorLabels is the sensor layout, in vector order. The sensory layer of a
// topology carries the same labels in the same order.
var SensorLabels = [NumSensors]string{
	"food_front",
	"food_left",
	"food_right",
	"food_near",
	"danger_front",
	"danger_left",
	"danger_right",
	"danger_near",
	"wall_front",
	"wall_left",
	"wall_right",
	"hunger",
	"pain",
}

var (
	ErrSensorLength = errors.New("sensor vector length mismatch")
	ErrSensorValue  = errors.New("sensor value is not finite")
)

// SensorVector is a validated sensor reading, every value in [0, 1].
type SensorVector [NumSensors]float32

// NewSensorVector validates raw values. Finite values outside [0, 1] are
// clamped; NaN or Inf and a wrong length are errors.
func NewSensorVector(values []float64) (SensorVector, error) {
	var sv SensorVector
	if len(values) != NumSensors {
		return sv, fmt.Errorf("%w: got=%d want=%d", ErrSensorLength, len(values), NumSensors)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return sv, fmt.Errorf("%w: %s=%v", ErrSensorValue, SensorLabels[i], v)
		}
		sv[i] = float32(math.Max(0, math.Min(1, v)))
	}
	return sv, nil
}

// Values returns the vector as float64, in layout order.
func (sv SensorVector) Values() []float64 {
	out := make([]float64, NumSensors)
	for i, v := range sv {
		out[i] = float64(v)
	}
	return out
}

// Get returns the value for a sensor label.
func (sv SensorVector) Get(label string) (float32, bool) {
	for i, l := range SensorLabels {
		if l == label {
			return sv[i], true
		}
	}
	return 0, false
}
