package io

import "context"

// Sensor produces the input vector a creature reads at the start of a frame.
type Sensor interface {
	Name() string
	Read(ctx context.Context) ([]float64, error)
}

// VectorSensorSetter lets a world push a whole sensor vector per frame.
type VectorSensorSetter interface {
	Set(values []float64)
}

// Actuator receives the motor vector a creature emits at the end of a frame.
type Actuator interface {
	Name() string
	Write(ctx context.Context, values []float64) error
}

// SnapshotActuator exposes the last motor vector so a world can apply it.
type SnapshotActuator interface {
	Last() []float64
}
