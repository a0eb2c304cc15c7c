package io

import (
	"context"
	"fmt"
	"sync"
)

const (
	ForageScapeName         = "forage"
	ForageSensorArrayName   = "forage_sensors"
	ForageMotorActuatorName = "forage_motor"

	// ForageSensorWidth matches the creature's sensory layer.
	ForageSensorWidth = 13
	// ForageMotorWidth is forward, turn left, turn right.
	ForageMotorWidth = 3
)

// SensorArray holds the latest sensor vector pushed by the world.
type SensorArray struct {
	mu     sync.RWMutex
	name   string
	values []float64
}

func NewSensorArray(name string, width int) *SensorArray {
	return &SensorArray{name: name, values: make([]float64, width)}
}

func (s *SensorArray) Name() string {
	return s.name
}

func (s *SensorArray) Read(_ context.Context) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.values...), nil
}

func (s *SensorArray) Set(values []float64) {
	s.mu.Lock()
	s.values = append(s.values[:0], values...)
	s.mu.Unlock()
}

// MotorActuator records the last motor command written by the creature.
type MotorActuator struct {
	mu    sync.RWMutex
	name  string
	width int
	last  []float64
}

func NewMotorActuator(name string, width int) *MotorActuator {
	return &MotorActuator{name: name, width: width}
}

func (a *MotorActuator) Name() string {
	return a.name
}

func (a *MotorActuator) Write(_ context.Context, values []float64) error {
	if len(values) != a.width {
		return fmt.Errorf("%s: output size mismatch: got=%d want=%d", a.name, len(values), a.width)
	}
	a.mu.Lock()
	a.last = append([]float64(nil), values...)
	a.mu.Unlock()
	return nil
}

func (a *MotorActuator) Last() []float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]float64(nil), a.last...)
}

func init() {
	initializeDefaultComponents()
}

func initializeDefaultComponents() {
	forage := []string{ForageScapeName}
	if err := RegisterSensor(SensorComponent{
		Name:   ForageSensorArrayName,
		Width:  ForageSensorWidth,
		Scapes: forage,
		New:    func() Sensor { return NewSensorArray(ForageSensorArrayName, ForageSensorWidth) },
	}); err != nil {
		panic(err)
	}
	if err := RegisterActuator(ActuatorComponent{
		Name:   ForageMotorActuatorName,
		Width:  ForageMotorWidth,
		Scapes: forage,
		New:    func() Actuator { return NewMotorActuator(ForageMotorActuatorName, ForageMotorWidth) },
	}); err != nil {
		panic(err)
	}
	for _, alias := range []string{"sensors", "forage-sensors"} {
		if err := AliasSensor(alias, ForageSensorArrayName); err != nil {
			panic(err)
		}
	}
	for _, alias := range []string{"motor", "forage-motor"} {
		if err := AliasActuator(alias, ForageMotorActuatorName); err != nil {
			panic(err)
		}
	}
}
