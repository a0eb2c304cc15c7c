package io

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type testSensor struct{}

func (testSensor) Name() string                            { return "test-sensor" }
func (testSensor) Read(context.Context) ([]float64, error) { return []float64{1}, nil }

type testActuator struct{}

func (testActuator) Name() string                           { return "test-actuator" }
func (testActuator) Write(context.Context, []float64) error { return nil }

func sensorComponent(name string, width int, scapes ...string) SensorComponent {
	return SensorComponent{Name: name, Width: width, Scapes: scapes, New: func() Sensor { return testSensor{} }}
}

func actuatorComponent(name string, width int, scapes ...string) ActuatorComponent {
	return ActuatorComponent{Name: name, Width: width, Scapes: scapes, New: func() Actuator { return testActuator{} }}
}

func TestRegisterAndResolveComponents(t *testing.T) {
	resetRegistriesForTests()
	t.Cleanup(resetRegistriesForTests)

	if err := RegisterSensor(sensorComponent("s", 1)); err != nil {
		t.Fatalf("register sensor: %v", err)
	}
	s, err := ResolveSensor(" s ", "anything", 1)
	if err != nil {
		t.Fatalf("resolve sensor: %v", err)
	}
	if s.Name() != "test-sensor" {
		t.Fatalf("unexpected sensor: %s", s.Name())
	}

	if err := RegisterActuator(actuatorComponent("a", 2)); err != nil {
		t.Fatalf("register actuator: %v", err)
	}
	a, err := ResolveActuator("a", "anything", 0)
	if err != nil {
		t.Fatalf("resolve actuator: %v", err)
	}
	if a.Name() != "test-actuator" {
		t.Fatalf("unexpected actuator: %s", a.Name())
	}
	if _, err := ResolveActuator("a", "anything", 3); !errors.Is(err, ErrWidthMismatch) {
		t.Fatalf("expected ErrWidthMismatch, got %v", err)
	}
	if _, err := ResolveSensor("missing", "", 0); !errors.Is(err, ErrSensorNotFound) {
		t.Fatalf("expected ErrSensorNotFound, got %v", err)
	}
	if _, err := ResolveActuator("missing", "", 0); !errors.Is(err, ErrActuatorNotFound) {
		t.Fatalf("expected ErrActuatorNotFound, got %v", err)
	}
}

func TestRegistryValidationAndDuplicates(t *testing.T) {
	resetRegistriesForTests()
	t.Cleanup(resetRegistriesForTests)

	if err := RegisterSensor(sensorComponent("", 1)); err == nil {
		t.Fatal("expected sensor name validation")
	}
	if err := RegisterSensor(SensorComponent{Name: "nofactory", Width: 1}); err == nil {
		t.Fatal("expected factory validation")
	}
	if err := RegisterActuator(actuatorComponent("flat", 0)); err == nil {
		t.Fatal("expected width validation")
	}
	bad := sensorComponent("old", 1)
	bad.SchemaVersion = SupportedSchemaVersion + 1
	if err := RegisterSensor(bad); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	if err := RegisterSensor(sensorComponent("dup", 1)); err != nil {
		t.Fatalf("register sensor: %v", err)
	}
	if err := RegisterSensor(sensorComponent("dup", 1)); !errors.Is(err, ErrSensorExists) {
		t.Fatalf("expected ErrSensorExists, got: %v", err)
	}
	if err := RegisterActuator(actuatorComponent("dup", 1)); err != nil {
		t.Fatalf("register actuator: %v", err)
	}
	if err := RegisterActuator(actuatorComponent("dup", 1)); !errors.Is(err, ErrActuatorExists) {
		t.Fatalf("expected ErrActuatorExists, got: %v", err)
	}
}

func TestRegistryScapeFiltering(t *testing.T) {
	resetRegistriesForTests()
	t.Cleanup(resetRegistriesForTests)

	if err := RegisterSensor(sensorComponent("arena-eye", 4, "Scape_Arena")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterSensor(sensorComponent("clock", 1)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := ResolveSensor("arena-eye", "scape-arena", 4); err != nil {
		t.Fatalf("expected normalized scape match: %v", err)
	}
	if _, err := ResolveSensor("arena-eye", "forage", 4); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("expected ErrIncompatible, got %v", err)
	}

	if got, want := ListSensors("arena"), []string{"arena-eye", "clock"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("arena sensors=%v want %v", got, want)
	}
	if got, want := ListSensors("forage"), []string{"clock", ForageSensorArrayName}; !reflect.DeepEqual(got, want) {
		t.Fatalf("forage sensors=%v want %v", got, want)
	}
	if got := ListSensors(""); len(got) != 3 {
		t.Fatalf("expected all 3 sensors, got %v", got)
	}
	if got, want := ListActuators(""), []string{ForageMotorActuatorName}; !reflect.DeepEqual(got, want) {
		t.Fatalf("actuators=%v want %v", got, want)
	}
}

func TestRegistryAliases(t *testing.T) {
	resetRegistriesForTests()
	t.Cleanup(resetRegistriesForTests)

	a, err := ResolveActuator(" MOTOR ", ForageScapeName, ForageMotorWidth)
	if err != nil {
		t.Fatalf("resolve alias: %v", err)
	}
	if a.Name() != ForageMotorActuatorName {
		t.Fatalf("alias resolved to %s", a.Name())
	}
	s, err := ResolveSensor("Sensors", ForageScapeName, ForageSensorWidth)
	if err != nil {
		t.Fatalf("resolve sensor alias: %v", err)
	}
	if s.Name() != ForageSensorArrayName {
		t.Fatalf("alias resolved to %s", s.Name())
	}

	if err := AliasActuator("wheels", "nope"); !errors.Is(err, ErrActuatorNotFound) {
		t.Fatalf("expected alias to unknown actuator to fail, got %v", err)
	}
	if err := AliasSensor(" ", ForageSensorArrayName); err == nil {
		t.Fatal("expected empty alias error")
	}
}
