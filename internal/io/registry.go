package io

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var (
	ErrSensorExists     = errors.New("sensor already registered")
	ErrSensorNotFound   = errors.New("sensor not found")
	ErrActuatorExists   = errors.New("actuator already registered")
	ErrActuatorNotFound = errors.New("actuator not found")
	ErrVersionMismatch  = errors.New("registry version mismatch")
	ErrIncompatible     = errors.New("component incompatible with scape")
	ErrWidthMismatch    = errors.New("component width mismatch")
)

// Component is a registered sensor or actuator. Width is the length of the
// vector it reads or writes. Scapes lists the worlds it serves; an empty
// list means any world. Zero versions register as the supported ones.
type Component[T any] struct {
	Name          string
	Width         int
	Scapes        []string
	SchemaVersion int
	CodecVersion  int
	New           func() T
}

type (
	SensorComponent   = Component[Sensor]
	ActuatorComponent = Component[Actuator]
)

func (c Component[T]) serves(scape string) bool {
	if len(c.Scapes) == 0 {
		return true
	}
	normalized := NormalizeScapeName(scape)
	for _, s := range c.Scapes {
		if s == normalized {
			return true
		}
	}
	return false
}

type registry[T any] struct {
	kind     string
	exists   error
	notFound error

	mu      sync.RWMutex
	entries map[string]Component[T]
	aliases map[string]string
}

func newRegistry[T any](kind string, exists, notFound error) *registry[T] {
	return &registry[T]{
		kind:     kind,
		exists:   exists,
		notFound: notFound,
		entries:  make(map[string]Component[T]),
		aliases:  make(map[string]string),
	}
}

func (r *registry[T]) register(c Component[T]) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%s name is required", r.kind)
	}
	if c.New == nil {
		return fmt.Errorf("%s %s: factory is required", r.kind, c.Name)
	}
	if c.Width <= 0 {
		return fmt.Errorf("%s %s: width must be > 0", r.kind, c.Name)
	}
	if c.SchemaVersion == 0 {
		c.SchemaVersion = SupportedSchemaVersion
	}
	if c.CodecVersion == 0 {
		c.CodecVersion = SupportedCodecVersion
	}
	if c.SchemaVersion != SupportedSchemaVersion || c.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: %s %s schema=%d codec=%d", ErrVersionMismatch, r.kind, c.Name, c.SchemaVersion, c.CodecVersion)
	}
	scapes := make([]string, 0, len(c.Scapes))
	for _, s := range c.Scapes {
		scapes = append(scapes, NormalizeScapeName(s))
	}
	c.Scapes = scapes

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[c.Name]; ok {
		return fmt.Errorf("%w: %s", r.exists, c.Name)
	}
	r.entries[c.Name] = c
	return nil
}

func (r *registry[T]) alias(alias, name string) error {
	key := strings.ToLower(strings.TrimSpace(alias))
	if key == "" {
		return fmt.Errorf("%s alias is required", r.kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("%w: %s", r.notFound, name)
	}
	r.aliases[key] = name
	return nil
}

func (r *registry[T]) lookup(name string) (Component[T], bool) {
	trimmed := strings.TrimSpace(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.entries[trimmed]; ok {
		return c, true
	}
	if canonical, ok := r.aliases[strings.ToLower(trimmed)]; ok {
		c, ok := r.entries[canonical]
		return c, ok
	}
	return Component[T]{}, false
}

// resolve builds the named component for a scape. A width of 0 accepts any.
func (r *registry[T]) resolve(name, scape string, width int) (T, error) {
	var zero T
	c, ok := r.lookup(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", r.notFound, name)
	}
	if !c.serves(scape) {
		return zero, fmt.Errorf("%w: %s=%s scape=%s", ErrIncompatible, r.kind, c.Name, scape)
	}
	if width > 0 && c.Width != width {
		return zero, fmt.Errorf("%w: %s=%s got=%d want=%d", ErrWidthMismatch, r.kind, c.Name, c.Width, width)
	}
	return c.New(), nil
}

// names lists registered components serving scape, or all when scape is "".
func (r *registry[T]) names(scape string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name, c := range r.entries {
		if scape != "" && !c.serves(scape) {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *registry[T]) clear() {
	r.mu.Lock()
	r.entries = make(map[string]Component[T])
	r.aliases = make(map[string]string)
	r.mu.Unlock()
}

var (
	sensors   = newRegistry[Sensor]("sensor", ErrSensorExists, ErrSensorNotFound)
	actuators = newRegistry[Actuator]("actuator", ErrActuatorExists, ErrActuatorNotFound)
)

func RegisterSensor(c SensorComponent) error {
	return sensors.register(c)
}

func RegisterActuator(c ActuatorComponent) error {
	return actuators.register(c)
}

// AliasSensor and AliasActuator add a case-insensitive alternative name for
// an already registered component.
func AliasSensor(alias, name string) error {
	return sensors.alias(alias, name)
}

func AliasActuator(alias, name string) error {
	return actuators.alias(alias, name)
}

// ResolveSensor builds a sensor for scape, checking its width when width > 0.
func ResolveSensor(name, scape string, width int) (Sensor, error) {
	return sensors.resolve(name, scape, width)
}

// ResolveActuator builds an actuator for scape, checking its width when
// width > 0.
func ResolveActuator(name, scape string, width int) (Actuator, error) {
	return actuators.resolve(name, scape, width)
}

func ListSensors(scape string) []string {
	return sensors.names(scape)
}

func ListActuators(scape string) []string {
	return actuators.names(scape)
}

func resetRegistriesForTests() {
	sensors.clear()
	actuators.clear()
	initializeDefaultComponents()
}
