package agent

import (
	"context"
	"fmt"

	spikeio "spikenet/internal/io"
	"spikenet/internal/snn"
)

// Creature binds a spiking network to its sensors and actuators. Each Tick
// reads the sensors, advances the network by one motor frame and writes the
// motor command.
type Creature struct {
	id          string
	stepper     *snn.Stepper
	sensors     map[string]spikeio.Sensor
	actuators   map[string]spikeio.Actuator
	sensorIDs   []string
	actuatorIDs []string
}

func NewCreature(
	id string,
	stepper *snn.Stepper,
	sensors map[string]spikeio.Sensor,
	actuators map[string]spikeio.Actuator,
	sensorIDs []string,
	actuatorIDs []string,
) (*Creature, error) {
	if id == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if stepper == nil {
		return nil, fmt.Errorf("stepper is required")
	}
	if len(sensorIDs) == 0 {
		return nil, fmt.Errorf("sensor ids are required")
	}
	for _, sensorID := range sensorIDs {
		if _, ok := sensors[sensorID]; !ok {
			return nil, fmt.Errorf("sensor not registered: %s", sensorID)
		}
	}
	for _, actuatorID := range actuatorIDs {
		if _, ok := actuators[actuatorID]; !ok {
			return nil, fmt.Errorf("actuator not registered: %s", actuatorID)
		}
	}

	return &Creature{
		id:          id,
		stepper:     stepper,
		sensors:     sensors,
		actuators:   actuators,
		sensorIDs:   append([]string(nil), sensorIDs...),
		actuatorIDs: append([]string(nil), actuatorIDs...),
	}, nil
}

// NewForageCreature wires a creature to the registered forage sensor array
// and motor actuator.
func NewForageCreature(id string, stepper *snn.Stepper) (*Creature, error) {
	sensor, err := spikeio.ResolveSensor(spikeio.ForageSensorArrayName, spikeio.ForageScapeName, snn.NumSensors)
	if err != nil {
		return nil, err
	}
	actuator, err := spikeio.ResolveActuator(spikeio.ForageMotorActuatorName, spikeio.ForageScapeName, spikeio.ForageMotorWidth)
	if err != nil {
		return nil, err
	}
	return NewCreature(
		id,
		stepper,
		map[string]spikeio.Sensor{spikeio.ForageSensorArrayName: sensor},
		map[string]spikeio.Actuator{spikeio.ForageMotorActuatorName: actuator},
		[]string{spikeio.ForageSensorArrayName},
		[]string{spikeio.ForageMotorActuatorName},
	)
}

func (c *Creature) ID() string {
	return c.id
}

// Stepper exposes the network driver for controls and snapshots.
func (c *Creature) Stepper() *snn.Stepper {
	return c.stepper
}

func (c *Creature) RegisteredSensor(id string) (spikeio.Sensor, bool) {
	if c.sensors == nil {
		return nil, false
	}
	s, ok := c.sensors[id]
	return s, ok
}

func (c *Creature) RegisteredActuator(id string) (spikeio.Actuator, bool) {
	if c.actuators == nil {
		return nil, false
	}
	a, ok := c.actuators[id]
	return a, ok
}

func (c *Creature) Tick(ctx context.Context) ([]float64, error) {
	inputs := make([]float64, 0, snn.NumSensors)
	for _, sensorID := range c.sensorIDs {
		values, err := c.sensors[sensorID].Read(ctx)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, values...)
	}

	return c.execute(ctx, inputs)
}

// RunStep advances one frame on an explicit sensor vector.
func (c *Creature) RunStep(ctx context.Context, inputs []float64) ([]float64, error) {
	return c.execute(ctx, inputs)
}

func (c *Creature) execute(ctx context.Context, inputs []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) != snn.NumSensors {
		return nil, fmt.Errorf("input size mismatch: got=%d want=%d", len(inputs), snn.NumSensors)
	}
	sv, err := snn.NewSensorVector(inputs)
	if err != nil {
		return nil, err
	}

	cmd := c.stepper.Advance(sv)
	outputs := []float64{cmd.Forward, cmd.TurnLeft, cmd.TurnRight}

	if len(c.actuatorIDs) > 0 {
		chunks, err := splitOutputsForActuators(outputs, len(c.actuatorIDs))
		if err != nil {
			return nil, err
		}
		for i, actuatorID := range c.actuatorIDs {
			if err := c.actuators[actuatorID].Write(ctx, chunks[i]); err != nil {
				return nil, err
			}
		}
	}

	return outputs, nil
}

// Reward routes a signed world outcome to the network: positive values
// release dopamine, negative values serotonin.
func (c *Creature) Reward(amount float64) {
	c.stepper.Reward(float32(amount))
}

// Respawn resets the network according to its weight persistence setting.
func (c *Creature) Respawn() {
	c.stepper.Respawn()
}

func splitOutputsForActuators(outputs []float64, actuatorCount int) ([][]float64, error) {
	if actuatorCount <= 0 {
		return nil, fmt.Errorf("actuator count must be > 0")
	}
	// a single actuator receives the full command, N actuators receive
	// equal contiguous slices
	if actuatorCount == 1 {
		return [][]float64{append([]float64(nil), outputs...)}, nil
	}
	if len(outputs)%actuatorCount != 0 {
		return nil, fmt.Errorf("actuator/output shape mismatch: outputs=%d actuators=%d", len(outputs), actuatorCount)
	}
	chunkSize := len(outputs) / actuatorCount
	chunks := make([][]float64, 0, actuatorCount)
	for i := 0; i < actuatorCount; i++ {
		start := i * chunkSize
		chunks = append(chunks, append([]float64(nil), outputs[start:start+chunkSize]...))
	}
	return chunks, nil
}
