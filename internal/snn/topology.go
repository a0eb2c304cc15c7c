package snn

import (
	"errors"
	"fmt"

	"github.com/goki/ki/kit"
)

// Layer groups neurons by role.
type Layer int32

//go:generate stringer -type=Layer

var KiT_Layer = kit.Enums.AddEnum(LayerN, kit.NotBitFlag, nil)

func (ev Layer) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Layer) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Sensory neurons receive the sensor vector as external current.
	Sensory Layer = iota

	// Decision neurons integrate sensory evidence and hold the lateral inhibition sets.
	Decision

	// Motor neurons are counted per frame into the motor command.
	Motor

	// Modulatory neurons release dopamine and serotonin when they spike.
	Modulatory

	LayerN
)

// Labels the stepper depends on.
const (
	MotorForward   = "mot_fwd"
	MotorTurnLeft  = "mot_tl"
	MotorTurnRight = "mot_tr"
	DopamineLabel  = "DA"
	SerotoninLabel = "5HT"
	PainLabel      = "pain"
)

var (
	ErrSensorLayout   = errors.New("sensory layer does not match sensor layout")
	ErrUnknownNeuron  = errors.New("unknown neuron label")
	ErrDuplicateLabel = errors.New("duplicate neuron label")
)

// NeuronSpec declares one neuron of a topology.
type NeuronSpec struct {
	Label string     `json:"label"`
	Type  NeuronType `json:"type"`
	Layer Layer      `json:"layer"`
	Exc   bool       `json:"exc"`
}

// SynapseSpec declares one synapse of a topology by neuron labels.
type SynapseSpec struct {
	Pre     string  `json:"pre"`
	Post    string  `json:"post"`
	Wt      float32 `json:"wt"`
	Sign    Sign    `json:"sign"`
	Plastic bool    `json:"plastic"`
}

// Topology is the immutable structure of a network: neurons, synapses and
// their layer assignment. Only weights change once a network is built.
type Topology struct {
	Neurons  []NeuronSpec
	Synapses []SynapseSpec

	index map[string]int
}

// NewTopology returns an empty topology.
func NewTopology() *Topology {
	return &Topology{index: make(map[string]int)}
}

// AddNeuron appends a neuron and returns its index.
func (tp *Topology) AddNeuron(label string, typ NeuronType, layer Layer, exc bool) int {
	idx := len(tp.Neurons)
	tp.Neurons = append(tp.Neurons, NeuronSpec{Label: label, Type: typ, Layer: layer, Exc: exc})
	if _, dup := tp.index[label]; !dup {
		tp.index[label] = idx
	}
	return idx
}

// Excite adds a plastic excitatory synapse.
func (tp *Topology) Excite(pre, post string, wt float32) {
	tp.Synapses = append(tp.Synapses, SynapseSpec{Pre: pre, Post: post, Wt: wt, Sign: Excitatory, Plastic: true})
}

// Inhibit adds a fixed inhibitory synapse.
func (tp *Topology) Inhibit(pre, post string, wt float32) {
	tp.Synapses = append(tp.Synapses, SynapseSpec{Pre: pre, Post: post, Wt: wt, Sign: Inhibitory})
}

// Index returns the neuron index for a label.
func (tp *Topology) Index(label string) (int, bool) {
	idx, ok := tp.index[label]
	return idx, ok
}

// LayerIndexes returns the neuron indexes of a layer in declaration order.
func (tp *Topology) LayerIndexes(layer Layer) []int {
	var out []int
	for i, ns := range tp.Neurons {
		if ns.Layer == layer {
			out = append(out, i)
		}
	}
	return out
}

// Validate checks the structural invariants a network relies on.
func (tp *Topology) Validate() error {
	if len(tp.Neurons) == 0 {
		return fmt.Errorf("topology has no neurons")
	}
	seen := make(map[string]bool, len(tp.Neurons))
	for _, ns := range tp.Neurons {
		if ns.Label == "" {
			return fmt.Errorf("neuron label is required")
		}
		if seen[ns.Label] {
			return fmt.Errorf("%w: %s", ErrDuplicateLabel, ns.Label)
		}
		seen[ns.Label] = true
		if ns.Type < 0 || ns.Type >= NeuronTypeN {
			return fmt.Errorf("neuron %s has invalid type %d", ns.Label, ns.Type)
		}
		if !ns.Exc && ns.Type != FS {
			return fmt.Errorf("inhibitory neuron %s must be FS, got %s", ns.Label, ns.Type)
		}
	}

	sensory := tp.LayerIndexes(Sensory)
	if len(sensory) != NumSensors {
		return fmt.Errorf("%w: got=%d want=%d", ErrSensorLayout, len(sensory), NumSensors)
	}
	for i, idx := range sensory {
		if tp.Neurons[idx].Label != SensorLabels[i] {
			return fmt.Errorf("%w: position %d is %s, want %s", ErrSensorLayout, i, tp.Neurons[idx].Label, SensorLabels[i])
		}
	}
	for _, label := range []string{MotorForward, MotorTurnLeft, MotorTurnRight} {
		idx, ok := tp.index[label]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNeuron, label)
		}
		if tp.Neurons[idx].Layer != Motor {
			return fmt.Errorf("neuron %s must be in the motor layer", label)
		}
	}
	for _, label := range []string{DopamineLabel, SerotoninLabel} {
		idx, ok := tp.index[label]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNeuron, label)
		}
		if tp.Neurons[idx].Layer != Modulatory {
			return fmt.Errorf("neuron %s must be in the modulatory layer", label)
		}
	}
	if _, ok := tp.index[PainLabel]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNeuron, PainLabel)
	}

	pairs := make(map[[2]string]bool, len(tp.Synapses))
	for _, ss := range tp.Synapses {
		if _, ok := tp.index[ss.Pre]; !ok {
			return fmt.Errorf("%w: synapse pre %s", ErrUnknownNeuron, ss.Pre)
		}
		if _, ok := tp.index[ss.Post]; !ok {
			return fmt.Errorf("%w: synapse post %s", ErrUnknownNeuron, ss.Post)
		}
		if ss.Wt < 0 {
			return fmt.Errorf("synapse %s->%s has negative weight %g", ss.Pre, ss.Post, ss.Wt)
		}
		if ss.Sign < 0 || ss.Sign >= SignN {
			return fmt.Errorf("synapse %s->%s has invalid sign %d", ss.Pre, ss.Post, ss.Sign)
		}
		key := [2]string{ss.Pre, ss.Post}
		if pairs[key] {
			return fmt.Errorf("duplicate synapse %s->%s", ss.Pre, ss.Post)
		}
		pairs[key] = true
	}
	return nil
}
