package snn

import "github.com/goki/ki/kit"

// Sign is the fixed effect of a synapse on its target.
type Sign int32

//go:generate stringer -type=Sign

var KiT_Sign = kit.Enums.AddEnum(SignN, kit.NotBitFlag, nil)

func (ev Sign) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Sign) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	Excitatory Sign = iota
	Inhibitory

	SignN
)

// Apply returns the signed current a weight magnitude contributes.
func (ev Sign) Apply(wt float32) float32 {
	if ev == Inhibitory {
		return -wt
	}
	return wt
}

// Synapse is one directed, weighted connection.
type Synapse struct {
	Pre     int     `desc:"index of the presynaptic neuron"`
	Post    int     `desc:"index of the postsynaptic neuron"`
	Sign    Sign    `desc:"fixed at creation"`
	Wt      float32 `desc:"weight magnitude in [0, WtMax]"`
	Cur     float32 `desc:"signed current carried into the postsynaptic neuron"`
	Elig    float32 `desc:"eligibility trace"`
	Plastic bool    `desc:"weight follows the three-factor rule"`
}

// SynapseMatrix is the fixed set of synapses of a network.
type SynapseMatrix struct {
	Synapses []Synapse

	// per-postsynaptic-neuron input computed by the last Propagate
	In []float32
}

// NewSynapseMatrix allocates a matrix over nNeurons neurons.
func NewSynapseMatrix(syns []Synapse, nNeurons int) *SynapseMatrix {
	return &SynapseMatrix{
		Synapses: syns,
		In:       make([]float32, nNeurons),
	}
}

// Init clears all transient synapse state, keeping weights.
func (sm *SynapseMatrix) Init() {
	for i := range sm.Synapses {
		sm.Synapses[i].Cur = 0
		sm.Synapses[i].Elig = 0
	}
	for i := range sm.In {
		sm.In[i] = 0
	}
}

// Propagate decays every synapse current, adds the signed weight of synapses
// whose presynaptic neuron spiked, and sums currents per postsynaptic neuron.
// The returned slice is owned by the matrix.
func (sm *SynapseMatrix) Propagate(sp *SynParams, mask []bool) []float32 {
	for i := range sm.In {
		sm.In[i] = 0
	}
	for i := range sm.Synapses {
		sy := &sm.Synapses[i]
		sy.Cur *= sp.Decay(sy.Sign)
		if mask[sy.Pre] {
			sy.Cur += sy.Sign.Apply(sy.Wt)
		}
		sm.In[sy.Post] += sy.Cur
	}
	return sm.In
}
