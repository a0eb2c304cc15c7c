package snn

import (
	"github.com/goki/ki/kit"
	"github.com/goki/mat32"
	"golang.org/x/exp/rand"
)

// NeuronType selects one of the Izhikevich parameter regimes.
type NeuronType int32

//go:generate stringer -type=NeuronType

var KiT_NeuronType = kit.Enums.AddEnum(NeuronTypeN, kit.NotBitFlag, nil)

func (ev NeuronType) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *NeuronType) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// RS is regular spiking: tonic firing with adaptation.
	RS NeuronType = iota

	// FS is fast spiking, used for inhibitory interneurons.
	FS

	// IB is intrinsically bursting.
	IB

	// CH is chattering. It is the only type that fires with zero external input.
	CH

	// LTS is low-threshold spiking.
	LTS

	NeuronTypeN
)

// TypeParams holds the fixed (a, b, c, d) tuple of a neuron type.
type TypeParams struct {
	A float32 `desc:"recovery rate of u"`
	B float32 `desc:"sensitivity of u to sub-threshold v"`
	C float32 `desc:"reset potential of v after a spike, mV"`
	D float32 `desc:"increment of u after a spike"`
}

var typeParams = [NeuronTypeN]TypeParams{
	RS:  {A: 0.02, B: 0.2, C: -65, D: 8},
	FS:  {A: 0.1, B: 0.2, C: -65, D: 2},
	IB:  {A: 0.02, B: 0.2, C: -55, D: 4},
	CH:  {A: 0.02, B: 0.2, C: -50, D: 2},
	LTS: {A: 0.02, B: 0.25, C: -65, D: 2},
}

// Params returns the parameter tuple for the type.
func (ev NeuronType) Params() TypeParams {
	if ev < 0 || ev >= NeuronTypeN {
		return typeParams[RS]
	}
	return typeParams[ev]
}

// Neuron is the dynamic state of one model neuron.
type Neuron struct {
	Label     string     `desc:"stable label, unique within the network"`
	Type      NeuronType `desc:"parameter regime"`
	Layer     Layer      `desc:"layer membership"`
	Exc       bool       `desc:"excitatory output; inhibitory neurons must be FS"`
	V         float32    `desc:"membrane potential, mV"`
	U         float32    `desc:"recovery variable"`
	Ext       float32    `desc:"external current accumulated for the next integration, cleared after use"`
	Syn       float32    `desc:"net synaptic current delivered by the previous tick"`
	Spiked    bool       `desc:"spiked on the most recent tick"`
	LastSpike int        `desc:"tick of the most recent spike, -1 if none"`
	Trace     float32    `desc:"spike trace used for STDP pairing, 1 at a spike and decaying after"`
}

// InitState places the neuron near its resting state.
func (nrn *Neuron) InitState(np *NeuronParams, rng *rand.Rand) {
	tp := nrn.Type.Params()
	jit := float32(0)
	if rng != nil && np.InitJitter > 0 {
		jit = np.InitJitter * rng.Float32()
	}
	nrn.V = tp.C + jit
	nrn.U = tp.B * nrn.V
	nrn.Ext = 0
	nrn.Syn = 0
	nrn.Spiked = false
	nrn.LastSpike = -1
	nrn.Trace = 0
}

// Relax advances v and u through the Euler substeps of one tick and clamps
// the result. Threshold handling is left to Fire.
func (np *NeuronParams) Relax(nrn *Neuron, tp TypeParams, current float32) {
	for s := 0; s < np.Substeps; s++ {
		if nrn.V >= np.Thr {
			break
		}
		v := nrn.V
		nrn.V = v + np.Dt*(0.04*v*v+5*v+140-nrn.U+current)
		nrn.U += np.Dt * tp.A * (tp.B*nrn.V - nrn.U)
	}
	if mat32.IsNaN(nrn.V) {
		nrn.V = tp.C
	}
	if mat32.IsNaN(nrn.U) {
		nrn.U = tp.B * tp.C
	}
	nrn.V = clampf(nrn.V, np.VMin, np.VMax)
	nrn.U = clampf(nrn.U, np.UMin, np.UMax)
}

// Fire applies the spike reset when v has reached threshold.
func (np *NeuronParams) Fire(nrn *Neuron, tp TypeParams) bool {
	if nrn.V < np.Thr {
		return false
	}
	nrn.V = tp.C
	nrn.U += tp.D
	return true
}

// Population holds the neurons of a network and integrates them together.
type Population struct {
	Neurons []Neuron
	Mask    []bool

	rng *rand.Rand
}

// NewPopulation allocates a population for the given neurons.
func NewPopulation(neurons []Neuron, rng *rand.Rand) *Population {
	return &Population{
		Neurons: neurons,
		Mask:    make([]bool, len(neurons)),
		rng:     rng,
	}
}

// Init resets every neuron to its initial state.
func (pp *Population) Init(np *NeuronParams) {
	for i := range pp.Neurons {
		pp.Neurons[i].InitState(np, pp.rng)
		pp.Mask[i] = false
	}
}

// Integrate advances every neuron by one tick using its accumulated external
// and synaptic currents and returns the spike mask. The mask is owned by the
// population and overwritten on the next call.
func (pp *Population) Integrate(np *NeuronParams, dp *DriveParams, tick int) []bool {
	for i := range pp.Neurons {
		nrn := &pp.Neurons[i]
		tp := nrn.Type.Params()
		current := nrn.Ext + nrn.Syn
		if nrn.Type == CH {
			current += dp.Pacemaker(pp.rng)
		}
		np.Relax(nrn, tp, current)
		spiked := np.Fire(nrn, tp)
		nrn.Spiked = spiked
		if spiked {
			nrn.LastSpike = tick
		}
		nrn.Ext = 0
		pp.Mask[i] = spiked
	}
	return pp.Mask
}

func clampf(x, lo, hi float32) float32 {
	return mat32.Max(lo, mat32.Min(hi, x))
}
