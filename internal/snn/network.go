package snn

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/c2h5oh/datasize"
	"github.com/goki/mat32"
	"golang.org/x/exp/rand"
)

// NetworkState is all mutable state of one creature's network. It is owned
// by a single Stepper; independent creatures use independent states.
type NetworkState struct {
	Params Params
	Topo   *Topology
	Pop    *Population
	Mat    *SynapseMatrix
	Traces TraceStore
	Mods   Neuromodulators

	// ticks executed in the current generation
	Tick int

	// generation counter, starting at 1 and incremented by Reset
	Generation int

	sensory   [NumSensors]int
	motor     [3]int
	da, ht    int
	pain      int
	initWts   []float32
	pendingDA float32
	pendingHT float32
	rng       *rand.Rand
}

// WeightEntry is one synapse weight keyed by neuron labels.
type WeightEntry struct {
	Pre  string  `json:"pre"`
	Post string  `json:"post"`
	Sign Sign    `json:"sign"`
	Wt   float32 `json:"wt"`
}

// NewNetworkState builds a network from a validated topology.
func NewNetworkState(params Params, topo *Topology) (*NetworkState, error) {
	if topo == nil {
		return nil, fmt.Errorf("topology is required")
	}
	params.Update()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(uint64(params.Seed)))
	neurons := make([]Neuron, len(topo.Neurons))
	for i, ns := range topo.Neurons {
		neurons[i] = Neuron{Label: ns.Label, Type: ns.Type, Layer: ns.Layer, Exc: ns.Exc}
	}
	syns := make([]Synapse, len(topo.Synapses))
	initWts := make([]float32, len(topo.Synapses))
	for i, ss := range topo.Synapses {
		pre, _ := topo.Index(ss.Pre)
		post, _ := topo.Index(ss.Post)
		wt := clampf(ss.Wt, 0, params.Syn.WtMax)
		syns[i] = Synapse{Pre: pre, Post: post, Sign: ss.Sign, Wt: wt, Plastic: ss.Plastic}
		initWts[i] = wt
	}

	ns := &NetworkState{
		Params:     params,
		Topo:       topo,
		Pop:        NewPopulation(neurons, rng),
		Mat:        NewSynapseMatrix(syns, len(neurons)),
		Generation: 1,
		initWts:    initWts,
		rng:        rng,
	}
	for i, idx := range topo.LayerIndexes(Sensory) {
		ns.sensory[i] = idx
	}
	ns.motor[0], _ = topo.Index(MotorForward)
	ns.motor[1], _ = topo.Index(MotorTurnLeft)
	ns.motor[2], _ = topo.Index(MotorTurnRight)
	ns.da, _ = topo.Index(DopamineLabel)
	ns.ht, _ = topo.Index(SerotoninLabel)
	ns.pain, _ = topo.Index(PainLabel)
	ns.Init()
	return ns, nil
}

// Init puts all dynamic state at its initial values. Weights are untouched.
func (ns *NetworkState) Init() {
	ns.Pop.Init(&ns.Params.Neuron)
	ns.Mat.Init()
	ns.Traces.Init()
	ns.Mods.Init()
	ns.Tick = 0
	ns.pendingDA = 0
	ns.pendingHT = 0
}

// Reset is a respawn: dynamic state is reinitialised and the generation
// advances. Weights are restored to their construction values unless
// keepWeights is set.
func (ns *NetworkState) Reset(keepWeights bool) {
	if !keepWeights {
		for i := range ns.Mat.Synapses {
			ns.Mat.Synapses[i].Wt = ns.initWts[i]
		}
	}
	ns.Init()
	ns.Generation++
}

// Stimulate adds external current to a neuron for the next tick.
func (ns *NetworkState) Stimulate(idx int, current float32) {
	if idx < 0 || idx >= len(ns.Pop.Neurons) {
		return
	}
	ns.Pop.Neurons[idx].Ext += current
}

// StimulateLabel adds external current to the labelled neuron.
func (ns *NetworkState) StimulateLabel(label string, current float32) error {
	idx, ok := ns.Topo.Index(label)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNeuron, label)
	}
	ns.Stimulate(idx, current)
	return nil
}

// InjectDopamine queues a dopamine release for the next tick and drives the
// dopamine neuron.
func (ns *NetworkState) InjectDopamine(amt float32) {
	if amt <= 0 || mat32.IsNaN(amt) {
		return
	}
	ns.pendingDA += amt
	ns.Stimulate(ns.da, amt*ns.Params.Mod.DANeuronGain)
}

// InjectSerotonin queues a serotonin release for the next tick and drives
// the serotonin and pain neurons.
func (ns *NetworkState) InjectSerotonin(amt float32) {
	if amt <= 0 || mat32.IsNaN(amt) {
		return
	}
	ns.pendingHT += amt
	ns.Stimulate(ns.ht, amt*ns.Params.Mod.HTNeuronGain)
	ns.Stimulate(ns.pain, amt*ns.Params.Mod.PainGain)
}

// Reward routes a signed world outcome: positive to dopamine, negative to
// serotonin.
func (ns *NetworkState) Reward(amt float32) {
	switch {
	case amt > 0:
		ns.InjectDopamine(amt)
	case amt < 0:
		ns.InjectSerotonin(-amt)
	}
}

// Cycle runs the neural part of one tick: sensor injection, integration,
// propagation, eligibility, neuromodulators and gated plasticity. It returns
// the spike mask of this tick, owned by the population.
func (ns *NetworkState) Cycle(sv SensorVector) []bool {
	pr := &ns.Params
	for i, idx := range ns.sensory {
		ns.Pop.Neurons[idx].Ext += pr.Drive.SensorCurrent(sv[i])
	}

	mask := ns.Pop.Integrate(&pr.Neuron, &pr.Drive, ns.Tick)

	in := ns.Mat.Propagate(&pr.Syn, mask)
	for i := range ns.Pop.Neurons {
		ns.Pop.Neurons[i].Syn = in[i]
	}

	ns.Traces.Update(&pr.STDP, ns.Pop, ns.Mat, mask)

	da, ht := ns.pendingDA, ns.pendingHT
	ns.pendingDA, ns.pendingHT = 0, 0
	if mask[ns.da] {
		da += pr.Mod.Quantum
	}
	if mask[ns.ht] {
		ht += pr.Mod.Quantum
	}
	ns.Mods.DecayAndInject(&pr.Mod, da, ht)

	ns.Traces.Apply(&pr.STDP, &pr.Syn, ns.Mat, ns.Mods.Signal(&pr.Mod))

	ns.Tick++
	return mask
}

// MotorSpikes reports which motor neurons (forward, left, right) spiked on
// the last tick.
func (ns *NetworkState) MotorSpikes() [3]bool {
	var out [3]bool
	for i, idx := range ns.motor {
		out[i] = ns.Pop.Neurons[idx].Spiked
	}
	return out
}

// Weights returns every synapse weight keyed by labels, in topology order.
func (ns *NetworkState) Weights() []WeightEntry {
	out := make([]WeightEntry, len(ns.Mat.Synapses))
	for i, sy := range ns.Mat.Synapses {
		out[i] = WeightEntry{
			Pre:  ns.Pop.Neurons[sy.Pre].Label,
			Post: ns.Pop.Neurons[sy.Post].Label,
			Sign: sy.Sign,
			Wt:   sy.Wt,
		}
	}
	return out
}

// SetWeights loads weights keyed by (pre, post) labels. Unknown pairs and
// non-finite weights are rejected before anything is changed; weights are
// clamped to [0, WtMax].
func (ns *NetworkState) SetWeights(entries []WeightEntry) error {
	index := make(map[[2]string]int, len(ns.Mat.Synapses))
	for i, sy := range ns.Mat.Synapses {
		index[[2]string{ns.Pop.Neurons[sy.Pre].Label, ns.Pop.Neurons[sy.Post].Label}] = i
	}
	targets := make([]int, len(entries))
	for i, e := range entries {
		si, ok := index[[2]string{e.Pre, e.Post}]
		if !ok {
			return fmt.Errorf("no synapse %s->%s", e.Pre, e.Post)
		}
		if mat32.IsNaN(e.Wt) || mat32.IsInf(e.Wt, 0) {
			return fmt.Errorf("synapse %s->%s weight is not finite", e.Pre, e.Post)
		}
		targets[i] = si
	}
	for i, e := range entries {
		ns.Mat.Synapses[targets[i]].Wt = clampf(e.Wt, 0, ns.Params.Syn.WtMax)
	}
	return nil
}

// SizeReport summarizes the memory held by the network.
func (ns *NetworkState) SizeReport() string {
	var b strings.Builder
	nn := len(ns.Pop.Neurons)
	nmem := nn * int(unsafe.Sizeof(Neuron{}))
	nsyn := len(ns.Mat.Synapses)
	smem := nsyn * int(unsafe.Sizeof(Synapse{}))
	for _, layer := range []Layer{Sensory, Decision, Motor, Modulatory} {
		cnt := len(ns.Topo.LayerIndexes(layer))
		fmt.Fprintf(&b, "%14s:\t Neurons: %d\t NeurMem: %v\n", layer, cnt, (datasize.ByteSize)(cnt*int(unsafe.Sizeof(Neuron{}))).HumanReadable())
	}
	fmt.Fprintf(&b, "\n%14s:\t Neurons: %d\t NeurMem: %v \t Syns: %d \t SynMem: %v\n", "Network", nn, (datasize.ByteSize)(nmem).HumanReadable(), nsyn, (datasize.ByteSize)(smem).HumanReadable())
	return b.String()
}
