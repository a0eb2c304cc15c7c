package snn

// NeuronView is the observable state of one neuron.
type NeuronView struct {
	Label  string     `json:"label"`
	Type   NeuronType `json:"type"`
	Layer  Layer      `json:"layer"`
	V      float32    `json:"v"`
	U      float32    `json:"u"`
	Spiked bool       `json:"spiked"`
}

// SynapseView is the observable state of one synapse.
type SynapseView struct {
	Pre  string  `json:"pre"`
	Post string  `json:"post"`
	Sign Sign    `json:"sign"`
	Wt   float32 `json:"wt"`
	Cur  float32 `json:"cur"`
	Elig float32 `json:"elig"`
}

// Snapshot is a read-only copy of the network for monitoring.
type Snapshot struct {
	Tick          int           `json:"tick"`
	Generation    int           `json:"generation"`
	Frames        int           `json:"frames"`
	TicksPerFrame int           `json:"ticks_per_frame"`
	Paused        bool          `json:"paused"`
	Dopamine      float32       `json:"dopamine"`
	Serotonin     float32       `json:"serotonin"`
	LTP           int64         `json:"ltp"`
	LTD           int64         `json:"ltd"`
	Motor         MotorCommand  `json:"motor"`
	Neurons       []NeuronView  `json:"neurons"`
	Synapses      []SynapseView `json:"synapses"`
}

// Snapshot copies the observable state. It has no side effects.
func (st *Stepper) Snapshot() Snapshot {
	net := st.Net
	snap := Snapshot{
		Tick:          net.Tick,
		Generation:    net.Generation,
		Frames:        st.frames,
		TicksPerFrame: st.nextTicks,
		Paused:        st.paused,
		Dopamine:      net.Mods.DA,
		Serotonin:     net.Mods.HT,
		LTP:           net.Traces.LTP,
		LTD:           net.Traces.LTD,
		Motor:         st.last,
		Neurons:       make([]NeuronView, len(net.Pop.Neurons)),
		Synapses:      make([]SynapseView, len(net.Mat.Synapses)),
	}
	for i, nrn := range net.Pop.Neurons {
		snap.Neurons[i] = NeuronView{
			Label:  nrn.Label,
			Type:   nrn.Type,
			Layer:  nrn.Layer,
			V:      nrn.V,
			U:      nrn.U,
			Spiked: nrn.Spiked,
		}
	}
	for i, sy := range net.Mat.Synapses {
		snap.Synapses[i] = SynapseView{
			Pre:  net.Pop.Neurons[sy.Pre].Label,
			Post: net.Pop.Neurons[sy.Post].Label,
			Sign: sy.Sign,
			Wt:   sy.Wt,
			Cur:  sy.Cur,
			Elig: sy.Elig,
		}
	}
	return snap
}

// Neuron returns the view of a labelled neuron.
func (s Snapshot) Neuron(label string) (NeuronView, bool) {
	for _, nv := range s.Neurons {
		if nv.Label == label {
			return nv, true
		}
	}
	return NeuronView{}, false
}

// SpikeCount returns how many neurons spiked on the last tick.
func (s Snapshot) SpikeCount() int {
	n := 0
	for _, nv := range s.Neurons {
		if nv.Spiked {
			n++
		}
	}
	return n
}
