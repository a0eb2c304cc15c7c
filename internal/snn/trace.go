package snn

import "github.com/goki/mat32"

// TraceStore maintains per-synapse eligibility and applies the
// neuromodulator-gated weight update. Eligibility values live on the
// synapses; the store keeps the running LTP / LTD counts.
type TraceStore struct {
	LTP int64
	LTD int64
}

// Init clears the counters.
func (ts *TraceStore) Init() {
	ts.LTP = 0
	ts.LTD = 0
}

// Update decays eligibility and neuron spike traces by one tick and adds the
// pairings formed by this tick's spikes. Partner traces are read before this
// tick's spikes are folded in, so a pre and post spike on the same tick do
// not pair with each other.
func (ts *TraceStore) Update(sp *STDPParams, pop *Population, sm *SynapseMatrix, mask []bool) {
	for i := range pop.Neurons {
		pop.Neurons[i].Trace *= sp.TraceDecay
	}
	for i := range sm.Synapses {
		sy := &sm.Synapses[i]
		if !sp.learns(sy) {
			continue
		}
		sy.Elig *= sp.EligDecay
		if mask[sy.Post] {
			if pt := pop.Neurons[sy.Pre].Trace; pt > sp.WindowThr {
				sy.Elig += sp.APlus * pt
			}
		}
		if mask[sy.Pre] {
			if qt := pop.Neurons[sy.Post].Trace; qt > sp.WindowThr {
				sy.Elig -= sp.AMinus * qt
			}
		}
	}
	for i := range pop.Neurons {
		if mask[i] {
			pop.Neurons[i].Trace = 1
		}
	}
}

// Apply changes weights by LRate * elig * signal, clamped to [0, WtMax].
// Nothing changes while |signal| is below the gate.
func (ts *TraceStore) Apply(sp *STDPParams, syp *SynParams, sm *SynapseMatrix, signal float32) {
	if mat32.Abs(signal) < sp.Gate || signal == 0 {
		return
	}
	for i := range sm.Synapses {
		sy := &sm.Synapses[i]
		if !sp.learns(sy) || sy.Elig == 0 {
			continue
		}
		nw := clampf(sy.Wt+sp.LRate*sy.Elig*signal, 0, syp.WtMax)
		dw := nw - sy.Wt
		sy.Wt = nw
		switch {
		case dw > sp.ReportThr:
			ts.LTP++
		case dw < -sp.ReportThr:
			ts.LTD++
		}
	}
}

func (sp *STDPParams) learns(sy *Synapse) bool {
	if !sy.Plastic {
		return false
	}
	return sy.Sign == Excitatory || sp.PlasticInhib
}
