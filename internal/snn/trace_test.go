package snn

import (
	"testing"
)

func newPairFixture(wt float32) (*Population, *SynapseMatrix) {
	pop := NewPopulation([]Neuron{{Label: "pre", Type: RS, Exc: true}, {Label: "post", Type: RS, Exc: true}}, nil)
	sm := NewSynapseMatrix([]Synapse{{Pre: 0, Post: 1, Sign: Excitatory, Wt: wt, Plastic: true}}, 2)
	return pop, sm
}

func TestEligibilityDecaysBelowOnePercent(t *testing.T) {
	pr := DefaultParams()
	pop, sm := newPairFixture(5)
	sm.Synapses[0].Elig = 1

	var ts TraceStore
	silent := []bool{false, false}
	for tick := 0; tick < 115; tick++ {
		ts.Update(&pr.STDP, pop, sm, silent)
	}
	if got := sm.Synapses[0].Elig; got >= 0.01 || got <= 0 {
		t.Fatalf("eligibility after 115 ticks = %v, want (0, 0.01)", got)
	}
}

func TestPairingSignFollowsSpikeOrder(t *testing.T) {
	pr := DefaultParams()

	pop, sm := newPairFixture(5)
	var ts TraceStore
	ts.Update(&pr.STDP, pop, sm, []bool{true, false})
	ts.Update(&pr.STDP, pop, sm, []bool{false, false})
	ts.Update(&pr.STDP, pop, sm, []bool{false, true})
	if sm.Synapses[0].Elig <= 0 {
		t.Fatalf("pre-before-post should leave positive eligibility, got %v", sm.Synapses[0].Elig)
	}

	pop, sm = newPairFixture(5)
	ts.Update(&pr.STDP, pop, sm, []bool{false, true})
	ts.Update(&pr.STDP, pop, sm, []bool{true, false})
	if sm.Synapses[0].Elig >= 0 {
		t.Fatalf("post-before-pre should leave negative eligibility, got %v", sm.Synapses[0].Elig)
	}

	pop, sm = newPairFixture(5)
	ts.Update(&pr.STDP, pop, sm, []bool{true, true})
	if sm.Synapses[0].Elig != 0 {
		t.Fatalf("simultaneous spikes should not pair, got %v", sm.Synapses[0].Elig)
	}

	pop, sm = newPairFixture(5)
	ts.Update(&pr.STDP, pop, sm, []bool{true, false})
	for i := 0; i < 60; i++ {
		ts.Update(&pr.STDP, pop, sm, []bool{false, false})
	}
	ts.Update(&pr.STDP, pop, sm, []bool{false, true})
	if sm.Synapses[0].Elig != 0 {
		t.Fatalf("pairing outside the window should not count, got %v", sm.Synapses[0].Elig)
	}
}

func TestZeroModulatorNeverChangesWeights(t *testing.T) {
	pr := DefaultParams()
	pr.STDP.Gate = 0
	pop, sm := newPairFixture(7)

	var ts TraceStore
	for tick := 0; tick < 2000; tick++ {
		mask := []bool{tick%7 == 0, tick%7 == 2 || tick%11 == 0}
		ts.Update(&pr.STDP, pop, sm, mask)
		ts.Apply(&pr.STDP, &pr.Syn, sm, 0)
		if sm.Synapses[0].Wt != 7 {
			t.Fatalf("tick %d: weight changed to %v with zero modulator", tick, sm.Synapses[0].Wt)
		}
	}
	if ts.LTP != 0 || ts.LTD != 0 {
		t.Fatalf("unexpected counters: ltp=%d ltd=%d", ts.LTP, ts.LTD)
	}
}

func TestGateBlocksSmallSignals(t *testing.T) {
	pr := DefaultParams()
	pop, sm := newPairFixture(7)
	_ = pop
	sm.Synapses[0].Elig = 0.5

	var ts TraceStore
	ts.Apply(&pr.STDP, &pr.Syn, sm, pr.STDP.Gate*0.5)
	if sm.Synapses[0].Wt != 7 {
		t.Fatalf("sub-gate signal changed weight to %v", sm.Synapses[0].Wt)
	}
	ts.Apply(&pr.STDP, &pr.Syn, sm, 1)
	if sm.Synapses[0].Wt <= 7 || ts.LTP != 1 {
		t.Fatalf("expected potentiation, weight=%v ltp=%d", sm.Synapses[0].Wt, ts.LTP)
	}
	ts.Apply(&pr.STDP, &pr.Syn, sm, -2)
	if ts.LTD != 1 {
		t.Fatalf("expected depression under negative signal, ltd=%d", ts.LTD)
	}
}

func TestInhibitorySynapsesAreFixedByDefault(t *testing.T) {
	pr := DefaultParams()
	pop := NewPopulation([]Neuron{{Type: FS}, {Type: RS}}, nil)
	sm := NewSynapseMatrix([]Synapse{{Pre: 0, Post: 1, Sign: Inhibitory, Wt: 8, Plastic: true}}, 2)

	var ts TraceStore
	for tick := 0; tick < 200; tick++ {
		ts.Update(&pr.STDP, pop, sm, []bool{tick%20 == 0, tick%20 == 1})
		ts.Apply(&pr.STDP, &pr.Syn, sm, 3)
	}
	if sm.Synapses[0].Wt != 8 || sm.Synapses[0].Elig != 0 {
		t.Fatalf("inhibitory synapse learned: wt=%v elig=%v", sm.Synapses[0].Wt, sm.Synapses[0].Elig)
	}
}

func TestPotentiationSaturatesAtMax(t *testing.T) {
	pr := DefaultParams()
	pr.STDP.LRate = 0.5
	pop, sm := newPairFixture(10)

	// pre then post one tick later, repeated with a period longer than the
	// pairing window so no post-before-pre pairing forms
	const period = 50
	var ts TraceStore
	prev := sm.Synapses[0].Wt
	for tick := 0; tick < 20000; tick++ {
		phase := tick % period
		ts.Update(&pr.STDP, pop, sm, []bool{phase == 0, phase == 1})
		ts.Apply(&pr.STDP, &pr.Syn, sm, 2)

		wt := sm.Synapses[0].Wt
		if wt < prev {
			t.Fatalf("tick %d: weight decreased %v -> %v", tick, prev, wt)
		}
		if wt > pr.Syn.WtMax {
			t.Fatalf("tick %d: weight %v exceeds max %v", tick, wt, pr.Syn.WtMax)
		}
		prev = wt
	}
	if prev != pr.Syn.WtMax {
		t.Fatalf("weight did not saturate: %v", prev)
	}
	if ts.LTP == 0 || ts.LTD != 0 {
		t.Fatalf("unexpected counters: ltp=%d ltd=%d", ts.LTP, ts.LTD)
	}
}

func TestNeuromodulatorsDecayAndCap(t *testing.T) {
	pr := DefaultParams()
	var nm Neuromodulators
	nm.DecayAndInject(&pr.Mod, 10, 1)
	if nm.DA != pr.Mod.Max {
		t.Fatalf("dopamine not capped: %v", nm.DA)
	}
	if nm.HT != 1 {
		t.Fatalf("unexpected serotonin: %v", nm.HT)
	}
	nm.DecayAndInject(&pr.Mod, 0, 0)
	if nm.HT != pr.Mod.Decay {
		t.Fatalf("serotonin did not decay: %v", nm.HT)
	}
	if got, want := nm.Signal(&pr.Mod), nm.DA-nm.HT; got != want {
		t.Fatalf("signal=%v want=%v", got, want)
	}
	nm.DecayAndInject(&pr.Mod, -100, -100)
	if nm.DA != 0 || nm.HT != 0 {
		t.Fatalf("levels went negative: da=%v ht=%v", nm.DA, nm.HT)
	}
}
