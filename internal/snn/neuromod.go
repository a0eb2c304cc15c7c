package snn

// Neuromodulators are the two diffuse scalar signals gating plasticity.
type Neuromodulators struct {
	DA float32 `desc:"dopamine concentration"`
	HT float32 `desc:"serotonin (5HT) concentration"`
}

// Init sets both concentrations to zero.
func (nm *Neuromodulators) Init() {
	nm.DA = 0
	nm.HT = 0
}

// DecayAndInject decays both levels by one tick and then adds the given
// increments, keeping each in [0, Max].
func (nm *Neuromodulators) DecayAndInject(mp *NeuromodParams, da, ht float32) {
	nm.DA = clampf(nm.DA*mp.Decay+da, 0, mp.Max)
	nm.HT = clampf(nm.HT*mp.Decay+ht, 0, mp.Max)
}

// Signal is the third factor of the learning rule.
func (nm *Neuromodulators) Signal(mp *NeuromodParams) float32 {
	return nm.DA - mp.SerotoninGain*nm.HT
}
