package snn

import (
	"fmt"

	"github.com/goki/mat32"
	"golang.org/x/exp/rand"
)

// NeuronParams control numerical integration of the Izhikevich equations.
type NeuronParams struct {

	// substep size in ms
	Dt float32 `def:"0.5"`

	// number of Euler substeps per 1 ms tick
	Substeps int `def:"2"`

	// spike threshold on v, mV
	Thr float32 `def:"30"`

	// lower clamp on v
	VMin float32 `def:"-100"`

	// upper clamp on v
	VMax float32 `def:"30"`

	// lower clamp on u
	UMin float32 `def:"-100"`

	// upper clamp on u
	UMax float32 `def:"100"`

	// initial v is drawn from [c, c+InitJitter). Upward only, so resting
	// types do not rebound into a spike.
	InitJitter float32 `def:"4"`
}

func (np *NeuronParams) Defaults() {
	np.Dt = 0.5
	np.Substeps = 2
	np.Thr = 30
	np.VMin = -100
	np.VMax = 30
	np.UMin = -100
	np.UMax = 100
	np.InitJitter = 4
}

func (np *NeuronParams) Update() {
}

// SynParams hold the receptor kinetics and weight bounds of synapses.
type SynParams struct {

	// per-tick multiplicative decay of excitatory synaptic current (~5 ms)
	ExcDecay float32 `def:"0.85"`

	// per-tick multiplicative decay of inhibitory synaptic current (~10 ms)
	InhDecay float32 `def:"0.9"`

	// upper bound of weight magnitude; the lower bound is 0
	WtMax float32 `def:"18"`
}

func (sp *SynParams) Defaults() {
	sp.ExcDecay = 0.85
	sp.InhDecay = 0.9
	sp.WtMax = 18
}

func (sp *SynParams) Update() {
}

// Decay returns the current decay factor for a synapse sign.
func (sp *SynParams) Decay(sign Sign) float32 {
	if sign == Inhibitory {
		return sp.InhDecay
	}
	return sp.ExcDecay
}

// STDPParams parameterize eligibility traces and the gated weight update.
type STDPParams struct {

	// eligibility time constant in ticks (~25 ms)
	TauElig float32 `def:"24.5"`

	// time constant of the spike-pairing kernel in ticks
	TauSTDP float32 `def:"14"`

	// partner spike trace must exceed this for a pairing to count; sets the window (~41 ticks)
	WindowThr float32 `def:"0.05"`

	// eligibility increment for pre-before-post, scaled by the pre trace
	APlus float32 `def:"0.01"`

	// eligibility decrement for post-before-pre, scaled by the post trace
	AMinus float32 `def:"0.008"`

	// learning rate applied to eligibility times modulator signal
	LRate float32 `def:"0.015"`

	// no weight changes at all while |modulator signal| is below this
	Gate float32 `def:"0.03"`

	// applied weight changes beyond this count toward the LTP / LTD counters
	ReportThr float32 `def:"1e-05"`

	// inhibitory synapses learn too when set
	PlasticInhib bool `def:"false"`

	// per-tick eligibility decay, computed from TauElig
	EligDecay float32 `view:"-" json:"-" inactive:"+"`

	// per-tick spike trace decay, computed from TauSTDP
	TraceDecay float32 `view:"-" json:"-" inactive:"+"`
}

func (sp *STDPParams) Defaults() {
	sp.TauElig = 24.5
	sp.TauSTDP = 14
	sp.WindowThr = 0.05
	sp.APlus = 0.01
	sp.AMinus = 0.008
	sp.LRate = 0.015
	sp.Gate = 0.03
	sp.ReportThr = 1e-5
	sp.PlasticInhib = false
	sp.Update()
}

func (sp *STDPParams) Update() {
	sp.EligDecay = mat32.Exp(-1 / sp.TauElig)
	sp.TraceDecay = mat32.Exp(-1 / sp.TauSTDP)
}

// NeuromodParams govern dopamine and serotonin kinetics.
type NeuromodParams struct {

	// per-tick decay of both concentrations
	Decay float32 `def:"0.993"`

	// concentration added per modulatory-neuron spike
	Quantum float32 `def:"0.25"`

	// concentration ceiling
	Max float32 `def:"3"`

	// weight of serotonin in the signal DA - SerotoninGain*5HT
	SerotoninGain float32 `def:"1"`

	// default amount for user-issued injections
	UserAmount float32 `def:"4"`

	// external current into the DA neuron per unit of injected dopamine
	DANeuronGain float32 `def:"20"`

	// external current into the 5HT neuron per unit of injected serotonin
	HTNeuronGain float32 `def:"20"`

	// external current into the pain neuron per unit of injected serotonin
	PainGain float32 `def:"15"`
}

func (mp *NeuromodParams) Defaults() {
	mp.Decay = 0.993
	mp.Quantum = 0.25
	mp.Max = 3
	mp.SerotoninGain = 1
	mp.UserAmount = 4
	mp.DANeuronGain = 20
	mp.HTNeuronGain = 20
	mp.PainGain = 15
}

func (mp *NeuromodParams) Update() {
}

// DriveParams convert sensor values and intrinsic drive into current.
type DriveParams struct {

	// current injected per unit of sensor value
	SensorGain float32 `def:"22"`

	// sensor values at or below this inject nothing
	SensorFloor float32 `def:"0.02"`

	// lower bound of the chattering pacemaker drive
	PaceMin float32 `def:"5"`

	// upper bound of the chattering pacemaker drive
	PaceMax float32 `def:"14"`
}

func (dp *DriveParams) Defaults() {
	dp.SensorGain = 22
	dp.SensorFloor = 0.02
	dp.PaceMin = 5
	dp.PaceMax = 14
}

func (dp *DriveParams) Update() {
}

// Pacemaker draws one tick of intrinsic drive for a chattering neuron.
func (dp *DriveParams) Pacemaker(rng *rand.Rand) float32 {
	if rng == nil {
		return 0.5 * (dp.PaceMin + dp.PaceMax)
	}
	return dp.PaceMin + (dp.PaceMax-dp.PaceMin)*rng.Float32()
}

// SensorCurrent maps one sensor value to injected current.
func (dp *DriveParams) SensorCurrent(val float32) float32 {
	if val <= dp.SensorFloor {
		return 0
	}
	return val * dp.SensorGain
}

// FrameParams set how ticks are grouped into motor frames.
type FrameParams struct {

	// ticks advanced per external frame; also the motor counting window
	TicksPerFrame int `def:"10"`

	// lowest accepted ticks per frame
	MinTicks int `def:"2"`

	// highest accepted ticks per frame
	MaxTicks int `def:"40"`

	// scale from motor spike count to command magnitude
	MotorGain float32 `def:"1"`
}

func (fp *FrameParams) Defaults() {
	fp.TicksPerFrame = 10
	fp.MinTicks = 2
	fp.MaxTicks = 40
	fp.MotorGain = 1
}

func (fp *FrameParams) Update() {
}

// ClampTicks bounds a requested ticks-per-frame value.
func (fp *FrameParams) ClampTicks(n int) int {
	if n < fp.MinTicks {
		return fp.MinTicks
	}
	if n > fp.MaxTicks {
		return fp.MaxTicks
	}
	return n
}

// Params collects every parameter group of a network.
type Params struct {
	Neuron NeuronParams   `view:"inline"`
	Syn    SynParams      `view:"inline"`
	STDP   STDPParams     `view:"inline"`
	Mod    NeuromodParams `view:"inline"`
	Drive  DriveParams    `view:"inline"`
	Frame  FrameParams    `view:"inline"`

	// learned weights survive respawn when set
	KeepWeights bool `def:"true"`

	// seed for initial jitter and pacemaker drive
	Seed int64
}

func (pr *Params) Defaults() {
	pr.Neuron.Defaults()
	pr.Syn.Defaults()
	pr.STDP.Defaults()
	pr.Mod.Defaults()
	pr.Drive.Defaults()
	pr.Frame.Defaults()
	pr.KeepWeights = true
	pr.Seed = 1
}

func (pr *Params) Update() {
	pr.Neuron.Update()
	pr.Syn.Update()
	pr.STDP.Update()
	pr.Mod.Update()
	pr.Drive.Update()
	pr.Frame.Update()
}

// DefaultParams returns Params with every group at its defaults.
func DefaultParams() Params {
	var pr Params
	pr.Defaults()
	return pr
}

// Validate reports parameter combinations the stepper cannot run with.
func (pr *Params) Validate() error {
	switch {
	case pr.Neuron.Substeps <= 0 || pr.Neuron.Dt <= 0:
		return fmt.Errorf("neuron substeps and dt must be > 0")
	case pr.Neuron.VMin >= pr.Neuron.VMax || pr.Neuron.UMin >= pr.Neuron.UMax:
		return fmt.Errorf("neuron clamp ranges are empty")
	case pr.Syn.ExcDecay < 0 || pr.Syn.ExcDecay >= 1 || pr.Syn.InhDecay < 0 || pr.Syn.InhDecay >= 1:
		return fmt.Errorf("synaptic decay must be in [0, 1)")
	case pr.Syn.WtMax <= 0:
		return fmt.Errorf("weight max must be > 0")
	case pr.STDP.TauElig <= 0 || pr.STDP.TauSTDP <= 0:
		return fmt.Errorf("stdp time constants must be > 0")
	case pr.STDP.Gate < 0 || pr.STDP.LRate < 0:
		return fmt.Errorf("stdp gate and learning rate must be >= 0")
	case pr.Mod.Decay < 0 || pr.Mod.Decay > 1 || pr.Mod.Max <= 0:
		return fmt.Errorf("neuromodulator decay must be in [0, 1] and max > 0")
	case pr.Drive.PaceMin > pr.Drive.PaceMax:
		return fmt.Errorf("pacemaker range is inverted: min=%g max=%g", pr.Drive.PaceMin, pr.Drive.PaceMax)
	case pr.Frame.MinTicks <= 0 || pr.Frame.MinTicks > pr.Frame.MaxTicks:
		return fmt.Errorf("frame tick range is invalid: min=%d max=%d", pr.Frame.MinTicks, pr.Frame.MaxTicks)
	case pr.Frame.TicksPerFrame < pr.Frame.MinTicks || pr.Frame.TicksPerFrame > pr.Frame.MaxTicks:
		return fmt.Errorf("ticks per frame %d outside [%d, %d]", pr.Frame.TicksPerFrame, pr.Frame.MinTicks, pr.Frame.MaxTicks)
	}
	return nil
}
