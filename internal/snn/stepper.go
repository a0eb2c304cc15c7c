package snn

import "log"

// MotorCommand is the per-frame output to the world.
type MotorCommand struct {
	Forward   float64 `json:"forward"`
	TurnLeft  float64 `json:"turn_left"`
	TurnRight float64 `json:"turn_right"`
}

// Stepper drives a NetworkState tick by tick, groups ticks into motor frames
// and carries the user controls. It is not safe for concurrent use.
type Stepper struct {
	Net *NetworkState

	ticksPerFrame int
	nextTicks     int
	frameTick     int
	counts        [3]int
	last          MotorCommand
	frames        int
	paused        bool
}

// NewStepper builds a network for topo and wraps it in a stepper.
func NewStepper(params Params, topo *Topology) (*Stepper, error) {
	net, err := NewNetworkState(params, topo)
	if err != nil {
		return nil, err
	}
	ticks := net.Params.Frame.TicksPerFrame
	return &Stepper{
		Net:           net,
		ticksPerFrame: ticks,
		nextTicks:     ticks,
	}, nil
}

// NewCreatureStepper builds a stepper over the default creature topology.
func NewCreatureStepper(params Params) (*Stepper, error) {
	return NewStepper(params, CreatureTopology())
}

// Step runs one tick. When the tick closes a frame it returns the frame's
// motor command and true. A paused stepper does nothing and returns the last
// command.
func (st *Stepper) Step(sv SensorVector) (MotorCommand, bool) {
	if st.paused {
		return st.last, false
	}
	st.Net.Cycle(sv)

	for i, spiked := range st.Net.MotorSpikes() {
		if spiked {
			st.counts[i]++
		}
	}
	st.frameTick++
	if st.frameTick < st.ticksPerFrame {
		return st.last, false
	}

	gain := float64(st.Net.Params.Frame.MotorGain)
	st.last = MotorCommand{
		Forward:   float64(st.counts[0]) * gain,
		TurnLeft:  float64(st.counts[1]) * gain,
		TurnRight: float64(st.counts[2]) * gain,
	}
	st.counts = [3]int{}
	st.frameTick = 0
	st.frames++
	st.ticksPerFrame = st.nextTicks
	return st.last, true
}

// Advance runs ticks with the same sensor reading until the current frame
// closes and returns its motor command.
func (st *Stepper) Advance(sv SensorVector) MotorCommand {
	if st.paused {
		return st.last
	}
	for {
		if cmd, done := st.Step(sv); done {
			return cmd
		}
	}
}

// InjectDopamine delivers the default user dopamine dose.
func (st *Stepper) InjectDopamine() {
	st.Net.InjectDopamine(st.Net.Params.Mod.UserAmount)
}

// InjectSerotonin delivers the default user serotonin dose.
func (st *Stepper) InjectSerotonin() {
	st.Net.InjectSerotonin(st.Net.Params.Mod.UserAmount)
}

// Reward forwards a signed world outcome to the neuromodulators.
func (st *Stepper) Reward(amt float32) {
	st.Net.Reward(amt)
}

// SetSpeed sets the ticks advanced per frame, clamped to the configured
// range. A running frame keeps its length; the new value applies from the
// next frame. It returns the value that will be used.
func (st *Stepper) SetSpeed(ticksPerFrame int) int {
	n := st.Net.Params.Frame.ClampTicks(ticksPerFrame)
	if n != ticksPerFrame {
		log.Printf("snn: ticks per frame %d clamped to %d", ticksPerFrame, n)
	}
	st.nextTicks = n
	if st.frameTick == 0 {
		st.ticksPerFrame = n
	}
	return n
}

// Speed returns the ticks per frame that the next frame will use.
func (st *Stepper) Speed() int {
	return st.nextTicks
}

// Pause stops all state changes until Resume.
func (st *Stepper) Pause() {
	st.paused = true
}

// Resume continues after Pause.
func (st *Stepper) Resume() {
	st.paused = false
}

// Paused reports whether the stepper is paused.
func (st *Stepper) Paused() bool {
	return st.paused
}

// Reset respawns the network. The motor frame restarts; speed and pause
// state are kept.
func (st *Stepper) Reset(keepWeights bool) {
	st.Net.Reset(keepWeights)
	st.counts = [3]int{}
	st.frameTick = 0
	st.frames = 0
	st.last = MotorCommand{}
	st.ticksPerFrame = st.nextTicks
}

// Respawn resets according to the configured weight persistence.
func (st *Stepper) Respawn() {
	st.Reset(st.Net.Params.KeepWeights)
}

// LastCommand returns the most recent motor command.
func (st *Stepper) LastCommand() MotorCommand {
	return st.last
}

// Frames returns the number of frames completed in this generation.
func (st *Stepper) Frames() int {
	return st.frames
}
