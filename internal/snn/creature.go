package snn

// Weight classes of the creature wiring.
const (
	WtReflex  = 14 // direct sensor to motor reflexes
	WtStrong  = 10
	WtMedium  = 6
	WtWeak    = 3
	WtInhib   = 8
	WtLateral = 18 // turn channel competition, at the default weight ceiling
	WtTurn    = 8  // turn decision to its motor; one spike alone cannot fire it
)

// CreatureTopology builds the fixed 29-neuron foraging network.
func CreatureTopology() *Topology {
	tp := NewTopology()

	for _, label := range SensorLabels[:NumSensors-1] {
		tp.AddNeuron(label, RS, Sensory, true)
	}
	tp.AddNeuron(PainLabel, IB, Sensory, true)

	for _, label := range []string{"approach", "avoid"} {
		tp.AddNeuron(label, RS, Decision, true)
	}
	tp.AddNeuron("explore", CH, Decision, true)
	for _, label := range []string{"go_fwd", "turn_l", "turn_r", "mem1", "mem2"} {
		tp.AddNeuron(label, RS, Decision, true)
	}
	for _, label := range []string{"inh_l", "inh_r", "inh_fwd"} {
		tp.AddNeuron(label, FS, Decision, false)
	}

	for _, label := range []string{MotorForward, MotorTurnLeft, MotorTurnRight} {
		tp.AddNeuron(label, RS, Motor, true)
	}
	tp.AddNeuron(DopamineLabel, IB, Modulatory, true)
	tp.AddNeuron(SerotoninLabel, IB, Modulatory, true)

	// food: reflexes toward the food side, approach drive and dopamine
	tp.Excite("food_front", MotorForward, WtReflex)
	tp.Excite("food_front", "go_fwd", WtStrong)
	tp.Excite("food_left", MotorTurnLeft, WtReflex)
	tp.Excite("food_left", "turn_l", WtStrong)
	tp.Excite("food_right", MotorTurnRight, WtReflex)
	tp.Excite("food_right", "turn_r", WtStrong)
	tp.Excite("food_near", MotorForward, WtReflex)
	tp.Excite("food_near", DopamineLabel, WtStrong)
	tp.Excite("food_front", "approach", WtMedium)
	tp.Excite("food_left", "approach", WtMedium)
	tp.Excite("food_right", "approach", WtMedium)
	tp.Excite("food_near", "approach", WtStrong)
	tp.Excite("approach", "go_fwd", WtMedium)
	tp.Excite("go_fwd", MotorForward, WtStrong)
	tp.Excite("turn_l", MotorTurnLeft, WtTurn)
	tp.Excite("turn_r", MotorTurnRight, WtTurn)

	// danger: turn away, brake straight ahead, serotonin
	tp.Excite("danger_front", MotorTurnLeft, WtStrong)
	tp.Excite("danger_front", MotorTurnRight, WtStrong)
	tp.Excite("danger_front", "inh_fwd", WtStrong)
	tp.Excite("danger_left", MotorTurnRight, WtReflex)
	tp.Excite("danger_left", MotorForward, WtMedium)
	tp.Inhibit("danger_left", MotorTurnLeft, WtInhib)
	tp.Excite("danger_right", MotorTurnLeft, WtReflex)
	tp.Excite("danger_right", MotorForward, WtMedium)
	tp.Inhibit("danger_right", MotorTurnRight, WtInhib)
	tp.Excite("danger_near", "avoid", WtStrong)
	tp.Excite("danger_near", MotorForward, WtStrong)
	tp.Excite("danger_near", SerotoninLabel, WtStrong)
	tp.Excite("avoid", MotorForward, WtMedium)
	tp.Excite(PainLabel, "avoid", WtStrong)
	tp.Excite(PainLabel, SerotoninLabel, WtStrong)

	// walls
	tp.Excite("wall_front", "inh_fwd", WtStrong)
	tp.Excite("wall_front", MotorTurnLeft, WtMedium)
	tp.Excite("wall_left", MotorTurnRight, WtMedium)
	tp.Inhibit("wall_left", MotorTurnLeft, WtMedium)
	tp.Excite("wall_right", MotorTurnLeft, WtMedium)
	tp.Inhibit("wall_right", MotorTurnRight, WtMedium)

	// winner-take-all between the turn channels: each decision neuron
	// recruits the opposite interneuron, which silences the opposite motor
	// and decision neuron before a second spike can fire the opposite motor.
	// Simultaneous turn spikes therefore fire neither motor.
	tp.Excite("turn_l", "inh_r", WtLateral)
	tp.Excite("turn_r", "inh_l", WtLateral)
	tp.Excite(MotorTurnLeft, "inh_r", WtMedium)
	tp.Excite(MotorTurnRight, "inh_l", WtMedium)
	tp.Inhibit("inh_r", MotorTurnRight, WtLateral)
	tp.Inhibit("inh_l", MotorTurnLeft, WtLateral)
	tp.Inhibit("inh_r", "turn_r", WtLateral)
	tp.Inhibit("inh_l", "turn_l", WtLateral)
	tp.Inhibit("inh_fwd", MotorForward, WtInhib)

	// exploration and hunger; exploratory turning goes through the turn
	// decision neurons so it competes like any other turn drive
	tp.Excite("explore", MotorForward, WtMedium)
	tp.Excite("explore", "turn_l", WtWeak)
	tp.Excite("explore", "turn_r", WtWeak)
	tp.Excite("hunger", "explore", WtMedium)
	tp.Excite("hunger", "approach", WtMedium)

	// short-term memory loops
	tp.Excite("mem1", "mem1", 1)
	tp.Excite("mem2", "mem2", 1)
	tp.Excite("go_fwd", "mem1", WtWeak)
	tp.Excite("turn_l", "mem2", WtWeak)
	tp.Excite("mem1", "go_fwd", WtWeak)
	tp.Excite("mem2", "turn_l", WtWeak)

	// neuromodulator feedback
	tp.Excite(DopamineLabel, "approach", WtMedium)
	tp.Excite(SerotoninLabel, "avoid", WtMedium)

	return tp
}
