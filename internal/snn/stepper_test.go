package snn

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func newTestStepper(t *testing.T) *Stepper {
	t.Helper()
	st, err := NewCreatureStepper(DefaultParams())
	if err != nil {
		t.Fatalf("new stepper: %v", err)
	}
	return st
}

func TestStepperClosesFrameEveryTicksPerFrame(t *testing.T) {
	st := newTestStepper(t)
	var sv SensorVector
	sv[0] = 1

	for tick := 1; tick <= 30; tick++ {
		_, done := st.Step(sv)
		if want := tick%10 == 0; done != want {
			t.Fatalf("tick %d: frame closed=%v want %v", tick, done, want)
		}
	}
	if st.Frames() != 3 || st.Net.Tick != 30 {
		t.Fatalf("frames=%d tick=%d", st.Frames(), st.Net.Tick)
	}
}

func TestMotorCommandCountsSpikes(t *testing.T) {
	st := newTestStepper(t)
	var sv SensorVector
	sv[0] = 1

	total := 0.0
	for frame := 0; frame < 5; frame++ {
		fwd := 0
		var cmd MotorCommand
		for {
			var done bool
			cmd, done = st.Step(sv)
			if st.Net.MotorSpikes()[0] {
				fwd++
			}
			if done {
				break
			}
		}
		if cmd.Forward != float64(fwd) {
			t.Fatalf("frame %d: forward=%v counted=%d", frame, cmd.Forward, fwd)
		}
		if st.LastCommand() != cmd {
			t.Fatalf("last command mismatch: %+v vs %+v", st.LastCommand(), cmd)
		}
		total += cmd.Forward
	}
	if total == 0 {
		t.Fatal("food ahead produced no forward drive")
	}
}

func TestSetSpeedAppliesFromNextFrame(t *testing.T) {
	st := newTestStepper(t)
	var sv SensorVector

	for i := 0; i < 3; i++ {
		st.Step(sv)
	}
	if got := st.SetSpeed(4); got != 4 {
		t.Fatalf("set speed returned %d", got)
	}
	closed := 0
	for tick := 4; tick <= 10; tick++ {
		if _, done := st.Step(sv); done {
			closed = tick
		}
	}
	if closed != 10 {
		t.Fatalf("running frame changed length: closed at tick %d", closed)
	}
	for tick := 1; tick <= 4; tick++ {
		_, done := st.Step(sv)
		if done != (tick == 4) {
			t.Fatalf("new frame tick %d: closed=%v", tick, done)
		}
	}
}

func TestSetSpeedClamps(t *testing.T) {
	st := newTestStepper(t)
	if got := st.SetSpeed(100); got != 40 {
		t.Fatalf("SetSpeed(100)=%d want 40", got)
	}
	if got := st.SetSpeed(0); got != 2 {
		t.Fatalf("SetSpeed(0)=%d want 2", got)
	}
	if st.Speed() != 2 {
		t.Fatalf("speed=%d", st.Speed())
	}
	st.Advance(SensorVector{})
	if st.Net.Tick != 2 {
		t.Fatalf("frame of 2 ran %d ticks", st.Net.Tick)
	}
}

func TestPauseFreezesState(t *testing.T) {
	st := newTestStepper(t)
	var sv SensorVector
	sv[3] = 1
	for i := 0; i < 15; i++ {
		st.Step(sv)
	}
	st.Pause()
	if !st.Paused() {
		t.Fatal("expected paused")
	}
	before := st.Snapshot()
	for i := 0; i < 25; i++ {
		if _, done := st.Step(sv); done {
			t.Fatal("paused stepper closed a frame")
		}
	}
	st.Advance(sv)
	after := st.Snapshot()
	if after.Tick != before.Tick || after.Frames != before.Frames || after.Dopamine != before.Dopamine {
		t.Fatalf("state changed while paused: tick %d -> %d", before.Tick, after.Tick)
	}
	for i := range before.Neurons {
		if before.Neurons[i] != after.Neurons[i] {
			t.Fatalf("neuron %s changed while paused", before.Neurons[i].Label)
		}
	}

	st.Resume()
	st.Step(sv)
	if st.Net.Tick != before.Tick+1 {
		t.Fatalf("resume did not continue: tick=%d", st.Net.Tick)
	}
}

func TestSensorVectorValidation(t *testing.T) {
	if _, err := NewSensorVector(make([]float64, 12)); !errors.Is(err, ErrSensorLength) {
		t.Fatalf("expected length error, got %v", err)
	}
	vals := make([]float64, NumSensors)
	vals[4] = math.NaN()
	if _, err := NewSensorVector(vals); !errors.Is(err, ErrSensorValue) {
		t.Fatalf("expected value error, got %v", err)
	}
	vals[4] = math.Inf(1)
	if _, err := NewSensorVector(vals); !errors.Is(err, ErrSensorValue) {
		t.Fatalf("expected value error for Inf, got %v", err)
	}

	vals[4] = 1.7
	vals[5] = -0.3
	sv, err := NewSensorVector(vals)
	if err != nil {
		t.Fatalf("new sensor vector: %v", err)
	}
	if sv[4] != 1 || sv[5] != 0 {
		t.Fatalf("values not clamped: %v", sv)
	}
	if v, ok := sv.Get("danger_front"); !ok || v != 1 {
		t.Fatalf("get danger_front=%v ok=%v", v, ok)
	}
	if _, ok := sv.Get("nope"); ok {
		t.Fatal("expected unknown sensor lookup to fail")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	st := newTestStepper(t)
	st.Advance(SensorVector{})
	snap := st.Snapshot()
	if len(snap.Neurons) != 29 || len(snap.Synapses) != len(st.Net.Mat.Synapses) {
		t.Fatalf("unexpected snapshot sizes: %d neurons %d synapses", len(snap.Neurons), len(snap.Synapses))
	}
	if snap.Tick != 10 || snap.Frames != 1 || snap.TicksPerFrame != 10 {
		t.Fatalf("unexpected snapshot counters: %+v", snap)
	}

	snap.Synapses[0].Wt = -5
	snap.Neurons[0].V = 99
	if st.Net.Mat.Synapses[0].Wt == -5 || st.Net.Pop.Neurons[0].V == 99 {
		t.Fatal("snapshot aliases network state")
	}
	if _, ok := snap.Neuron(MotorForward); !ok {
		t.Fatal("snapshot missing motor neuron")
	}
	if snap.SpikeCount() < 0 {
		t.Fatal("negative spike count")
	}
}

func TestSnapshotRoundTripsThroughJSON(t *testing.T) {
	st := newTestStepper(t)
	st.Advance(SensorVector{})
	snap := st.Snapshot()

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Fatal("snapshot changed across a JSON round trip")
	}
	inh, ok := got.Neuron("inh_l")
	if !ok || inh.Type != FS || inh.Layer != Decision {
		t.Fatalf("unexpected decoded interneuron: %+v", inh)
	}

	entries := st.Net.Weights()
	data, err = json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal weights: %v", err)
	}
	var decoded []WeightEntry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal weights: %v", err)
	}
	if !reflect.DeepEqual(decoded, entries) {
		t.Fatal("weights changed across a JSON round trip")
	}
}

func TestStepperResetRestartsFrame(t *testing.T) {
	st := newTestStepper(t)
	var sv SensorVector
	for i := 0; i < 13; i++ {
		st.Step(sv)
	}
	st.SetSpeed(5)
	st.Pause()
	st.Respawn()
	if st.Net.Generation != 2 || st.Frames() != 0 || st.LastCommand() != (MotorCommand{}) {
		t.Fatalf("unexpected state after respawn: gen=%d frames=%d", st.Net.Generation, st.Frames())
	}
	if !st.Paused() || st.Speed() != 5 {
		t.Fatalf("respawn changed controls: paused=%v speed=%d", st.Paused(), st.Speed())
	}
	st.Resume()
	for tick := 1; tick <= 5; tick++ {
		_, done := st.Step(sv)
		if done != (tick == 5) {
			t.Fatalf("tick %d after reset: closed=%v", tick, done)
		}
	}
}
