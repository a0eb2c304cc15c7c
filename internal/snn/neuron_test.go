package snn

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"golang.org/x/exp/rand"
)

func TestFireResetIsExact(t *testing.T) {
	np := NeuronParams{}
	np.Defaults()

	for typ := RS; typ < NeuronTypeN; typ++ {
		tp := typ.Params()
		nrn := Neuron{Type: typ}
		nrn.InitState(&np, nil)

		spikes := 0
		for tick := 0; tick < 500 && spikes < 5; tick++ {
			np.Relax(&nrn, tp, 20)
			uBefore := nrn.U
			if !np.Fire(&nrn, tp) {
				continue
			}
			spikes++
			if nrn.V != tp.C {
				t.Fatalf("%s: v after spike = %v, want %v", typ, nrn.V, tp.C)
			}
			if nrn.U != uBefore+tp.D {
				t.Fatalf("%s: u after spike = %v, want %v", typ, nrn.U, uBefore+tp.D)
			}
		}
		if spikes == 0 {
			t.Fatalf("%s: expected spikes under constant drive", typ)
		}
	}
}

func TestIntegrateMatchesRelaxThenFire(t *testing.T) {
	pr := DefaultParams()
	pop := NewPopulation([]Neuron{{Type: RS}, {Type: FS}, {Type: IB}}, nil)
	pop.Init(&pr.Neuron)

	for tick := 0; tick < 300; tick++ {
		want := make([]Neuron, len(pop.Neurons))
		wantMask := make([]bool, len(pop.Neurons))
		for i := range pop.Neurons {
			pop.Neurons[i].Ext = 15
			want[i] = pop.Neurons[i]
			tp := want[i].Type.Params()
			pr.Neuron.Relax(&want[i], tp, want[i].Ext+want[i].Syn)
			wantMask[i] = pr.Neuron.Fire(&want[i], tp)
		}
		mask := pop.Integrate(&pr.Neuron, &pr.Drive, tick)
		for i, nrn := range pop.Neurons {
			if mask[i] != wantMask[i] || nrn.V != want[i].V || nrn.U != want[i].U {
				t.Fatalf("tick %d neuron %d: got v=%v u=%v spike=%v want v=%v u=%v spike=%v",
					tick, i, nrn.V, nrn.U, mask[i], want[i].V, want[i].U, wantMask[i])
			}
			if nrn.Ext != 0 {
				t.Fatalf("tick %d neuron %d: external current not cleared", tick, i)
			}
			if mask[i] && nrn.LastSpike != tick {
				t.Fatalf("tick %d neuron %d: last spike = %d", tick, i, nrn.LastSpike)
			}
		}
	}
}

func TestRelaxKeepsStateFinite(t *testing.T) {
	np := NeuronParams{}
	np.Defaults()
	for _, current := range []float32{1e6, -1e6, 0} {
		nrn := Neuron{Type: RS}
		nrn.InitState(&np, nil)
		for i := 0; i < 50; i++ {
			np.Relax(&nrn, RS.Params(), current)
			np.Fire(&nrn, RS.Params())
			if math.IsNaN(float64(nrn.V)) || math.IsInf(float64(nrn.V), 0) || math.IsNaN(float64(nrn.U)) {
				t.Fatalf("non-finite state under current %v: v=%v u=%v", current, nrn.V, nrn.U)
			}
			if nrn.V < np.VMin || nrn.V > np.VMax {
				t.Fatalf("v out of clamp range under current %v: %v", current, nrn.V)
			}
		}
	}
}

func TestZeroInputOnlyChatteringFires(t *testing.T) {
	pr := DefaultParams()
	const perType = 50
	const ticks = 2000

	var neurons []Neuron
	for typ := RS; typ < NeuronTypeN; typ++ {
		for k := 0; k < perType; k++ {
			neurons = append(neurons, Neuron{Type: typ})
		}
	}
	pop := NewPopulation(neurons, rand.New(rand.NewSource(7)))
	pop.Init(&pr.Neuron)

	counts := make([]int, len(neurons))
	last := make([]int, len(neurons))
	maxISI := make([]int, len(neurons))
	for i := range last {
		last[i] = -1
	}
	for tick := 0; tick < ticks; tick++ {
		mask := pop.Integrate(&pr.Neuron, &pr.Drive, tick)
		for i, spiked := range mask {
			if !spiked {
				continue
			}
			counts[i]++
			if last[i] >= 0 && tick-last[i] > maxISI[i] {
				maxISI[i] = tick - last[i]
			}
			last[i] = tick
		}
	}

	for i, nrn := range pop.Neurons {
		if nrn.Type != CH {
			if counts[i] != 0 {
				t.Fatalf("%s neuron %d fired %d times with zero input", nrn.Type, i, counts[i])
			}
			continue
		}
		if counts[i] < 60 {
			t.Fatalf("chattering neuron %d fired only %d times", i, counts[i])
		}
		if maxISI[i] >= 120 {
			t.Fatalf("chattering neuron %d stalled: max inter-spike interval %d", i, maxISI[i])
		}
		if ticks-1-last[i] >= 120 {
			t.Fatalf("chattering neuron %d stopped firing at tick %d", i, last[i])
		}
	}
}

func TestRegularSpikingIsRegular(t *testing.T) {
	pr := DefaultParams()
	pop := NewPopulation([]Neuron{{Type: RS}}, nil)
	pop.Init(&pr.Neuron)

	var spikes []int
	for tick := 0; tick < 1000; tick++ {
		pop.Neurons[0].Ext = 10
		if pop.Integrate(&pr.Neuron, &pr.Drive, tick)[0] {
			spikes = append(spikes, tick)
		}
	}
	if len(spikes) < 15 {
		t.Fatalf("expected a sustained spike train, got %d spikes", len(spikes))
	}

	// skip the onset transient
	var isi []float64
	for i := 4; i < len(spikes); i++ {
		isi = append(isi, float64(spikes[i]-spikes[i-1]))
	}
	mean := 0.0
	for _, v := range isi {
		mean += v
	}
	mean /= float64(len(isi))
	variance := 0.0
	for _, v := range isi {
		variance += (v - mean) * (v - mean)
	}
	cv := math.Sqrt(variance/float64(len(isi))) / mean
	if cv >= 0.05 {
		t.Fatalf("inter-spike interval is not stable: mean=%.2f cv=%.4f", mean, cv)
	}
}

func TestNeuronTypeJSONByName(t *testing.T) {
	data, err := FS.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"FS"` {
		t.Fatalf("unexpected encoding: %s", data)
	}
	var typ NeuronType
	if err := typ.UnmarshalJSON([]byte(`"LTS"`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if typ != LTS {
		t.Fatalf("unexpected type: %s", typ)
	}
}

func TestEnumsRoundTripThroughJSON(t *testing.T) {
	in := struct {
		Types  []NeuronType `json:"types"`
		Layers []Layer      `json:"layers"`
		Signs  []Sign       `json:"signs"`
	}{
		Types:  []NeuronType{RS, FS, IB, CH, LTS},
		Layers: []Layer{Sensory, Decision, Motor, Modulatory},
		Signs:  []Sign{Excitatory, Inhibitory},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"types":["RS","FS","IB","CH","LTS"],"layers":["Sensory","Decision","Motor","Modulatory"],"signs":["Excitatory","Inhibitory"]}`
	if string(data) != want {
		t.Fatalf("encoding=%s want %s", data, want)
	}

	out := in
	out.Types = make([]NeuronType, len(in.Types))
	out.Layers = make([]Layer, len(in.Layers))
	out.Signs = make([]Sign, len(in.Signs))
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip=%+v want %+v", out, in)
	}
}

func TestEnumFromStringRejectsUnknownNames(t *testing.T) {
	var typ NeuronType
	if err := typ.FromString("XX"); err == nil {
		t.Fatal("expected unknown neuron type error")
	}
	var layer Layer
	if err := layer.FromString("Hidden"); err == nil {
		t.Fatal("expected unknown layer error")
	}
	sign := Inhibitory
	if err := sign.FromString("Excitatory"); err != nil || sign != Excitatory {
		t.Fatalf("sign=%s err=%v", sign, err)
	}
}
