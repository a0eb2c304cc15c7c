package platform

import (
	"context"
	"strings"
	"testing"

	"spikenet/internal/model"
	"spikenet/internal/scape"
	"spikenet/internal/snn"
	"spikenet/internal/storage"
)

func newTestSession(t *testing.T) (*Session, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	s := NewSession(Config{Store: store})
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s, store
}

func testRunConfig(runID string) RunConfig {
	return RunConfig{
		RunID:      runID,
		CreatureID: runID + "-creature",
		Params:     snn.DefaultParams(),
		World:      scape.ForageConfig{Seed: 3, Enemies: -1, Poisons: -1},
	}
}

func TestSessionRequiresInitAndBudget(t *testing.T) {
	s := NewSession(Config{Store: storage.NewMemoryStore()})
	cfg := testRunConfig("r")
	cfg.Frames = 1
	if _, err := s.Run(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected init error, got %v", err)
	}
	if err := NewSession(Config{}).Init(context.Background()); err == nil {
		t.Fatal("expected missing store error")
	}

	s, _ = newTestSession(t)
	if _, err := s.Run(context.Background(), testRunConfig("r")); err == nil || !strings.Contains(err.Error(), "budget") {
		t.Fatalf("expected budget error, got %v", err)
	}
}

func TestSessionRunsFrameBudgetAndPersists(t *testing.T) {
	s, store := newTestSession(t)
	cfg := testRunConfig("frames")
	cfg.Frames = 40
	var seen int
	cfg.OnFrame = func(r FrameReport) { seen = r.Frame }

	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StopReason != StopReasonBudget || result.Run.Frames != 40 || seen != 40 {
		t.Fatalf("unexpected result: reason=%s frames=%d seen=%d", result.StopReason, result.Run.Frames, seen)
	}
	if result.Snapshot.Tick != 400 {
		t.Fatalf("expected 400 ticks, got %d", result.Snapshot.Tick)
	}

	run, ok, err := store.GetRun(context.Background(), "frames")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if run.CreatureID != "frames-creature" || run.TicksPerFrame != 10 || !run.KeepWeights {
		t.Fatalf("unexpected run record: %+v", run)
	}
	if run.FinishedAtUTC.Before(run.StartedAtUTC) {
		t.Fatalf("finish before start: %+v", run)
	}
	weights, ok, err := store.GetWeights(context.Background(), "frames-creature")
	if err != nil || !ok {
		t.Fatalf("get weights: ok=%v err=%v", ok, err)
	}
	if len(weights.Weights) != len(result.Snapshot.Synapses) {
		t.Fatalf("weights=%d synapses=%d", len(weights.Weights), len(result.Snapshot.Synapses))
	}
	if len(s.ActiveRuns()) != 0 {
		t.Fatalf("run still registered: %v", s.ActiveRuns())
	}
}

func TestSessionGeneratesIDs(t *testing.T) {
	s, _ := newTestSession(t)
	result, err := s.Run(context.Background(), RunConfig{Params: snn.DefaultParams(), Frames: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Run.ID) != 36 || len(result.Run.CreatureID) != 36 || result.Run.ID == result.Run.CreatureID {
		t.Fatalf("unexpected ids: %q %q", result.Run.ID, result.Run.CreatureID)
	}
}

func TestSessionResetRecordsGeneration(t *testing.T) {
	s, store := newTestSession(t)
	cfg := testRunConfig("reset")
	cfg.Generations = 2
	cfg.Control = make(chan Command, 2)
	cfg.Control <- Command{Kind: CommandReset}
	cfg.Control <- Command{Kind: CommandReset}

	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StopReason != StopReasonBudget || result.Run.Generations != 2 || result.Run.Frames != 0 {
		t.Fatalf("unexpected result: %+v", result.Run)
	}
	history, ok, err := store.ListGenerations(context.Background(), "reset")
	if err != nil || !ok {
		t.Fatalf("list generations: ok=%v err=%v", ok, err)
	}
	if len(history) != 2 || history[0].Generation != 1 || history[1].Generation != 2 {
		t.Fatalf("unexpected history: %+v", history)
	}
	if history[0].MeanWeight <= 0 {
		t.Fatalf("mean weight not recorded: %+v", history[0])
	}
	if result.Snapshot.Generation != 3 {
		t.Fatalf("network generation=%d want 3", result.Snapshot.Generation)
	}
}

func TestSessionAppliesQueuedCommands(t *testing.T) {
	s, _ := newTestSession(t)
	cfg := testRunConfig("commands")
	cfg.Frames = 100
	cfg.Control = make(chan Command, 4)
	cfg.Control <- Command{Kind: CommandSetSpeed, Ticks: 4}
	cfg.Control <- Command{Kind: CommandInjectDopamine}
	cfg.Control <- Command{Kind: CommandStop}

	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StopReason != StopReasonCommand || result.Run.Frames != 0 {
		t.Fatalf("unexpected stop: reason=%s frames=%d", result.StopReason, result.Run.Frames)
	}
	if result.Run.TicksPerFrame != 4 || result.Snapshot.TicksPerFrame != 4 {
		t.Fatalf("speed not applied: run=%d snapshot=%d", result.Run.TicksPerFrame, result.Snapshot.TicksPerFrame)
	}
}

func TestSessionPausedRunWaitsForCommands(t *testing.T) {
	s, _ := newTestSession(t)
	cfg := testRunConfig("paused")
	cfg.Frames = 100
	cfg.Control = make(chan Command, 2)
	cfg.Control <- Command{Kind: CommandPause}
	cfg.Control <- Command{Kind: CommandStop}

	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Run.Frames != 0 || !result.Snapshot.Paused || result.Snapshot.Tick != 0 {
		t.Fatalf("paused run advanced: frames=%d tick=%d", result.Run.Frames, result.Snapshot.Tick)
	}
}

func TestSessionRunControlFromCallback(t *testing.T) {
	s, _ := newTestSession(t)
	cfg := testRunConfig("live")
	cfg.Frames = 100
	cfg.Control = make(chan Command, 1)
	var fullErr error
	cfg.OnFrame = func(r FrameReport) {
		switch r.Frame {
		case 1:
			if err := s.SetRunSpeed("live", 6); err != nil {
				t.Errorf("set speed: %v", err)
			}
			fullErr = s.InjectSerotonin("live")
		case 3:
			if err := s.StopRun("live"); err != nil {
				t.Errorf("stop: %v", err)
			}
		}
	}

	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if fullErr == nil || !strings.Contains(fullErr.Error(), "run control channel is full") {
		t.Fatalf("expected full channel error, got %v", fullErr)
	}
	if result.StopReason != StopReasonCommand || result.Run.Frames != 3 {
		t.Fatalf("unexpected stop: reason=%s frames=%d", result.StopReason, result.Run.Frames)
	}
	if result.Snapshot.Tick != 10+6+6 {
		t.Fatalf("speed change not applied from next frame: tick=%d", result.Snapshot.Tick)
	}
	if err := s.PauseRun("live"); err == nil || !strings.Contains(err.Error(), "run not active") {
		t.Fatalf("expected inactive run error, got %v", err)
	}
}

func TestSessionCancellationPersistsRun(t *testing.T) {
	s, store := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := testRunConfig("cancel")
	cfg.Frames = 1000
	cfg.OnFrame = func(r FrameReport) {
		if r.Frame == 5 {
			cancel()
		}
	}

	result, err := s.Run(ctx, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StopReason != StopReasonCancelled || result.Run.Frames != 5 {
		t.Fatalf("unexpected stop: reason=%s frames=%d", result.StopReason, result.Run.Frames)
	}
	if _, ok, err := store.GetRun(context.Background(), "cancel"); err != nil || !ok {
		t.Fatalf("cancelled run not stored: ok=%v err=%v", ok, err)
	}
}

func TestSessionResumeFromStoredWeights(t *testing.T) {
	s, store := newTestSession(t)
	ref, err := snn.NewCreatureStepper(snn.DefaultParams())
	if err != nil {
		t.Fatalf("stepper: %v", err)
	}
	first := ref.Net.Weights()[0]
	donor := model.WeightSnapshot{
		VersionedRecord: storage.CurrentVersion(),
		CreatureID:      "donor",
		Generation:      4,
		Weights:         []model.SynapseWeight{{Pre: first.Pre, Post: first.Post, Weight: 7}},
	}
	if err := store.SaveWeights(context.Background(), donor); err != nil {
		t.Fatalf("save weights: %v", err)
	}

	cfg := testRunConfig("resume")
	cfg.ResumeFrom = "donor"
	cfg.Frames = 10
	cfg.Control = make(chan Command, 1)
	cfg.Control <- Command{Kind: CommandStop}
	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := result.Weights.Weights[0]
	if got.Pre != first.Pre || got.Post != first.Post || got.Weight != 7 {
		t.Fatalf("weight not loaded: %+v", got)
	}

	cfg = testRunConfig("missing")
	cfg.ResumeFrom = "nobody"
	cfg.Frames = 1
	if _, err := s.Run(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "weights not found") {
		t.Fatalf("expected missing weights error, got %v", err)
	}
}

func TestSessionRejectsDuplicateRun(t *testing.T) {
	s, _ := newTestSession(t)
	control := make(chan Command, 1)
	if err := s.registerRunControl("dup", control); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.registerRunControl("dup", control); err == nil {
		t.Fatal("expected duplicate run error")
	}
	if got := s.ActiveRuns(); len(got) != 1 || got[0] != "dup" {
		t.Fatalf("active runs=%v", got)
	}

	s.Stop()
	if s.Started() || len(s.ActiveRuns()) != 0 {
		t.Fatal("stop did not clear session")
	}
	select {
	case cmd := <-control:
		if cmd.Kind != CommandStop {
			t.Fatalf("unexpected command %s", cmd.Kind)
		}
	default:
		t.Fatal("stop command not delivered")
	}
}
