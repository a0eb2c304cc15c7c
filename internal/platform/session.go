package platform

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"spikenet/internal/agent"
	"spikenet/internal/model"
	"spikenet/internal/scape"
	"spikenet/internal/snn"
	"spikenet/internal/storage"
)

// CommandKind names a run control action.
type CommandKind string

const (
	CommandPause           CommandKind = "pause"
	CommandResume          CommandKind = "resume"
	CommandSetSpeed        CommandKind = "set_speed"
	CommandInjectDopamine  CommandKind = "inject_dopamine"
	CommandInjectSerotonin CommandKind = "inject_serotonin"
	CommandReset           CommandKind = "reset"
	CommandStop            CommandKind = "stop"
)

// Command is sent to a running session over its control channel. Ticks is
// only read by CommandSetSpeed.
type Command struct {
	Kind  CommandKind
	Ticks int
}

// DefaultControlBuffer is the control channel capacity used when a run does
// not bring its own channel.
const DefaultControlBuffer = 16

type StopReason string

const (
	StopReasonBudget    StopReason = "budget"
	StopReasonCommand   StopReason = "command"
	StopReasonCancelled StopReason = "cancelled"
)

type Config struct {
	Store storage.Store
}

type RunConfig struct {
	RunID      string
	CreatureID string
	Params     snn.Params
	World      scape.ForageConfig

	// Frames and Generations bound the run; zero means no bound on that
	// axis but at least one must be set.
	Frames      int
	Generations int

	// ResumeFrom names a creature whose stored weights are loaded before
	// the first frame.
	ResumeFrom string

	Control chan Command
	OnFrame func(FrameReport)
}

// FrameReport is handed to RunConfig.OnFrame after every frame.
type FrameReport struct {
	Frame      int
	Generation int
	Motor      snn.MotorCommand
	Events     scape.FrameEvents
	Energy     float64
}

type RunResult struct {
	Run         model.RunRecord
	Generations []model.GenerationSummary
	Weights     model.WeightSnapshot
	Snapshot    snn.Snapshot
	StopReason  StopReason
}

// Session runs creatures in the forage world and persists their lives.
type Session struct {
	store storage.Store

	mu      sync.RWMutex
	started bool
	runs    map[string]chan Command
}

func NewSession(cfg Config) *Session {
	return &Session{
		store: cfg.Store,
		runs:  make(map[string]chan Command),
	}
}

func (s *Session) Init(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("store is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.store.Init(ctx); err != nil {
		return err
	}
	s.started = true
	return nil
}

func (s *Session) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Stop asks every active run to stop and marks the session uninitialized.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, control := range s.runs {
		select {
		case control <- Command{Kind: CommandStop}:
		default:
		}
	}
	s.started = false
	s.runs = make(map[string]chan Command)
}

func (s *Session) ActiveRuns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Session) Run(ctx context.Context, cfg RunConfig) (RunResult, error) {
	if cfg.Frames < 0 || cfg.Generations < 0 {
		return RunResult{}, fmt.Errorf("run budget must be >= 0")
	}
	if cfg.Frames == 0 && cfg.Generations == 0 {
		return RunResult{}, fmt.Errorf("frame or generation budget is required")
	}
	if !s.Started() {
		return RunResult{}, fmt.Errorf("session is not initialized")
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}
	if cfg.CreatureID == "" {
		cfg.CreatureID = uuid.New().String()
	}

	stepper, err := snn.NewCreatureStepper(cfg.Params)
	if err != nil {
		return RunResult{}, err
	}
	creature, err := agent.NewForageCreature(cfg.CreatureID, stepper)
	if err != nil {
		return RunResult{}, err
	}
	if cfg.ResumeFrom != "" {
		if err := s.loadWeights(ctx, cfg.ResumeFrom, stepper.Net); err != nil {
			return RunResult{}, err
		}
	}
	rec := &lifeRecorder{Creature: creature}
	world := scape.NewForageWorld(cfg.World)
	runner, err := scape.NewForageRunner(world, rec)
	if err != nil {
		return RunResult{}, err
	}

	control := cfg.Control
	if control == nil {
		control = make(chan Command, DefaultControlBuffer)
	}
	if err := s.registerRunControl(cfg.RunID, control); err != nil {
		return RunResult{}, err
	}
	defer s.unregisterRunControl(cfg.RunID)

	r := &activeRun{
		session: s,
		cfg:     cfg,
		stepper: stepper,
		rec:     rec,
		world:   world,
		runner:  runner,
		control: control,
		record: model.RunRecord{
			VersionedRecord: storage.CurrentVersion(),
			ID:              cfg.RunID,
			CreatureID:      cfg.CreatureID,
			Seed:            stepper.Net.Params.Seed,
			TicksPerFrame:   stepper.Speed(),
			KeepWeights:     stepper.Net.Params.KeepWeights,
			StartedAtUTC:    time.Now().UTC(),
		},
	}
	log.Printf("platform: run %s started creature=%s keep_weights=%v", cfg.RunID, cfg.CreatureID, r.record.KeepWeights)

	reason, runErr := r.loop(ctx)
	if runErr != nil {
		return RunResult{}, runErr
	}
	return r.finish(ctx, reason)
}

func (s *Session) PauseRun(runID string) error {
	return s.sendRunCommand(runID, Command{Kind: CommandPause})
}

func (s *Session) ResumeRun(runID string) error {
	return s.sendRunCommand(runID, Command{Kind: CommandResume})
}

func (s *Session) SetRunSpeed(runID string, ticksPerFrame int) error {
	return s.sendRunCommand(runID, Command{Kind: CommandSetSpeed, Ticks: ticksPerFrame})
}

func (s *Session) InjectDopamine(runID string) error {
	return s.sendRunCommand(runID, Command{Kind: CommandInjectDopamine})
}

func (s *Session) InjectSerotonin(runID string) error {
	return s.sendRunCommand(runID, Command{Kind: CommandInjectSerotonin})
}

func (s *Session) ResetRun(runID string) error {
	return s.sendRunCommand(runID, Command{Kind: CommandReset})
}

func (s *Session) StopRun(runID string) error {
	return s.sendRunCommand(runID, Command{Kind: CommandStop})
}

// Weights returns the last stored weight snapshot of a creature.
func (s *Session) Weights(ctx context.Context, creatureID string) (model.WeightSnapshot, bool, error) {
	if !s.Started() {
		return model.WeightSnapshot{}, false, fmt.Errorf("session is not initialized")
	}
	return s.store.GetWeights(ctx, creatureID)
}

func (s *Session) Generations(ctx context.Context, runID string) ([]model.GenerationSummary, bool, error) {
	if !s.Started() {
		return nil, false, fmt.Errorf("session is not initialized")
	}
	return s.store.ListGenerations(ctx, runID)
}

func (s *Session) GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error) {
	if !s.Started() {
		return model.RunRecord{}, false, fmt.Errorf("session is not initialized")
	}
	return s.store.GetRun(ctx, runID)
}

func (s *Session) loadWeights(ctx context.Context, creatureID string, net *snn.NetworkState) error {
	snapshot, ok, err := s.store.GetWeights(ctx, creatureID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("weights not found: %s", creatureID)
	}
	if err := net.SetWeights(FromModelWeights(snapshot.Weights)); err != nil {
		return fmt.Errorf("load weights %s: %w", creatureID, err)
	}
	log.Printf("platform: loaded %d weights from creature %s generation %d", len(snapshot.Weights), creatureID, snapshot.Generation)
	return nil
}

func (s *Session) registerRunControl(runID string, control chan Command) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return fmt.Errorf("session is not initialized")
	}
	if _, exists := s.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	s.runs[runID] = control
	return nil
}

func (s *Session) unregisterRunControl(runID string) {
	if runID == "" {
		return
	}
	s.mu.Lock()
	delete(s.runs, runID)
	s.mu.Unlock()
}

func (s *Session) sendRunCommand(runID string, cmd Command) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	s.mu.RLock()
	control, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not active: %s", runID)
	}
	select {
	case control <- cmd:
		return nil
	default:
		return fmt.Errorf("run control channel is full: %s", runID)
	}
}

// ToModelWeights converts network weights to their persisted form.
func ToModelWeights(entries []snn.WeightEntry) []model.SynapseWeight {
	out := make([]model.SynapseWeight, len(entries))
	for i, e := range entries {
		out[i] = model.SynapseWeight{Pre: e.Pre, Post: e.Post, Sign: e.Sign.String(), Weight: float64(e.Wt)}
	}
	return out
}

// FromModelWeights converts persisted weights back to network entries. The
// sign is not needed to address a synapse and is left at its zero value.
func FromModelWeights(weights []model.SynapseWeight) []snn.WeightEntry {
	out := make([]snn.WeightEntry, len(weights))
	for i, w := range weights {
		out[i] = snn.WeightEntry{Pre: w.Pre, Post: w.Post, Wt: float32(w.Weight)}
	}
	return out
}
