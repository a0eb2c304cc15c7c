package spikenet

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"spikenet/internal/model"
	"spikenet/internal/platform"
	"spikenet/internal/scape"
	"spikenet/internal/snn"
	"spikenet/internal/stats"
	"spikenet/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "spikenet.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
}

type Client struct {
	store     storage.Store
	storeKind string

	mu      sync.Mutex
	session *platform.Session

	artifactsDir string
	exportsDir   string
}

type RunRequest struct {
	RunID       string
	CreatureID  string
	ResumeFrom  string
	Frames      int
	Generations int

	TicksPerFrame int
	// KeepWeights nil keeps the default (persist across respawn).
	KeepWeights *bool
	Seed        int64

	WorldSeed uint64
	Width     float64
	Height    float64
	Food      int
	Enemies   int
	Poisons   int

	OnFrame func(FrameInfo)
}

// FrameInfo is reported after every simulated frame of a run.
type FrameInfo struct {
	RunID      string
	Frame      int
	Generation int
	Forward    float64
	TurnLeft   float64
	TurnRight  float64
	Energy     float64
	Ate        bool
	Hit        bool
	Poisoned   bool
	Died       bool
}

type RunSummary struct {
	RunID        string
	CreatureID   string
	ArtifactsDir string
	Frames       int
	Generations  int
	BestScore    float64
	StopReason   string
	Lives        stats.LifeSummary
	Snapshot     snn.Snapshot
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID         string
	CreatedAtUTC  string
	CreatureID    string
	Seed          int64
	Frames        int
	Generations   int
	TicksPerFrame int
	KeepWeights   bool
	BestScore     float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type GenerationsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type WeightsRequest struct {
	CreatureID string
	RunID      string
	Latest     bool
}

type InspectRequest struct {
	Frames        int
	TicksPerFrame int
	Seed          int64
	Sensors       map[string]float64
}

type InspectSummary struct {
	SizeReport string
	Motor      snn.MotorCommand
	Snapshot   snn.Snapshot
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		storeKind:    storeKind,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.session != nil {
		c.session.Stop()
	}
	c.mu.Unlock()
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureSession(ctx)
	return err
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Frames < 0 || req.Generations < 0 {
		return RunSummary{}, errors.New("frames and generations must be >= 0")
	}
	if req.Frames == 0 && req.Generations == 0 {
		req.Frames = 3000
	}
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}
	if req.CreatureID == "" {
		req.CreatureID = uuid.New().String()
	}

	params := snn.DefaultParams()
	if req.TicksPerFrame > 0 {
		params.Frame.TicksPerFrame = params.Frame.ClampTicks(req.TicksPerFrame)
	}
	if req.KeepWeights != nil {
		params.KeepWeights = *req.KeepWeights
	}
	if req.Seed != 0 {
		params.Seed = req.Seed
	}
	if err := params.Validate(); err != nil {
		return RunSummary{}, err
	}
	world := scape.ForageConfig{
		Width:   req.Width,
		Height:  req.Height,
		Food:    req.Food,
		Enemies: req.Enemies,
		Poisons: req.Poisons,
		Seed:    req.WorldSeed,
	}
	if world.Seed == 0 {
		world.Seed = uint64(params.Seed)
	}

	s, err := c.ensureSession(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	cfg := platform.RunConfig{
		RunID:       req.RunID,
		CreatureID:  req.CreatureID,
		Params:      params,
		World:       world,
		Frames:      req.Frames,
		Generations: req.Generations,
		ResumeFrom:  req.ResumeFrom,
	}
	if req.OnFrame != nil {
		cfg.OnFrame = func(r platform.FrameReport) {
			req.OnFrame(FrameInfo{
				RunID:      req.RunID,
				Frame:      r.Frame,
				Generation: r.Generation,
				Forward:    r.Motor.Forward,
				TurnLeft:   r.Motor.TurnLeft,
				TurnRight:  r.Motor.TurnRight,
				Energy:     r.Energy,
				Ate:        r.Events.Ate,
				Hit:        r.Events.Hit,
				Poisoned:   r.Events.Poisoned,
				Died:       r.Events.Died,
			})
		}
	}
	result, err := s.Run(ctx, cfg)
	if err != nil {
		return RunSummary{}, err
	}

	run := result.Run
	world.Defaults()
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:         run.ID,
			CreatureID:    run.CreatureID,
			ResumeFrom:    req.ResumeFrom,
			Frames:        req.Frames,
			Generations:   req.Generations,
			TicksPerFrame: params.Frame.TicksPerFrame,
			KeepWeights:   run.KeepWeights,
			Seed:          run.Seed,
			WorldSeed:     world.Seed,
			Width:         world.Width,
			Height:        world.Height,
			Food:          world.Food,
			Enemies:       world.Enemies,
			Poisons:       world.Poisons,
			Store:         c.storeKind,
		},
		Generations: result.Generations,
		Weights:     result.Weights,
		BestScore:   run.BestScore,
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:         run.ID,
		CreatureID:    run.CreatureID,
		Frames:        run.Frames,
		Generations:   run.Generations,
		TicksPerFrame: run.TicksPerFrame,
		KeepWeights:   run.KeepWeights,
		Seed:          run.Seed,
		BestScore:     run.BestScore,
		CreatedAtUTC:  run.StartedAtUTC.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:        run.ID,
		CreatureID:   run.CreatureID,
		ArtifactsDir: filepath.Clean(runDir),
		Frames:       run.Frames,
		Generations:  run.Generations,
		BestScore:    run.BestScore,
		StopReason:   string(result.StopReason),
		Lives:        stats.SummarizeLives(result.Generations),
		Snapshot:     result.Snapshot,
	}, nil
}

// Pause, Resume, SetSpeed, InjectDopamine, InjectSerotonin, Reset and Stop
// control a run that is in progress on this client.

func (c *Client) Pause(runID string) error {
	return c.withSession(func(s *platform.Session) error { return s.PauseRun(runID) })
}

func (c *Client) Resume(runID string) error {
	return c.withSession(func(s *platform.Session) error { return s.ResumeRun(runID) })
}

func (c *Client) SetSpeed(runID string, ticksPerFrame int) error {
	return c.withSession(func(s *platform.Session) error { return s.SetRunSpeed(runID, ticksPerFrame) })
}

func (c *Client) InjectDopamine(runID string) error {
	return c.withSession(func(s *platform.Session) error { return s.InjectDopamine(runID) })
}

func (c *Client) InjectSerotonin(runID string) error {
	return c.withSession(func(s *platform.Session) error { return s.InjectSerotonin(runID) })
}

func (c *Client) Reset(runID string) error {
	return c.withSession(func(s *platform.Session) error { return s.ResetRun(runID) })
}

func (c *Client) Stop(runID string) error {
	return c.withSession(func(s *platform.Session) error { return s.StopRun(runID) })
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:         e.RunID,
			CreatedAtUTC:  e.CreatedAtUTC,
			CreatureID:    e.CreatureID,
			Seed:          e.Seed,
			Frames:        e.Frames,
			Generations:   e.Generations,
			TicksPerFrame: e.TicksPerFrame,
			KeepWeights:   e.KeepWeights,
			BestScore:     e.BestScore,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Generations returns the stored life history of a run, oldest first.
func (c *Client) Generations(ctx context.Context, req GenerationsRequest) ([]model.GenerationSummary, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "generations")
	if err != nil {
		return nil, err
	}

	s, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	history, ok, err := s.Generations(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// fall back to artifacts written by a run against another store
		history, ok, err = stats.ReadGenerations(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("generations not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]model.GenerationSummary(nil), history...), nil
}

// Weights returns the stored weight snapshot of a creature, given directly
// or through the run that trained it.
func (c *Client) Weights(ctx context.Context, req WeightsRequest) (model.WeightSnapshot, error) {
	creatureID := req.CreatureID
	if creatureID != "" && (req.RunID != "" || req.Latest) {
		return model.WeightSnapshot{}, errors.New("use either creature id or run id/latest")
	}
	runID := ""
	if creatureID == "" {
		var err error
		runID, err = c.resolveRunID(req.RunID, req.Latest, "weights")
		if err != nil {
			return model.WeightSnapshot{}, err
		}
		cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
		if err != nil {
			return model.WeightSnapshot{}, err
		}
		if !ok {
			return model.WeightSnapshot{}, fmt.Errorf("run config not found for run id: %s", runID)
		}
		creatureID = cfg.CreatureID
	}

	s, err := c.ensureSession(ctx)
	if err != nil {
		return model.WeightSnapshot{}, err
	}
	snapshot, ok, err := s.Weights(ctx, creatureID)
	if err != nil {
		return model.WeightSnapshot{}, err
	}
	if !ok && runID != "" {
		snapshot, ok, err = stats.ReadWeights(c.artifactsDir, runID)
		if err != nil {
			return model.WeightSnapshot{}, err
		}
	}
	if !ok {
		return model.WeightSnapshot{}, fmt.Errorf("weights not found for creature id: %s", creatureID)
	}
	return snapshot, nil
}

// Inspect builds a fresh creature network, drives it for a number of frames
// with constant sensor input and reports its state and memory footprint.
func (c *Client) Inspect(_ context.Context, req InspectRequest) (InspectSummary, error) {
	if req.Frames < 0 {
		return InspectSummary{}, errors.New("frames must be >= 0")
	}
	params := snn.DefaultParams()
	if req.TicksPerFrame > 0 {
		params.Frame.TicksPerFrame = params.Frame.ClampTicks(req.TicksPerFrame)
	}
	if req.Seed != 0 {
		params.Seed = req.Seed
	}
	values := make([]float64, snn.NumSensors)
	for name, v := range req.Sensors {
		idx := sensorIndex(name)
		if idx < 0 {
			return InspectSummary{}, fmt.Errorf("unknown sensor: %s", name)
		}
		values[idx] = v
	}
	sv, err := snn.NewSensorVector(values)
	if err != nil {
		return InspectSummary{}, err
	}

	st, err := snn.NewCreatureStepper(params)
	if err != nil {
		return InspectSummary{}, err
	}
	var motor snn.MotorCommand
	for i := 0; i < req.Frames; i++ {
		motor = st.Advance(sv)
	}
	return InspectSummary{
		SizeReport: st.Net.SizeReport(),
		Motor:      motor,
		Snapshot:   st.Snapshot(),
	}, nil
}

func (c *Client) resolveRunID(runID string, latest bool, op string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", op)
	}
	return runID, nil
}

func (c *Client) ensureSession(ctx context.Context) (*platform.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session, nil
	}
	s := platform.NewSession(platform.Config{Store: c.store})
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	c.session = s
	return c.session, nil
}

func (c *Client) withSession(fn func(*platform.Session) error) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return errors.New("no active session")
	}
	return fn(s)
}

func sensorIndex(name string) int {
	for i, label := range snn.SensorLabels {
		if label == name {
			return i
		}
	}
	return -1
}
