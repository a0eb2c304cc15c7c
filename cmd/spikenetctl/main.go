package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"spikenet/internal/snn"
	"spikenet/internal/storage"
	"spikenet/pkg/spikenet"
)

const (
	artifactsDir = "runs"
	exportsDir   = "exports"
	dbPath       = "spikenet.db"
)

var (
	out      io.Writer = os.Stdout
	controls io.Reader = os.Stdin
	human    bool
)

func main() {
	human = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "inspect":
		return runInspect(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "generations":
		return runGenerations(ctx, args[1:])
	case "weights":
		return runWeights(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type clientFlags struct {
	storeKind    *string
	dbPath       *string
	artifactsDir *string
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		storeKind:    fs.String("store", storage.DefaultStoreKind, "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", dbPath, "sqlite database path"),
		artifactsDir: fs.String("artifacts-dir", artifactsDir, "run artifacts directory"),
	}
}

func (f clientFlags) open(exports string) (*spikenet.Client, error) {
	return spikenet.New(spikenet.Options{
		StoreKind:    *f.storeKind,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifactsDir,
		ExportsDir:   exports,
	})
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cf := addClientFlags(fs)
	configPath := fs.String("config", "", "optional JSON run config path")
	runID := fs.String("run-id", "", "run id (generated when empty)")
	creatureID := fs.String("creature-id", "", "creature id (generated when empty)")
	resumeFrom := fs.String("resume-from", "", "creature id whose stored weights seed the network")
	frames := fs.Int("frames", 0, "frame budget (0 with -gens 0 runs 3000 frames)")
	generations := fs.Int("gens", 0, "number of lives to run before stopping")
	ticks := fs.Int("ticks", 0, "ticks per frame, clamped to 2-40")
	freshWeights := fs.Bool("fresh-weights", false, "reinitialize weights on every respawn")
	seed := fs.Int64("seed", 0, "network seed")
	worldSeed := fs.Uint64("world-seed", 0, "world seed (defaults to the network seed)")
	width := fs.Float64("width", 0, "arena width")
	height := fs.Float64("height", 0, "arena height")
	food := fs.Int("food", 0, "food items kept in the arena")
	enemies := fs.Int("enemies", 0, "enemies in the arena (-1 for none)")
	poisons := fs.Int("poisons", 0, "poison patches in the arena (-1 for none)")
	progress := fs.Int("progress", 0, "print a frame line every n frames (0 disables)")
	controlStdin := fs.Bool("control-stdin", false, "read run controls from stdin: pause|resume|speed N|dopamine|serotonin|reset|stop")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *progress < 0 {
		return errors.New("progress must be >= 0")
	}
	setFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if err := overrideFromFlags(&req, setFlags, map[string]any{
		"run-id":        *runID,
		"creature-id":   *creatureID,
		"resume-from":   *resumeFrom,
		"frames":        *frames,
		"gens":          *generations,
		"ticks":         *ticks,
		"fresh-weights": *freshWeights,
		"seed":          *seed,
		"world-seed":    *worldSeed,
		"width":         *width,
		"height":        *height,
		"food":          *food,
		"enemies":       *enemies,
		"poisons":       *poisons,
	}); err != nil {
		return err
	}
	if req.RunID == "" && *controlStdin {
		// controls address the run by id, so it must be known up front
		req.RunID = uuid.New().String()
	}
	if *progress > 0 {
		every := *progress
		req.OnFrame = func(f spikenet.FrameInfo) {
			if f.Frame%every != 0 && !f.Died {
				return
			}
			fmt.Fprintf(out, "frame=%s generation=%d energy=%.1f forward=%.3f turn_left=%.3f turn_right=%.3f%s\n",
				count(int64(f.Frame)), f.Generation, f.Energy, f.Forward, f.TurnLeft, f.TurnRight, eventSuffix(f))
		}
	}

	client, err := cf.open(exportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if *controlStdin {
		// the run is registered before its first frame; controls sent
		// earlier would be rejected, so the reader starts there
		var once sync.Once
		onFrame := req.OnFrame
		req.OnFrame = func(f spikenet.FrameInfo) {
			once.Do(func() {
				go readControls(ctx, client, req.RunID, controls)
			})
			if onFrame != nil {
				onFrame(f)
			}
		}
	}

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run completed run_id=%s creature_id=%s frames=%s generations=%d stop=%s\n",
		summary.RunID, summary.CreatureID, count(int64(summary.Frames)), summary.Generations, summary.StopReason)
	lives := summary.Lives
	if lives.Lives > 0 {
		fmt.Fprintf(out, "lives=%d mean_score=%.3f std_score=%.3f min_score=%.3f max_score=%.3f improvement=%.3f food=%d\n",
			lives.Lives, lives.MeanScore, lives.StdScore, lives.MinScore, lives.MaxScore, lives.Improvement, lives.TotalFood)
	}
	fmt.Fprintf(out, "best_score=%.3f ticks=%s ltp=%s ltd=%s dopamine=%.3f serotonin=%.3f\n",
		summary.BestScore,
		count(int64(summary.Snapshot.Tick)),
		count(summary.Snapshot.LTP),
		count(summary.Snapshot.LTD),
		summary.Snapshot.Dopamine,
		summary.Snapshot.Serotonin,
	)
	fmt.Fprintf(out, "artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runInspect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	frames := fs.Int("frames", 1, "frames to drive the network for")
	ticks := fs.Int("ticks", 0, "ticks per frame, clamped to 2-40")
	seed := fs.Int64("seed", 0, "network seed")
	sensors := sensorFlag{}
	fs.Var(sensors, "sensor", "constant sensor input name=value (repeatable)")
	showSynapses := fs.Bool("synapses", false, "print every synapse weight")
	jsonOut := fs.Bool("json", false, "emit the network snapshot as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := spikenet.New(spikenet.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Inspect(ctx, spikenet.InspectRequest{
		Frames:        *frames,
		TicksPerFrame: *ticks,
		Seed:          *seed,
		Sensors:       sensors,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary.Snapshot)
	}

	fmt.Fprintln(out, summary.SizeReport)
	snap := summary.Snapshot
	fmt.Fprintf(out, "tick=%s frames=%d ticks_per_frame=%d generation=%d\n",
		count(int64(snap.Tick)), snap.Frames, snap.TicksPerFrame, snap.Generation)
	fmt.Fprintf(out, "motor forward=%.3f turn_left=%.3f turn_right=%.3f\n",
		summary.Motor.Forward, summary.Motor.TurnLeft, summary.Motor.TurnRight)
	fmt.Fprintf(out, "dopamine=%.3f serotonin=%.3f ltp=%s ltd=%s\n",
		snap.Dopamine, snap.Serotonin, count(snap.LTP), count(snap.LTD))
	if *showSynapses {
		for _, syn := range snap.Synapses {
			fmt.Fprintf(out, "synapse pre=%s post=%s sign=%s weight=%.3f\n", syn.Pre, syn.Post, syn.Sign, syn.Wt)
		}
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dir := fs.String("artifacts-dir", artifactsDir, "run artifacts directory")
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := spikenet.New(spikenet.Options{StoreKind: "memory", ArtifactsDir: *dir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, spikenet.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}
	for _, item := range items {
		fmt.Fprintf(out, "run_id=%s created_at=%s creature_id=%s seed=%d frames=%s gens=%d ticks_per_frame=%d keep_weights=%t best_score=%.3f\n",
			item.RunID,
			when(item.CreatedAtUTC),
			item.CreatureID,
			item.Seed,
			count(int64(item.Frames)),
			item.Generations,
			item.TicksPerFrame,
			item.KeepWeights,
			item.BestScore,
		)
	}
	return nil
}

func runGenerations(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generations", flag.ContinueOnError)
	cf := addClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run from run index")
	limit := fs.Int("limit", 0, "max lives to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit generations as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.open(exportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.Generations(ctx, spikenet.GenerationsRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}
	if len(history) == 0 {
		fmt.Fprintln(out, "no finished lives")
		return nil
	}
	for _, g := range history {
		fmt.Fprintf(out, "generation=%d score=%.3f frames=%s food=%d hits=%d poisoned=%d ltp=%s ltd=%s mean_weight=%.3f\n",
			g.Generation,
			g.Score,
			count(int64(g.Frames)),
			g.FoodEaten,
			g.Hits,
			g.Poisoned,
			count(g.LTP),
			count(g.LTD),
			g.MeanWeight,
		)
	}
	return nil
}

func runWeights(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("weights", flag.ContinueOnError)
	cf := addClientFlags(fs)
	creatureID := fs.String("creature-id", "", "creature id")
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show weights of the most recent run")
	limit := fs.Int("limit", 0, "max synapses to print, strongest first (0 for all)")
	jsonOut := fs.Bool("json", false, "emit weights as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return errors.New("limit must be >= 0")
	}

	client, err := cf.open(exportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	snapshot, err := client.Weights(ctx, spikenet.WeightsRequest{CreatureID: *creatureID, RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	weights := append(snapshot.Weights[:0:0], snapshot.Weights...)
	sort.SliceStable(weights, func(i, j int) bool {
		return weights[i].Weight > weights[j].Weight
	})
	if *limit > 0 && len(weights) > *limit {
		weights = weights[:*limit]
	}
	fmt.Fprintf(out, "creature_id=%s generation=%d tick=%s synapses=%d\n",
		snapshot.CreatureID, snapshot.Generation, count(int64(snapshot.Tick)), len(snapshot.Weights))
	for _, w := range weights {
		fmt.Fprintf(out, "pre=%s post=%s sign=%s weight=%.3f\n", w.Pre, w.Post, w.Sign, w.Weight)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dir := fs.String("artifacts-dir", artifactsDir, "run artifacts directory")
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := spikenet.New(spikenet.Options{StoreKind: "memory", ArtifactsDir: *dir, ExportsDir: *outDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, spikenet.ExportRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "exported run_id=%s to=%s\n", exported.RunID, filepath.Clean(exported.Directory))
	return nil
}

// readControls forwards one control per line to the run until input ends
// or ctx is done. Failed controls are reported and skipped.
func readControls(ctx context.Context, client *spikenet.Client, runID string, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := applyControl(client, runID, line); err != nil {
			fmt.Fprintf(os.Stderr, "control %q: %v\n", line, err)
		}
	}
}

func applyControl(client *spikenet.Client, runID, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return errors.New("empty control")
	}
	switch fields[0] {
	case "pause":
		return client.Pause(runID)
	case "resume":
		return client.Resume(runID)
	case "speed":
		if len(fields) != 2 {
			return errors.New("speed requires ticks per frame")
		}
		ticks, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("parse ticks: %w", err)
		}
		return client.SetSpeed(runID, ticks)
	case "dopamine":
		return client.InjectDopamine(runID)
	case "serotonin":
		return client.InjectSerotonin(runID)
	case "reset":
		return client.Reset(runID)
	case "stop":
		return client.Stop(runID)
	default:
		return fmt.Errorf("unknown control: %s", fields[0])
	}
}

// sensorFlag collects repeated -sensor name=value flags.
type sensorFlag map[string]float64

func (s sensorFlag) String() string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%g", name, s[name]))
	}
	return strings.Join(parts, ",")
}

func (s sensorFlag) Set(value string) error {
	name, raw, ok := strings.Cut(value, "=")
	if !ok || name == "" {
		return fmt.Errorf("sensor must be name=value, got %q", value)
	}
	known := false
	for _, label := range snn.SensorLabels {
		if label == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown sensor: %s", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse sensor %s: %w", name, err)
	}
	s[name] = v
	return nil
}

func eventSuffix(f spikenet.FrameInfo) string {
	var b strings.Builder
	if f.Ate {
		b.WriteString(" ate")
	}
	if f.Hit {
		b.WriteString(" hit")
	}
	if f.Poisoned {
		b.WriteString(" poisoned")
	}
	if f.Died {
		b.WriteString(" died")
	}
	return b.String()
}

// count formats n with thousands separators on a terminal.
func count(n int64) string {
	if human {
		return humanize.Comma(n)
	}
	return strconv.FormatInt(n, 10)
}

// when renders an index timestamp relative to now on a terminal.
func when(createdAtUTC string) string {
	if !human {
		return createdAtUTC
	}
	t, err := time.Parse(time.RFC3339Nano, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.Time(t)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: spikenetctl <run|inspect|runs|generations|weights|export> [flags]", msg)
}
