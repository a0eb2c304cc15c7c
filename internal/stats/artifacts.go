package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"spikenet/internal/model"
)

const (
	runIndexFile    = "run_index.json"
	configFile      = "config.json"
	generationsFile = "generations.json"
	weightsFile     = "weights.json"
	scoreSeriesFile = "score_series.csv"
)

// RunConfig is the on-disk record of the parameters a run was started with.
type RunConfig struct {
	RunID         string  `json:"run_id"`
	CreatureID    string  `json:"creature_id"`
	ResumeFrom    string  `json:"resume_from,omitempty"`
	Frames        int     `json:"frames"`
	Generations   int     `json:"generations"`
	TicksPerFrame int     `json:"ticks_per_frame"`
	KeepWeights   bool    `json:"keep_weights"`
	Seed          int64   `json:"seed"`
	WorldSeed     uint64  `json:"world_seed"`
	Width         float64 `json:"width,omitempty"`
	Height        float64 `json:"height,omitempty"`
	Food          int     `json:"food,omitempty"`
	Enemies       int     `json:"enemies,omitempty"`
	Poisons       int     `json:"poisons,omitempty"`
	Store         string  `json:"store,omitempty"`
}

type RunArtifacts struct {
	Config      RunConfig                 `json:"config"`
	Generations []model.GenerationSummary `json:"generations"`
	Weights     model.WeightSnapshot      `json:"weights"`
	BestScore   float64                   `json:"best_score"`
}

type RunIndexEntry struct {
	RunID         string  `json:"run_id"`
	CreatureID    string  `json:"creature_id"`
	Frames        int     `json:"frames"`
	Generations   int     `json:"generations"`
	TicksPerFrame int     `json:"ticks_per_frame"`
	KeepWeights   bool    `json:"keep_weights"`
	Seed          int64   `json:"seed"`
	BestScore     float64 `json:"best_score"`
	CreatedAtUTC  string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	generations := artifacts.Generations
	if generations == nil {
		generations = []model.GenerationSummary{}
	}
	if err := writeJSON(filepath.Join(runDir, generationsFile), map[string]any{"generations": generations, "best_score": artifacts.BestScore}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, weightsFile), artifacts.Weights); err != nil {
		return "", err
	}
	if err := WriteScoreSeries(runDir, generations); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// later appends win ties
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory into outDir/<run id>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, generationsFile, weightsFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	seriesPath := filepath.Join(src, scoreSeriesFile)
	if _, err := os.Stat(seriesPath); err == nil {
		if err := copyFile(seriesPath, filepath.Join(dst, scoreSeriesFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	if err != nil || !ok {
		return RunConfig{}, ok, err
	}
	return cfg, true, nil
}

func ReadGenerations(baseDir, runID string) ([]model.GenerationSummary, bool, error) {
	var doc struct {
		Generations []model.GenerationSummary `json:"generations"`
	}
	ok, err := readJSON(filepath.Join(baseDir, runID, generationsFile), &doc)
	if err != nil || !ok {
		return nil, ok, err
	}
	return doc.Generations, true, nil
}

func ReadWeights(baseDir, runID string) (model.WeightSnapshot, bool, error) {
	var snapshot model.WeightSnapshot
	ok, err := readJSON(filepath.Join(baseDir, runID, weightsFile), &snapshot)
	if err != nil || !ok {
		return model.WeightSnapshot{}, ok, err
	}
	return snapshot, true, nil
}

// WriteScoreSeries writes one CSV row per generation.
func WriteScoreSeries(runDir string, generations []model.GenerationSummary) error {
	file, err := os.Create(filepath.Join(runDir, scoreSeriesFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "score", "frames", "food_eaten", "hits", "poisoned", "ltp", "ltd", "mean_weight"}); err != nil {
		return err
	}
	for _, g := range generations {
		if err := writer.Write([]string{
			strconv.Itoa(g.Generation),
			strconv.FormatFloat(g.Score, 'f', -1, 64),
			strconv.Itoa(g.Frames),
			strconv.Itoa(g.FoodEaten),
			strconv.Itoa(g.Hits),
			strconv.Itoa(g.Poisoned),
			strconv.FormatInt(g.LTP, 10),
			strconv.FormatInt(g.LTD, 10),
			strconv.FormatFloat(g.MeanWeight, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadScoreSeries returns the score column of a run's series.
func ReadScoreSeries(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, scoreSeriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("score series header must have at least 2 columns")
	}

	series := make([]float64, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
