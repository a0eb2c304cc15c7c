package stats

import (
	"math"

	"spikenet/internal/model"
)

// LifeSummary aggregates the generation history of a run.
type LifeSummary struct {
	Lives          int     `json:"lives"`
	MeanScore      float64 `json:"mean_score"`
	StdScore       float64 `json:"std_score"`
	MinScore       float64 `json:"min_score"`
	MaxScore       float64 `json:"max_score"`
	MeanFrames     float64 `json:"mean_frames"`
	TotalFood      int     `json:"total_food"`
	TotalLTP       int64   `json:"total_ltp"`
	TotalLTD       int64   `json:"total_ltd"`
	Improvement    float64 `json:"improvement"`
	LastMeanWeight float64 `json:"last_mean_weight"`
}

// SummarizeLives computes score statistics over a run. Improvement is the
// last life's score minus the first's.
func SummarizeLives(generations []model.GenerationSummary) LifeSummary {
	out := LifeSummary{Lives: len(generations)}
	if len(generations) == 0 {
		return out
	}
	scores := make([]float64, len(generations))
	frames := 0
	for i, g := range generations {
		scores[i] = g.Score
		frames += g.Frames
		out.TotalFood += g.FoodEaten
		out.TotalLTP += g.LTP
		out.TotalLTD += g.LTD
	}
	out.MeanScore = mean(scores)
	out.StdScore = std(scores, out.MeanScore)
	out.MinScore, out.MaxScore = scores[0], scores[0]
	for _, s := range scores[1:] {
		out.MinScore = math.Min(out.MinScore, s)
		out.MaxScore = math.Max(out.MaxScore, s)
	}
	out.MeanFrames = float64(frames) / float64(len(generations))
	out.Improvement = scores[len(scores)-1] - scores[0]
	out.LastMeanWeight = generations[len(generations)-1].MeanWeight
	return out
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func std(values []float64, mu float64) float64 {
	acc := 0.0
	for _, v := range values {
		d := v - mu
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(values)))
}
