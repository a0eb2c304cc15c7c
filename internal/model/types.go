package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// SynapseWeight is one learned weight keyed by neuron labels.
type SynapseWeight struct {
	Pre    string  `json:"pre"`
	Post   string  `json:"post"`
	Sign   string  `json:"sign"`
	Weight float64 `json:"weight"`
}

// WeightSnapshot is the full weight array of a creature at some generation.
type WeightSnapshot struct {
	VersionedRecord
	CreatureID string          `json:"creature_id"`
	Generation int             `json:"generation"`
	Tick       int             `json:"tick"`
	Weights    []SynapseWeight `json:"weights"`
}

// GenerationSummary records one creature life, from spawn to death.
type GenerationSummary struct {
	VersionedRecord
	RunID      string  `json:"run_id"`
	Generation int     `json:"generation"`
	Frames     int     `json:"frames"`
	Ticks      int     `json:"ticks"`
	Score      float64 `json:"score"`
	FoodEaten  int     `json:"food_eaten"`
	Hits       int     `json:"hits"`
	Poisoned   int     `json:"poisoned"`
	LTP        int64   `json:"ltp"`
	LTD        int64   `json:"ltd"`
	MeanWeight float64 `json:"mean_weight"`
}

// RunRecord describes one session run.
type RunRecord struct {
	VersionedRecord
	ID            string    `json:"id"`
	CreatureID    string    `json:"creature_id"`
	Seed          int64     `json:"seed"`
	TicksPerFrame int       `json:"ticks_per_frame"`
	KeepWeights   bool      `json:"keep_weights"`
	Frames        int       `json:"frames"`
	Generations   int       `json:"generations"`
	BestScore     float64   `json:"best_score"`
	StartedAtUTC  time.Time `json:"started_at_utc"`
	FinishedAtUTC time.Time `json:"finished_at_utc"`
}
