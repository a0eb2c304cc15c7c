package main

import (
	"encoding/json"
	"fmt"
	"os"

	"spikenet/pkg/spikenet"
)

func loadRunRequestFromConfig(path string) (spikenet.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return spikenet.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return spikenet.RunRequest{}, err
	}

	var req spikenet.RunRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["creature_id"]); ok {
		req.CreatureID = v
	}
	if v, ok := asString(raw["resume_from"]); ok {
		req.ResumeFrom = v
	}
	if v, ok := asInt(raw["frames"]); ok {
		req.Frames = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asInt(raw["ticks_per_frame"]); ok {
		req.TicksPerFrame = v
	}
	if v, ok := asBool(raw["keep_weights"]); ok {
		req.KeepWeights = &v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}

	// world settings sit at the top level or under "world", where the
	// seed key is plain "seed"
	world := raw
	seedKey := "world_seed"
	if nested, ok := raw["world"].(map[string]any); ok {
		world = nested
		seedKey = "seed"
	}
	if v, ok := asInt64(world[seedKey]); ok && v >= 0 {
		req.WorldSeed = uint64(v)
	}
	if v, ok := asFloat64(world["width"]); ok {
		req.Width = v
	}
	if v, ok := asFloat64(world["height"]); ok {
		req.Height = v
	}
	if v, ok := asInt(world["food"]); ok {
		req.Food = v
	}
	if v, ok := asInt(world["enemies"]); ok {
		req.Enemies = v
	}
	if v, ok := asInt(world["poisons"]); ok {
		req.Poisons = v
	}

	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func overrideFromFlags(req *spikenet.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "creature-id":
			req.CreatureID = v.(string)
		case "resume-from":
			req.ResumeFrom = v.(string)
		case "frames":
			req.Frames = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "ticks":
			req.TicksPerFrame = v.(int)
		case "fresh-weights":
			keep := !v.(bool)
			req.KeepWeights = &keep
		case "seed":
			req.Seed = v.(int64)
		case "world-seed":
			req.WorldSeed = v.(uint64)
		case "width":
			req.Width = v.(float64)
		case "height":
			req.Height = v.(float64)
		case "food":
			req.Food = v.(int)
		case "enemies":
			req.Enemies = v.(int)
		case "poisons":
			req.Poisons = v.(int)
		}
	}
	if req.Frames < 0 || req.Generations < 0 {
		return fmt.Errorf("frames and generations must be >= 0")
	}
	if req.TicksPerFrame < 0 {
		return fmt.Errorf("ticks must be >= 0")
	}
	return nil
}

func loadOrDefaultRunRequest(configPath string) (spikenet.RunRequest, error) {
	if configPath == "" {
		return spikenet.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return spikenet.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
