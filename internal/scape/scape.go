package scape

import "context"

type Fitness float64

type Trace map[string]any

type Agent interface {
	ID() string
}

type TickAgent interface {
	Agent
	Tick(ctx context.Context) ([]float64, error)
}

// RewardAgent receives signed world outcomes between frames.
type RewardAgent interface {
	Agent
	Reward(amount float64)
}

// RespawnAgent is reset when its body dies.
type RespawnAgent interface {
	Agent
	Respawn()
}

type Scape interface {
	Name() string
	Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error)
}
