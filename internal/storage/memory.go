package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"spikenet/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	weights     map[string]model.WeightSnapshot
	generations map[string][]model.GenerationSummary
	runs        map[string]model.RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.weights = make(map[string]model.WeightSnapshot)
	s.generations = make(map[string][]model.GenerationSummary)
	s.runs = make(map[string]model.RunRecord)
	return nil
}

func (s *MemoryStore) SaveWeights(_ context.Context, snapshot model.WeightSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	snapshot.Weights = append([]model.SynapseWeight(nil), snapshot.Weights...)
	s.weights[snapshot.CreatureID] = snapshot
	return nil
}

func (s *MemoryStore) GetWeights(_ context.Context, creatureID string) (model.WeightSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.weights[creatureID]
	if !ok {
		return model.WeightSnapshot{}, false, nil
	}
	snapshot.Weights = append([]model.SynapseWeight(nil), snapshot.Weights...)
	return snapshot, true, nil
}

// SaveGeneration stores a summary, replacing an existing one for the same
// generation of the run.
func (s *MemoryStore) SaveGeneration(_ context.Context, summary model.GenerationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	history := s.generations[summary.RunID]
	for i := range history {
		if history[i].Generation == summary.Generation {
			history[i] = summary
			return nil
		}
	}
	history = append(history, summary)
	sort.Slice(history, func(i, j int) bool { return history[i].Generation < history[j].Generation })
	s.generations[summary.RunID] = history
	return nil
}

func (s *MemoryStore) ListGenerations(_ context.Context, runID string) ([]model.GenerationSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.generations[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationSummary, len(history))
	copy(copied, history)
	return copied, true, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

var errNotInitialized = errors.New("store is not initialized")
