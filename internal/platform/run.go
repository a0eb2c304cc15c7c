package platform

import (
	"context"
	"log"
	"math"
	"time"

	"spikenet/internal/agent"
	"spikenet/internal/model"
	"spikenet/internal/scape"
	"spikenet/internal/snn"
	"spikenet/internal/storage"
)

type activeRun struct {
	session *Session
	cfg     RunConfig
	stepper *snn.Stepper
	rec     *lifeRecorder
	world   *scape.ForageWorld
	runner  *scape.ForageRunner
	control chan Command

	record      model.RunRecord
	generations []model.GenerationSummary
}

func (r *activeRun) loop(ctx context.Context) (StopReason, error) {
	for {
		if r.cfg.Frames > 0 && r.record.Frames >= r.cfg.Frames {
			return StopReasonBudget, nil
		}
		if r.cfg.Generations > 0 && r.record.Generations >= r.cfg.Generations {
			return StopReasonBudget, nil
		}
		if ctx.Err() != nil {
			return StopReasonCancelled, nil
		}

		stop, err := r.drain(ctx)
		if ctx.Err() != nil {
			return StopReasonCancelled, nil
		}
		if err != nil {
			return "", err
		}
		if stop {
			return StopReasonCommand, nil
		}
		if r.cfg.Generations > 0 && r.record.Generations >= r.cfg.Generations {
			return StopReasonBudget, nil
		}

		ev, err := r.runner.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return StopReasonCancelled, nil
			}
			return "", err
		}
		r.record.Frames++
		if ev.Died {
			if err := r.endLife(ctx, ev.Life); err != nil {
				return "", err
			}
		}
		if r.cfg.OnFrame != nil {
			r.cfg.OnFrame(FrameReport{
				Frame:      r.record.Frames,
				Generation: r.world.Life().Generation,
				Motor:      r.stepper.LastCommand(),
				Events:     ev,
				Energy:     r.world.Energy,
			})
		}
	}
}

// drain applies every queued command. While the stepper is paused it blocks
// until a command or cancellation arrives.
func (r *activeRun) drain(ctx context.Context) (bool, error) {
	for {
		if r.stepper.Paused() {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case cmd := <-r.control:
				if stop, err := r.apply(ctx, cmd); stop || err != nil {
					return stop, err
				}
			}
			continue
		}
		select {
		case cmd := <-r.control:
			if stop, err := r.apply(ctx, cmd); stop || err != nil {
				return stop, err
			}
		default:
			return false, nil
		}
	}
}

func (r *activeRun) apply(ctx context.Context, cmd Command) (bool, error) {
	switch cmd.Kind {
	case CommandPause:
		r.stepper.Pause()
		log.Printf("platform: run %s paused", r.cfg.RunID)
	case CommandResume:
		r.stepper.Resume()
		log.Printf("platform: run %s resumed", r.cfg.RunID)
	case CommandSetSpeed:
		r.record.TicksPerFrame = r.stepper.SetSpeed(cmd.Ticks)
	case CommandInjectDopamine:
		r.stepper.InjectDopamine()
	case CommandInjectSerotonin:
		r.stepper.InjectSerotonin()
	case CommandReset:
		life := r.world.Reset()
		r.rec.Respawn()
		return false, r.endLife(ctx, life)
	case CommandStop:
		return true, nil
	default:
		log.Printf("platform: run %s ignored unsupported command %q", r.cfg.RunID, cmd.Kind)
	}
	return false, nil
}

func (r *activeRun) endLife(ctx context.Context, life scape.LifeStats) error {
	net := r.rec.take()
	summary := model.GenerationSummary{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           r.cfg.RunID,
		Generation:      life.Generation,
		Frames:          life.Frames,
		Ticks:           net.ticks,
		Score:           life.Score,
		FoodEaten:       life.FoodEaten,
		Hits:            life.Hits,
		Poisoned:        life.Poisoned,
		LTP:             net.ltp,
		LTD:             net.ltd,
		MeanWeight:      net.meanWeight,
	}
	if err := r.session.store.SaveGeneration(ctx, summary); err != nil {
		return err
	}
	r.generations = append(r.generations, summary)
	r.record.Generations++
	r.record.BestScore = math.Max(r.record.BestScore, life.Score)

	if r.record.KeepWeights {
		snapshot := model.WeightSnapshot{
			VersionedRecord: storage.CurrentVersion(),
			CreatureID:      r.cfg.CreatureID,
			Generation:      life.Generation,
			Tick:            net.ticks,
			Weights:         ToModelWeights(net.weights),
		}
		if err := r.session.store.SaveWeights(ctx, snapshot); err != nil {
			return err
		}
	}
	log.Printf("platform: run %s generation %d ended frames=%d score=%.0f food=%d hits=%d",
		r.cfg.RunID, life.Generation, life.Frames, life.Score, life.FoodEaten, life.Hits)
	return nil
}

func (r *activeRun) finish(ctx context.Context, reason StopReason) (RunResult, error) {
	// persist even when the run ended through cancellation
	ctx = context.WithoutCancel(ctx)

	net := r.stepper.Net
	weights := model.WeightSnapshot{
		VersionedRecord: storage.CurrentVersion(),
		CreatureID:      r.cfg.CreatureID,
		Generation:      net.Generation,
		Tick:            net.Tick,
		Weights:         ToModelWeights(net.Weights()),
	}
	if err := r.session.store.SaveWeights(ctx, weights); err != nil {
		return RunResult{}, err
	}

	r.record.BestScore = math.Max(r.record.BestScore, r.world.BestScore())
	r.record.FinishedAtUTC = time.Now().UTC()
	if err := r.session.store.SaveRun(ctx, r.record); err != nil {
		return RunResult{}, err
	}
	log.Printf("platform: run %s finished reason=%s frames=%d generations=%d best=%.0f",
		r.cfg.RunID, reason, r.record.Frames, r.record.Generations, r.record.BestScore)

	return RunResult{
		Run:         r.record,
		Generations: append([]model.GenerationSummary(nil), r.generations...),
		Weights:     weights,
		Snapshot:    r.stepper.Snapshot(),
		StopReason:  reason,
	}, nil
}

type lifeNet struct {
	ticks      int
	ltp, ltd   int64
	meanWeight float64
	weights    []snn.WeightEntry
}

// lifeRecorder captures the network counters of a life just before the
// creature respawns and its dynamic state is cleared.
type lifeRecorder struct {
	*agent.Creature

	last  lifeNet
	ended bool
}

func (r *lifeRecorder) Respawn() {
	r.last = captureLife(r.Stepper().Net)
	r.ended = true
	r.Creature.Respawn()
}

func (r *lifeRecorder) take() lifeNet {
	if !r.ended {
		return captureLife(r.Stepper().Net)
	}
	r.ended = false
	return r.last
}

func captureLife(net *snn.NetworkState) lifeNet {
	return lifeNet{
		ticks:      net.Tick,
		ltp:        net.Traces.LTP,
		ltd:        net.Traces.LTD,
		meanWeight: meanWeight(net.Mat.Synapses),
		weights:    net.Weights(),
	}
}

func meanWeight(syns []snn.Synapse) float64 {
	if len(syns) == 0 {
		return 0
	}
	var sum float64
	for _, sy := range syns {
		sum += float64(sy.Wt)
	}
	return sum / float64(len(syns))
}
