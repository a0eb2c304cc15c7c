package scape

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/rand"

	spikeio "spikenet/internal/io"
)

// ForageConfig sets up the arena. Zero fields take defaults; a negative
// enemy or poison count means none.
type ForageConfig struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Food    int     `json:"food"`
	Enemies int     `json:"enemies"`
	Poisons int     `json:"poisons"`

	// frames run by Evaluate
	MaxFrames int `json:"max_frames"`

	Seed uint64 `json:"seed"`
}

func (c *ForageConfig) Defaults() {
	if c.Width <= 0 {
		c.Width = 600
	}
	if c.Height <= 0 {
		c.Height = 600
	}
	if c.Food <= 0 {
		c.Food = 8
	}
	if c.Enemies < 0 {
		c.Enemies = 0
	} else if c.Enemies == 0 {
		c.Enemies = 3
	}
	if c.Poisons < 0 {
		c.Poisons = 0
	} else if c.Poisons == 0 {
		c.Poisons = 3
	}
	if c.MaxFrames <= 0 {
		c.MaxFrames = 3000
	}
}

const (
	sensorRange  = 200.0
	fieldOfView  = math.Pi * 0.85
	frontCone    = 0.4
	nearFood     = 60.0
	nearDanger   = 70.0
	enemyDanger  = 1.5
	poisonDanger = 1.0

	turnSpeed = 0.12
	maxTurn   = 0.35
	fwdGain   = 0.6
	maxSpeed  = 3.5
	bodyClamp = 12.0

	spawnMargin = 50.0
	wallMargin  = 10.0
	wallStep    = 10.0
	wallSteps   = 7

	maxEnergy   = 100.0
	foodEnergy  = 30.0
	foodScore   = 10.0
	enemyDamage = 2.0
	poisonDmg   = 1.2
	frameCost   = 0.01
	eatRadius   = 18.0
	hitRadius   = 20.0
	poisonRad   = 18.0
	minFood     = 4

	enemyPursuit = 0.008
	enemyJitter  = 0.12
	enemyMaxSpd  = 0.6
	enemyTurnP   = 0.02
	enemyBounce  = 15.0
	enemyClamp   = 10.0

	RewardFood   = 3.0
	RewardHit    = -2.0
	RewardPoison = -1.5
)

type food struct {
	X, Y  float64
	Alive bool
}

type enemy struct {
	X, Y, VX, VY float64
}

type point struct {
	X, Y float64
}

// LifeStats summarizes one life of the creature.
type LifeStats struct {
	Generation int
	Frames     int
	Score      float64
	FoodEaten  int
	Hits       int
	Poisoned   int
}

// FrameEvents reports what happened during one world frame.
type FrameEvents struct {
	Ate      bool
	Hit      bool
	Poisoned bool
	Rewards  []float64

	// Died is set when energy ran out; Life then holds the finished life.
	Died bool
	Life LifeStats
}

// ForageWorld is the arena: one creature body, food, drifting enemies and
// static poisons. It is not safe for concurrent use.
type ForageWorld struct {
	cfg ForageConfig
	rng *rand.Rand

	X, Y, Heading float64
	Energy        float64

	life      LifeStats
	bestScore float64
	pain      bool

	foods   []food
	enemies []enemy
	poisons []point
}

// NewForageWorld builds and populates an arena.
func NewForageWorld(cfg ForageConfig) *ForageWorld {
	cfg.Defaults()
	w := &ForageWorld{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	w.life.Generation = 1
	w.respawnBody()
	w.spawn()
	return w
}

func (w *ForageWorld) respawnBody() {
	w.X, w.Y = w.cfg.Width/2, w.cfg.Height/2
	w.Heading = w.rng.Float64() * 2 * math.Pi
	w.Energy = maxEnergy
	w.pain = false
}

func (w *ForageWorld) spawn() {
	w.foods = make([]food, w.cfg.Food)
	for i := range w.foods {
		w.foods[i] = food{X: w.spawnX(), Y: w.spawnY(), Alive: true}
	}
	w.enemies = make([]enemy, w.cfg.Enemies)
	for i := range w.enemies {
		a := w.rng.Float64() * 2 * math.Pi
		sp := 0.15 + w.rng.Float64()*0.25
		w.enemies[i] = enemy{X: w.spawnX(), Y: w.spawnY(), VX: math.Cos(a) * sp, VY: math.Sin(a) * sp}
	}
	w.poisons = make([]point, w.cfg.Poisons)
	for i := range w.poisons {
		w.poisons[i] = point{X: w.spawnX(), Y: w.spawnY()}
	}
}

func (w *ForageWorld) spawnX() float64 {
	return spawnMargin + w.rng.Float64()*(w.cfg.Width-2*spawnMargin)
}

func (w *ForageWorld) spawnY() float64 {
	return spawnMargin + w.rng.Float64()*(w.cfg.Height-2*spawnMargin)
}

// Life returns the stats of the current life.
func (w *ForageWorld) Life() LifeStats {
	return w.life
}

// BestScore is the highest score of any finished or running life.
func (w *ForageWorld) BestScore() float64 {
	return math.Max(w.bestScore, w.life.Score)
}

// relAngle is the bearing of (tx, ty) relative to the heading, in [-pi, pi].
func (w *ForageWorld) relAngle(tx, ty float64) float64 {
	rel := math.Atan2(ty-w.Y, tx-w.X) - w.Heading
	for rel > math.Pi {
		rel -= 2 * math.Pi
	}
	for rel < -math.Pi {
		rel += 2 * math.Pi
	}
	return rel
}

// Sense returns the 13-channel sensor vector in the creature's layout.
func (w *ForageWorld) Sense() []float64 {
	var (
		foodFront, foodLeft, foodRight, foodNear float64
		dangFront, dangLeft, dangRight, dangNear float64
	)

	for _, f := range w.foods {
		if !f.Alive {
			continue
		}
		dist := math.Hypot(f.X-w.X, f.Y-w.Y)
		if dist > sensorRange || dist < 1 {
			continue
		}
		angle := w.relAngle(f.X, f.Y)
		s := 1 - dist/sensorRange
		inView := math.Abs(angle) < fieldOfView/2
		if inView {
			switch {
			case math.Abs(angle) < frontCone:
				foodFront = math.Max(foodFront, s)
			case angle < 0:
				foodLeft = math.Max(foodLeft, s)
			default:
				foodRight = math.Max(foodRight, s)
			}
		}
		if dist < nearFood {
			foodNear = math.Max(foodNear, math.Min(1, s*2.5))
			if !inView {
				if angle < 0 {
					foodLeft = math.Max(foodLeft, s*0.5)
				} else {
					foodRight = math.Max(foodRight, s*0.5)
				}
			}
		}
	}

	type danger struct{ x, y, mult float64 }
	dangers := make([]danger, 0, len(w.enemies)+len(w.poisons))
	for _, e := range w.enemies {
		dangers = append(dangers, danger{e.X, e.Y, enemyDanger})
	}
	for _, p := range w.poisons {
		dangers = append(dangers, danger{p.X, p.Y, poisonDanger})
	}
	for _, d := range dangers {
		dist := math.Hypot(d.x-w.X, d.y-w.Y)
		if dist > sensorRange || dist < 1 {
			continue
		}
		angle := w.relAngle(d.x, d.y)
		s := (1 - dist/sensorRange) * d.mult
		inView := math.Abs(angle) < fieldOfView/2
		if inView {
			switch {
			case math.Abs(angle) < frontCone:
				dangFront = math.Max(dangFront, s)
			case angle < 0:
				dangLeft = math.Max(dangLeft, s)
			default:
				dangRight = math.Max(dangRight, s)
			}
		}
		if dist < nearDanger {
			dangNear = math.Max(dangNear, math.Min(1, s*2))
			if !inView {
				if angle < 0 {
					dangLeft = math.Max(dangLeft, s*0.4)
				} else {
					dangRight = math.Max(dangRight, s*0.4)
				}
			}
		}
	}

	pain := 0.0
	if w.pain {
		pain = 1
	}
	return []float64{
		foodFront, foodLeft, foodRight, foodNear,
		dangFront, dangLeft, dangRight, dangNear,
		w.wallRay(0), w.wallRay(-0.7), w.wallRay(0.7),
		math.Max(0, 1-w.Energy/maxEnergy),
		pain,
	}
}

func (w *ForageWorld) wallRay(offset float64) float64 {
	a := w.Heading + offset
	for step := 1; step <= wallSteps; step++ {
		px := w.X + math.Cos(a)*float64(step)*wallStep
		py := w.Y + math.Sin(a)*float64(step)*wallStep
		if px < wallMargin || px > w.cfg.Width-wallMargin || py < wallMargin || py > w.cfg.Height-wallMargin {
			return 1 - float64(step)/8
		}
	}
	return 0
}

// Move applies a motor command: forward, turn left, turn right.
func (w *ForageWorld) Move(cmd []float64) {
	var fwd, tl, tr float64
	if len(cmd) > 0 {
		fwd = cmd[0]
	}
	if len(cmd) > 1 {
		tl = cmd[1]
	}
	if len(cmd) > 2 {
		tr = cmd[2]
	}

	turn := clamp((tr-tl)*turnSpeed, -maxTurn, maxTurn)
	w.Heading = math.Mod(w.Heading+turn, 2*math.Pi)
	if w.Heading < 0 {
		w.Heading += 2 * math.Pi
	}
	if fwd > 0 {
		speed := math.Min(fwd*fwdGain, maxSpeed)
		w.X += math.Cos(w.Heading) * speed
		w.Y += math.Sin(w.Heading) * speed
	}
	w.X = clamp(w.X, bodyClamp, w.cfg.Width-bodyClamp)
	w.Y = clamp(w.Y, bodyClamp, w.cfg.Height-bodyClamp)
}

// Update advances enemies, resolves contacts and energy, respawns food and
// handles death.
func (w *ForageWorld) Update() FrameEvents {
	var ev FrameEvents

	for i := range w.enemies {
		e := &w.enemies[i]
		dx, dy := w.X-e.X, w.Y-e.Y
		if dist := math.Hypot(dx, dy); dist > 0 && dist < sensorRange {
			e.VX += dx / dist * enemyPursuit
			e.VY += dy / dist * enemyPursuit
		}
		e.VX += (w.rng.Float64()*2 - 1) * enemyJitter
		e.VY += (w.rng.Float64()*2 - 1) * enemyJitter
		if w.rng.Float64() < enemyTurnP {
			a := w.rng.Float64() * 2 * math.Pi
			e.VX, e.VY = math.Cos(a)*0.3, math.Sin(a)*0.3
		}
		if sp := math.Hypot(e.VX, e.VY); sp > enemyMaxSpd {
			e.VX *= enemyMaxSpd / sp
			e.VY *= enemyMaxSpd / sp
		}
		e.X += e.VX
		e.Y += e.VY
		if e.X < enemyBounce || e.X > w.cfg.Width-enemyBounce {
			e.VX = -e.VX
		}
		if e.Y < enemyBounce || e.Y > w.cfg.Height-enemyBounce {
			e.VY = -e.VY
		}
		e.X = clamp(e.X, enemyClamp, w.cfg.Width-enemyClamp)
		e.Y = clamp(e.Y, enemyClamp, w.cfg.Height-enemyClamp)
	}

	for i := range w.foods {
		f := &w.foods[i]
		if !f.Alive || math.Hypot(f.X-w.X, f.Y-w.Y) >= eatRadius {
			continue
		}
		f.Alive = false
		w.Energy = math.Min(maxEnergy, w.Energy+foodEnergy)
		w.life.FoodEaten++
		w.life.Score += foodScore
		ev.Ate = true
		ev.Rewards = append(ev.Rewards, RewardFood)
	}
	for _, e := range w.enemies {
		if math.Hypot(w.X-e.X, w.Y-e.Y) < hitRadius {
			w.Energy -= enemyDamage
			w.life.Hits++
			ev.Hit = true
			ev.Rewards = append(ev.Rewards, RewardHit)
		}
	}
	for _, p := range w.poisons {
		if math.Hypot(w.X-p.X, w.Y-p.Y) < poisonRad {
			w.Energy -= poisonDmg
			w.life.Poisoned++
			ev.Poisoned = true
			ev.Rewards = append(ev.Rewards, RewardPoison)
		}
	}
	w.pain = ev.Hit || ev.Poisoned

	w.Energy -= frameCost
	w.life.Frames++

	alive := 0
	for _, f := range w.foods {
		if f.Alive {
			alive++
		}
	}
	if alive < minFood {
		for i := range w.foods {
			if !w.foods[i].Alive {
				w.foods[i] = food{X: w.spawnX(), Y: w.spawnY(), Alive: true}
				break
			}
		}
	}

	if w.Energy <= 0 {
		ev.Died = true
		ev.Life = w.endLife()
	}
	return ev
}

// Reset ends the current life without a death: the generation advances, the
// body respawns at the centre and the arena is repopulated. It returns the
// stats of the life that ended.
func (w *ForageWorld) Reset() LifeStats {
	return w.endLife()
}

func (w *ForageWorld) endLife() LifeStats {
	ended := w.life
	w.bestScore = math.Max(w.bestScore, w.life.Score)
	w.life = LifeStats{Generation: w.life.Generation + 1}
	w.respawnBody()
	w.spawn()
	return ended
}

// ForageRunner couples a world to a ticking agent through its registered
// sensor array and motor actuator.
type ForageRunner struct {
	World *ForageWorld

	agent   TickAgent
	sensors spikeio.VectorSensorSetter
	motor   spikeio.SnapshotActuator
}

func NewForageRunner(world *ForageWorld, agent Agent) (*ForageRunner, error) {
	ticker, ok := agent.(TickAgent)
	if !ok {
		return nil, fmt.Errorf("agent %s does not implement tick", agent.ID())
	}
	sensors, motor, err := forageIO(ticker)
	if err != nil {
		return nil, err
	}
	return &ForageRunner{World: world, agent: ticker, sensors: sensors, motor: motor}, nil
}

// Step runs one frame: sense, think, move, resolve. Rewards and respawns are
// routed to the agent when it supports them.
func (r *ForageRunner) Step(ctx context.Context) (FrameEvents, error) {
	if err := ctx.Err(); err != nil {
		return FrameEvents{}, err
	}
	r.sensors.Set(r.World.Sense())
	if _, err := r.agent.Tick(ctx); err != nil {
		return FrameEvents{}, err
	}
	r.World.Move(r.motor.Last())
	ev := r.World.Update()

	if rewarder, ok := r.agent.(RewardAgent); ok {
		for _, amt := range ev.Rewards {
			rewarder.Reward(amt)
		}
	}
	if ev.Died {
		if respawner, ok := r.agent.(RespawnAgent); ok {
			respawner.Respawn()
		}
	}
	return ev, nil
}

// ForageScape evaluates an agent over a bounded number of frames. Fitness is
// the best score over all lives.
type ForageScape struct {
	Config ForageConfig
}

func (ForageScape) Name() string {
	return spikeio.ForageScapeName
}

func (s ForageScape) Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error) {
	world := NewForageWorld(s.Config)
	runner, err := NewForageRunner(world, agent)
	if err != nil {
		return 0, nil, err
	}

	deaths := 0
	for frame := 0; frame < world.cfg.MaxFrames; frame++ {
		ev, err := runner.Step(ctx)
		if err != nil {
			return 0, nil, err
		}
		if ev.Died {
			deaths++
		}
	}
	life := world.Life()
	return Fitness(world.BestScore()), Trace{
		"frames":     world.cfg.MaxFrames,
		"deaths":     deaths,
		"generation": life.Generation,
		"energy":     world.Energy,
		"score":      life.Score,
		"food_eaten": life.FoodEaten,
		"hits":       life.Hits,
		"poisoned":   life.Poisoned,
		"best_score": world.BestScore(),
	}, nil
}

func forageIO(agent TickAgent) (spikeio.VectorSensorSetter, spikeio.SnapshotActuator, error) {
	typed, ok := agent.(interface {
		RegisteredSensor(id string) (spikeio.Sensor, bool)
		RegisteredActuator(id string) (spikeio.Actuator, bool)
	})
	if !ok {
		return nil, nil, fmt.Errorf("agent %s does not expose IO registry access", agent.ID())
	}

	sensor, ok := typed.RegisteredSensor(spikeio.ForageSensorArrayName)
	if !ok {
		return nil, nil, fmt.Errorf("agent %s missing sensor %s", agent.ID(), spikeio.ForageSensorArrayName)
	}
	setter, ok := sensor.(spikeio.VectorSensorSetter)
	if !ok {
		return nil, nil, fmt.Errorf("sensor %s does not support vector set", spikeio.ForageSensorArrayName)
	}

	actuator, ok := typed.RegisteredActuator(spikeio.ForageMotorActuatorName)
	if !ok {
		return nil, nil, fmt.Errorf("agent %s missing actuator %s", agent.ID(), spikeio.ForageMotorActuatorName)
	}
	motor, ok := actuator.(spikeio.SnapshotActuator)
	if !ok {
		return nil, nil, fmt.Errorf("actuator %s does not support output snapshot", spikeio.ForageMotorActuatorName)
	}
	return setter, motor, nil
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
