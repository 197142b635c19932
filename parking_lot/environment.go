// parking_lot implements the kinematic parking simulator: vehicle dynamics,
// collision and goal detection, reward shaping, and state quantization.
package parking_lot

import (
	"fmt"
	"math"

	"parking/models"
)

// EnvConfig holds the world geometry and the physical and reward constants of the simulator.
// Zero values are not meaningful; start from DefaultEnvConfig and override. In yaml, keys are
// the lowercased field names.
type EnvConfig struct {
	Lot           models.Lot
	CarWidth      float64
	CarLength     float64
	StartX        float64
	StartY        float64
	MaxSpeed      float64
	MaxAngle      float64 // Declared steering limit; the motion law does not enforce it.
	Dt            float64
	AccelGain     float64
	Friction      float64
	TurnGain      float64
	CollisionDist float64
	ShapingRef    float64
	ShapingScale  float64
	SuccessWindow float64
	SuccessAngle  float64
	Horizon       int
}

// DefaultEnvConfig is the standard lot and car.
func DefaultEnvConfig() *EnvConfig {
	return &EnvConfig{
		Lot:           models.DefaultLot(),
		CarWidth:      40,
		CarLength:     80,
		StartX:        180,
		StartY:        150,
		MaxSpeed:      5,
		MaxAngle:      30 * math.Pi / 180,
		Dt:            1.0,
		AccelGain:     0.5,
		Friction:      0.9,
		TurnGain:      0.1,
		CollisionDist: 60,
		ShapingRef:    300,
		ShapingScale:  100,
		SuccessWindow: 20,
		SuccessAngle:  0.2,
		Horizon:       400,
	}
}

// Outcome classifies the most recent transition.
type Outcome int

const (
	Running Outcome = iota
	OutOfBounds
	Crashed
	Parked
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case OutOfBounds:
		return "out of bounds"
	case Crashed:
		return "crashed"
	case Parked:
		return "parked"
	case TimedOut:
		return "timed out"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Environment is the parking simulator. It is not safe for concurrent use; a single
// owner drives it and others observe through Vehicle snapshots.
type Environment struct {
	cfg     EnvConfig
	car     models.Vehicle
	steps   int
	outcome Outcome
}

// NewEnvironment fixes the world and vehicle parameters and resets to the start pose.
// A nil config selects DefaultEnvConfig.
func NewEnvironment(cfg *EnvConfig) *Environment {
	if cfg == nil {
		cfg = DefaultEnvConfig()
	}
	env := &Environment{cfg: *cfg}
	env.cfg.Lot = cfg.Lot.Clone()
	env.Reset()
	return env
}

// Reset restores the start pose, zeroes the step counter and returns the initial observation.
func (env *Environment) Reset() models.Observation {
	env.car = models.Vehicle{
		X:       env.cfg.StartX,
		Y:       env.cfg.StartY,
		Speed:   0,
		Heading: 0,
		Length:  env.cfg.CarLength,
		Width:   env.cfg.CarWidth,
	}
	env.steps = 0
	env.outcome = Running
	return env.GetState()
}

// Step advances the simulation by one tick under the given action and returns the
// successor observation, the reward and the terminal flag. An action outside the
// enumeration is rejected and leaves the environment untouched.
func (env *Environment) Step(action models.Action) (obs models.Observation, reward float64, done bool, err error) {
	var ctl models.Controls
	if ctl, err = action.Decode(); err != nil {
		err = fmt.Errorf("step: %w", err)
		return
	}

	env.steps++
	env.move(ctl)
	reward, done, env.outcome = env.evaluate()
	obs = env.GetState()
	return
}

// move applies the simplified longitudinal and heading dynamics. Turn rate scales
// with the speed fraction, so the car cannot turn in place.
func (env *Environment) move(ctl models.Controls) {
	cfg := &env.cfg
	car := &env.car

	car.Speed += ctl.Accel * cfg.AccelGain
	car.Speed = math.Max(math.Min(car.Speed, cfg.MaxSpeed), -cfg.MaxSpeed)
	car.Speed *= cfg.Friction

	car.Heading += ctl.Steer * cfg.TurnGain * (car.Speed / cfg.MaxSpeed)
	car.X += math.Sin(car.Heading) * car.Speed * cfg.Dt
	car.Y += math.Cos(car.Heading) * car.Speed * cfg.Dt
}

// evaluate computes reward and termination in a fixed order; later rules override
// earlier rewards, except the time limit which only sets done.
func (env *Environment) evaluate() (reward float64, done bool, outcome Outcome) {
	cfg := &env.cfg
	car := env.car
	cx, cy := car.Center()
	outcome = Running

	switch {
	case !cfg.Lot.Contains(car.X, car.Y):
		reward, done, outcome = models.COLLISION_REWARD, true, OutOfBounds
	case env.collides(cx, cy):
		reward, done, outcome = models.COLLISION_REWARD, true, Crashed
	default:
		sx, sy := cfg.Lot.Spot.Center()
		reward = models.STEP_REWARD + (cfg.ShapingRef-models.Distance(cx, cy, sx, sy))/cfg.ShapingScale
	}

	if env.parked() {
		reward, done, outcome = models.SUCCESS_REWARD, true, Parked
	}

	if env.steps > cfg.Horizon {
		done = true
		if outcome == Running {
			outcome = TimedOut
		}
	}
	return
}

// collides is a circular proxy for footprint/obstacle overlap: center distance under a
// fixed threshold, regardless of the obstacle's size.
func (env *Environment) collides(cx, cy float64) bool {
	for _, obs := range env.cfg.Lot.Obstacles {
		ox, oy := obs.Center()
		if models.Distance(cx, cy, ox, oy) < env.cfg.CollisionDist {
			return true
		}
	}
	return false
}

// parked requires an exact pose: the reference corner strictly inside a small window at
// the spot's top-left corner, and a near-zero heading.
func (env *Environment) parked() bool {
	spot := env.cfg.Lot.Spot
	car := env.car
	w := env.cfg.SuccessWindow
	return spot.X < car.X && car.X < spot.X+w &&
		spot.Y < car.Y && car.Y < spot.Y+w &&
		math.Abs(car.Heading) < env.cfg.SuccessAngle
}

// GetState quantizes the current vehicle state. It has no side effects.
func (env *Environment) GetState() models.Observation {
	return models.Quantize(env.car, env.cfg.Lot.Spot)
}

// StateSpace is the fixed shape of the observation space.
func (env *Environment) StateSpace() models.StateSpace {
	return models.DefaultStateSpace()
}

// ActionSpace is the fixed number of actions.
func (env *Environment) ActionSpace() int {
	return models.NumActions
}

// Vehicle returns a copy of the vehicle state for read-only observers.
func (env *Environment) Vehicle() models.Vehicle {
	return env.car
}

// Lot returns a copy of the world geometry.
func (env *Environment) Lot() models.Lot {
	return env.cfg.Lot.Clone()
}

// Config returns a copy of the environment parameters.
func (env *Environment) Config() EnvConfig {
	cfg := env.cfg
	cfg.Lot = env.cfg.Lot.Clone()
	return cfg
}

// Steps is the number of ticks since the last reset.
func (env *Environment) Steps() int {
	return env.steps
}

// LastOutcome classifies the most recent Step.
func (env *Environment) LastOutcome() Outcome {
	return env.outcome
}

// Place teleports the vehicle, keeping its footprint. The step counter is not touched.
func (env *Environment) Place(x, y, speed, heading float64) {
	env.car.X, env.car.Y = x, y
	env.car.Speed, env.car.Heading = speed, heading
}
