package reinforcement

import (
	"fmt"
	"math"
	"math/rand"

	"parking/models"
)

// HyperParams are the fixed learning parameters and the exploration schedule.
type HyperParams struct {
	// LearningRate is the step size toward the TD target.
	LearningRate float64
	// Discount weighs the successor's value in the TD target.
	Discount float64
	// Epsilon is the initial exploration rate.
	Epsilon float64
	// EpsilonDecay multiplies epsilon once per completed episode.
	EpsilonDecay float64
	// EpsilonMin is the exploration floor.
	EpsilonMin float64
}

func DefaultHyperParams() HyperParams {
	return HyperParams{
		LearningRate: 0.1,
		Discount:     0.95,
		Epsilon:      1.0,
		EpsilonDecay: 0.995,
		EpsilonMin:   0.01,
	}
}

// HyperParamsFrom reads hyperparameters from config, keeping defaults for any not given.
func HyperParamsFrom(cfg *TrainingConfig) HyperParams {
	def := DefaultHyperParams()
	return HyperParams{
		LearningRate: cfg.GetHyperParamOrDefault("learningRate", def.LearningRate),
		Discount:     cfg.GetHyperParamOrDefault("discount", def.Discount),
		Epsilon:      cfg.GetHyperParamOrDefault("epsilon", def.Epsilon),
		EpsilonDecay: cfg.GetHyperParamOrDefault("epsilonDecay", def.EpsilonDecay),
		EpsilonMin:   cfg.GetHyperParamOrDefault("epsilonMin", def.EpsilonMin),
	}
}

// Agent is a tabular Q-learner with an epsilon-greedy behavior policy.
// It knows the environment only through observations and the action count.
type Agent struct {
	table   *QTable
	params  HyperParams
	epsilon float64
	rng     *rand.Rand
}

// NewAgent allocates a zero-initialized table for the given spaces. A nil rng is seeded from 1.
func NewAgent(
	space models.StateSpace,
	numActions int,
	params HyperParams,
	rng *rand.Rand,
) *Agent {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Agent{
		table:   NewQTable(space, numActions),
		params:  params,
		epsilon: params.Epsilon,
		rng:     rng,
	}
}

// GetAction returns a uniformly random action with probability epsilon when exploring,
// and otherwise the greedy action. With explore=false it is deterministic in the table.
func (agent *Agent) GetAction(obs models.Observation, explore bool) (models.Action, error) {
	if explore && agent.rng.Float64() < agent.epsilon {
		if _, err := agent.table.Index(obs, models.NoOp); err != nil {
			return models.NoOp, err
		}
		return models.Action(agent.rng.Intn(agent.table.NumActions())), nil
	}
	return agent.table.ArgMax(obs)
}

// Update applies the one-step Q-learning rule to (obs, action) and, at the end of an
// episode, decays epsilon toward its floor.
func (agent *Agent) Update(
	obs models.Observation,
	action models.Action,
	reward float64,
	next models.Observation,
	done bool,
) (err error) {
	var idx int
	if idx, err = agent.table.Index(obs, action); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	target := reward
	if !done {
		var maxNext float64
		if maxNext, err = agent.table.Max(next); err != nil {
			return fmt.Errorf("update successor: %w", err)
		}
		target += agent.params.Discount * maxNext
	}

	current := agent.table.values.Load(idx)
	agent.table.values.Store(idx, current+agent.params.LearningRate*(target-current))

	if done {
		agent.epsilon = math.Max(agent.params.EpsilonMin, agent.epsilon*agent.params.EpsilonDecay)
	}
	return nil
}

// Epsilon is the current exploration rate.
func (agent *Agent) Epsilon() float64 {
	return agent.epsilon
}

// SetEpsilon overrides the exploration rate, e.g. to act greedily.
func (agent *Agent) SetEpsilon(epsilon float64) {
	agent.epsilon = epsilon
}

func (agent *Agent) Params() HyperParams {
	return agent.params
}

// Table exposes the value table for read-only views and persistence.
func (agent *Agent) Table() *QTable {
	return agent.table
}
