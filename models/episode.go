package models

// Step is a single Q-learning transition: take action a in observation s,
// observe reward r and successor s'.
type Step struct {
	State     Observation
	Successor Observation
	Action    Action
	Reward    float64
	Done      bool
}

// Episode is a sequence of Steps from reset to a terminal flag.
type Episode []Step

// EpisodeStats summarizes a completed episode for logs, history and reports.
type EpisodeStats struct {
	Episode     int
	TotalReward float64
	Steps       int
	Epsilon     float64
	Parked      bool
}

// Rewards and their thresholds.
const (
	STEP_REWARD      = -1.0
	COLLISION_REWARD = -100.0
	SUCCESS_REWARD   = 1000.0
)

// IsSuccess is the only contract presentation layers rely on from a terminal reward.
func IsSuccess(reward float64) bool {
	return reward >= SUCCESS_REWARD
}

// Rewards returns the per-episode total rewards, e.g. for plotting.
func Rewards(stats []EpisodeStats) []float64 {
	rewards := make([]float64, len(stats))
	for i, s := range stats {
		rewards[i] = s.TotalReward
	}
	return rewards
}
