package reinforcement

import (
	"context"
	"fmt"
	"log"

	"parking/models"

	"gonum.org/v1/gonum/stat"
)

// Environment is the contract the learner needs from a simulator.
type Environment interface {
	Reset() models.Observation
	Step(models.Action) (models.Observation, float64, bool, error)
	StateSpace() models.StateSpace
	ActionSpace() int
}

// ProgressFunc is a callback by which the training method lends progress details.
// It is synchronous and should complete quickly.
type ProgressFunc func(context.Context, models.EpisodeStats)

// NewAgentFor sizes an agent to the environment's spaces.
func NewAgentFor(env Environment, params HyperParams, seed int64) *Agent {
	return NewAgent(env.StateSpace(), env.ActionSpace(), params, newRand(seed))
}

// Rollout runs one episode from reset to the terminal flag. When learn is set each
// transition is fed back into the agent. The episode's transitions are returned for replay.
func Rollout(
	env Environment,
	agent *Agent,
	explore bool,
	learn bool,
) (stats models.EpisodeStats, episode models.Episode, err error) {
	state := env.Reset()
	for done := false; !done; {
		var action models.Action
		if action, err = agent.GetAction(state, explore); err != nil {
			return
		}

		var next models.Observation
		var reward float64
		if next, reward, done, err = env.Step(action); err != nil {
			return
		}

		if learn {
			if err = agent.Update(state, action, reward, next, done); err != nil {
				return
			}
		}

		episode = append(episode, models.Step{
			State:     state,
			Successor: next,
			Action:    action,
			Reward:    reward,
			Done:      done,
		})
		stats.TotalReward += reward
		stats.Parked = models.IsSuccess(reward)
		state = next
	}

	stats.Steps = len(episode)
	stats.Epsilon = agent.Epsilon()
	return
}

// Train runs the configured number of episodes strictly in sequence, logging every
// LogEvery episodes, and returns per-episode stats. Cancellation of ctx stops training
// between episodes; the stats gathered so far are returned with ctx's error.
func Train(
	ctx context.Context,
	env Environment,
	agent *Agent,
	config *TrainingConfig,
	progressFn ProgressFunc,
) (history []models.EpisodeStats, err error) {
	episodes := config.Episodes
	if episodes <= 0 {
		episodes = DEFAULT_EPISODES
	}
	logEvery := config.LogEvery
	if logEvery <= 0 {
		logEvery = DEFAULT_LOG_EVERY
	}

	log.Println("--- training started ---")
	history = make([]models.EpisodeStats, 0, episodes)
	for ep := 0; ep < episodes; ep++ {
		select {
		case <-ctx.Done():
			log.Printf("training stopped after %d episodes: %v", ep, ctx.Err())
			return history, ctx.Err()
		default:
		}

		var stats models.EpisodeStats
		if stats, _, err = Rollout(env, agent, true, true); err != nil {
			return history, fmt.Errorf("episode %d: %w", ep, err)
		}
		stats.Episode = ep
		history = append(history, stats)

		if ep%logEvery == 0 {
			log.Printf("Episode %d - Reward: %d - Epsilon: %.2f - Mean reward (last %d): %.2f",
				ep, int(stats.TotalReward), stats.Epsilon, logEvery, windowMean(history, logEvery))
		}
		if progressFn != nil {
			progressFn(ctx, stats)
		}
	}
	log.Println("--- training finished ---")
	return history, nil
}

// windowMean is the mean total reward over the trailing window of episodes.
func windowMean(history []models.EpisodeStats, window int) float64 {
	if len(history) == 0 {
		return 0
	}
	from := len(history) - window
	if from < 0 {
		from = 0
	}
	return stat.Mean(models.Rewards(history[from:]), nil)
}

// MovingMean is the trailing-window mean reward at every episode, e.g. for plotting.
func MovingMean(history []models.EpisodeStats, window int) []float64 {
	means := make([]float64, len(history))
	for i := range history {
		means[i] = windowMean(history[:i+1], window)
	}
	return means
}
