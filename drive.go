package main

import (
	"fmt"

	"parking/models"
	"parking/parking_lot"
	"parking/reinforcement"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

// Drive replays the greedy policy for the given number of episodes and prints each
// episode's outcome. Without a loadable model the agent is untrained and idles.
func Drive(cfg *reinforcement.TrainingConfig, episodes int) (stats []models.EpisodeStats, err error) {
	env := parking_lot.NewEnvironment(cfg.EnvConfig())
	agent := reinforcement.NewAgentFor(env, reinforcement.HyperParamsFrom(cfg), cfg.Seed)
	agent.TryLoad(modelPath)

	parked := 0
	for ep := 0; ep < episodes; ep++ {
		var s models.EpisodeStats
		if s, _, err = reinforcement.Rollout(env, agent, false, false); err != nil {
			return stats, err
		}
		s.Episode = ep
		stats = append(stats, s)
		if s.Parked {
			parked++
		}
		fmt.Printf("episode %d: %s after %d steps, reward %.1f\n", ep, env.LastOutcome(), s.Steps, s.TotalReward)
	}
	if len(stats) > 0 {
		fmt.Printf("parked %d/%d, mean reward %.1f\n", parked, len(stats), stat.Mean(models.Rewards(stats), nil))
	}
	return stats, nil
}

func DriveCommand() *cobra.Command {
	var episodes int

	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Replay the trained policy headless",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			_, err = Drive(cfg, episodes)
			return err
		},
	}
	cmd.Flags().IntVarP(&episodes, "episodes", "e", 1, "Number of episodes to replay")
	return cmd
}
