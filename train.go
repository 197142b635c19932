package main

import (
	"context"
	"errors"
	"log"

	"parking/history"
	"parking/models"
	"parking/parking_lot"
	"parking/reinforcement"
	"parking/report"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Train runs a full training session and saves the resulting table. Interruption or
// the configured deadline end training early; the table learned so far is still saved.
func Train(
	ctx context.Context,
	cfg *reinforcement.TrainingConfig,
	historyPath string,
	plotPath string,
) (err error) {
	env := parking_lot.NewEnvironment(cfg.EnvConfig())
	agent := reinforcement.NewAgentFor(env, reinforcement.HyperParamsFrom(cfg), cfg.Seed)

	trainingCtx, cancel, err := cfg.WithTrainingDeadline(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	var db *history.DB
	var runID uuid.UUID
	progressFn := func(context.Context, models.EpisodeStats) {}
	if historyPath != "" {
		if db, err = history.Open(historyPath); err != nil {
			return err
		}
		defer db.Close()
		if runID, err = db.StartRun(cfg); err != nil {
			return err
		}
		log.Printf("recording run %s in %s", runID, historyPath)

		failed := false
		progressFn = func(_ context.Context, stats models.EpisodeStats) {
			if failed {
				return
			}
			if recordErr := db.RecordEpisode(runID, stats); recordErr != nil {
				log.Printf("history disabled: %v", recordErr)
				failed = true
			}
		}
	}

	stats, err := reinforcement.Train(trainingCtx, env, agent, cfg, progressFn)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		log.Printf("training ended early after %d episodes", len(stats))
	}

	if err = agent.Save(modelPath); err != nil {
		return err
	}
	log.Printf("training finished, model saved to %s", modelPath)

	if db != nil {
		if err = db.FinishRun(runID, agent.Epsilon()); err != nil {
			return err
		}
	}
	if plotPath != "" && len(stats) > 0 {
		if err = report.RewardCurve(stats, cfg.LogEvery, plotPath); err != nil {
			return err
		}
		log.Printf("reward curve written to %s", plotPath)
	}
	return nil
}

func TrainCommand() *cobra.Command {
	var historyPath string
	var plotPath string
	var episodes int
	var seed int64

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the agent and save its table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("episodes") {
				cfg.Episodes = episodes
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}

			ctx, cancel := appContext()
			defer cancel()
			return Train(ctx, cfg, historyPath, plotPath)
		},
	}
	cmd.Flags().StringVar(&historyPath, "history", "", "SQLite database recording the run, e.g. runs.db")
	cmd.Flags().StringVar(&plotPath, "plot", "", "Reward curve image to write, e.g. rewards.png")
	cmd.Flags().IntVarP(&episodes, "episodes", "e", reinforcement.DEFAULT_EPISODES, "Number of training episodes")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Exploration seed; zero seeds from the clock")
	return cmd
}
