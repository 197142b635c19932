/*
Parking trains a tabular Q-learning agent to park a simulated car in a fixed lot, replays
the learned policy headless, and serves an interactive page on which to drive the car by
hand or watch the agent drive it. The simulator is deliberately simple: point kinematics,
circular collision checks and a coarse quantized state, so that a table suffices.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"

	"parking/reinforcement"

	"github.com/spf13/cobra"
)

var (
	dbg        bool
	configPath string
	modelPath  string
)

const defaultConfigPath = "config.yaml"

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "parking",
		Short:         "Self-parking car: simulator and tabular Q-learning agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if dbg {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			}
		},
	}
	rootCommand.PersistentFlags().BoolVar(&dbg, "debug", false, "debug mode")
	rootCommand.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Training and simulator config file")
	rootCommand.PersistentFlags().StringVarP(&modelPath, "model", "m", reinforcement.DEFAULT_MODEL_PATH, "Model file to save or load")

	rootCommand.AddCommand(TrainCommand())
	rootCommand.AddCommand(DriveCommand())
	rootCommand.AddCommand(ServeCommand())
	return rootCommand
}

// loadConfig reads the config file. A missing default config file selects the
// built-in defaults; a missing file named explicitly is an error.
func loadConfig(cmd *cobra.Command) (*reinforcement.TrainingConfig, error) {
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		log.Printf("no %s, using default config", configPath)
		return reinforcement.DefaultTrainingConfig(), nil
	}

	cfg, err := reinforcement.FromYaml(configPath)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}
	return cfg, nil
}

// appContext is cancelled on interrupt.
func appContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func main() {
	if err := GetRootCommand().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
