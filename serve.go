package main

import (
	"context"
	"time"

	"parking/parking_lot"
	"parking/reinforcement"
	"parking/server"
	"parking/server/session"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Serve runs the interactive session and its web page until ctx is cancelled.
func Serve(
	ctx context.Context,
	cfg *reinforcement.TrainingConfig,
	addr string,
	tick time.Duration,
) (err error) {
	env := parking_lot.NewEnvironment(cfg.EnvConfig())
	agent := reinforcement.NewAgentFor(env, reinforcement.HyperParamsFrom(cfg), cfg.Seed)
	loaded := agent.TryLoad(modelPath)
	sess := session.NewSession(env, agent, loaded, tick)

	group, groupCtx := errgroup.WithContext(ctx)
	var srv *server.Server
	if srv, err = server.NewServer(groupCtx, addr, sess, agent.Table(), env.Config()); err != nil {
		return
	}

	group.Go(func() error {
		return sess.Run(groupCtx)
	})
	group.Go(func() error {
		return srv.Serve(groupCtx)
	})
	return group.Wait()
}

func ServeCommand() *cobra.Command {
	var host string
	var port string
	var tick time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive simulator page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := appContext()
			defer cancel()
			return Serve(ctx, cfg, host+":"+port, tick)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "The host ip")
	cmd.Flags().StringVar(&port, "port", "8080", "The host port")
	cmd.Flags().DurationVar(&tick, "tick", session.DEFAULT_TICK, "Simulation period")
	return cmd
}
