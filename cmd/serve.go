package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/goals"
	"github.com/spigell/goal-tracker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON HTTP API",
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		scorer, err := newScorer(ctx, rt.config.AI, rt.logger)
		if err != nil {
			rt.logger.Warn("resume scoring disabled", zap.Error(err))
		} else if scorer == nil {
			rt.logger.Info("resume scoring disabled", zap.String("reason", "no gemini api key configured"))
		}

		interval, _ := cmd.Flags().GetDuration("sync-interval")
		if interval > 0 {
			go syncLoop(ctx, rt.service, interval, rt.logger)
		}

		srv := server.New(rt.service, server.Deps{
			Logger:   rt.logger,
			Gatherer: rt.registry,
			Scorer:   scorer,
		})

		rt.logger.Info("starting the goal-tracker api", zap.String("version", version))
		return srv.Run(ctx, rt.config.Server)
	}),
}

// syncLoop rolls instances on every tick until ctx is done.
func syncLoop(ctx context.Context, svc *goals.Service, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.RollInstances(ctx); err != nil {
				log.Warn("periodic instance sync failed", zap.Error(err))
			}
		}
	}
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (default :8080)")
	serveCmd.Flags().Duration("sync-interval", time.Hour, "how often to roll goal instances; 0 disables")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))

	rootCmd.AddCommand(serveCmd)
}
