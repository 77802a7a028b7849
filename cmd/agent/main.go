package main

import (
	"context"
	"log/slog"
	"os"

	"fieldtrack/config"
	"fieldtrack/internal/delivery"
	"fieldtrack/internal/delivery/agent"
	logs "fieldtrack/internal/infra/log"

	"go.uber.org/fx"
)

type startAgentParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectDelivery(),
		fx.Invoke(
			startAgent,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				agent.New,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startAgent(ctx context.Context, params startAgentParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Agent stopped", slog.Any("error", err))

				// Trigger graceful shutdown to execute all OnStop hooks
				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}
