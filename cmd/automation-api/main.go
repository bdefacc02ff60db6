package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/cmd"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "automation-api",
		Usage:                 "Serve the workflow automation HTTP API",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		}, cmd.RuntimeFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing automation API")

			rt, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeOptionsFromCommand(command, "automation-api"))
			if err != nil {
				return err
			}

			defer func() {
				if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			api := NewAPI(logger, rt.Workflows, rt.Executions)

			return api.Start(ctx, int(command.Int("port")))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		log.WithModule("api").Error("API server failed", "error", err)
		os.Exit(1)
	}
}
