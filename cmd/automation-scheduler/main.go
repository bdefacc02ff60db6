// Package main provides the scheduler that runs workflows whose trigger nodes
// carry a cron expression.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/cmd"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/log"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/scheduler"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultResync          = time.Minute
	defaultShutdownTimeout = 30 * time.Second
)

func main() {
	command := &cli.Command{
		Name:                  "automation-scheduler",
		Usage:                 "Run scheduled workflows",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.DurationFlag{
				Name:    "resync",
				Usage:   "Interval between workflow reloads (0 loads them only at startup)",
				Value:   defaultResync,
				Sources: cli.EnvVars("SCHEDULER_RESYNC"),
			},
		}, cmd.RuntimeFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("scheduler")
			logger.InfoContext(ctx, "Initializing automation scheduler")

			rt, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeOptionsFromCommand(command, "automation-scheduler"))
			if err != nil {
				return err
			}

			defer func() {
				if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			s := scheduler.New(rt.Persistence.WorkflowRepository(), rt.Executions, logger)
			if err := s.Start(ctx, command.Duration("resync")); err != nil {
				return err
			}

			<-ctx.Done()

			logger.Info("Shutting down scheduler")

			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultShutdownTimeout)
			defer cancel()

			return s.Stop(stopCtx)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		log.WithModule("scheduler").Error("Scheduler failed", "error", err)
		os.Exit(1)
	}
}
