package cmd

import (
	"time"

	cli "github.com/urfave/cli/v3"
)

const defaultRunTimeout = 30 * time.Second

// RuntimeFlags are the flags every command uses to build a Runtime.
func RuntimeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (file path, postgres:// or redis://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus provider (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.BoolFlag{
			Name:    "publish-events",
			Usage:   "Publish execution and node events on the event bus",
			Sources: cli.EnvVars("PUBLISH_EVENTS"),
		},
		&cli.StringFlag{
			Name:    "integrations-config",
			Usage:   "Path to the services.yaml file describing action integrations",
			Sources: cli.EnvVars("INTEGRATIONS_CONFIG"),
		},
		&cli.DurationFlag{
			Name:    "run-timeout",
			Usage:   "Maximum duration of a single workflow run (0 disables the limit)",
			Value:   defaultRunTimeout,
			Sources: cli.EnvVars("RUN_TIMEOUT"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP (configured with OTEL_EXPORTER_OTLP_* variables)",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
		&cli.FloatFlag{
			Name:    "trace-sample-ratio",
			Usage:   "Fraction of runs to trace when tracing is enabled",
			Value:   1,
			Sources: cli.EnvVars("TRACE_SAMPLE_RATIO"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

// RuntimeOptionsFromCommand reads RuntimeFlags from command.
func RuntimeOptionsFromCommand(command *cli.Command, serviceName string) RuntimeOptions {
	return RuntimeOptions{
		ServiceName:        serviceName,
		DatabaseURL:        command.String("database-url"),
		EventBus:           command.String("event-bus"),
		PublishEvents:      command.Bool("publish-events"),
		IntegrationsConfig: command.String("integrations-config"),
		RunTimeout:         command.Duration("run-timeout"),
		Tracing:            command.Bool("tracing"),
		TraceSampleRatio:   command.Float("trace-sample-ratio"),
	}
}
