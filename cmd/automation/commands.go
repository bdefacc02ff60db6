package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/cmd"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/log"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence/file"
	cli "github.com/urfave/cli/v3"
)

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrInvalidData     = errors.New("trigger data must be a JSON object")
)

// withRuntime opens a Runtime for the duration of fn.
func withRuntime(ctx context.Context, command *cli.Command, fn func(*cmd.Runtime) error) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("automation")

	rt, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeOptionsFromCommand(command, "automation"))
	if err != nil {
		return err
	}

	defer func() {
		if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
		}
	}()

	return fn(rt)
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}

func readWorkflow(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	return file.DecodeWorkflow(data, filepath.Ext(path))
}

func firstArg(command *cli.Command, name string) (string, error) {
	arg := command.Args().First()
	if arg == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}

	return arg, nil
}

func workflowCommand() *cli.Command {
	return &cli.Command{
		Name:  "workflow",
		Usage: "Manage workflow definitions",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Validate and store workflow definitions read from JSON or YAML files",
				ArgsUsage: "<file>...",
				Action: func(ctx context.Context, command *cli.Command) error {
					if command.Args().Len() == 0 {
						return fmt.Errorf("%w: file", ErrMissingArgument)
					}

					return withRuntime(ctx, command, func(rt *cmd.Runtime) error {
						for _, path := range command.Args().Slice() {
							wf, err := readWorkflow(path)
							if err != nil {
								return err
							}

							saved, err := rt.Workflows.Save(ctx, wf)
							if err != nil {
								return fmt.Errorf("failed to import %s: %w", path, err)
							}

							_, _ = fmt.Fprintf(command.Root().Writer, "imported %s (%s)\n", saved.ID, saved.Name)
						}

						return nil
					})
				},
			},
			{
				Name:      "validate",
				Usage:     "Check a workflow file without storing it",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, command *cli.Command) error {
					path, err := firstArg(command, "file")
					if err != nil {
						return err
					}

					return withRuntime(ctx, command, func(rt *cmd.Runtime) error {
						wf, err := readWorkflow(path)
						if err != nil {
							return err
						}

						if err := rt.Workflows.Validate(ctx, wf); err != nil {
							return err
						}

						_, _ = fmt.Fprintf(command.Root().Writer, "%s is valid\n", path)

						return nil
					})
				},
			},
			{
				Name:  "list",
				Usage: "List stored workflows",
				Action: func(ctx context.Context, command *cli.Command) error {
					return withRuntime(ctx, command, func(rt *cmd.Runtime) error {
						workflows, err := rt.Workflows.FetchAll(ctx)
						if err != nil {
							return err
						}

						for _, wf := range workflows {
							_, _ = fmt.Fprintf(command.Root().Writer, "%s\t%s\t%d nodes\n", wf.ID, wf.Name, len(wf.Nodes))
						}

						return nil
					})
				},
			},
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a stored workflow once and print its result",
		ArgsUsage: "<flow-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data",
				Usage: "Trigger data as a JSON object",
				Value: "{}",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			flowID, err := firstArg(command, "flow-id")
			if err != nil {
				return err
			}

			var triggerData models.Payload
			if err := json.Unmarshal([]byte(command.String("data")), &triggerData); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidData, err)
			}

			return withRuntime(ctx, command, func(rt *cmd.Runtime) error {
				result, err := rt.Executions.Run(ctx, flowID, triggerData)
				if err != nil {
					return err
				}

				return writeJSON(command.Root().Writer, result)
			})
		},
	}
}

func executionCommand() *cli.Command {
	return &cli.Command{
		Name:  "execution",
		Usage: "Inspect execution records",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print an execution record and its node log",
				ArgsUsage: "<execution-id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					executionID, err := firstArg(command, "execution-id")
					if err != nil {
						return err
					}

					return withRuntime(ctx, command, func(rt *cmd.Runtime) error {
						record, err := rt.Executions.GetByID(ctx, executionID)
						if err != nil {
							return err
						}

						entries, err := rt.Executions.Logs(ctx, executionID)
						if err != nil {
							return err
						}

						return writeJSON(command.Root().Writer, map[string]any{
							"execution": record,
							"logs":      entries,
						})
					})
				},
			},
			{
				Name:      "list",
				Usage:     "List executions of a workflow, newest first",
				ArgsUsage: "<flow-id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					flowID, err := firstArg(command, "flow-id")
					if err != nil {
						return err
					}

					return withRuntime(ctx, command, func(rt *cmd.Runtime) error {
						records, err := rt.Executions.ListByWorkflow(ctx, flowID)
						if err != nil {
							return err
						}

						return writeJSON(command.Root().Writer, records)
					})
				},
			},
		},
	}
}
