// Package main provides the automation command line tool for importing,
// validating and running workflows against a store.
package main

import (
	"context"
	"os"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/cmd"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "automation",
		Usage:                 "Manage and run automation workflows",
		EnableShellCompletion: true,
		Flags:                 cmd.RuntimeFlags(),
		Commands: []*cli.Command{
			workflowCommand(),
			runCommand(),
			executionCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		log.WithModule("automation").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
