package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/staydex/internal/version"
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(_ context.Context, c *cli.Command) error {
			if c.Bool("json") {
				return printJSON(version.Get())
			}
			fmt.Println("staydexctl " + version.Get().String())
			return nil
		},
	}
}
