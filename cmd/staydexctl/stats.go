package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show index statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := connect(ctx, c, false)
			if err != nil {
				return err
			}
			defer client.Close()

			st, err := client.Index().Stats(ctx)
			if err != nil {
				return fmt.Errorf("reading statistics: %w", err)
			}
			if c.Bool("json") {
				return printJSON(st)
			}
			fmt.Println(renderStats(st))
			return nil
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check the index store and source database",
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := connect(ctx, c, false)
			if err != nil {
				return err
			}
			defer client.Close()

			h := client.Health(ctx)
			if c.Bool("json") {
				if err := printJSON(h); err != nil {
					return err
				}
			} else {
				fmt.Println(renderHealth(h))
			}
			if !h.Healthy() {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
