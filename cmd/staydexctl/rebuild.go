package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	staydex "github.com/kailas-cloud/staydex/pkg/sdk"
)

func rebuildUnitCommand() *cli.Command {
	return &cli.Command{
		Name:      "rebuild-unit",
		Usage:     "Rebuild the index documents of one unit",
		ArgsUsage: "<unit-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runRebuildOne(ctx, c, "unit", func(ctx context.Context, ix *staydex.IndexService, id string) (int, error) {
				return ix.RebuildUnit(ctx, id)
			})
		},
	}
}

func rebuildPropertyCommand() *cli.Command {
	return &cli.Command{
		Name:      "rebuild-property",
		Usage:     "Rebuild the index documents of every unit of a property",
		ArgsUsage: "<property-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runRebuildOne(ctx, c, "property", func(ctx context.Context, ix *staydex.IndexService, id string) (int, error) {
				return ix.RebuildProperty(ctx, id)
			})
		},
	}
}

func runRebuildOne(
	ctx context.Context, c *cli.Command, kind string,
	run func(context.Context, *staydex.IndexService, string) (int, error),
) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("%s id is required", kind)
	}

	client, err := connect(ctx, c, true)
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := run(ctx, client.Index(), id)
	if errors.Is(err, staydex.ErrSourceEntityMissing) {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%s %s no longer exists in the source; %d documents removed", kind, id, n)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("rebuilding %s %s: %w", kind, id, err)
	}

	if c.Bool("json") {
		return printJSON(map[string]int{"affected": n})
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("%s %s rebuilt: %d documents", kind, id, n)))
	return nil
}

func rebuildAllCommand() *cli.Command {
	return &cli.Command{
		Name:  "rebuild-all",
		Usage: "Rebuild every indexable unit from the source database",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Units read from the source per page",
				Value: 200,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Int("batch-size") <= 0 {
				return fmt.Errorf("--batch-size must be positive")
			}
			client, err := connect(ctx, c, true)
			if err != nil {
				return err
			}
			defer client.Close()

			rep, err := client.Index().RebuildAll(ctx, c.Int("batch-size"))
			if err != nil {
				return fmt.Errorf("rebuilding index: %w", err)
			}
			if c.Bool("json") {
				return printJSON(rep)
			}
			fmt.Println(renderRebuildReport(rep))
			return nil
		},
	}
}

func cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Remove orphan documents and stale index references",
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := connect(ctx, c, true)
			if err != nil {
				return err
			}
			defer client.Close()

			rep, err := client.Index().Cleanup(ctx)
			if err != nil {
				return fmt.Errorf("cleaning up index: %w", err)
			}
			if c.Bool("json") {
				return printJSON(rep)
			}
			fmt.Println(renderCleanupReport(rep))
			return nil
		},
	}
}
