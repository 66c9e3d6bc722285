package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	staydex "github.com/kailas-cloud/staydex/pkg/sdk"
)

// connect builds an SDK client from the global flags. withSource requires
// --postgres.
func connect(ctx context.Context, c *cli.Command, withSource bool) (*staydex.Client, error) {
	opts := []staydex.Option{staydex.WithKeyPrefix(c.String("key-prefix"))}

	switch driver := c.String("driver"); driver {
	case "valkey":
		opts = append(opts, staydex.WithValkey(c.String("addr"), c.String("password")))
	case "redis":
		opts = append(opts, staydex.WithRedis(c.String("addr"), c.String("password")))
	default:
		return nil, fmt.Errorf("unknown driver %q (want valkey or redis)", driver)
	}

	if dsn := c.String("postgres"); dsn != "" {
		opts = append(opts, staydex.WithPostgres(dsn))
	} else if withSource {
		return nil, fmt.Errorf("--postgres (or SOURCE_DSN) is required for %s", c.Name)
	}

	if c.Bool("debug") {
		opts = append(opts, staydex.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))))
	}

	client, err := staydex.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	return client, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
