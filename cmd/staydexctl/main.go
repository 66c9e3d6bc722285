// Command staydexctl runs index maintenance and ad-hoc searches against a
// staydex index.
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "staydexctl",
		Usage: "Maintain and query a staydex unit index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "driver",
				Usage:   "Index store driver (valkey or redis)",
				Value:   "valkey",
				Sources: cli.EnvVars("DB_DRIVER"),
			},
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Index store address",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("DB_ADDR"),
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Index store password",
				Sources: cli.EnvVars("DB_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "key-prefix",
				Usage:   "Index key prefix",
				Value:   "staydex:",
				Sources: cli.EnvVars("STAYDEX_KEY_PREFIX"),
			},
			&cli.StringFlag{
				Name:    "postgres",
				Usage:   "Source database DSN, required by indexing commands",
				Sources: cli.EnvVars("SOURCE_DSN"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			rebuildUnitCommand(),
			rebuildPropertyCommand(),
			rebuildAllCommand(),
			cleanupCommand(),
			statsCommand(),
			searchCommand(),
			healthCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
