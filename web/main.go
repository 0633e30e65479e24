package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/df07/go-diffuse-raytracer/pkg/logging"
	"github.com/df07/go-diffuse-raytracer/web/server"
)

const (
	flagPort      = "port"
	flagScenesDir = "scenes-dir"
	flagStaticDir = "static-dir"
	flagDebug     = "debug"
)

func main() {
	app := &cli.App{
		Name:  "raytracer-web",
		Usage: "serve progressive renders over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  flagPort,
				Usage: "port to serve on",
				Value: 8080,
			},
			&cli.StringFlag{
				Name:  flagScenesDir,
				Usage: "directory of .json scene files offered to clients",
				Value: "scenes",
			},
			&cli.StringFlag{
				Name:  flagStaticDir,
				Usage: "directory served at / (disabled when empty)",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Action: func(c *cli.Context) error {
			logger := logging.NewLogger("web")
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("web")
			}
			//nolint:errcheck
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()

			webServer := server.NewServer(server.Options{
				Port:      c.Int(flagPort),
				ScenesDir: c.String(flagScenesDir),
				StaticDir: c.String(flagStaticDir),
			}, logger)
			return webServer.Start(ctx)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
