package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/df07/go-diffuse-raytracer/pkg/logging"
	"github.com/df07/go-diffuse-raytracer/pkg/output"
	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
	"github.com/df07/go-diffuse-raytracer/pkg/scene"
)

const (
	flagScene     = "scene"
	flagOut       = "out"
	flagFormat    = "format"
	flagGamma     = "gamma"
	flagScale     = "scale"
	flagWidth     = "width"
	flagAspect    = "aspect"
	flagSamples   = "samples"
	flagDepth     = "depth"
	flagPasses    = "passes"
	flagWorkers   = "workers"
	flagTileSize  = "tile-size"
	flagSeed      = "seed"
	flagDebug     = "debug"
	flagScenesDir = "scenes-dir"

	stdoutPath = "-"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "raytracer",
		Usage: "render diffuse sphere scenes",
		UsageText: "raytracer [--scene NAME|FILE.json] [--out PATH|-] [flags]\n" +
			"   Rendering is the default command. Images go to output/<scene>/render_<timestamp>.<ext> unless --out is set.",
		Flags:  renderFlags(),
		Action: renderAction,
		Commands: []*cli.Command{
			{
				Name:   "render",
				Usage:  "render a scene to an image file or stdout",
				Flags:  renderFlags(),
				Action: renderAction,
			},
			{
				Name:  "scenes",
				Usage: "list built-in scenes and scene files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagScenesDir,
						Usage: "directory scanned for .json scene files",
						Value: "scenes",
					},
					&cli.BoolFlag{Name: flagDebug},
				},
				Action: scenesAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of scene files",
				Action: schemaAction,
			},
		},
	}
}

// renderFlags builds a fresh flag set for each command that renders.
func renderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagScene,
			Aliases: []string{"s"},
			Usage:   fmt.Sprintf("built-in scene (%s) or path to a .json scene file", strings.Join(scene.Names(), ", ")),
			Value:   "default",
		},
		&cli.StringFlag{
			Name:    flagOut,
			Aliases: []string{"o"},
			Usage:   "output path, or - for stdout",
		},
		&cli.StringFlag{
			Name:  flagFormat,
			Usage: fmt.Sprintf("image format %v; inferred from --out when unset", output.Formats),
		},
		&cli.StringFlag{
			Name:  flagGamma,
			Usage: fmt.Sprintf("tone mapping applied before quantization %v", output.Gammas),
			Value: string(output.GammaLinear),
		},
		&cli.IntFlag{
			Name:  flagScale,
			Usage: "nearest neighbor upscale factor",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  flagWidth,
			Usage: "image width in pixels (overrides the scene)",
		},
		&cli.Float64Flag{
			Name:  flagAspect,
			Usage: "aspect ratio width/height (overrides the scene)",
		},
		&cli.IntFlag{
			Name:  flagSamples,
			Usage: "samples per pixel (overrides the scene)",
		},
		&cli.IntFlag{
			Name:  flagDepth,
			Usage: "maximum ray segments per sample (overrides the scene)",
		},
		&cli.IntFlag{
			Name:  flagPasses,
			Usage: "progressive passes",
			Value: renderer.DefaultProgressiveConfig().Passes,
		},
		&cli.IntFlag{
			Name:  flagWorkers,
			Usage: "parallel tile workers (0 = CPU count)",
		},
		&cli.IntFlag{
			Name:  flagTileSize,
			Usage: "tile edge length in pixels",
			Value: renderer.DefaultProgressiveConfig().TileSize,
		},
		&cli.Int64Flag{
			Name:  flagSeed,
			Usage: "base seed of the tile random generators",
			Value: renderer.DefaultProgressiveConfig().Seed,
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "enable debug logging",
		},
	}
}

func newLogger(c *cli.Context) *zap.SugaredLogger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("raytracer")
	}
	return logging.NewLogger("raytracer")
}

// applyCameraFlags copies explicitly set camera flags onto config. Zero is
// a valid depth, so flags are applied directly rather than merged.
func applyCameraFlags(c *cli.Context, config *renderer.CameraConfig) {
	if c.IsSet(flagWidth) {
		config.ImageWidth = c.Int(flagWidth)
	}
	if c.IsSet(flagAspect) {
		config.AspectRatio = c.Float64(flagAspect)
	}
	if c.IsSet(flagSamples) {
		config.SamplesPerPixel = c.Int(flagSamples)
	}
	if c.IsSet(flagDepth) {
		config.MaxDepth = c.Int(flagDepth)
	}
}

func outputOptions(c *cli.Context, outPath string) (output.Options, error) {
	opts := output.DefaultOptions()
	opts.Scale = c.Int(flagScale)

	gamma, err := output.ParseGamma(c.String(flagGamma))
	if err != nil {
		return opts, err
	}
	opts.Gamma = gamma

	switch {
	case c.IsSet(flagFormat):
		if opts.Format, err = output.ParseFormat(c.String(flagFormat)); err != nil {
			return opts, err
		}
	case outPath != "" && outPath != stdoutPath:
		if opts.Format, err = output.FormatFromPath(outPath); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// defaultOutputPath returns output/<scene>/render_<timestamp>.<ext>
func defaultOutputPath(sceneName string, format output.Format, now time.Time) string {
	dir := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(sceneName)), " ", "-")
	if dir == "" {
		dir = "scene"
	}
	return filepath.Join("output", dir, fmt.Sprintf("render_%s.%s", now.Format("20060102_150405"), format.Extension()))
}

func renderAction(c *cli.Context) error {
	logger := newLogger(c)
	//nolint:errcheck
	defer logger.Sync()

	s, err := scene.Load(c.String(flagScene), logger)
	if err != nil {
		return err
	}
	applyCameraFlags(c, &s.Camera)

	camera, err := s.NewCamera()
	if err != nil {
		return errors.Wrapf(err, "scene %q", s.Name)
	}

	outPath := c.String(flagOut)
	opts, err := outputOptions(c, outPath)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = defaultOutputPath(s.Name, opts.Format, time.Now())
	}

	config := renderer.ProgressiveConfig{
		TileSize:   c.Int(flagTileSize),
		Passes:     c.Int(flagPasses),
		NumWorkers: c.Int(flagWorkers),
		Seed:       c.Int64(flagSeed),
	}
	raytracer := renderer.NewProgressiveRaytracer(camera, s.World, config, logger)

	logger.Infow("rendering scene",
		"scene", s.Name,
		"width", camera.ImageWidth(),
		"height", camera.ImageHeight(),
		"samplesPerPixel", camera.SamplesPerPixel(),
		"maxDepth", camera.MaxDepth(),
		"primitives", s.GetPrimitiveCount())

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	var final renderer.PassResult
	if err := raytracer.RenderProgressive(ctx, func(result renderer.PassResult) error {
		final = result
		return nil
	}); err != nil {
		return errors.Wrap(err, "render failed")
	}

	if outPath == stdoutPath {
		if err := output.Encode(c.App.Writer, final.Frame, opts); err != nil {
			return errors.Wrap(err, "writing image to stdout")
		}
	} else {
		if err := output.WriteFile(outPath, final.Frame, opts); err != nil {
			return err
		}
		logger.Infow("image saved", "path", outPath, "format", opts.Format)
	}

	stats := final.Stats
	logger.Infow("render complete",
		"elapsed", stats.Elapsed,
		"pixels", stats.TotalPixels,
		"samples", stats.TotalSamples,
		"averageSamples", stats.AverageSamples(),
		"rays", stats.RaysCast,
		"meanLuminance", stats.MeanLuminance,
		"stdDevLuminance", stats.StdDevLuminance)
	return nil
}

func scenesAction(c *cli.Context) error {
	logger := newLogger(c)
	//nolint:errcheck
	defer logger.Sync()

	response, err := scene.ListScenes(c.String(flagScenesDir), logger)
	if err != nil {
		return err
	}
	for _, group := range response.Groups {
		fmt.Fprintf(c.App.Writer, "%s:\n", group.Name)
		for _, info := range group.Scenes {
			if info.Description == "" {
				fmt.Fprintf(c.App.Writer, "  %s\n", info.ID)
				continue
			}
			fmt.Fprintf(c.App.Writer, "  %s - %s\n", info.ID, info.Description)
		}
	}
	return nil
}

func schemaAction(c *cli.Context) error {
	data, err := json.MarshalIndent(scene.Schema(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding scene schema")
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
