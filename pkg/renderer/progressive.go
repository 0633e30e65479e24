package renderer

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/df07/go-diffuse-raytracer/pkg/geometry"
)

// ProgressiveConfig contains configuration for progressive rendering
type ProgressiveConfig struct {
	TileSize   int   // Size of each square tile in pixels
	Passes     int   // Number of passes; clamped to [1, SamplesPerPixel]
	NumWorkers int   // Number of parallel workers (0 = use CPU count)
	Seed       int64 // Tile i draws from a generator seeded with Seed+i
}

// DefaultProgressiveConfig returns a single pass render on all CPUs
func DefaultProgressiveConfig() ProgressiveConfig {
	return ProgressiveConfig{
		TileSize:   32,
		Passes:     1,
		NumWorkers: 0, // Auto-detect CPU count
		Seed:       42,
	}
}

// PassResult contains the result of a single pass
type PassResult struct {
	PassNumber  int
	TotalPasses int
	Frame       Frame
	Stats       RenderStats
	IsLast      bool
}

// ProgressiveRaytracer renders an image in passes of increasing sample count.
// Pixel accumulators and tile generators carry over from pass to pass, so each
// pass refines the previous one.
type ProgressiveRaytracer struct {
	camera       *Camera
	width        int
	height       int
	config       ProgressiveConfig
	tiles        []*Tile
	pixelStats   [][]PixelStats // Shared pixel statistics array (global image coordinates)
	tileRenderer *TileRenderer
	workerPool   *WorkerPool
	raysCast     atomic.Int64
	clock        clock.Clock
	started      time.Time
	logger       *zap.SugaredLogger
}

// NewProgressiveRaytracer creates a progressive raytracer for world as seen by camera.
// A nil logger discards log output.
func NewProgressiveRaytracer(camera *Camera, world geometry.Hittable, config ProgressiveConfig, logger *zap.SugaredLogger) *ProgressiveRaytracer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if config.TileSize <= 0 {
		config.TileSize = DefaultProgressiveConfig().TileSize
	}
	config.Passes = min(max(config.Passes, 1), camera.SamplesPerPixel())

	width, height := camera.ImageWidth(), camera.ImageHeight()

	pixelStats := make([][]PixelStats, height)
	for y := range pixelStats {
		pixelStats[y] = make([]PixelStats, width)
	}

	return &ProgressiveRaytracer{
		camera:       camera,
		width:        width,
		height:       height,
		config:       config,
		tiles:        NewTileGrid(width, height, config.TileSize, config.Seed),
		pixelStats:   pixelStats,
		tileRenderer: NewTileRenderer(camera, world, camera.Integrator()),
		workerPool:   NewWorkerPool(config.NumWorkers),
		clock:        clock.New(),
		logger:       logger,
	}
}

// SetClock replaces the clock used to time passes
func (pr *ProgressiveRaytracer) SetClock(c clock.Clock) {
	pr.clock = c
}

// Passes returns the effective number of passes
func (pr *ProgressiveRaytracer) Passes() int {
	return pr.config.Passes
}

// NumWorkers returns the number of tiles rendered concurrently
func (pr *ProgressiveRaytracer) NumWorkers() int {
	return pr.workerPool.NumWorkers()
}

// getSamplesForPass calculates the target total samples per pixel after a given pass
func (pr *ProgressiveRaytracer) getSamplesForPass(passNumber int) int {
	maxSamples := pr.camera.SamplesPerPixel()

	if pr.config.Passes == 1 || passNumber >= pr.config.Passes {
		return maxSamples
	}
	if passNumber <= 1 {
		return 1 // Quick preview
	}

	// Divide remaining samples evenly across remaining passes
	samplesPerPass := (maxSamples - 1) / (pr.config.Passes - 1)
	return 1 + (passNumber-1)*samplesPerPass
}

// RenderPass renders pass passNumber (1-based) and returns the frame as it stands afterwards
func (pr *ProgressiveRaytracer) RenderPass(ctx context.Context, passNumber int) (Frame, RenderStats, error) {
	if passNumber < 1 || passNumber > pr.config.Passes {
		return Frame{}, RenderStats{}, errors.Errorf("pass %d out of range [1, %d]", passNumber, pr.config.Passes)
	}
	if pr.started.IsZero() {
		pr.started = pr.clock.Now()
	}

	targetSamples := pr.getSamplesForPass(passNumber)
	pr.logger.Debugw("starting pass",
		"pass", passNumber, "targetSamples", targetSamples, "workers", pr.workerPool.NumWorkers(), "tiles", len(pr.tiles))

	tasks := make([]TileTask, len(pr.tiles))
	for i, tile := range pr.tiles {
		tasks[i] = TileTask{
			Tile:          tile,
			PassNumber:    passNumber,
			TargetSamples: targetSamples,
			PixelStats:    pr.pixelStats,
		}
	}

	_, err := pr.workerPool.Run(ctx, tasks, func(task TileTask) TileResult {
		samples, rays := pr.tileRenderer.RenderTileBounds(task.Tile.Bounds, task.PixelStats, task.Tile.Random, task.TargetSamples)
		task.Tile.PassesCompleted++
		pr.raysCast.Add(rays)
		return TileResult{TileID: task.Tile.ID, Samples: samples, Rays: rays}
	})
	if err != nil {
		return Frame{}, RenderStats{}, errors.Wrapf(err, "pass %d", passNumber)
	}

	frame, stats := pr.assembleCurrentFrame(targetSamples)
	return frame, stats, nil
}

// RenderProgressive renders every pass in order, handing each result to onPass.
// It stops at the first error from rendering or from onPass.
func (pr *ProgressiveRaytracer) RenderProgressive(ctx context.Context, onPass func(PassResult) error) error {
	pr.logger.Infow("starting progressive render",
		"passes", pr.config.Passes, "width", pr.width, "height", pr.height, "workers", pr.workerPool.NumWorkers())

	for pass := 1; pass <= pr.config.Passes; pass++ {
		if err := ctx.Err(); err != nil {
			pr.logger.Infow("render cancelled", "beforePass", pass)
			return err
		}

		frame, stats, err := pr.RenderPass(ctx, pass)
		if err != nil {
			return err
		}

		pr.logger.Infow("pass complete",
			"pass", pass, "samplesPerPixel", stats.SamplesPerPixel, "elapsed", stats.Elapsed, "rays", stats.RaysCast)

		if onPass == nil {
			continue
		}
		if err := onPass(PassResult{
			PassNumber:  pass,
			TotalPasses: pr.config.Passes,
			Frame:       frame,
			Stats:       stats,
			IsLast:      pass == pr.config.Passes,
		}); err != nil {
			return err
		}
	}
	return nil
}

// assembleCurrentFrame averages the shared pixel stats into a frame and
// calculates render statistics
func (pr *ProgressiveRaytracer) assembleCurrentFrame(targetSamples int) (Frame, RenderStats) {
	frame := NewFrame(pr.width, pr.height)
	totalSamples := 0

	for y := 0; y < pr.height; y++ {
		for x := 0; x < pr.width; x++ {
			pixel := &pr.pixelStats[y][x]
			frame.Set(x, y, pixel.GetColor())
			totalSamples += pixel.SampleCount
		}
	}

	mean, stdDev := FrameLuminance(frame)
	return frame, RenderStats{
		TotalPixels:     pr.width * pr.height,
		TotalSamples:    totalSamples,
		SamplesPerPixel: targetSamples,
		RaysCast:        pr.raysCast.Load(),
		Elapsed:         pr.clock.Since(pr.started),
		MeanLuminance:   mean,
		StdDevLuminance: stdDev,
	}
}
