package renderer

import (
	"context"

	"go.uber.org/zap"

	"github.com/df07/go-diffuse-raytracer/pkg/core"
	"github.com/df07/go-diffuse-raytracer/pkg/geometry"
)

// Frame is a rendered image of linear colors stored row-major, top row first
type Frame struct {
	Width  int
	Height int
	Pixels []core.Color
}

// NewFrame creates a black frame
func NewFrame(width, height int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Pixels: make([]core.Color, width*height),
	}
}

// At returns the color of pixel (x, y), with y = 0 at the top
func (f Frame) At(x, y int) core.Color {
	return f.Pixels[y*f.Width+x]
}

// Set stores the color of pixel (x, y)
func (f Frame) Set(x, y int, c core.Color) {
	f.Pixels[y*f.Width+x] = c
}

// Raytracer renders a world in a single pass
type Raytracer struct {
	camera *Camera
	world  geometry.Hittable
	config ProgressiveConfig
	logger *zap.SugaredLogger
}

// NewRaytracer creates a new raytracer. Passes in config is ignored.
func NewRaytracer(camera *Camera, world geometry.Hittable, config ProgressiveConfig, logger *zap.SugaredLogger) *Raytracer {
	config.Passes = 1
	return &Raytracer{
		camera: camera,
		world:  world,
		config: config,
		logger: logger,
	}
}

// Render takes SamplesPerPixel samples for every pixel and returns the averaged frame
func (rt *Raytracer) Render(ctx context.Context) (Frame, RenderStats, error) {
	pr := NewProgressiveRaytracer(rt.camera, rt.world, rt.config, rt.logger)
	return pr.RenderPass(ctx, 1)
}
