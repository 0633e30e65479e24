package renderer

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/df07/go-diffuse-raytracer/pkg/core"
	"github.com/df07/go-diffuse-raytracer/pkg/geometry"
	"github.com/df07/go-diffuse-raytracer/pkg/integrator"
)

// ErrInvalidCameraConfig is returned by NewCamera for configurations that cannot produce an image
var ErrInvalidCameraConfig = errors.New("invalid camera config")

// CameraConfig contains the user-facing camera parameters
type CameraConfig struct {
	AspectRatio     float64 `json:"aspect_ratio,omitempty" jsonschema:"description=Image width over height"`
	ImageWidth      int     `json:"image_width,omitempty" jsonschema:"description=Rendered image width in pixels"`
	SamplesPerPixel int     `json:"samples_per_pixel,omitempty" jsonschema:"description=Random samples averaged per pixel"`
	MaxDepth        int     `json:"max_depth,omitempty" jsonschema:"description=Maximum diffuse bounces per sample"`
}

// DefaultCameraConfig returns a 16:9, 400 pixel wide camera with 100 samples and 50 bounces
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		AspectRatio:     16.0 / 9.0,
		ImageWidth:      400,
		SamplesPerPixel: 100,
		MaxDepth:        50,
	}
}

// Validate reports whether the configuration can be turned into a camera
func (c CameraConfig) Validate() error {
	switch {
	case c.ImageWidth <= 0:
		return errors.Wrapf(ErrInvalidCameraConfig, "image width must be positive, got %d", c.ImageWidth)
	case c.SamplesPerPixel <= 0:
		return errors.Wrapf(ErrInvalidCameraConfig, "samples per pixel must be positive, got %d", c.SamplesPerPixel)
	case c.MaxDepth < 0:
		return errors.Wrapf(ErrInvalidCameraConfig, "max depth must not be negative, got %d", c.MaxDepth)
	case !(c.AspectRatio > 0) || math.IsInf(c.AspectRatio, 0):
		return errors.Wrapf(ErrInvalidCameraConfig, "aspect ratio must be positive and finite, got %v", c.AspectRatio)
	}
	return nil
}

// ImageHeight returns the pixel height implied by width and aspect ratio, at least 1
func (c CameraConfig) ImageHeight() int {
	return max(1, int(math.Round(float64(c.ImageWidth)/c.AspectRatio)))
}

// Camera is a pinhole camera at the origin looking down -Z with a viewport two units tall
type Camera struct {
	config            CameraConfig
	imageHeight       int
	pixelSamplesScale float64
	center            core.Point3
	pixel00Loc        core.Point3
	pixelDeltaU       core.Vec3
	pixelDeltaV       core.Vec3
	integrator        *integrator.DiffuseIntegrator
}

// NewCamera validates config and derives the viewport geometry
func NewCamera(config CameraConfig) (*Camera, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	imageHeight := config.ImageHeight()

	focalLength := 1.0
	viewportHeight := 2.0
	viewportWidth := viewportHeight * config.AspectRatio
	center := core.NewVec3(0, 0, 0)

	// Vectors across the horizontal and down the vertical viewport edges
	viewportU := core.NewVec3(viewportWidth, 0, 0)
	viewportV := core.NewVec3(0, -viewportHeight, 0)

	pixelDeltaU := viewportU.Divide(float64(config.ImageWidth))
	pixelDeltaV := viewportV.Divide(float64(imageHeight))

	viewportUpperLeft := center.
		Subtract(core.NewVec3(0, 0, focalLength)).
		Subtract(viewportU.Divide(2)).
		Subtract(viewportV.Divide(2))
	pixel00Loc := viewportUpperLeft.Add(pixelDeltaU.Add(pixelDeltaV).Multiply(0.5))

	return &Camera{
		config:            config,
		imageHeight:       imageHeight,
		pixelSamplesScale: 1.0 / float64(config.SamplesPerPixel),
		center:            center,
		pixel00Loc:        pixel00Loc,
		pixelDeltaU:       pixelDeltaU,
		pixelDeltaV:       pixelDeltaV,
		integrator:        integrator.NewDiffuseIntegrator(config.MaxDepth),
	}, nil
}

// GetRay returns a ray from the camera center through a random point in the square
// around pixel (i, j)
func (c *Camera) GetRay(i, j int, random *rand.Rand) core.Ray {
	offset := core.SampleSquare(random)
	pixelSample := c.pixel00Loc.
		Add(c.pixelDeltaU.Multiply(float64(i) + offset.X)).
		Add(c.pixelDeltaV.Multiply(float64(j) + offset.Y))

	return core.NewRay(c.center, pixelSample.Subtract(c.center))
}

// RayColor shades ray against world using the camera's bounce limit
func (c *Camera) RayColor(ray core.Ray, world geometry.Hittable, random *rand.Rand) core.Color {
	return integrator.RayColor(ray, c.config.MaxDepth, world, random)
}

// Integrator returns the diffuse integrator configured with the camera's bounce limit
func (c *Camera) Integrator() integrator.Integrator { return c.integrator }

// Config returns the configuration the camera was built from
func (c *Camera) Config() CameraConfig { return c.config }

// ImageWidth returns the rendered width in pixels
func (c *Camera) ImageWidth() int { return c.config.ImageWidth }

// ImageHeight returns the derived image height in pixels, at least 1
func (c *Camera) ImageHeight() int { return c.imageHeight }

// SamplesPerPixel returns the number of jittered samples averaged per pixel
func (c *Camera) SamplesPerPixel() int { return c.config.SamplesPerPixel }

// MaxDepth returns the maximum number of ray segments traced per sample
func (c *Camera) MaxDepth() int { return c.config.MaxDepth }

// PixelSamplesScale returns 1/SamplesPerPixel
func (c *Camera) PixelSamplesScale() float64 { return c.pixelSamplesScale }

// Center returns the camera position
func (c *Camera) Center() core.Point3 { return c.center }

// Pixel00Loc returns the center of the upper left pixel on the viewport
func (c *Camera) Pixel00Loc() core.Point3 { return c.pixel00Loc }

// PixelDeltaU returns the offset from one pixel to the next on its row
func (c *Camera) PixelDeltaU() core.Vec3 { return c.pixelDeltaU }

// PixelDeltaV returns the offset from one pixel to the one below it
func (c *Camera) PixelDeltaV() core.Vec3 { return c.pixelDeltaV }
