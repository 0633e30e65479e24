package renderer

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/df07/go-diffuse-raytracer/pkg/core"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalPixels     int           // Total number of pixels rendered
	TotalSamples    int           // Total number of samples taken
	SamplesPerPixel int           // Samples per pixel reached by this pass
	RaysCast        int64         // Ray segments traced since the render started
	Elapsed         time.Duration // Time since the render started
	MeanLuminance   float64       // Mean pixel luminance of the frame
	StdDevLuminance float64       // Standard deviation of pixel luminance
}

// AverageSamples returns the mean number of samples per pixel
func (s RenderStats) AverageSamples() float64 {
	if s.TotalPixels == 0 {
		return 0
	}
	return float64(s.TotalSamples) / float64(s.TotalPixels)
}

// PixelStats accumulates the samples of a single pixel
type PixelStats struct {
	ColorAccum  core.Color // RGB accumulator for final result
	SampleCount int        // Number of samples taken
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color core.Color) {
	ps.ColorAccum = ps.ColorAccum.Add(color)
	ps.SampleCount++
}

// GetColor returns the current average color for this pixel
func (ps *PixelStats) GetColor() core.Color {
	if ps.SampleCount == 0 {
		return core.NewVec3(0, 0, 0)
	}
	return ps.ColorAccum.Multiply(1.0 / float64(ps.SampleCount))
}

// FrameLuminance returns the mean and standard deviation of the luminance of
// every pixel in frame
func FrameLuminance(frame Frame) (mean, stdDev float64) {
	if len(frame.Pixels) == 0 {
		return 0, 0
	}
	luminance := make([]float64, len(frame.Pixels))
	for i, pixel := range frame.Pixels {
		luminance[i] = pixel.Luminance()
	}
	if len(luminance) == 1 {
		return luminance[0], 0
	}
	return stat.MeanStdDev(luminance, nil)
}
