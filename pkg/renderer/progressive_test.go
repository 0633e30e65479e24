package renderer

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/df07/go-diffuse-raytracer/pkg/logging"
)

func newTestProgressive(t *testing.T, camera CameraConfig, config ProgressiveConfig) *ProgressiveRaytracer {
	t.Helper()
	return NewProgressiveRaytracer(mustCamera(t, camera), twoSphereWorld(), config, logging.NewTestLogger(t))
}

func TestProgressiveSampleCalculation(t *testing.T) {
	config := DefaultProgressiveConfig()
	config.Passes = 7
	pr := newTestProgressive(t, CameraConfig{AspectRatio: 1, ImageWidth: 1, SamplesPerPixel: 50, MaxDepth: 1}, config)

	// Pass 1 is a one sample preview, passes 2-6 add (50-1)/6 = 8 samples each,
	// and the final pass reaches the maximum
	expectedTotalSamples := []int{1, 9, 17, 25, 33, 41, 50}
	for pass := 1; pass <= 7; pass++ {
		test.That(t, pr.getSamplesForPass(pass), test.ShouldEqual, expectedTotalSamples[pass-1])
	}
}

func TestProgressiveConfig(t *testing.T) {
	config := DefaultProgressiveConfig()
	test.That(t, config.TileSize, test.ShouldEqual, 32)
	test.That(t, config.Passes, test.ShouldEqual, 1)
	test.That(t, config.NumWorkers, test.ShouldEqual, 0)

	// Passes are clamped to [1, SamplesPerPixel]
	camera := CameraConfig{AspectRatio: 1, ImageWidth: 4, SamplesPerPixel: 3, MaxDepth: 1}
	config.Passes = 10
	test.That(t, newTestProgressive(t, camera, config).Passes(), test.ShouldEqual, 3)
	config.Passes = 0
	test.That(t, newTestProgressive(t, camera, config).Passes(), test.ShouldEqual, 1)

	// Single pass goes straight to the maximum
	test.That(t, newTestProgressive(t, camera, config).getSamplesForPass(1), test.ShouldEqual, 3)

	config.TileSize = 0
	config.NumWorkers = 3
	pr := newTestProgressive(t, camera, config)
	test.That(t, pr.config.TileSize, test.ShouldEqual, 32)
	test.That(t, pr.NumWorkers(), test.ShouldEqual, 3)
}

func TestRenderProgressive(t *testing.T) {
	config := DefaultProgressiveConfig()
	config.Passes = 4
	config.TileSize = 5
	camera := CameraConfig{AspectRatio: 2, ImageWidth: 16, SamplesPerPixel: 8, MaxDepth: 4}
	pr := newTestProgressive(t, camera, config)

	var results []PassResult
	err := pr.RenderProgressive(context.Background(), func(result PassResult) error {
		results = append(results, result)
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 4)

	// (8-1)/3 = 2 samples per intermediate pass
	expectedSamples := []int{1, 3, 5, 8}
	var previousRays int64
	for i, result := range results {
		test.That(t, result.PassNumber, test.ShouldEqual, i+1)
		test.That(t, result.TotalPasses, test.ShouldEqual, 4)
		test.That(t, result.IsLast, test.ShouldEqual, i == 3)
		test.That(t, result.Stats.SamplesPerPixel, test.ShouldEqual, expectedSamples[i])
		test.That(t, result.Stats.TotalSamples, test.ShouldEqual, 16*8*expectedSamples[i])
		test.That(t, result.Frame.Pixels, test.ShouldHaveLength, 16*8)
		test.That(t, result.Stats.RaysCast, test.ShouldBeGreaterThan, previousRays)
		previousRays = result.Stats.RaysCast
	}
	for _, tile := range pr.tiles {
		test.That(t, tile.PassesCompleted, test.ShouldEqual, 4)
	}
}

func TestRenderProgressive_DeterministicAcrossWorkers(t *testing.T) {
	camera := CameraConfig{AspectRatio: 1, ImageWidth: 20, SamplesPerPixel: 6, MaxDepth: 6}
	render := func(workers int) []Frame {
		config := DefaultProgressiveConfig()
		config.Passes = 3
		config.TileSize = 6
		config.NumWorkers = workers

		var frames []Frame
		err := newTestProgressive(t, camera, config).RenderProgressive(context.Background(), func(result PassResult) error {
			frames = append(frames, result.Frame)
			return nil
		})
		test.That(t, err, test.ShouldBeNil)
		return frames
	}

	reference := render(1)
	test.That(t, cmp.Diff(reference, render(4)), test.ShouldBeEmpty)
	test.That(t, cmp.Diff(reference, render(1)), test.ShouldBeEmpty)
}

func TestRenderProgressive_ElapsedUsesClock(t *testing.T) {
	config := DefaultProgressiveConfig()
	config.Passes = 3
	pr := newTestProgressive(t, CameraConfig{AspectRatio: 1, ImageWidth: 4, SamplesPerPixel: 3, MaxDepth: 2}, config)
	mock := clock.NewMock()
	pr.SetClock(mock)

	var elapsed []time.Duration
	err := pr.RenderProgressive(context.Background(), func(result PassResult) error {
		elapsed = append(elapsed, result.Stats.Elapsed)
		mock.Add(time.Second)
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, elapsed, test.ShouldResemble, []time.Duration{0, time.Second, 2 * time.Second})
}

func TestRenderProgressive_CallbackErrorStops(t *testing.T) {
	config := DefaultProgressiveConfig()
	config.Passes = 5
	pr := newTestProgressive(t, CameraConfig{AspectRatio: 1, ImageWidth: 4, SamplesPerPixel: 10, MaxDepth: 2}, config)

	errStop := errors.New("stop")
	calls := 0
	err := pr.RenderProgressive(context.Background(), func(result PassResult) error {
		calls++
		if result.PassNumber == 2 {
			return errStop
		}
		return nil
	})
	test.That(t, err, test.ShouldEqual, errStop)
	test.That(t, calls, test.ShouldEqual, 2)
}

func TestRenderProgressive_LogsPasses(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	config := DefaultProgressiveConfig()
	config.Passes = 2
	camera := mustCamera(t, CameraConfig{AspectRatio: 1, ImageWidth: 4, SamplesPerPixel: 2, MaxDepth: 2})
	pr := NewProgressiveRaytracer(camera, twoSphereWorld(), config, logger)

	test.That(t, pr.RenderProgressive(context.Background(), nil), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("pass complete").Len(), test.ShouldEqual, 2)
}

func TestRenderProgressive_Cancelled(t *testing.T) {
	config := DefaultProgressiveConfig()
	config.Passes = 3
	pr := newTestProgressive(t, CameraConfig{AspectRatio: 1, ImageWidth: 8, SamplesPerPixel: 3, MaxDepth: 2}, config)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := pr.RenderProgressive(ctx, func(result PassResult) error {
		calls++
		cancel()
		return nil
	})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, calls, test.ShouldEqual, 1)
}

func TestRenderPass_OutOfRange(t *testing.T) {
	config := DefaultProgressiveConfig()
	config.Passes = 2
	pr := newTestProgressive(t, CameraConfig{AspectRatio: 1, ImageWidth: 2, SamplesPerPixel: 2, MaxDepth: 1}, config)

	_, _, err := pr.RenderPass(context.Background(), 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = pr.RenderPass(context.Background(), 3)
	test.That(t, err, test.ShouldNotBeNil)
}
