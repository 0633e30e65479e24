package scene

import (
	"github.com/df07/go-diffuse-raytracer/pkg/core"
	"github.com/df07/go-diffuse-raytracer/pkg/geometry"
	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Name   string
	Camera renderer.CameraConfig
	World  *geometry.HittableList
}

// NewScene creates an empty scene rendered with camera
func NewScene(name string, camera renderer.CameraConfig) *Scene {
	return &Scene{
		Name:   name,
		Camera: camera,
		World:  geometry.NewHittableList(),
	}
}

// AddSphere adds a sphere to the world
func (s *Scene) AddSphere(center core.Point3, radius float64) {
	s.World.Add(geometry.NewSphere(center, radius))
}

// NewCamera builds the camera described by the scene's camera config
func (s *Scene) NewCamera() (*renderer.Camera, error) {
	return renderer.NewCamera(s.Camera)
}

// GetPrimitiveCount returns the number of spheres in the scene, including those in nested lists
func (s *Scene) GetPrimitiveCount() int {
	return countPrimitives(s.World)
}

func countPrimitives(object geometry.Hittable) int {
	switch obj := object.(type) {
	case *geometry.HittableList:
		count := 0
		for _, child := range obj.Objects() {
			count += countPrimitives(child)
		}
		return count
	default:
		return 1
	}
}

// MergeCameraConfig returns base with every non-zero field of override applied.
// A MaxDepth of zero therefore cannot be set through an override.
func MergeCameraConfig(base, override renderer.CameraConfig) renderer.CameraConfig {
	result := base
	if override.AspectRatio != 0 {
		result.AspectRatio = override.AspectRatio
	}
	if override.ImageWidth != 0 {
		result.ImageWidth = override.ImageWidth
	}
	if override.SamplesPerPixel != 0 {
		result.SamplesPerPixel = override.SamplesPerPixel
	}
	if override.MaxDepth != 0 {
		result.MaxDepth = override.MaxDepth
	}
	return result
}

func mergeOverrides(base renderer.CameraConfig, overrides []renderer.CameraConfig) renderer.CameraConfig {
	for _, override := range overrides {
		base = MergeCameraConfig(base, override)
	}
	return base
}
