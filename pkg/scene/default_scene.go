package scene

import (
	"github.com/df07/go-diffuse-raytracer/pkg/core"
	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
)

// NewDefaultScene creates a sphere of radius 0.5 one unit in front of the camera,
// resting on a ground sphere of radius 100
func NewDefaultScene(cameraOverrides ...renderer.CameraConfig) *Scene {
	s := NewScene("default", mergeOverrides(renderer.DefaultCameraConfig(), cameraOverrides))

	s.AddSphere(core.NewVec3(0, 0, -1), 0.5)
	s.AddSphere(core.NewVec3(0, -100.5, -1), 100)

	return s
}
