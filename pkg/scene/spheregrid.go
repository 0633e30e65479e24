package scene

import (
	"math"

	"github.com/df07/go-diffuse-raytracer/pkg/core"
	"github.com/df07/go-diffuse-raytracer/pkg/geometry"
	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
)

var (
	groundCenter = core.NewVec3(0, -100.5, -1)
	groundRadius = 100.0
)

// NewSphereGridScene creates a grid of small spheres resting on the ground sphere
func NewSphereGridScene(cameraOverrides ...renderer.CameraConfig) *Scene {
	defaultCameraConfig := renderer.DefaultCameraConfig()
	defaultCameraConfig.SamplesPerPixel = 50

	s := NewScene("spheregrid", mergeOverrides(defaultCameraConfig, cameraOverrides))
	s.World.Add(geometry.NewSphere(groundCenter, groundRadius))

	// Grid spans x in [-1.8, 1.8] and runs from z = -1 back to z = -4
	columns, rows := 9, 5
	width, depth := 3.6, 3.0
	spacing := math.Min(width/float64(columns-1), depth/float64(rows-1))

	// Scale sphere radius based on spacing, with a visible minimum
	sphereRadius := math.Max(0.02, spacing*0.35)

	// Each row is its own list so the whole grid nests under the world
	grid := geometry.NewHittableList()
	for j := 0; j < rows; j++ {
		row := geometry.NewHittableList()
		z := -1 - float64(j)*depth/float64(rows-1)
		for i := 0; i < columns; i++ {
			x := float64(i)*width/float64(columns-1) - width/2
			row.Add(geometry.NewSphere(restingOnGround(x, z, sphereRadius), sphereRadius))
		}
		grid.Add(row)
	}
	s.World.Add(grid)

	return s
}

// restingOnGround returns the center of a sphere of the given radius touching the
// top of the ground sphere above (x, z)
func restingOnGround(x, z, radius float64) core.Point3 {
	dx := x - groundCenter.X
	dz := z - groundCenter.Z
	reach := groundRadius + radius
	y := groundCenter.Y + math.Sqrt(reach*reach-dx*dx-dz*dz)
	return core.NewVec3(x, y, z)
}
