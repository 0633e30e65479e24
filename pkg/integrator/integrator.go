package integrator

import (
	"math/rand"

	"github.com/df07/go-diffuse-raytracer/pkg/core"
	"github.com/df07/go-diffuse-raytracer/pkg/geometry"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// RayColor computes the linear color carried back along ray and the number of
	// ray segments traced to find it
	RayColor(ray core.Ray, world geometry.Hittable, random *rand.Rand) (core.Color, int)
}
