package integrator

import (
	"math"
	"math/rand"

	"github.com/df07/go-diffuse-raytracer/pkg/core"
	"github.com/df07/go-diffuse-raytracer/pkg/geometry"
)

// Reflectance is the fraction of light a diffuse bounce passes on
const Reflectance = 0.5

var (
	skyTop    = core.NewVec3(0.5, 0.7, 1.0)
	skyBottom = core.NewVec3(1.0, 1.0, 1.0)

	// Hits are searched on the open interval (0, +Inf)
	bounceInterval = core.NewInterval(0, math.Inf(1))
)

// DiffuseIntegrator shades every surface as a uniform-hemisphere diffuse reflector
// under a sky gradient
type DiffuseIntegrator struct {
	maxDepth int
}

// NewDiffuseIntegrator creates an integrator that follows at most maxDepth bounces
func NewDiffuseIntegrator(maxDepth int) *DiffuseIntegrator {
	return &DiffuseIntegrator{maxDepth: maxDepth}
}

// MaxDepth returns the bounce limit
func (d *DiffuseIntegrator) MaxDepth() int {
	return d.maxDepth
}

// RayColor implements Integrator
func (d *DiffuseIntegrator) RayColor(ray core.Ray, world geometry.Hittable, random *rand.Rand) (core.Color, int) {
	return TraceRay(ray, d.maxDepth, world, random)
}

// RayColor returns the color seen along ray. Each hit scatters in a random direction
// on the hemisphere of the hit normal and keeps Reflectance of the light from that
// direction; a miss returns the sky. Once depth bounces are spent the result is black.
//
// The bounce chain is walked iteratively, carrying the accumulated attenuation, which
// is equivalent to color(ray, depth) = Reflectance * color(bounce, depth-1).
func RayColor(ray core.Ray, depth int, world geometry.Hittable, random *rand.Rand) core.Color {
	color, _ := TraceRay(ray, depth, world, random)
	return color
}

// TraceRay is RayColor that also reports how many ray segments were tested against world
func TraceRay(ray core.Ray, depth int, world geometry.Hittable, random *rand.Rand) (core.Color, int) {
	attenuation := 1.0
	segments := 0
	for ; depth > 0; depth-- {
		segments++
		hit, isHit := world.Hit(ray, bounceInterval)
		if !isHit {
			return BackgroundGradient(ray).Multiply(attenuation), segments
		}

		direction := core.RandomOnHemisphere(random, hit.Normal)
		ray = core.NewRay(hit.Point, direction)
		attenuation *= Reflectance
	}
	return core.NewVec3(0, 0, 0), segments
}

// BackgroundGradient blends from white when looking straight down to sky blue
// when looking straight up
func BackgroundGradient(ray core.Ray) core.Color {
	unitDirection := ray.Direction.Unit()
	t := 0.5 * (unitDirection.Y + 1.0)
	return skyBottom.Multiply(1.0 - t).Add(skyTop.Multiply(t))
}
