package geometry

import (
	"github.com/df07/go-diffuse-raytracer/pkg/core"
)

// Hittable is anything a ray can intersect. The set of implementations is closed:
// Sphere and *HittableList. Hittables never mutate while answering a query, so one
// instance may be shared by any number of concurrent rays.
type Hittable interface {
	// Hit reports the nearest intersection whose t lies strictly inside rayT.
	Hit(ray core.Ray, rayT core.Interval) (HitRecord, bool)

	isHittable()
}

func (Sphere) isHittable()        {}
func (*HittableList) isHittable() {}

// hit dispatches on the concrete primitive kind
func hit(object Hittable, ray core.Ray, rayT core.Interval) (HitRecord, bool) {
	switch obj := object.(type) {
	case Sphere:
		return obj.Hit(ray, rayT)
	case *Sphere:
		return obj.Hit(ray, rayT)
	case *HittableList:
		return obj.Hit(ray, rayT)
	default:
		return HitRecord{}, false
	}
}
