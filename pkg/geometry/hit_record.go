package geometry

import (
	"github.com/df07/go-diffuse-raytracer/pkg/core"
)

// HitRecord describes a single ray-surface intersection
type HitRecord struct {
	Point     core.Point3
	Normal    core.Vec3 // unit length, facing against the incoming ray
	T         float64
	FrontFace bool
}

// SetFaceNormal orients the normal against the ray. outwardNormal must have unit length.
func (h *HitRecord) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
}
