package geometry

import (
	"github.com/df07/go-diffuse-raytracer/pkg/core"
)

// HittableList is an ordered collection of hittables that reports the nearest hit
// among its members
type HittableList struct {
	objects []Hittable
}

// NewHittableList creates a list holding the given objects in order
func NewHittableList(objects ...Hittable) *HittableList {
	list := &HittableList{}
	for _, object := range objects {
		list.Add(object)
	}
	return list
}

// Add appends an object to the list
func (l *HittableList) Add(object Hittable) {
	l.objects = append(l.objects, object)
}

// Clear removes every object
func (l *HittableList) Clear() {
	l.objects = nil
}

// Len returns the number of objects
func (l *HittableList) Len() int {
	return len(l.objects)
}

// Objects returns a copy of the members in insertion order
func (l *HittableList) Objects() []Hittable {
	objects := make([]Hittable, len(l.objects))
	copy(objects, l.objects)
	return objects
}

// Hit returns the nearest intersection across all members. Each member is only
// tested up to the closest hit found so far; on equal t the earlier member wins.
func (l *HittableList) Hit(ray core.Ray, rayT core.Interval) (HitRecord, bool) {
	var closest HitRecord
	hitAnything := false
	closestSoFar := rayT.Max

	for _, object := range l.objects {
		rec, ok := hit(object, ray, core.NewInterval(rayT.Min, closestSoFar))
		if ok {
			hitAnything = true
			closestSoFar = rec.T
			closest = rec
		}
	}

	return closest, hitAnything
}
