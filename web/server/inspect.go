package server

import (
	"math"
	"net/http"

	"github.com/pkg/errors"

	"github.com/df07/go-diffuse-raytracer/pkg/core"
	"github.com/df07/go-diffuse-raytracer/pkg/geometry"
	"github.com/df07/go-diffuse-raytracer/pkg/integrator"
	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
)

// InspectResult describes what the primary ray through a pixel center sees
type InspectResult struct {
	X         int        `json:"x"`
	Y         int        `json:"y"`
	Origin    [3]float64 `json:"origin"`
	Direction [3]float64 `json:"direction"`
	Hit       bool       `json:"hit"`

	// Set when Hit
	Object     int                    `json:"object"` // Index of the top-level world member; -1 for sky
	ObjectType string                 `json:"objectType,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	T          float64                `json:"t,omitempty"`
	Point      [3]float64             `json:"point"`
	Normal     [3]float64             `json:"normal"`
	FrontFace  bool                   `json:"frontFace"`

	// Set on a miss
	Background [3]float64 `json:"background"`
}

func vecArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// describeObject reports the kind of a world member and its defining properties
func describeObject(object geometry.Hittable) (string, map[string]interface{}) {
	switch obj := object.(type) {
	case geometry.Sphere:
		return "sphere", map[string]interface{}{"center": vecArray(obj.Center), "radius": obj.Radius}
	case *geometry.Sphere:
		return "sphere", map[string]interface{}{"center": vecArray(obj.Center), "radius": obj.Radius}
	case *geometry.HittableList:
		return "list", map[string]interface{}{"members": obj.Len()}
	default:
		return "unknown", nil
	}
}

// inspectPixel traces the ray through the center of pixel (x, y) without bouncing
func inspectPixel(camera *renderer.Camera, world *geometry.HittableList, x, y int) InspectResult {
	pixelCenter := camera.Pixel00Loc().
		Add(camera.PixelDeltaU().Multiply(float64(x))).
		Add(camera.PixelDeltaV().Multiply(float64(y)))
	ray := core.NewRay(camera.Center(), pixelCenter.Subtract(camera.Center()))

	result := InspectResult{
		X:         x,
		Y:         y,
		Origin:    vecArray(ray.Origin),
		Direction: vecArray(ray.Direction),
		Object:    -1,
	}

	closest := math.Inf(1)
	for i, object := range world.Objects() {
		rec, ok := object.Hit(ray, core.NewInterval(0, closest))
		if !ok {
			continue
		}
		closest = rec.T
		result.Hit = true
		result.Object = i
		result.T = rec.T
		result.Point = vecArray(rec.Point)
		result.Normal = vecArray(rec.Normal)
		result.FrontFace = rec.FrontFace
		result.ObjectType, result.Properties = describeObject(object)
	}

	if !result.Hit {
		result.Background = vecArray(integrator.BackgroundGradient(ray))
	}
	return result
}

// handleInspect reports the surface seen through a pixel of the requested render
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	_, sc, err := s.parseRenderRequest(r)
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	camera, err := sc.NewCamera()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	values := r.URL.Query()
	if values.Get("x") == "" || values.Get("y") == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("x and y are required"))
		return
	}
	x, err := parseIntParam(values, "x", 0, 0, camera.ImageWidth()-1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	y, err := parseIntParam(values, "y", 0, 0, camera.ImageHeight()-1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, http.StatusOK, inspectPixel(camera, sc.World, x, y))
}
