package scene

import (
	"encoding/json"
	"math"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/df07/go-diffuse-raytracer/pkg/core"
	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
)

// SphereConfig describes one sphere in a scene file
type SphereConfig struct {
	Center []float64 `json:"center" jsonschema:"minItems=3,maxItems=3,description=Center point [x y z]"`
	Radius float64   `json:"radius" jsonschema:"description=Sphere radius; non-positive radii give degenerate geometry"`
}

// FileConfig is the JSON scene file format. String values may reference
// environment variables as ${NAME}.
type FileConfig struct {
	Name        string                `json:"name,omitempty" jsonschema:"description=Scene name; defaults to the file name"`
	Description string                `json:"description,omitempty"`
	Group       string                `json:"group,omitempty" jsonschema:"description=Group shown in scene listings"`
	Camera      renderer.CameraConfig `json:"camera,omitempty" jsonschema:"description=Missing fields take the default camera values"`
	Spheres     []SphereConfig        `json:"spheres"`
}

// Schema returns the JSON schema of scene files
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&FileConfig{})
}

// LoadFile reads a JSON scene file after substituting environment variables
func LoadFile(path string, logger *zap.SugaredLogger) (*Scene, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scene file %s", path)
	}

	s, err := Parse(buf, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "scene file %s", path)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse builds a scene from the contents of a scene file. Unknown keys and
// non-positive radii are logged as warnings.
func Parse(data []byte, logger *zap.SugaredLogger) (*Scene, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var attributes map[string]interface{}
	if err := json.Unmarshal(data, &attributes); err != nil {
		return nil, errors.Wrap(err, "parsing scene json")
	}

	var conf FileConfig
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     &conf,
		Metadata:   &md,
		DecodeHook: wholeNumberHook,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "decoding scene")
	}
	if len(md.Unused) > 0 {
		logger.Warnw("ignoring unknown scene keys", "keys", md.Unused)
	}

	camera := MergeCameraConfig(renderer.DefaultCameraConfig(), conf.Camera)
	if err := camera.Validate(); err != nil {
		return nil, err
	}

	s := NewScene(conf.Name, camera)
	for i, sphere := range conf.Spheres {
		if len(sphere.Center) != 3 {
			return nil, errors.Errorf("sphere %d: center must have 3 components, got %d", i, len(sphere.Center))
		}
		if sphere.Radius <= 0 {
			logger.Warnw("sphere has non-positive radius; geometry is degenerate", "sphere", i, "radius", sphere.Radius)
		}
		s.AddSphere(core.NewVec3(sphere.Center[0], sphere.Center[1], sphere.Center[2]), sphere.Radius)
	}

	logger.Debugw("parsed scene", "name", s.Name, "spheres", len(conf.Spheres))
	return s, nil
}

// wholeNumberHook rejects JSON numbers with a fractional part bound for
// integer fields, which mapstructure would otherwise truncate
func wholeNumberHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	f, ok := data.(float64)
	if !ok || from.Kind() != reflect.Float64 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, errors.Errorf("expected an integer, got %v", f)
		}
	}
	return data, nil
}
