package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/df07/go-diffuse-raytracer/pkg/output"
	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
	"github.com/df07/go-diffuse-raytracer/pkg/scene"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(append([]string{"raytracer"}, args...))
	return out.String(), err
}

func TestRender_Stdout(t *testing.T) {
	out, err := runApp(t, "--width", "8", "--samples", "1", "--depth", "3", "--out", "-")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldStartWith, "P3\n8 5\n255\n")
	// Header plus one line per pixel
	test.That(t, strings.Count(out, "\n"), test.ShouldEqual, 3+8*5)

	// The explicit subcommand renders the same image
	again, err := runApp(t, "render", "--width", "8", "--samples", "1", "--depth", "3", "--out", "-")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldEqual, out)
}

func TestRender_DeterministicAcrossWorkers(t *testing.T) {
	args := []string{"render", "--scene", "spheregrid", "--width", "24", "--samples", "4", "--depth", "4", "--tile-size", "8", "--out", "-"}

	single, err := runApp(t, append(args, "--workers", "1")...)
	test.That(t, err, test.ShouldBeNil)
	many, err := runApp(t, append(args, "--workers", "4")...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, many, test.ShouldEqual, single)

	reseeded, err := runApp(t, append(args, "--seed", "7")...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reseeded, test.ShouldNotEqual, single)
}

func TestRender_ZeroDepthIsBlack(t *testing.T) {
	out, err := runApp(t, "--width", "4", "--aspect", "2", "--samples", "2", "--depth", "0", "--out", "-")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, "P3\n4 2\n255\n"+strings.Repeat("0 0 0\n", 8))
}

func TestRender_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "image.png")
	_, err := runApp(t, "--width", "10", "--samples", "1", "--depth", "2", "--gamma", "srgb", "--scale", "2", "--out", path)
	test.That(t, err, test.ShouldBeNil)

	//nolint:gosec
	f, err := os.Open(path)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	img, err := png.Decode(f)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 20)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 12)
}

func TestRender_SceneFile(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "one.json")
	test.That(t, os.WriteFile(scenePath, []byte(`{"camera": {"image_width": 6, "aspect_ratio": 1, "samples_per_pixel": 1}, "spheres": [{"center": [0, 0, -1], "radius": 0.5}]}`), 0o600), test.ShouldBeNil)

	out, err := runApp(t, "--scene", scenePath, "--format", "p3", "--out", "-")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldStartWith, "P3\n6 6\n255\n")
}

func TestRender_Errors(t *testing.T) {
	_, err := runApp(t, "--scene", "cornell-box", "--out", "-")
	test.That(t, errors.Is(err, scene.ErrUnknownScene), test.ShouldBeTrue)

	_, err = runApp(t, "--width=-3", "--out", "-")
	test.That(t, errors.Is(err, renderer.ErrInvalidCameraConfig), test.ShouldBeTrue)

	_, err = runApp(t, "--width", "4", "--samples", "1", "--format", "gif", "--out", "-")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown format")

	_, err = runApp(t, "--width", "4", "--samples", "1", "--gamma", "log", "--out", "-")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDefaultOutputPath(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	test.That(t, defaultOutputPath("default", output.FormatPPM, now), test.ShouldEqual,
		filepath.Join("output", "default", "render_20240309_140506.ppm"))
	test.That(t, defaultOutputPath("Three Spheres", output.FormatPNG, now), test.ShouldEqual,
		filepath.Join("output", "three-spheres", "render_20240309_140506.png"))
	test.That(t, defaultOutputPath(" ", output.FormatQOI, now), test.ShouldEqual,
		filepath.Join("output", "scene", "render_20240309_140506.qoi"))
}

func TestScenesCommand(t *testing.T) {
	dir := t.TempDir()
	test.That(t, os.WriteFile(filepath.Join(dir, "pair.json"), []byte(`{"name": "Pair", "description": "Two spheres"}`), 0o600), test.ShouldBeNil)

	out, err := runApp(t, "scenes", "--scenes-dir", dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Built-in Scenes:\n  default - ")
	test.That(t, out, test.ShouldContainSubstring, "  spheregrid - ")
	test.That(t, out, test.ShouldContainSubstring, "Scene Files:\n  "+filepath.Join(dir, "pair.json")+" - Two spheres\n")
}

func TestSchemaCommand(t *testing.T) {
	out, err := runApp(t, "schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `"spheres"`)
	test.That(t, out, test.ShouldContainSubstring, `"image_width"`)
}
