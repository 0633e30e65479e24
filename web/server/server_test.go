package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/df07/go-diffuse-raytracer/pkg/logging"
	"github.com/df07/go-diffuse-raytracer/pkg/output"
)

type sseEvent struct {
	Event string
	Data  string
}

func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.Data = strings.TrimPrefix(line, "data: ")
		case line == "":
			events = append(events, current)
			current = sseEvent{}
		}
	}
	test.That(t, scanner.Err(), test.ShouldBeNil)
	return events
}

func filterEvents(events []sseEvent, name string) []sseEvent {
	var filtered []sseEvent
	for _, e := range events {
		if e.Event == name {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func newTestServer(t *testing.T, scenesDir string) *Server {
	t.Helper()
	return NewServer(Options{ScenesDir: scenesDir}, logging.NewTestLogger(t))
}

func serve(t *testing.T, s *Server, ctx context.Context, path string, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &body), test.ShouldBeNil)
	return body["error"]
}

func TestHandleHealth(t *testing.T) {
	rec := serve(t, newTestServer(t, ""), context.Background(), "/api/health", nil)
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldEqual, "application/json")
	test.That(t, rec.Header().Get("Access-Control-Allow-Origin"), test.ShouldEqual, "*")
	test.That(t, strings.TrimSpace(rec.Body.String()), test.ShouldEqual, `{"status":"ok"}`)
}

func TestHandleScenes(t *testing.T) {
	dir := t.TempDir()
	test.That(t, os.WriteFile(filepath.Join(dir, "pair.json"), []byte(`{"name": "Pair"}`), 0o600), test.ShouldBeNil)

	rec := serve(t, newTestServer(t, dir), context.Background(), "/api/scenes", nil)
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)

	var response struct {
		Groups []struct {
			Name   string `json:"name"`
			Scenes []struct {
				ID string `json:"id"`
			} `json:"scenes"`
		} `json:"groups"`
	}
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &response), test.ShouldBeNil)
	test.That(t, response.Groups, test.ShouldHaveLength, 2)
	test.That(t, response.Groups[0].Name, test.ShouldEqual, "Built-in Scenes")
	test.That(t, response.Groups[1].Scenes[0].ID, test.ShouldEqual, filepath.Join(dir, "pair.json"))
}

func TestHandleSchema(t *testing.T) {
	rec := serve(t, newTestServer(t, ""), context.Background(), "/api/schema", nil)
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Body.String(), test.ShouldContainSubstring, "samples_per_pixel")
}

func TestHandleImage(t *testing.T) {
	s := newTestServer(t, "")

	rec := serve(t, s, context.Background(), "/api/image", url.Values{
		"width": {"8"}, "samples": {"1"}, "depth": {"2"}, "format": {"ppm"},
	})
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldEqual, output.FormatPPM.ContentType())
	test.That(t, rec.Body.String(), test.ShouldStartWith, "P3\n8 5\n255\n")

	// PNG by default
	rec = serve(t, s, context.Background(), "/api/image", url.Values{
		"scene": {"spheregrid"}, "width": {"12"}, "aspect": {"1.5"}, "samples": {"1"}, "depth": {"2"}, "scale": {"2"},
	})
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldEqual, "image/png")
	img, err := png.Decode(rec.Body)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 24)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 16)
}

func TestHandleImage_Deterministic(t *testing.T) {
	s := newTestServer(t, "")
	query := url.Values{"width": {"16"}, "samples": {"3"}, "depth": {"3"}, "format": {"ppm"}}

	first := serve(t, s, context.Background(), "/api/image", query).Body.String()
	query.Set("workers", "3")
	second := serve(t, s, context.Background(), "/api/image", query).Body.String()
	test.That(t, second, test.ShouldEqual, first)

	query.Set("seed", "9")
	third := serve(t, s, context.Background(), "/api/image", query).Body.String()
	test.That(t, third, test.ShouldNotEqual, first)
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name   string
		query  url.Values
		status int
		error  string
	}{
		{"zero width", url.Values{"width": {"0"}}, http.StatusBadRequest, "width must be between 1 and 2000"},
		{"huge width", url.Values{"width": {"2001"}}, http.StatusBadRequest, "width must be between 1 and 2000"},
		{"non-numeric samples", url.Values{"samples": {"lots"}}, http.StatusBadRequest, "invalid samples"},
		{"negative depth", url.Values{"depth": {"-1"}}, http.StatusBadRequest, "depth must be between 0 and 1000"},
		{"zero passes", url.Values{"passes": {"0"}}, http.StatusBadRequest, "passes must be between 1 and 10000"},
		{"bad aspect", url.Values{"aspect": {"0"}}, http.StatusBadRequest, "aspect must be between"},
		{"tall image", url.Values{"width": {"2000"}, "aspect": {"0.01"}}, http.StatusBadRequest, "image height must be at most 2000"},
		{"tall image from scene width", url.Values{"aspect": {"0.1"}}, http.StatusBadRequest, "image height must be at most 2000"},
		{"bad seed", url.Values{"seed": {"x"}}, http.StatusBadRequest, "invalid seed"},
		{"bad gamma", url.Values{"gamma": {"log"}}, http.StatusBadRequest, "gamma"},
		{"bad format", url.Values{"format": {"gif"}}, http.StatusBadRequest, "unknown format"},
		{"unknown scene", url.Values{"scene": {"cornell-box"}}, http.StatusNotFound, "unknown scene"},
		{"path outside scenes dir", url.Values{"scene": {"/etc/scene.json"}}, http.StatusNotFound, "unknown scene"},
	}

	s := newTestServer(t, t.TempDir())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/image", "/api/render"} {
				rec := serve(t, s, context.Background(), path, tt.query)
				test.That(t, rec.Code, test.ShouldEqual, tt.status)
				test.That(t, decodeError(t, rec), test.ShouldContainSubstring, tt.error)
			}
		})
	}
}

func TestHandleRender(t *testing.T) {
	s := newTestServer(t, "")
	rec := serve(t, s, context.Background(), "/api/render", url.Values{
		"width": {"8"}, "samples": {"4"}, "depth": {"2"}, "passes": {"2"},
	})
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldEqual, "text/event-stream")

	events := parseEvents(t, rec.Body.String())
	test.That(t, events, test.ShouldNotBeEmpty)
	test.That(t, events[len(events)-1].Event, test.ShouldEqual, "complete")
	test.That(t, events[len(events)-1].Data, test.ShouldEqual, `{"passes":2}`)
	test.That(t, filterEvents(events, "error"), test.ShouldBeEmpty)

	progress := filterEvents(events, "progress")
	test.That(t, progress, test.ShouldHaveLength, 2)

	expectedSamples := []int{1, 4}
	for i, event := range progress {
		var update ProgressUpdate
		test.That(t, json.Unmarshal([]byte(event.Data), &update), test.ShouldBeNil)
		test.That(t, update.PassNumber, test.ShouldEqual, i+1)
		test.That(t, update.TotalPasses, test.ShouldEqual, 2)
		test.That(t, update.IsComplete, test.ShouldEqual, i == 1)
		test.That(t, update.Stats.TotalPixels, test.ShouldEqual, 40)
		test.That(t, update.Stats.SamplesPerPixel, test.ShouldEqual, expectedSamples[i])
		test.That(t, update.Stats.TotalSamples, test.ShouldEqual, 40*expectedSamples[i])
		test.That(t, update.Stats.PrimitiveCount, test.ShouldEqual, 2)

		data, err := base64.StdEncoding.DecodeString(update.ImageData)
		test.That(t, err, test.ShouldBeNil)
		img, err := png.Decode(bytes.NewReader(data))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds().Dx(), test.ShouldEqual, 8)
		test.That(t, img.Bounds().Dy(), test.ShouldEqual, 5)
	}

	// Render logs are forwarded to the browser console
	var sawPass bool
	for _, event := range filterEvents(events, "console") {
		var msg ConsoleMessage
		test.That(t, json.Unmarshal([]byte(event.Data), &msg), test.ShouldBeNil)
		test.That(t, msg.RenderID, test.ShouldStartWith, "render-")
		if msg.Message == "pass complete" {
			sawPass = true
		}
	}
	test.That(t, sawPass, test.ShouldBeTrue)
}

func TestHandleRender_SceneFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "single.json")
	test.That(t, os.WriteFile(path, []byte(`{"camera": {"image_width": 4, "aspect_ratio": 1, "samples_per_pixel": 1}, "spheres": [{"center": [0, 0, -1], "radius": 0.5}]}`), 0o600), test.ShouldBeNil)

	rec := serve(t, newTestServer(t, dir), context.Background(), "/api/render", url.Values{"scene": {path}})
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)

	events := parseEvents(t, rec.Body.String())
	progress := filterEvents(events, "progress")
	// Passes are clamped to the sample count
	test.That(t, progress, test.ShouldHaveLength, 1)

	var update ProgressUpdate
	test.That(t, json.Unmarshal([]byte(progress[0].Data), &update), test.ShouldBeNil)
	test.That(t, update.Width, test.ShouldEqual, 4)
	test.That(t, update.Height, test.ShouldEqual, 4)
	test.That(t, update.Stats.PrimitiveCount, test.ShouldEqual, 1)
}

func TestHandleRender_ClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := serve(t, newTestServer(t, ""), ctx, "/api/render", url.Values{"width": {"8"}, "samples": {"2"}})
	events := parseEvents(t, rec.Body.String())
	test.That(t, filterEvents(events, "progress"), test.ShouldBeEmpty)
	test.That(t, filterEvents(events, "complete"), test.ShouldBeEmpty)
	test.That(t, filterEvents(events, "error"), test.ShouldBeEmpty)
}
