package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/df07/go-diffuse-raytracer/pkg/output"
	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
	"github.com/df07/go-diffuse-raytracer/pkg/scene"
)

// Request limits
const (
	maxWidth      = 2000
	maxHeight     = 2000
	maxSamples    = 10000
	maxDepth      = 1000
	maxPasses     = 10000
	maxWorkers    = 256
	defaultPasses = 7
)

// RenderRequest is a render described by URL query parameters. Camera fields
// missing from the query keep the scene's own values.
type RenderRequest struct {
	Scene   string
	Camera  renderer.CameraConfig
	Passes  int
	Workers int
	Seed    int64
	Gamma   output.Gamma
	Format  output.Format
	Scale   int
}

// ProgressUpdate represents a single progressive update sent via SSE
type ProgressUpdate struct {
	PassNumber  int    `json:"passNumber"`
	TotalPasses int    `json:"totalPasses"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG
	Stats       Stats  `json:"stats"`
	IsComplete  bool   `json:"isComplete"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

// Stats represents render statistics
type Stats struct {
	TotalPixels     int     `json:"totalPixels"`
	TotalSamples    int     `json:"totalSamples"`
	SamplesPerPixel int     `json:"samplesPerPixel"`
	AverageSamples  float64 `json:"averageSamples"`
	RaysCast        int64   `json:"raysCast"`
	MeanLuminance   float64 `json:"meanLuminance"`
	StdDevLuminance float64 `json:"stdDevLuminance"`
	PrimitiveCount  int     `json:"primitiveCount"`
}

func newStats(stats renderer.RenderStats, primitives int) Stats {
	return Stats{
		TotalPixels:     stats.TotalPixels,
		TotalSamples:    stats.TotalSamples,
		SamplesPerPixel: stats.SamplesPerPixel,
		AverageSamples:  stats.AverageSamples(),
		RaysCast:        stats.RaysCast,
		MeanLuminance:   stats.MeanLuminance,
		StdDevLuminance: stats.StdDevLuminance,
		PrimitiveCount:  primitives,
	}
}

// handleRender streams a progressive render as SSE events: one "progress"
// event per pass, then "complete" or "error"
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, sc, err := s.parseRenderRequest(r)
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	camera, err := sc.NewCamera()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	stream, err := newEventStream(w)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	ctx := r.Context()
	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	logger := newConsoleLogger(s.logger, renderID, consoleSink{stream: stream})

	config := renderer.ProgressiveConfig{
		TileSize:   renderer.DefaultProgressiveConfig().TileSize,
		Passes:     req.Passes,
		NumWorkers: req.Workers,
		Seed:       req.Seed,
	}
	raytracer := renderer.NewProgressiveRaytracer(camera, sc.World, config, logger)
	primitives := sc.GetPrimitiveCount()

	err = raytracer.RenderProgressive(ctx, func(result renderer.PassResult) error {
		imageData, err := encodeBase64PNG(result.Frame, req.Gamma)
		if err != nil {
			return errors.Wrap(err, "failed to encode image")
		}
		return stream.sendJSON("progress", ProgressUpdate{
			PassNumber:  result.PassNumber,
			TotalPasses: result.TotalPasses,
			Width:       result.Frame.Width,
			Height:      result.Frame.Height,
			ImageData:   imageData,
			Stats:       newStats(result.Stats, primitives),
			IsComplete:  result.IsLast,
			ElapsedMs:   result.Stats.Elapsed.Milliseconds(),
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Infow("client disconnected", "render", renderID)
			return
		}
		s.logger.Warnw("render failed", "render", renderID, "error", err)
		//nolint:errcheck
		stream.sendJSON("error", map[string]string{"error": err.Error()})
		return
	}

	//nolint:errcheck
	stream.sendJSON("complete", map[string]int{"passes": raytracer.Passes()})
}

// handleImage renders a single image and returns it encoded in the requested format
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	req, sc, err := s.parseRenderRequest(r)
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	camera, err := sc.NewCamera()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	config := renderer.DefaultProgressiveConfig()
	config.NumWorkers = req.Workers
	config.Seed = req.Seed
	frame, stats, err := renderer.NewRaytracer(camera, sc.World, config, s.logger).Render(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	var buf bytes.Buffer
	if err := output.Encode(&buf, frame, output.Options{Format: req.Format, Gamma: req.Gamma, Scale: req.Scale}); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Debugw("image rendered", "scene", req.Scene, "format", req.Format, "elapsed", stats.Elapsed, "rays", stats.RaysCast)
	w.Header().Set("Content-Type", req.Format.ContentType())
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warnw("failed to write image", "error", err)
	}
}

// errUnknownScene marks a scene name the server will not load
var errUnknownScene = errors.New("unknown scene")

func statusForError(err error) int {
	if errors.Is(err, errUnknownScene) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// loadScene resolves built-in scenes and scene files listed in the scenes
// directory. Arbitrary paths are never read.
func (s *Server) loadScene(name string) (*scene.Scene, error) {
	if sc, ok := scene.Lookup(name); ok {
		return sc, nil
	}
	if s.scenesDir != "" {
		files, err := scene.ListSceneFiles(s.scenesDir, s.logger)
		if err != nil {
			return nil, err
		}
		for _, info := range files {
			if info.ID == name {
				return scene.LoadFile(info.FilePath, s.logger)
			}
		}
	}
	return nil, errors.Wrapf(errUnknownScene, "%q", name)
}

// parseRenderRequest parses and validates request parameters, returning the
// scene with the requested camera applied
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, *scene.Scene, error) {
	values := r.URL.Query()

	req := &RenderRequest{Scene: values.Get("scene")}
	if req.Scene == "" {
		req.Scene = "default"
	}
	sc, err := s.loadScene(req.Scene)
	if err != nil {
		return nil, nil, err
	}

	camera := sc.Camera
	if camera.ImageWidth, err = parseIntParam(values, "width", camera.ImageWidth, 1, maxWidth); err != nil {
		return nil, nil, err
	}
	if camera.SamplesPerPixel, err = parseIntParam(values, "samples", camera.SamplesPerPixel, 1, maxSamples); err != nil {
		return nil, nil, err
	}
	if camera.MaxDepth, err = parseIntParam(values, "depth", camera.MaxDepth, 0, maxDepth); err != nil {
		return nil, nil, err
	}
	if camera.AspectRatio, err = parseFloatParam(values, "aspect", camera.AspectRatio, 0.01, 100); err != nil {
		return nil, nil, err
	}
	if height := camera.ImageHeight(); height > maxHeight {
		return nil, nil, errors.Errorf("image height must be at most %d, got: %d (width %d, aspect %g)",
			maxHeight, height, camera.ImageWidth, camera.AspectRatio)
	}
	req.Camera = camera
	sc.Camera = camera

	if req.Passes, err = parseIntParam(values, "passes", defaultPasses, 1, maxPasses); err != nil {
		return nil, nil, err
	}
	if req.Workers, err = parseIntParam(values, "workers", 0, 0, maxWorkers); err != nil {
		return nil, nil, err
	}
	if req.Scale, err = parseIntParam(values, "scale", 1, 1, 8); err != nil {
		return nil, nil, err
	}
	req.Seed = renderer.DefaultProgressiveConfig().Seed
	if value := values.Get("seed"); value != "" {
		if req.Seed, err = cast.ToInt64E(value); err != nil {
			return nil, nil, errors.Errorf("invalid seed: %s", value)
		}
	}
	if req.Gamma, err = output.ParseGamma(values.Get("gamma")); err != nil {
		return nil, nil, err
	}
	req.Format = output.FormatPNG
	if value := values.Get("format"); value != "" {
		if req.Format, err = output.ParseFormat(value); err != nil {
			return nil, nil, err
		}
	}

	return req, sc, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	value := values.Get(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := cast.ToIntE(value)
	if err != nil {
		return 0, errors.Errorf("invalid %s: %s", key, value)
	}
	if parsed < min || parsed > max {
		return 0, errors.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
	}
	return parsed, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	value := values.Get(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, errors.Errorf("invalid %s: %s", key, value)
	}
	if !(parsed >= min && parsed <= max) {
		return 0, errors.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
	}
	return parsed, nil
}

// encodeBase64PNG encodes frame as a base64 PNG
func encodeBase64PNG(frame renderer.Frame, gamma output.Gamma) (string, error) {
	var buf bytes.Buffer
	if err := output.Encode(&buf, frame, output.Options{Format: output.FormatPNG, Gamma: gamma, Scale: 1}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// eventStream writes server-sent events. Writes are serialized so log output
// and pass updates never interleave.
type eventStream struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &eventStream{w: w, flusher: flusher}, nil
}

// send writes one event. data must not contain newlines.
func (es *eventStream) send(event string, data []byte) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	if _, err := fmt.Fprintf(es.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	es.flusher.Flush()
	return nil
}

func (es *eventStream) sendJSON(event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return es.send(event, data)
}
