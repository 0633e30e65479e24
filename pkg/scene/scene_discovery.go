package scene

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
)

// ErrUnknownScene is returned by Load for names that are neither built in nor a scene file
var ErrUnknownScene = errors.New("unknown scene")

const builtInGroup = "Built-in Scenes"

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`                 // Unique identifier, accepted by Load
	Name        string `json:"name"`               // Scene name
	DisplayName string `json:"displayName"`        // UI display name
	Description string `json:"description"`        // Optional description
	Group       string `json:"group"`              // Grouping category
	Type        string `json:"type"`               // "builtin" or "file"
	FilePath    string `json:"filePath,omitempty"` // Path to the scene file (file type only)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse represents the complete response for /api/scenes
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

type builtInScene struct {
	info  SceneInfo
	build func(...renderer.CameraConfig) *Scene
}

var builtInScenes = []builtInScene{
	{
		info: SceneInfo{
			ID:          "default",
			Name:        "Default Scene",
			DisplayName: "Default Scene",
			Description: "A sphere resting on a large ground sphere",
			Group:       builtInGroup,
			Type:        "builtin",
		},
		build: NewDefaultScene,
	},
	{
		info: SceneInfo{
			ID:          "spheregrid",
			Name:        "Sphere Grid",
			DisplayName: "Sphere Grid",
			Description: "9x5 grid of small spheres on the ground sphere",
			Group:       builtInGroup,
			Type:        "builtin",
		},
		build: NewSphereGridScene,
	},
}

// Names returns the IDs of the built-in scenes
func Names() []string {
	names := make([]string, 0, len(builtInScenes))
	for _, s := range builtInScenes {
		names = append(names, s.info.ID)
	}
	return names
}

// Lookup builds the built-in scene with the given ID
func Lookup(name string, cameraOverrides ...renderer.CameraConfig) (*Scene, bool) {
	for _, s := range builtInScenes {
		if s.info.ID == name {
			return s.build(cameraOverrides...), true
		}
	}
	return nil, false
}

// Load resolves a built-in scene name first, then a path to a .json scene file.
// Camera overrides are applied on top of the scene's own camera.
func Load(nameOrPath string, logger *zap.SugaredLogger, cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	if s, ok := Lookup(nameOrPath, cameraOverrides...); ok {
		return s, nil
	}
	if !strings.EqualFold(filepath.Ext(nameOrPath), ".json") {
		return nil, errors.Wrapf(ErrUnknownScene, "%q (built-in scenes: %s)", nameOrPath, strings.Join(Names(), ", "))
	}

	s, err := LoadFile(nameOrPath, logger)
	if err != nil {
		return nil, err
	}
	s.Camera = mergeOverrides(s.Camera, cameraOverrides)
	if err := s.Camera.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ListSceneFiles scans dir for .json scene files. A missing directory yields no scenes.
func ListSceneFiles(dir string, logger *zap.SugaredLogger) ([]SceneInfo, error) {
	if _, err := os.Stat(dir); err != nil {
		return []SceneInfo{}, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan scenes directory")
	}

	var scenes []SceneInfo
	for _, filePath := range files {
		sceneInfo, err := ParseSceneFileMetadata(filePath)
		if err != nil {
			// Log warning but continue processing other files
			if logger != nil {
				logger.Warnw("failed to parse scene metadata", "path", filePath, "error", err)
			}
			continue
		}
		scenes = append(scenes, sceneInfo)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})

	return scenes, nil
}

// ParseSceneFileMetadata reads the name, description and group of a scene file,
// falling back to values derived from the file name
func ParseSceneFileMetadata(filePath string) (SceneInfo, error) {
	filename := filepath.Base(filePath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	sceneInfo := SceneInfo{
		ID:       filePath,
		Name:     titleCase(nameWithoutExt),
		Group:    "Scene Files",
		Type:     "file",
		FilePath: filePath,
	}

	//nolint:gosec
	data, err := os.ReadFile(filePath)
	if err != nil {
		return sceneInfo, errors.Wrapf(err, "reading %s", filePath)
	}

	var header struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Group       string `json:"group"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return sceneInfo, errors.Wrapf(err, "parsing %s", filePath)
	}

	if header.Name != "" {
		sceneInfo.Name = header.Name
	}
	if header.Group != "" {
		sceneInfo.Group = header.Group
	}
	sceneInfo.Description = header.Description
	sceneInfo.DisplayName = sceneInfo.Name

	return sceneInfo, nil
}

// ListScenes returns the built-in scenes and the scene files in dir, grouped by category
func ListScenes(dir string, logger *zap.SugaredLogger) (ScenesResponse, error) {
	var response ScenesResponse

	allScenes := make([]SceneInfo, 0, len(builtInScenes))
	for _, s := range builtInScenes {
		allScenes = append(allScenes, s.info)
	}

	if dir != "" {
		fileScenes, err := ListSceneFiles(dir, logger)
		if err != nil {
			return response, errors.Wrap(err, "failed to list scene files")
		}
		allScenes = append(allScenes, fileScenes...)
	}

	// Group scenes by their Group field
	groupMap := make(map[string][]SceneInfo)
	for _, s := range allScenes {
		groupMap[s.Group] = append(groupMap[s.Group], s)
	}

	// Built-in first, then alphabetical
	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtInGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	response.Groups = append(response.Groups, SceneGroup{Name: builtInGroup, Scenes: groupMap[builtInGroup]})
	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   groupName,
			Scenes: groupMap[groupName],
		})
	}

	return response, nil
}

// titleCase converts a filename-style string to title case
// e.g., "two-spheres" -> "Two Spheres"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}

	return strings.Join(words, " ")
}
