package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

const (
	builtinGroup = "Built-in Scenes"
	fileGroup    = "Preset Files"
)

// SceneInfo represents a discovered preset with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier, accepted by FindPreset
	Name        string `json:"name"`        // Preset name
	DisplayName string `json:"displayName"` // UI display name
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin" or "file"
	FilePath    string `json:"filePath"`    // Path to the YAML file (file type only)
}

// SceneGroup represents a group of related presets
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse represents the complete response for /api/scenes
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

// ListPresetFiles scans dir for *.yaml presets. A missing directory yields no presets.
func ListPresetFiles(dir string) ([]SceneInfo, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return []SceneInfo{}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan preset directory: %w", err)
		}
		files = append(files, matches...)
	}

	var scenes []SceneInfo
	for _, filePath := range files {
		info, err := ParsePresetMetadata(filePath)
		if err != nil {
			core.Log().Warn("failed to parse preset metadata", "file", filePath, "error", err)
			continue
		}
		scenes = append(scenes, info)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})
	return scenes, nil
}

// ParsePresetMetadata reads only the name, description and group of a preset file
func ParsePresetMetadata(filePath string) (SceneInfo, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return SceneInfo{}, err
	}
	var header PresetFile
	if err := yaml.Unmarshal(data, &header); err != nil {
		return SceneInfo{}, err
	}
	return presetInfo(header, filePath), nil
}

// presetInfo fills fallbacks from the filename
func presetInfo(file PresetFile, filePath string) SceneInfo {
	base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	info := SceneInfo{
		ID:          "file:" + base,
		Name:        file.Name,
		Description: file.Description,
		Group:       file.Group,
		Type:        "file",
		FilePath:    filePath,
	}
	if info.Name == "" {
		info.Name = titleCase(base)
	}
	if info.Group == "" {
		info.Group = fileGroup
	}
	info.DisplayName = info.Name
	return info
}

// ListPresets returns built-in and file presets, grouped by category
func ListPresets(dir string) (ScenesResponse, error) {
	var response ScenesResponse

	var all []SceneInfo
	for _, p := range Builtins() {
		all = append(all, p.Info)
	}
	files, err := ListPresetFiles(dir)
	if err != nil {
		return response, fmt.Errorf("failed to list preset files: %w", err)
	}
	all = append(all, files...)

	groupMap := make(map[string][]SceneInfo)
	for _, scene := range all {
		groupMap[scene.Group] = append(groupMap[scene.Group], scene)
	}

	// Built-in first, then alphabetical
	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtinGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	if builtins, ok := groupMap[builtinGroup]; ok {
		response.Groups = append(response.Groups, SceneGroup{Name: builtinGroup, Scenes: builtins})
	}
	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{Name: groupName, Scenes: groupMap[groupName]})
	}
	return response, nil
}

// titleCase converts a filename-style string to title case
// e.g., "cornell-empty" -> "Cornell Empty"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}
