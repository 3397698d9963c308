// Package plugin discovers and runs out-of-process volume plugins.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// The executable receives one JSON Request on stdin and answers with one
// JSON Response on stdout.
package plugin

import "encoding/json"

// Action names understood by volume plugins.
const (
	ActionSetVolume = "set-volume"
	ActionMute      = "volume-mute"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
	// Platforms lists the GOOS values the plugin works on. Empty means any.
	Platforms    []string        `json:"platforms,omitempty"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is sent to a plugin on stdin.
type Request struct {
	Action string          `json:"action"`
	Source string          `json:"source,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// SetVolumeParams are the params of an ActionSetVolume request.
type SetVolumeParams struct {
	Percent int `json:"percent"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Supports reports whether the plugin declares action.
func (p *Plugin) Supports(action string) bool {
	for _, a := range p.Manifest.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// RunsOn reports whether the plugin declares support for goos.
func (p *Plugin) RunsOn(goos string) bool {
	if len(p.Manifest.Platforms) == 0 {
		return true
	}
	for _, platform := range p.Manifest.Platforms {
		if platform == goos {
			return true
		}
	}
	return false
}
