// Package main provides the system-control volume plugin.
// It sets or mutes the host output volume with the native mixer command of
// the platform it runs on.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Source string          `json:"source"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the optional per-install configuration.
type Config struct {
	// Device and Control select the ALSA mixer on Linux.
	Device  string `json:"device"`
	Control string `json:"control"`
}

type setVolumeParams struct {
	Percent *int `json:"percent"`
}

// actionHandler handles one action.
type actionHandler func(cfg Config, params json.RawMessage) (json.RawMessage, error)

var actionHandlers = map[string]actionHandler{
	"set-volume":  setVolume,
	"volume-mute": volumeMute,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	cfg := Config{Device: "pulse", Control: "Master"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	data, err := handler(cfg, req.Params)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse(data)
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

// run executes a command and folds its output into the error.
func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func setVolume(cfg Config, raw json.RawMessage) (json.RawMessage, error) {
	var params setVolumeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	if params.Percent == nil {
		return nil, fmt.Errorf("percent is required")
	}
	percent := *params.Percent
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("percent %d out of range 0-100", percent)
	}

	var err error
	switch runtime.GOOS {
	case "darwin":
		err = run("osascript", "-e", fmt.Sprintf("set volume output volume %d", percent))
	case "linux":
		err = run("amixer", "-D", cfg.Device, "sset", cfg.Control, strconv.Itoa(percent)+"%")
	case "windows":
		err = run("nircmd", "setsysvolume", strconv.Itoa(int(float64(percent)*655.35)))
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]int{"percent": percent})
}

// volumeMute toggles the host mute state.
func volumeMute(cfg Config, _ json.RawMessage) (json.RawMessage, error) {
	switch runtime.GOOS {
	case "darwin":
		return nil, run("osascript", "-e", `set volume output muted (not (output muted of (get volume settings)))`)
	case "linux":
		return nil, run("amixer", "-D", cfg.Device, "sset", cfg.Control, "toggle")
	case "windows":
		return nil, run("nircmd", "mutesysvolume", "2")
	default:
		return nil, fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}
