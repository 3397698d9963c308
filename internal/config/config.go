// Package config loads pinchvol settings from YAML, the environment and
// command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables consulted by ApplyEnv.
const (
	EnvSink   = "PINCHVOL_SINK"
	EnvCamera = "PINCHVOL_CAMERA"
	EnvListen = "PINCHVOL_LISTEN"
	EnvStore  = "PINCHVOL_STORE"
)

// Sink kinds accepted in sink.kind. Kept in sync with the volume package.
var SinkKinds = []string{"auto", "amixer", "osascript", "nircmd", "plugin", "none"}

// Config is the complete pinchvol configuration.
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Detector  DetectorConfig  `yaml:"detector"`
	Mapping   MappingConfig   `yaml:"mapping"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Sink      SinkConfig      `yaml:"sink"`
	Display   DisplayConfig   `yaml:"display"`
	Server    ServerConfig    `yaml:"server"`
	Tray      TrayConfig      `yaml:"tray"`
	Store     StoreConfig     `yaml:"store"`
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	Device int  `yaml:"device"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	FPS    int  `yaml:"fps"`
	Mirror bool `yaml:"mirror"`
	// MotionThreshold skips hand detection on still frames while no hand is
	// tracked. Percentage of changed pixels; 0 disables.
	MotionThreshold float64 `yaml:"motion_threshold"`
}

// DetectorConfig tunes the hand landmark model.
type DetectorConfig struct {
	MaxHands               int     `yaml:"max_hands"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `yaml:"min_tracking_confidence"`
	Script                 string  `yaml:"script,omitempty"`
	Python                 string  `yaml:"python,omitempty"`
}

// MappingConfig holds the pinch distance and volume bounds.
type MappingConfig struct {
	MinHandDistance float64 `yaml:"min_hand_distance"`
	MaxHandDistance float64 `yaml:"max_hand_distance"`
	MinVolume       float64 `yaml:"min_volume"`
	MaxVolume       float64 `yaml:"max_volume"`
}

// SmoothingConfig sizes the moving average.
type SmoothingConfig struct {
	HistorySize int `yaml:"history_size"`
}

// SinkConfig selects how volume changes reach the host mixer.
type SinkConfig struct {
	Kind      string `yaml:"kind"`
	Device    string `yaml:"device,omitempty"`
	Control   string `yaml:"control,omitempty"`
	PluginDir string `yaml:"plugin_dir,omitempty"`
	Plugin    string `yaml:"plugin,omitempty"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// DisplayConfig controls the preview window.
type DisplayConfig struct {
	Headless bool   `yaml:"headless"`
	Window   string `yaml:"window"`
}

// ServerConfig enables the HTTP status API when Listen is set.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// TrayConfig enables the system tray menu.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StoreConfig locates the session journal.
type StoreConfig struct {
	Path   string `yaml:"path"`
	Record bool   `yaml:"record"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Device: 0,
			Width:  640,
			Height: 480,
			FPS:    30,
			Mirror: true,
		},
		Detector: DetectorConfig{
			MaxHands:               1,
			MinDetectionConfidence: 0.7,
			MinTrackingConfidence:  0.5,
		},
		Mapping: MappingConfig{
			MinHandDistance: 30,
			MaxHandDistance: 200,
			MinVolume:       0,
			MaxVolume:       100,
		},
		Smoothing: SmoothingConfig{HistorySize: 5},
		Sink: SinkConfig{
			Kind:      "auto",
			TimeoutMs: 2000,
		},
		Display: DisplayConfig{Window: "Gesture Volume Controller"},
		Store:   StoreConfig{Path: DefaultStorePath()},
	}
}

// DataDir returns ~/.pinchvol, falling back to the working directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pinchvol"
	}
	return filepath.Join(home, ".pinchvol")
}

// DefaultStorePath returns the default SQLite journal location.
func DefaultStorePath() string {
	return filepath.Join(DataDir(), "pinchvol.db")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(DataDir(), "config.yaml")
	}
	return filepath.Join(dir, "pinchvol", "config.yaml")
}

// Load reads path over the defaults and applies environment overrides.
// A missing file at the default location is not an error; a missing file
// that was asked for explicitly is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PINCHVOL_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSink); ok && v != "" {
		c.Sink.Kind = v
	}
	if v, ok := lookup(EnvCamera); ok && v != "" {
		device, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a device index", ErrInvalid, EnvCamera, v)
		}
		c.Camera.Device = device
	}
	if v, ok := lookup(EnvListen); ok {
		c.Server.Listen = v
	}
	if v, ok := lookup(EnvStore); ok && v != "" {
		c.Store.Path = v
	}
	return nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	m := c.Mapping
	if m.MinHandDistance >= m.MaxHandDistance {
		problems = append(problems, fmt.Sprintf("mapping.min_hand_distance (%g) must be below max_hand_distance (%g)", m.MinHandDistance, m.MaxHandDistance))
	}
	if m.MinVolume < 0 || m.MaxVolume > 100 || m.MinVolume > m.MaxVolume {
		problems = append(problems, fmt.Sprintf("mapping volume bounds %g..%g must satisfy 0 <= min <= max <= 100", m.MinVolume, m.MaxVolume))
	}
	if c.Smoothing.HistorySize < 1 {
		problems = append(problems, fmt.Sprintf("smoothing.history_size (%d) must be at least 1", c.Smoothing.HistorySize))
	}
	if !validSink(c.Sink.Kind) {
		problems = append(problems, fmt.Sprintf("sink.kind %q must be one of %s", c.Sink.Kind, strings.Join(SinkKinds, ", ")))
	}
	if c.Detector.MaxHands < 1 {
		problems = append(problems, "detector.max_hands must be at least 1")
	}
	if !unit(c.Detector.MinDetectionConfidence) || !unit(c.Detector.MinTrackingConfidence) {
		problems = append(problems, "detector confidences must be within 0..1")
	}
	if c.Camera.MotionThreshold < 0 || c.Camera.MotionThreshold > 100 {
		problems = append(problems, "camera.motion_threshold must be within 0..100")
	}
	if c.Camera.Device < 0 {
		problems = append(problems, "camera.device must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func validSink(kind string) bool {
	for _, k := range SinkKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
