package volume

import (
	"fmt"
	"runtime"

	"github.com/ayusman/pinchvol/internal/plugin"
)

// Sink kinds accepted by New.
const (
	SinkAuto      = "auto"
	SinkAmixer    = "amixer"
	SinkOsascript = "osascript"
	SinkNircmd    = "nircmd"
	SinkPlugin    = "plugin"
	SinkNone      = "none"
)

// Sinks lists every sink kind accepted by New.
var Sinks = []string{SinkAuto, SinkAmixer, SinkOsascript, SinkNircmd, SinkPlugin, SinkNone}

// Config selects and configures a Sink.
type Config struct {
	// Kind is one of Sinks. Empty means SinkAuto.
	Kind string
	// Device and Control select the ALSA mixer for amixer.
	Device  string
	Control string
	// PluginDir and Plugin locate the plugin for SinkPlugin.
	// An empty Plugin picks the first plugin handling set-volume.
	PluginDir string
	Plugin    string
	TimeoutMs int
	// GOOS overrides runtime.GOOS for SinkAuto. Used by tests.
	GOOS string
}

// New builds the Sink described by cfg. SinkAuto picks the native mixer
// command of the running platform.
func New(cfg Config) (Sink, error) {
	goos := cfg.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	kind := cfg.Kind
	if kind == "" || kind == SinkAuto {
		switch goos {
		case "linux":
			kind = SinkAmixer
		case "darwin":
			kind = SinkOsascript
		case "windows":
			kind = SinkNircmd
		default:
			return nil, fmt.Errorf("volume: no native sink for %s", goos)
		}
	}

	switch kind {
	case SinkAmixer:
		return NewAmixerSink(cfg.Device, cfg.Control).WithTimeout(cfg.TimeoutMs), nil
	case SinkOsascript:
		return NewOsascriptSink().WithTimeout(cfg.TimeoutMs), nil
	case SinkNircmd:
		return NewNircmdSink().WithTimeout(cfg.TimeoutMs), nil
	case SinkNone:
		return NewLogSink(), nil
	case SinkPlugin:
		return newPluginSink(cfg, goos)
	default:
		return nil, fmt.Errorf("volume: unknown sink kind %q", kind)
	}
}

func newPluginSink(cfg Config, goos string) (Sink, error) {
	mgr := plugin.NewManager(cfg.PluginDir)
	if err := mgr.Discover(); err != nil {
		return nil, fmt.Errorf("volume: discover plugins: %w", err)
	}

	var (
		p   *plugin.Plugin
		err error
	)
	if cfg.Plugin != "" {
		p, err = mgr.Get(cfg.Plugin)
		if err == nil && !p.Supports(plugin.ActionSetVolume) {
			return nil, fmt.Errorf("volume: plugin %s does not handle %s", cfg.Plugin, plugin.ActionSetVolume)
		}
	} else {
		p, err = mgr.FindByAction(plugin.ActionSetVolume, goos)
	}
	if err != nil {
		return nil, fmt.Errorf("volume: plugin sink in %s: %w", cfg.PluginDir, err)
	}

	timeout := cfg.TimeoutMs
	if timeout <= 0 {
		timeout = DefaultTimeoutMs
	}
	return NewPluginSink(p, plugin.NewExecutor(timeout)), nil
}
