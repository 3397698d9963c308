package volume

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/pinchvol/internal/plugin"
)

// PluginSink sets the volume through an out-of-process plugin that handles
// the set-volume action.
type PluginSink struct {
	plugin   *plugin.Plugin
	executor *plugin.Executor
}

// NewPluginSink creates a sink backed by p.
func NewPluginSink(p *plugin.Plugin, executor *plugin.Executor) *PluginSink {
	return &PluginSink{plugin: p, executor: executor}
}

// Name returns "plugin:<name>".
func (s *PluginSink) Name() string {
	return "plugin:" + s.plugin.Manifest.Name
}

// SetOutputVolume asks the plugin to apply percent.
func (s *PluginSink) SetOutputVolume(ctx context.Context, percent int) error {
	percent = Clamp(percent)

	resp, err := s.executor.SetVolume(ctx, s.plugin, percent)
	if err != nil {
		kind := KindFailed
		if errors.Is(err, plugin.ErrTimeout) {
			kind = KindBusy
		}
		return &Error{Sink: s.Name(), Kind: kind, Percent: percent, Err: err}
	}
	if !resp.Success {
		return &Error{
			Sink:    s.Name(),
			Kind:    classifyMessage(resp.Error),
			Percent: percent,
			Err:     fmt.Errorf("plugin reported failure: %s", resp.Error),
		}
	}
	return nil
}
