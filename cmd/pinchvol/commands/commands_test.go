package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/pinchvol/internal/config"
	"github.com/ayusman/pinchvol/internal/store"
)

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"40", 40, false},
		{"40%", 40, false},
		{" 100 ", 100, false},
		{"101", 0, true},
		{"-1", 0, true},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePercent(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePercent(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestApplyRunFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(runCmd.Flags())
	if err := cmd.Flags().Parse([]string{"--camera", "2", "--sink", "none", "--headless", "--listen", ":9000", "--record"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg := config.Default()
	cfg.Mapping.MaxVolume = 80
	applyRunFlags(cmd, cfg)

	if cfg.Camera.Device != 2 || cfg.Sink.Kind != "none" || !cfg.Display.Headless {
		t.Errorf("flags not applied: %+v %+v %+v", cfg.Camera, cfg.Sink, cfg.Display)
	}
	if cfg.Server.Listen != ":9000" || !cfg.Store.Record {
		t.Errorf("flags not applied: %+v %+v", cfg.Server, cfg.Store)
	}
	if cfg.Mapping.MaxVolume != 80 {
		t.Errorf("unset flags must leave config alone, got max volume %g", cfg.Mapping.MaxVolume)
	}
}

func TestConfigTranslation(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.PluginDir = "/opt/plugins"
	cfg.Smoothing.HistorySize = 7

	sc := sinkConfig(cfg)
	if sc.Kind != "auto" || sc.PluginDir != "/opt/plugins" || sc.TimeoutMs != 2000 {
		t.Errorf("unexpected sink config %+v", sc)
	}

	cc := controllerConfig(cfg, true)
	if cc.HistorySize != 7 || !cc.Verbose || cc.Mapper.MaxHandDistance != 200 {
		t.Errorf("unexpected controller config %+v", cc)
	}

	dc := detectorConfig(cfg)
	if dc.MaxHands != 1 || dc.MinConfidence != 0.7 || dc.MinTrackingConf != 0.5 {
		t.Errorf("unexpected detector config %+v", dc)
	}

	cam := cameraConfig(cfg)
	if cam.Width != 640 || cam.Height != 480 || !cam.Mirror {
		t.Errorf("unexpected camera config %+v", cam)
	}
}

func TestPluginDirDefault(t *testing.T) {
	cfg := config.Default()
	if !strings.HasSuffix(pluginDir(cfg), "plugins") {
		t.Errorf("expected default plugin dir under the data dir, got %s", pluginDir(cfg))
	}
}

func TestSessionsTable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ended := now.Add(-time.Hour + 90*time.Second)
	sessions := []*store.Session{
		{
			ID:          "0123456789abcdef",
			Sink:        "amixer",
			Frames:      12345,
			Events:      17,
			Failures:    2,
			FinalVolume: 42,
			StartedAt:   now.Add(-time.Hour),
			EndedAt:     &ended,
		},
	}

	out := sessionsTable(sessions, now)
	for _, want := range []string{"01234567", "1 hour ago", "1m30s", "amixer", "12,345", "42%"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected table to contain %q:\n%s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	if !strings.HasPrefix(buf.String(), "pinchvol "+Version) {
		t.Errorf("unexpected version output %q", buf.String())
	}
}
