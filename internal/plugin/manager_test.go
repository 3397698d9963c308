package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeManifest creates dir/name/plugin.json from m.
func writeManifest(t *testing.T, dir, name string, m Manifest) string {
	t.Helper()

	pluginDir := filepath.Join(dir, name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()

	pluginDir := writeManifest(t, tmpDir, "system-control", Manifest{
		Name:        "system-control",
		Version:     "1.0.0",
		Description: "Host mixer control",
		Executable:  "system-control",
		Actions:     []string{ActionSetVolume, ActionMute},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	p := plugins[0]
	if p.Manifest.Name != "system-control" {
		t.Errorf("expected plugin name 'system-control', got %q", p.Manifest.Name)
	}
	if p.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, p.Path)
	}
	if p.Executable != filepath.Join(pluginDir, "system-control") {
		t.Errorf("unexpected executable path %q", p.Executable)
	}
	if !p.Supports(ActionSetVolume) {
		t.Error("expected plugin to support set-volume")
	}
	if p.Supports("brightness-up") {
		t.Error("expected plugin not to support brightness-up")
	}
}

func TestManager_Discover_Defaults(t *testing.T) {
	tmpDir := t.TempDir()

	pluginDir := writeManifest(t, tmpDir, "mixer", Manifest{
		Actions: []string{ActionSetVolume},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	p, err := manager.Get("mixer")
	if err != nil {
		t.Fatalf("expected name to default to directory name: %v", err)
	}
	if p.Executable != filepath.Join(pluginDir, "mixer") {
		t.Errorf("expected executable to default to name, got %q", p.Executable)
	}
}

func TestManager_Discover_Sorted(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		writeManifest(t, tmpDir, name, Manifest{Name: name, Actions: []string{ActionSetVolume}})
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	want := []string{"alpha", "mid", "zeta"}
	if len(plugins) != len(want) {
		t.Fatalf("expected %d plugins, got %d", len(want), len(plugins))
	}
	for i, name := range want {
		if plugins[i].Manifest.Name != name {
			t.Errorf("position %d: expected %q, got %q", i, name, plugins[i].Manifest.Name)
		}
	}
}

func TestManager_Discover_SkipsBadEntries(t *testing.T) {
	tmpDir := t.TempDir()

	// Invalid JSON
	badDir := filepath.Join(tmpDir, "bad-plugin")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(badDir, ManifestFile), []byte("not valid json"), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	// No manifest at all
	if err := os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	// Stray file at the top level
	if err := os.WriteFile(filepath.Join(tmpDir, "README"), []byte("hi"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Fatalf("expected 0 plugins, got %d", n)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist")

	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Fatalf("expected 0 plugins, got %d", n)
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := NewManager(t.TempDir())

	_, err := manager.Get("nonexistent-plugin")
	if !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_FindByAction(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, "mac-only", Manifest{
		Name:      "mac-only",
		Actions:   []string{ActionSetVolume},
		Platforms: []string{"darwin"},
	})
	writeManifest(t, tmpDir, "muter", Manifest{
		Name:    "muter",
		Actions: []string{ActionMute},
	})
	writeManifest(t, tmpDir, "portable", Manifest{
		Name:    "portable",
		Actions: []string{ActionSetVolume},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	t.Run("platform match wins by name order", func(t *testing.T) {
		p, err := manager.FindByAction(ActionSetVolume, "darwin")
		if err != nil {
			t.Fatalf("FindByAction() failed: %v", err)
		}
		if p.Manifest.Name != "mac-only" {
			t.Errorf("expected mac-only, got %q", p.Manifest.Name)
		}
	})

	t.Run("platform filter skips foreign plugins", func(t *testing.T) {
		p, err := manager.FindByAction(ActionSetVolume, "linux")
		if err != nil {
			t.Fatalf("FindByAction() failed: %v", err)
		}
		if p.Manifest.Name != "portable" {
			t.Errorf("expected portable, got %q", p.Manifest.Name)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := manager.FindByAction("brightness-up", "linux")
		if !errors.Is(err, ErrPluginNotFound) {
			t.Errorf("expected ErrPluginNotFound, got %v", err)
		}
	})
}

func TestManager_PluginDir(t *testing.T) {
	pluginDir := "/path/to/plugins"
	manager := NewManager(pluginDir)

	if manager.PluginDir() != pluginDir {
		t.Errorf("expected plugin dir %q, got %q", pluginDir, manager.PluginDir())
	}
}
