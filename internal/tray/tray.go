// Package tray provides a system tray menu for pinchvol.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/pinchvol/internal/control"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onReset  func()
	onQuit   func()
	enabled  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuVolume *systray.MenuItem
	menuHand   *systray.MenuItem
}

// New creates a new Tray instance with volume control enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback called when volume control is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnReset sets the callback called when the reset menu item is clicked.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnQuit sets the callback called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// It must be called from the main goroutine and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(Title(control.Snapshot{}, false))
	systray.SetTooltip("Pinch Volume Control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(ToggleLabel(t.enabled), "Pause or resume volume control")
	systray.AddSeparator()

	t.menuVolume = systray.AddMenuItem(VolumeLabel(control.Snapshot{}), "Current output volume")
	t.menuVolume.Disable()
	t.menuHand = systray.AddMenuItem(HandLabel(control.StateNoHand), "Hand tracking state")
	t.menuHand.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuReset := systray.AddMenuItem("Reset smoothing", "Forget recent pinch samples")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit pinchvol")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReset.ClickedCh:
				t.handleReset()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(ToggleLabel(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleReset() {
	t.mu.RLock()
	callback := t.onReset
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus refreshes the title and the status lines. It is safe to call
// before the tray is ready.
func (t *Tray) SetStatus(snap control.Snapshot, paused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.menuVolume == nil {
		return
	}
	if t.enabled == paused {
		t.enabled = !paused
		t.menuToggle.SetTitle(ToggleLabel(t.enabled))
	}
	systray.SetTitle(Title(snap, paused))
	t.menuVolume.SetTitle(VolumeLabel(snap))
	t.menuHand.SetTitle(HandLabel(snap.State))
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Title is the text shown next to the tray icon.
func Title(snap control.Snapshot, paused bool) string {
	switch {
	case paused:
		return "Vol ‖"
	case snap.State == control.StateTracking:
		return fmt.Sprintf("Vol %d%% ✋", snap.Percent)
	default:
		return fmt.Sprintf("Vol %d%%", snap.Percent)
	}
}

// ToggleLabel is the title of the pause menu item.
func ToggleLabel(enabled bool) string {
	if enabled {
		return "● Active"
	}
	return "○ Paused"
}

// VolumeLabel describes the emitted volume and the sink it goes to.
func VolumeLabel(snap control.Snapshot) string {
	if snap.Sink == "" {
		return fmt.Sprintf("Volume: %d%%", snap.Volume)
	}
	return fmt.Sprintf("Volume: %d%% (%s)", snap.Volume, snap.Sink)
}

// HandLabel describes the tracking state.
func HandLabel(state control.State) string {
	if state == control.StateTracking {
		return "Hand: tracking"
	}
	return "Hand: not detected"
}
