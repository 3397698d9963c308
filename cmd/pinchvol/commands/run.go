package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/pinchvol/internal/app"
	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/config"
	"github.com/ayusman/pinchvol/internal/control"
	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/display"
	"github.com/ayusman/pinchvol/internal/gesture"
	"github.com/ayusman/pinchvol/internal/server"
	"github.com/ayusman/pinchvol/internal/store"
	"github.com/ayusman/pinchvol/internal/tray"
	"github.com/ayusman/pinchvol/internal/volume"
)

var runFlags struct {
	camera   int
	sink     string
	headless bool
	listen   string
	tray     bool
	record   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Control the output volume by pinching at the webcam",
	Long: `Capture the webcam, track one hand and map the thumb to index fingertip
distance onto the system volume.

Keys in the preview window:
  q, Esc   quit
  r        reset smoothing
  p, space pause or resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(cmd, cfg)
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.camera, "camera", 0, "camera device index")
	f.StringVar(&runFlags.sink, "sink", "", "volume sink ("+strings.Join(volume.Sinks, ", ")+")")
	f.BoolVar(&runFlags.headless, "headless", false, "run without a preview window")
	f.StringVar(&runFlags.listen, "listen", "", "serve the status API on this address, e.g. :8080")
	f.BoolVar(&runFlags.tray, "tray", false, "show a system tray menu")
	f.BoolVar(&runFlags.record, "record", false, "journal the session to the store")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags overrides cfg with the flags given on the command line.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("camera") {
		cfg.Camera.Device = runFlags.camera
	}
	if flags.Changed("sink") {
		cfg.Sink.Kind = runFlags.sink
	}
	if flags.Changed("headless") {
		cfg.Display.Headless = runFlags.headless
	}
	if flags.Changed("listen") {
		cfg.Server.Listen = runFlags.listen
	}
	if flags.Changed("tray") {
		cfg.Tray.Enabled = runFlags.tray
	}
	if flags.Changed("record") {
		cfg.Store.Record = runFlags.record
	}

	// Cocoa owns the main thread for the tray, so the preview window
	// cannot be driven from the frame loop goroutine.
	if cfg.Tray.Enabled && runtime.GOOS == "darwin" && !cfg.Display.Headless {
		log.Println("Tray enabled on macOS, running without a preview window")
		cfg.Display.Headless = true
	}
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	sink, err := volume.New(sinkConfig(cfg))
	if err != nil {
		return err
	}

	det, err := detector.NewMediaPipeDetector(detectorConfig(cfg))
	if err != nil {
		if errors.Is(err, detector.ErrScriptNotFound) {
			return fmt.Errorf("%w: install mediapipe_service.py under %s or set detector.script", err, config.DataDir())
		}
		return err
	}

	controller := control.New(controllerConfig(cfg, verbose), sink)

	appCfg := app.Config{
		Camera:     capture.NewCamera(cameraConfig(cfg)),
		Detector:   det,
		Controller: controller,
		MotionGate: capture.NewMotionGate(cfg.Camera.MotionThreshold),
	}
	if !cfg.Display.Headless {
		appCfg.Viewer = display.NewWindow(cfg.Display.Window)
	}

	var st *store.Store
	if cfg.Store.Record || cfg.Server.Listen != "" {
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}
	if cfg.Store.Record {
		appCfg.Recorder = app.NewRecorder(st)
	}

	var hub *server.Hub
	if cfg.Server.Listen != "" {
		hub = server.NewHub()
		appCfg.Publisher = hub
	}

	var t *tray.Tray
	if cfg.Tray.Enabled {
		t = tray.New()
		appCfg.OnStatus = t.SetStatus
	}

	application, err := app.New(appCfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.OutOrStdout(), banner(cfg, sink.Name()))

	if hub != nil {
		srv := server.New(server.Config{
			StaticDir: findWebDir(),
			Hub:       hub,
			Store:     st,
			Resetter:  application,
		})
		go func() {
			log.Printf("Status API listening on %s", cfg.Server.Listen)
			if err := srv.ListenAndServe(ctx, cfg.Server.Listen); err != nil {
				log.Printf("Status API failed: %v", err)
			}
		}()
	}

	if t != nil {
		err = runWithTray(ctx, application, t)
	} else {
		err = application.Run(ctx)
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary(application.Result()))
	return err
}

// runWithTray runs the frame loop in the background while the tray owns
// the main goroutine.
func runWithTray(ctx context.Context, application *app.App, t *tray.Tray) error {
	t.OnToggle(application.SetEnabled)
	t.OnReset(func() { application.RequestReset() })
	t.OnQuit(func() { application.Send(app.EventQuit) })

	done := make(chan error, 1)
	go func() {
		done <- application.Run(ctx)
		t.Quit()
	}()

	t.Run()

	// The tray can also exit on its own, e.g. when the session ends.
	application.Send(app.EventQuit)
	return <-done
}

func sinkConfig(cfg *config.Config) volume.Config {
	return volume.Config{
		Kind:      cfg.Sink.Kind,
		Device:    cfg.Sink.Device,
		Control:   cfg.Sink.Control,
		PluginDir: pluginDir(cfg),
		Plugin:    cfg.Sink.Plugin,
		TimeoutMs: cfg.Sink.TimeoutMs,
	}
}

func pluginDir(cfg *config.Config) string {
	if cfg.Sink.PluginDir != "" {
		return cfg.Sink.PluginDir
	}
	return filepath.Join(config.DataDir(), "plugins")
}

func detectorConfig(cfg *config.Config) detector.Config {
	return detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinDetectionConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		Script:          cfg.Detector.Script,
		Python:          cfg.Detector.Python,
	}
}

func cameraConfig(cfg *config.Config) capture.Config {
	return capture.Config{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPS,
		Mirror: cfg.Camera.Mirror,
	}
}

func controllerConfig(cfg *config.Config, verbose bool) control.Config {
	return control.Config{
		Mapper: gesture.Mapper{
			MinHandDistance: cfg.Mapping.MinHandDistance,
			MaxHandDistance: cfg.Mapping.MaxHandDistance,
			MinVolume:       cfg.Mapping.MinVolume,
			MaxVolume:       cfg.Mapping.MaxVolume,
		},
		HistorySize: cfg.Smoothing.HistorySize,
		Verbose:     verbose,
	}
}

func banner(cfg *config.Config, sink string) string {
	window := cfg.Display.Window
	if cfg.Display.Headless {
		window = "headless"
	}
	api := "off"
	if cfg.Server.Listen != "" {
		api = cfg.Server.Listen
	}
	record := "off"
	if cfg.Store.Record {
		record = cfg.Store.Path
	}

	return renderBox("pinchvol "+Version, []field{
		{"camera", fmt.Sprintf("#%d %dx%d", cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height)},
		{"sink", sink},
		{"pinch", fmt.Sprintf("%gpx..%gpx -> %g%%..%g%%", cfg.Mapping.MinHandDistance, cfg.Mapping.MaxHandDistance, cfg.Mapping.MaxVolume, cfg.Mapping.MinVolume)},
		{"smoothing", strconv.Itoa(cfg.Smoothing.HistorySize) + " frames"},
		{"display", window},
		{"api", api},
		{"record", record},
	})
}

func summary(res app.Result) string {
	s := res.Snapshot
	fields := []field{
		{"elapsed", res.Elapsed.Round(100 * time.Millisecond).String()},
		{"frames", fmt.Sprintf("%d (%d with a hand)", s.Stats.Frames, s.Stats.Tracked)},
		{"applied", fmt.Sprintf("%d (%d failed)", s.Stats.Applied, s.Stats.Failures)},
		{"resets", strconv.Itoa(s.Stats.Resets)},
		{"volume", fmt.Sprintf("%d%%", s.Volume)},
	}
	if res.Session != "" {
		fields = append(fields, field{"session", res.Session})
	}
	return renderBox("Session summary", fields)
}

// findWebDir searches for a status dashboard to serve next to the API.
// It checks "web", "../web" and ~/.pinchvol/web.
func findWebDir() string {
	for _, p := range []string{"web", "../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWeb := filepath.Join(config.DataDir(), "web")
	if info, err := os.Stat(homeWeb); err == nil && info.IsDir() {
		return homeWeb
	}
	return ""
}
