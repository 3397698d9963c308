package commands

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/pinchvol/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pinchvol",
	Short: "Control the system volume with a thumb and index finger pinch",
	Long: `pinchvol - Pinch-to-volume control through a webcam.

Hold a hand in front of the camera and pinch: fingertips together is full
volume, 200 pixels apart is silence. Readings are averaged over the last
five frames before they reach the system mixer.

Configuration is read from the OS config directory:
  macOS:   ~/Library/Application Support/pinchvol/config.yaml
  Linux:   ~/.config/pinchvol/config.yaml
  Windows: %AppData%/pinchvol/config.yaml

Examples:
  # Run with a preview window
  pinchvol run

  # Run without a window, exposing the status API
  pinchvol run --headless --listen :8080

  # Check the volume sink works
  pinchvol set-volume 30`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads and validates the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
