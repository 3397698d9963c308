package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/pinchvol/internal/volume"
)

var setVolumeSink string

var setVolumeCmd = &cobra.Command{
	Use:   "set-volume PERCENT",
	Short: "Set the output volume once through the configured sink",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		percent, err := parsePercent(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if setVolumeSink != "" {
			cfg.Sink.Kind = setVolumeSink
		}

		sink, err := volume.New(sinkConfig(cfg))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Sink.TimeoutMs)*time.Millisecond+time.Second)
		defer cancel()

		if err := sink.SetOutputVolume(ctx, percent); err != nil {
			return fmt.Errorf("%s (%s): %w", sink.Name(), volume.KindOf(err), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Volume set to %d%% via %s\n", percent, sink.Name())
		return nil
	},
}

func init() {
	setVolumeCmd.Flags().StringVar(&setVolumeSink, "sink", "", "volume sink ("+strings.Join(volume.Sinks, ", ")+")")
	rootCmd.AddCommand(setVolumeCmd)
}

// parsePercent parses a volume argument such as "40" or "40%".
func parsePercent(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q: %w", s, err)
	}
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("volume %d out of range 0..100", n)
	}
	return n, nil
}
