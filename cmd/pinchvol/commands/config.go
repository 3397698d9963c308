package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/pinchvol/internal/config"
)

var configSave bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and PINCHVOL_*
environment variables have been applied.

With --save the result is written back to the config file, which is a
convenient way to create one to edit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configSave {
			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", path)
			return nil
		}

		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configCmd.Flags().BoolVar(&configSave, "save", false, "write the effective configuration to the config file")
	rootCmd.AddCommand(configCmd)
}
