package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/config"
)

type initCommander struct {
	configDir string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config.toml",
		Long:  "Write a config.toml populated with defaults to the config directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}

			return cmder.run()
		},
	}

	return cmd
}

func (c *initCommander) run() error {
	if err := config.Save(config.NewDefaultConfig(), c.configDir); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	fmt.Println("wrote config.toml")
	return nil
}
