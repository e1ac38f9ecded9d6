// Package configcmder provides config subcommands.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage engram configuration.

The effective configuration is resolved from environment variables
(ENGRAM_-prefixed), config.toml, and built-in defaults, in that order.`

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  configLongDesc,
	}

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewListCmd())

	return cmd
}
