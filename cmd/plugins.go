package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-ioc/framework/container"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the plugins a manifest may name",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range container.DefaultCatalog.Names() {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}
