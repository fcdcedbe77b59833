package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-ioc/examples/congratulations"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
)

var birthdayName string

var congratulateCmd = &cobra.Command{
	Use:   "congratulate",
	Short: "Wish someone a happy birthday with the plugins of the manifest",
	RunE:  congratulate,
}

func init() {
	congratulateCmd.Flags().StringVarP(&birthdayName, "name", "n", "", "who to congratulate")
	_ = congratulateCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(congratulateCmd)
}

func congratulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	m, err := loadManifest(cfg)
	if err != nil {
		return err
	}
	c := container.New()
	out := cmd.OutOrStdout()
	if err := container.Add[congratulations.OutputFactory](c, func(context.Context) io.Writer { return out }); err != nil {
		return err
	}
	return congratulations.Congratulate(ctx, c, m.Plugins, birthdayName)
}
