package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-ioc/framework/app"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/logging"
)

var withMetrics bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve HTTP with the plugins of the manifest",
	RunE:  serve,
}

func init() {
	serveCmd.Flags().BoolVar(&withMetrics, "metrics", false, "instrument factories and serve /metrics")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	log := logging.New("app")
	m, err := loadManifest(cfg)
	if err != nil {
		return err
	}

	opts := []app.Option{app.WithConfig(cfg), app.WithLogger(log)}
	if withMetrics {
		opts = append(opts, app.WithMetrics())
	}
	a, err := app.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Errorf("close: %v", err)
		}
	}()

	if err := container.DefaultCatalog.Load(ctx, a.Providers, m.Plugins...); err != nil {
		return fmt.Errorf("load plugins: %w", err)
	}
	log.Infof("loaded plugins: %s", strings.Join(m.Names(), ", "))
	return a.Run(ctx)
}
