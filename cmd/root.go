package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-ioc/framework/config"

	_ "github.com/km-arc/go-ioc/examples/users"
)

var (
	manifestPath string
	envFiles     []string
)

var rootCmd = &cobra.Command{
	Use:          "ioc",
	Short:        "Run applications assembled from factory plugins",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "plugin manifest (YAML or JSON); defaults to PLUGINS_MANIFEST")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "env files to load (default .env)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadManifest reads the manifest named by --manifest, or by the
// configuration when the flag is empty.
func loadManifest(cfg *config.Config) (*config.Manifest, error) {
	path := manifestPath
	if path == "" {
		path = cfg.Plugins.Manifest
	}
	return config.LoadManifest(path)
}
