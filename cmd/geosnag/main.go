package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"geosnag-go/internal/app"
	"geosnag-go/internal/config"
)

func main() {
	// A .env next to the invocation may carry AWS credentials and GEOSNAG_* paths.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// configPath returns --config if given, otherwise the default location.
func configPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, nil
	}
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("getting defaults: %w", err)
	}
	return defaults["config_path"], nil
}

// loadConfig reads the config file selected by --config or the defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp creates a GeoSnagApp from cfg. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "run", "scan").
func newApp(cmd *cobra.Command, cfg *config.Config, operation string, ov app.Overrides) (*app.GeoSnagApp, error) {
	ov.Verbose, _ = cmd.Flags().GetBool("verbose")
	if ov.Console == nil && ov.Verbose {
		ov.Console = cmd.ErrOrStderr()
	}
	a, err := app.NewGeoSnagApp(cmd.Context(), cfg, operation, ov)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "geosnag",
	Short:        "Geotag camera photos from phone photos taken at the same time",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default $GEOSNAG_CONFIG_PATH or ~/.config/geosnag.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging, also echoed to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(reportCmd)
}
