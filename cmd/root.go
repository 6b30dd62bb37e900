package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tkorpela/terraseries/cmd/analyze"
	"github.com/tkorpela/terraseries/cmd/combined"
	"github.com/tkorpela/terraseries/internal/buildinfo"
	"github.com/tkorpela/terraseries/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "terraseries",
		Short:   "Satellite-archive time-series analysis CLI",
		Version: build.String(),
		Long: "Terraseries derives vegetation, surface-temperature and radar-backscatter " +
			"time series for a region of interest from a remote satellite image archive, " +
			"harmonizing sensor generations and adapting the processing strategy to the " +
			"archive's per-call compute limits.",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	subcommands := []*cobra.Command{
		analyze.Command(settings),
		combined.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Archive.Endpoint, "endpoint", viper.GetString("archive.endpoint"), "Base URL of the image-archive REST API")
	rootCmd.PersistentFlags().StringVar(&settings.Archive.APIKey, "api-key", viper.GetString("archive.apikey"), "API key for the image archive")
	rootCmd.PersistentFlags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	rootCmd.PersistentFlags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
