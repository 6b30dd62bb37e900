package analyze

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tkorpela/terraseries/internal/analysis"
	"github.com/tkorpela/terraseries/internal/conf"
	"github.com/tkorpela/terraseries/internal/sensor"
)

// Command creates the analyze command for single-indicator time series.
func Command(settings *conf.Settings) *cobra.Command {
	req := &analysis.Request{}

	cmd := &cobra.Command{
		Use:       "analyze [vegetation|thermal|radar]",
		Short:     "Produce a time series for one indicator",
		Long:      "Derive a chronological time series of the chosen indicator over the region of interest, with annual aggregates and summary statistics.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"vegetation", "thermal", "radar"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.SingleIndicator(settings, req, sensor.AnalysisKind(args[0]))
		},
	}

	// Set up flags specific to the analyze command
	if err := setupFlags(cmd, req); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures the request flags shared with the combined command.
func setupFlags(cmd *cobra.Command, req *analysis.Request) error {
	cmd.Flags().StringVar(&req.RegionFile, "region", "", "Path to a GeoJSON polygon describing the region of interest")
	cmd.Flags().StringVar(&req.BBox, "bbox", "", "Region as minLon,minLat,maxLon,maxLat, alternative to --region")
	cmd.Flags().StringVar(&req.Start, "start", "", "Start of the acquisition date range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.End, "end", "", "End of the acquisition date range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Family, "family", "", "Sensor family (landsat, sentinel2, sentinel1), defaults per indicator")
	cmd.Flags().Float64Var(&req.CloudCoverMax, "cloud-cover", 20, "Maximum reported cloud cover percent for candidate images")
	cmd.Flags().StringVar(&req.Masking, "masking", "basic", "Cloud masking strictness (off, basic, strict)")
	cmd.Flags().StringVar(&req.Format, "format", analysis.FormatJSON, "Output format (json, csv)")
	cmd.Flags().StringVar(&req.Output, "output", "", "Output file path, stdout when omitted")

	if err := cmd.MarkFlagRequired("start"); err != nil {
		return err
	}
	if err := cmd.MarkFlagRequired("end"); err != nil {
		return err
	}
	return nil
}
