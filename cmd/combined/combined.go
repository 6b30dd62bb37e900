package combined

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tkorpela/terraseries/internal/analysis"
	"github.com/tkorpela/terraseries/internal/conf"
	"github.com/tkorpela/terraseries/internal/sensor"
)

// Command creates the combined command for multi-indicator analysis.
func Command(settings *conf.Settings) *cobra.Command {
	req := &analysis.Request{}
	var indicators []string

	cmd := &cobra.Command{
		Use:   "combined",
		Short: "Produce several indicators over one region and combine them",
		Long: "Run the pipeline independently for each requested indicator over the same " +
			"region and date range, join the series by date and compute pairwise correlations. " +
			"A failing indicator is reported but does not abort the others.",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]sensor.AnalysisKind, 0, len(indicators))
			for _, name := range indicators {
				kinds = append(kinds, sensor.AnalysisKind(name))
			}
			return analysis.Combined(settings, req, kinds)
		},
	}

	if err := setupFlags(cmd, req, &indicators); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, req *analysis.Request, indicators *[]string) error {
	cmd.Flags().StringSliceVar(indicators, "indicators", []string{"vegetation", "thermal"}, "Indicators to produce (vegetation, thermal, radar)")
	cmd.Flags().StringVar(&req.RegionFile, "region", "", "Path to a GeoJSON polygon describing the region of interest")
	cmd.Flags().StringVar(&req.BBox, "bbox", "", "Region as minLon,minLat,maxLon,maxLat, alternative to --region")
	cmd.Flags().StringVar(&req.Start, "start", "", "Start of the acquisition date range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.End, "end", "", "End of the acquisition date range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Family, "family", "", "Sensor family override, defaults per indicator")
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
