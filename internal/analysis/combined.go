package analysis

import (
	"context"
	"encoding/csv"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tkorpela/terraseries/internal/conf"
	"github.com/tkorpela/terraseries/internal/errors"
	"github.com/tkorpela/terraseries/internal/logging"
	"github.com/tkorpela/terraseries/internal/pipeline"
	"github.com/tkorpela/terraseries/internal/sensor"
)

// Combined runs the pipeline for several indicators over the same region and
// date range, then writes the joined result.
func Combined(settings *conf.Settings, req *Request, kinds []sensor.AnalysisKind) error {
	if len(kinds) == 0 {
		return errors.Newf("combined analysis needs at least one indicator").
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}

	specs := make([]pipeline.RequestSpec, 0, len(kinds))
	for _, kind := range kinds {
		spec, err := req.Spec(kind)
		if err != nil {
			reportFailure(err)
			return err
		}
		specs = append(specs, *spec)
	}

	p, stopTelemetry, err := buildPipeline(settings)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logging.Info("Starting combined analysis",
		"indicators", len(specs),
		"start", req.Start,
		"end", req.End,
	)

	result, err := p.RunCombined(ctx, specs)
	if err != nil {
		reportFailure(err)
		return err
	}

	for i := range result.Failed {
		logging.Warn("Indicator failed",
			"indicator", result.Failed[i].Name,
			"message", result.Failed[i].Message,
		)
	}

	out, closeOut, err := openOutput(req.Output)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // best-effort close, write errors surface below

	if req.Format == FormatCSV {
		return writeCombinedCSV(out, result)
	}
	return writeJSON(out, result)
}

// writeCombinedCSV writes the date-joined table with one column per indicator.
func writeCombinedCSV(w io.Writer, result *pipeline.CombinedResult) error {
	names := make([]string, 0, len(result.Indicators))
	for i := range result.Indicators {
		names = append(names, result.Indicators[i].Name)
	}

	cw := csv.NewWriter(w)
	header := append([]string{"date"}, names...)
	if err := cw.Write(append(header, "sensor")); err != nil {
		return err
	}

	for i := range result.Combined {
		cp := &result.Combined[i]
		record := make([]string, 0, len(names)+2)
		record = append(record, cp.Date)
		for _, name := range names {
			if v, ok := cp.Values[name]; ok {
				record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				record = append(record, "")
			}
		}
		record = append(record, cp.SensorLabel)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
