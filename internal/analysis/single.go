package analysis

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/tkorpela/terraseries/internal/conf"
	"github.com/tkorpela/terraseries/internal/logging"
	"github.com/tkorpela/terraseries/internal/sensor"
)

// SingleIndicator runs the pipeline for one indicator and writes the result
// in the requested format.
func SingleIndicator(settings *conf.Settings, req *Request, kind sensor.AnalysisKind) error {
	spec, err := req.Spec(kind)
	if err != nil {
		reportFailure(err)
		return err
	}

	p, stopTelemetry, err := buildPipeline(settings)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logging.Info("Starting indicator analysis",
		"kind", string(kind),
		"family", string(spec.Family),
		"start", req.Start,
		"end", req.End,
	)

	result, err := p.RunSingleIndicator(ctx, spec)
	if err != nil {
		reportFailure(err)
		return err
	}

	out, closeOut, err := openOutput(req.Output)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // best-effort close, write errors surface below

	if req.Format == FormatCSV {
		return writeSeriesCSV(out, result.Series)
	}
	return writeJSON(out, result)
}
