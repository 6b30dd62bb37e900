// Package coverage filters candidate images by how much of the region of
// interest their footprint covers.
package coverage

import (
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/tkorpela/terraseries/internal/archive"
	"github.com/tkorpela/terraseries/internal/geo"
	"github.com/tkorpela/terraseries/internal/logging"
)

// Mode selects how strictly footprints are tested against the region.
type Mode int

const (
	// ModeStrict requires topological containment of the region in addition
	// to the overlap threshold. Used for optical scenes with wide footprints.
	ModeStrict Mode = iota
	// ModeLenient applies the overlap threshold alone. Used for radar, whose
	// swaths are narrower and rarely contain the whole region.
	ModeLenient
)

// Result is the outcome of a coverage pass. When filtering would have removed
// every candidate the original set is kept instead: partial coverage beats no
// data, and FellBack marks the quality caveat for the final result.
type Result struct {
	Kept     []archive.ImageRef
	FellBack bool
}

var logger *slog.Logger

func log() *slog.Logger {
	if logger == nil {
		logger = logging.ForService("coverage")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return logger
}

// Filter keeps the images whose footprint covers at least threshold percent
// of region, with containment additionally required in strict mode. Images
// without footprint metadata are kept: absence of metadata is not evidence of
// poor coverage.
func Filter(images []archive.ImageRef, region orb.Polygon, threshold float64, mode Mode) Result {
	kept := make([]archive.ImageRef, 0, len(images))
	for i := range images {
		if covers(&images[i], region, threshold, mode) {
			kept = append(kept, images[i])
		}
	}

	if len(kept) == 0 && len(images) > 0 {
		log().Warn("Coverage filter removed every candidate, falling back to unfiltered set",
			"candidates", len(images),
			"threshold_pct", threshold,
			"strict", mode == ModeStrict,
		)
		return Result{Kept: images, FellBack: true}
	}

	log().Debug("Coverage filter complete",
		"candidates", len(images),
		"kept", len(kept),
		"threshold_pct", threshold,
	)
	return Result{Kept: kept}
}

func covers(img *archive.ImageRef, region orb.Polygon, threshold float64, mode Mode) bool {
	if len(img.Footprint) == 0 {
		return true
	}
	pct := geo.OverlapPercent(img.Footprint, region)
	if pct < threshold {
		return false
	}
	if mode == ModeStrict {
		return geo.Contains(img.Footprint, region)
	}
	return true
}
