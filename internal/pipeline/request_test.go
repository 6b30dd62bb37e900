package pipeline

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkorpela/terraseries/internal/errors"
	"github.com/tkorpela/terraseries/internal/sensor"
)

func validSpec() RequestSpec {
	return RequestSpec{
		Region:        smallRegion(),
		Start:         day(2020, 1, 1),
		End:           day(2021, 1, 1),
		Family:        sensor.FamilySentinel2,
		CloudCoverMax: 20,
		Masking:       MaskingBasic,
		Kind:          sensor.KindVegetation,
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	t.Parallel()

	spec := validSpec()
	require.NoError(t, spec.Validate())
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*RequestSpec)
	}{
		{"missing region", func(s *RequestSpec) { s.Region = nil }},
		{"open ring", func(s *RequestSpec) {
			s.Region = orb.Polygon{orb.Ring{{24.9, 60.1}, {25.0, 60.1}, {25.0, 60.2}, {24.9, 60.2}}}
		}},
		{"too few vertices", func(s *RequestSpec) {
			s.Region = orb.Polygon{orb.Ring{{24.9, 60.1}, {25.0, 60.1}, {24.9, 60.1}}}
		}},
		{"missing dates", func(s *RequestSpec) { s.Start = time.Time{}; s.End = time.Time{} }},
		{"inverted range", func(s *RequestSpec) { s.Start, s.End = s.End, s.Start }},
		{"start before archive epoch", func(s *RequestSpec) { s.Start = day(1975, 1, 1) }},
		{"cloud threshold over 100", func(s *RequestSpec) { s.CloudCoverMax = 120 }},
		{"negative cloud threshold", func(s *RequestSpec) { s.CloudCoverMax = -5 }},
		{"unknown masking", func(s *RequestSpec) { s.Masking = "paranoid" }},
		{"unknown kind", func(s *RequestSpec) { s.Kind = "moisture" }},
		{"family cannot serve kind", func(s *RequestSpec) {
			s.Family = sensor.FamilySentinel2
			s.Kind = sensor.KindThermal
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spec := validSpec()
			tt.mutate(&spec)

			err := spec.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))
		})
	}
}

func TestValidateEqualStartEnd(t *testing.T) {
	t.Parallel()

	spec := validSpec()
	spec.End = spec.Start
	require.Error(t, spec.Validate())
}
