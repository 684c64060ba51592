package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathway_Multiplier(t *testing.T) {
	tests := []struct {
		pathway  Pathway
		expected float64
	}{
		{PathwayAir, 1.0},
		{PathwayWater, 0.95},
		{PathwayLand, 0.7},
		{PathwayDisposal, 0.3},
		{PathwayRecycling, 0.15},
		{Pathway("sewer"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.pathway), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.pathway.Multiplier())
		})
	}

	// Air is the dominant exposure route; recycling the least.
	assert.Greater(t, PathwayAir.Multiplier(), PathwayWater.Multiplier())
	assert.Less(t, PathwayRecycling.Multiplier(), PathwayDisposal.Multiplier())
}

func TestPathway_Valid(t *testing.T) {
	assert.True(t, PathwayAir.Valid())
	assert.True(t, PathwayRecycling.Valid())
	assert.False(t, Pathway("").Valid())
	assert.False(t, Pathway("AIR").Valid())
}

func TestFacility_HasCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		expected bool
	}{
		{"toronto facility", 43.65, -79.38, true},
		{"missing encoded as zero", 0, 0, false},
		{"latitude out of range", 95, -79.38, false},
		{"longitude out of range", 43.65, 181, false},
		{"zero latitude only", 0, -79.38, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Facility{Latitude: tt.lat, Longitude: tt.lon}
			assert.Equal(t, tt.expected, f.HasCoordinates())
		})
	}
}

func TestFacility_TotalReleaseKG(t *testing.T) {
	f := Facility{
		Releases: []ChemicalRelease{
			{ChemicalName: "benzene", AmountKG: 10.5, Pathway: PathwayAir},
			{ChemicalName: "benzene", AmountKG: 2.0, Pathway: PathwayWater},
			{ChemicalName: "lead", AmountKG: 0, Pathway: PathwayLand},
		},
	}
	assert.InDelta(t, 12.5, f.TotalReleaseKG(), 1e-9)

	assert.Zero(t, Facility{}.TotalReleaseKG())
}
