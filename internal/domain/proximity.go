package domain

import "math"

const (
	earthRadiusKM = 6371.0

	// Decay breakpoints: full category weight inside the inner radius, linear
	// falloff to zero at the outer radius.
	proximityInnerKM = 1.0
	proximityOuterKM = 5.0

	// Additive contribution cap. Caps the multiplier at 2.0 so clustered
	// receptors (downtown core) cannot compound without bound.
	proximityContributionCap = 1.0
)

// ProximityEngine computes distance-decayed risk multipliers against a fixed
// receptor set. Pure geometry; safe for concurrent use.
type ProximityEngine struct {
	receptors []SensitiveReceptor
}

// NewProximityEngine builds an engine over the given receptor list.
func NewProximityEngine(receptors []SensitiveReceptor) *ProximityEngine {
	return &ProximityEngine{receptors: receptors}
}

// Multiplier returns the proximity risk multiplier for a coordinate.
// Always >= 1.0 and <= 2.0: nearness to receptors amplifies risk, never
// reduces it.
func (e *ProximityEngine) Multiplier(lat, lon float64) float64 {
	var sum float64
	for _, r := range e.receptors {
		sum += receptorContribution(r, lat, lon)
	}
	return 1.0 + math.Min(proximityContributionCap, sum)
}

// receptorContribution is the piecewise decay for one receptor. Distance 0
// (facility coincides with the receptor) yields the category's full weight.
func receptorContribution(r SensitiveReceptor, lat, lon float64) float64 {
	d := HaversineKM(lat, lon, r.Latitude, r.Longitude)
	w := r.Category.Weight()
	switch {
	case d < proximityInnerKM:
		return w
	case d < proximityOuterKM:
		return w * (proximityOuterKM - d) / (proximityOuterKM - proximityInnerKM)
	default:
		return 0
	}
}

// HaversineKM returns the great-circle distance between two WGS-84 points in
// kilometers.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
