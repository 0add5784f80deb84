package passes

// Tier is a confidence label for a prediction, derived from the age of the
// element set at the time of closest approach.
type Tier string

// Reliability tiers, best to worst.
const (
	TierExcellent Tier = "EXCELLENT"
	TierVeryGood  Tier = "VERY_GOOD"
	TierGood      Tier = "GOOD"
	TierModerate  Tier = "MODERATE"
	TierPoor      Tier = "POOR"
	TierVeryPoor  Tier = "VERY_POOR"
)

// EstimateAccuracy maps days elapsed since the element epoch to an estimated
// position error (km) and a reliability tier. The error model is piecewise
// linear with breakpoints at 3, 7, 30, 90, and 180 days; each segment meets
// its neighbor exactly, so the function is continuous and non-decreasing for
// d ≥ 0. TLE accuracy degrades through atmospheric drag, orbital maneuvers,
// and space weather, none of which the elements can anticipate.
//
// A negative d (closest approach before the epoch) is evaluated through the
// first segment as given and yields an error below 1 km.
func EstimateAccuracy(daysFromEpoch float64) (errorKm float64, tier Tier) {
	d := daysFromEpoch
	switch {
	case d <= 3:
		return 1 + (d/3)*4, TierExcellent // 1-5 km
	case d <= 7:
		return 5 + ((d-3)/4)*15, TierVeryGood // 5-20 km
	case d <= 30:
		return 20 + ((d-7)/23)*80, TierGood // 20-100 km
	case d <= 90:
		return 100 + ((d-30)/60)*400, TierModerate // 100-500 km
	case d <= 180:
		return 500 + ((d-90)/90)*500, TierPoor // 500-1000 km
	default:
		return 1000 * (1 + (d-180)/180), TierVeryPoor
	}
}
