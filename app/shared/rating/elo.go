package rating

import "math"

// KFactor is the Elo K applied to validated ladder results.
const KFactor = 24

// InitialEloRating is every ladder entry's starting rating.
const InitialEloRating = 1000

// EloUpdate is the result of applying one validated match to both entries.
type EloUpdate struct {
	NextHost   int
	NextGuest  int
	DeltaHost  int
	DeltaGuest int
}

// ComputeEloUpdate returns the new ratings after a match. hostScore is 1 for
// a host win and 0 for a guest win; each side updates independently against
// its expected score, rounded to the nearest integer.
func ComputeEloUpdate(hostRating, guestRating int, hostScore float64) EloUpdate {
	expectedHost := 1 / (1 + math.Pow(10, float64(guestRating-hostRating)/400))
	expectedGuest := 1 - expectedHost
	guestScore := 1 - hostScore

	nextHost := int(math.Round(float64(hostRating) + KFactor*(hostScore-expectedHost)))
	nextGuest := int(math.Round(float64(guestRating) + KFactor*(guestScore-expectedGuest)))
	return EloUpdate{
		NextHost:   nextHost,
		NextGuest:  nextGuest,
		DeltaHost:  nextHost - hostRating,
		DeltaGuest: nextGuest - guestRating,
	}
}
