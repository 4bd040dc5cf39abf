package rating

import "math"

// KFactor is the fixed ELO K used for every settlement.
const KFactor = 32

// Expected returns the expected score of a player rated ra against rb.
func Expected(ra, rb int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(rb-ra)/400.0))
}

// Change returns the rounded rating change for a player rated ra whose
// opponent is rated rb. result is 1 for a win and 0 for a loss; draws
// are not modeled. The result is unclamped, so a rating can in
// principle go negative.
func Change(ra, rb int, result float64) int {
	return int(math.Round(KFactor * (result - Expected(ra, rb))))
}

// Delta is the settlement outcome for one player.
type Delta struct {
	UserID    string `json:"userId"`
	OldRating int    `json:"oldRating"`
	NewRating int    `json:"newRating"`
	Change    int    `json:"change"`
}
