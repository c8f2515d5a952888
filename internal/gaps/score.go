package gaps

import "github.com/nestegg-labs/nestegg/models"

// answeredBonus is the score credit per resolved gap, on top of the
// filled-field base.
const answeredBonus = 0.05

// Score computes a profile completeness confidence in [0,1]: the fraction
// of important fields that differ from their defaults, plus a small bonus
// per answered gap, capped at 1. Pure and deterministic.
func Score(p models.Profile, answered map[string]bool) float64 {
	filled := 0
	for _, fd := range models.ImportantFields {
		if p.Number(fd.Field) != fd.Default {
			filled++
		}
	}
	score := float64(filled)/float64(len(models.ImportantFields)) + float64(len(answered))*answeredBonus
	if score > 1 {
		return 1
	}
	return score
}
