package gaps

import "github.com/nestegg-labs/nestegg/models"

// Open returns the gap definitions whose predicate currently holds and
// whose id has not been resolved yet. Catalog order is preserved; the
// function is pure and safe to call speculatively.
func Open(p models.Profile, answered map[string]bool) []Definition {
	var out []Definition
	for _, def := range Catalog {
		if answered[def.ID] {
			continue
		}
		if def.Applies(p) {
			out = append(out, def)
		}
	}
	return out
}

// OpenQuestions renders the open gaps into wire question records, in the
// same shape the advisory service would have produced.
func OpenQuestions(p models.Profile, answered map[string]bool) []models.Question {
	defs := Open(p, answered)
	out := make([]models.Question, 0, len(defs))
	for _, def := range defs {
		out = append(out, def.AsQuestion(p))
	}
	return out
}
