package whatif

import (
	"errors"

	"github.com/nestegg-labs/nestegg/models"
)

var (
	// ErrScenarioActive rejects applying a scenario while another is active.
	ErrScenarioActive = errors.New("a what-if scenario is already active")
	// ErrNotApplicable rejects a scenario whose predicate does not hold
	// against the current profile.
	ErrNotApplicable = errors.New("scenario is not applicable to the current profile")
)

// State is the per-session what-if bookkeeping. ActiveScenarioID is
// non-empty iff OriginalValues is non-nil: both are set on apply and
// cleared together on revert.
type State struct {
	ActiveScenarioID string       `json:"active_scenario_id,omitempty"`
	OriginalValues   models.Patch `json:"original_values,omitempty"`
}

// Active reports whether a scenario is currently applied.
func (s State) Active() bool { return s.OriginalValues != nil }

// Apply computes the scenario's patch against the profile and snapshots the
// exact prior value of every touched field. At most one scenario may be
// active per session: a second apply is rejected without mutating state.
// The returned patch must be handed to the profile owner in full or not at
// all.
func Apply(sc Scenario, p models.Profile, st State) (models.Patch, State, error) {
	if st.Active() {
		return nil, st, ErrScenarioActive
	}
	if !sc.Applies(p) {
		return nil, st, ErrNotApplicable
	}

	delta := sc.Delta(p)
	original := make(models.Patch, len(delta))
	for field := range delta {
		if v, ok := p[field]; ok {
			original[field] = v
		} else {
			original[field] = models.DefaultValue(field)
		}
	}
	return delta, State{ActiveScenarioID: sc.ID, OriginalValues: original}, nil
}

// Revert returns the snapshotted pre-scenario values as a patch and clears
// the state. The snapshot is returned verbatim, never recomputed, so the
// round trip is exact. Reverting with no active scenario is a no-op that
// yields an empty patch.
func Revert(st State) (models.Patch, State) {
	if !st.Active() {
		return models.Patch{}, st
	}
	return st.OriginalValues.Clone(), State{}
}
