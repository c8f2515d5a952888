package whatif

import (
	"fmt"

	"github.com/nestegg-labs/nestegg/models"
)

// Scenario is a named reversible hypothetical edit. Applicability is
// state-dependent and must be re-checked against the current profile before
// every offer; Delta computes the patch against the profile it is given.
type Scenario struct {
	ID       string
	Label    string
	Applies  func(models.Profile) bool
	Describe func(models.Profile) string
	Delta    func(models.Profile) models.Patch
}

const (
	retireShift   = 2
	contribBoost  = 500
	minRetireAge  = 55
	maxRetireAge  = 75
	spendingScale = 0.9
)

// Catalog is the fixed scenario set, defined once per process.
var Catalog = []Scenario{
	{
		ID:    "boost_contribution",
		Label: "Save $500 more/month",
		Applies: func(p models.Profile) bool {
			return p.Has("monthly_contribution")
		},
		Describe: func(p models.Profile) string {
			return fmt.Sprintf("Raise your monthly contribution from $%.0f to $%.0f.",
				p.Number("monthly_contribution"), p.Number("monthly_contribution")+contribBoost)
		},
		Delta: func(p models.Profile) models.Patch {
			return models.Patch{"monthly_contribution": p.Number("monthly_contribution") + contribBoost}
		},
	},
	{
		ID:    "retire_earlier",
		Label: "Retire 2 years earlier",
		Applies: func(p models.Profile) bool {
			return p.Number("retirement_age")-retireShift >= minRetireAge
		},
		Describe: func(p models.Profile) string {
			return fmt.Sprintf("Move your retirement age from %.0f to %.0f.",
				p.Number("retirement_age"), p.Number("retirement_age")-retireShift)
		},
		Delta: func(p models.Profile) models.Patch {
			return models.Patch{"retirement_age": p.Number("retirement_age") - retireShift}
		},
	},
	{
		ID:    "retire_later",
		Label: "Retire 2 years later",
		Applies: func(p models.Profile) bool {
			return p.Number("retirement_age")+retireShift <= maxRetireAge
		},
		Describe: func(p models.Profile) string {
			return fmt.Sprintf("Move your retirement age from %.0f to %.0f.",
				p.Number("retirement_age"), p.Number("retirement_age")+retireShift)
		},
		Delta: func(p models.Profile) models.Patch {
			return models.Patch{"retirement_age": p.Number("retirement_age") + retireShift}
		},
	},
	{
		ID:    "reduce_spending",
		Label: "Spend 10% less in retirement",
		Applies: func(p models.Profile) bool {
			return p.Number("retirement_income_goal") > 0
		},
		Describe: func(p models.Profile) string {
			return fmt.Sprintf("Lower your retirement income goal from $%.0f to $%.0f per year.",
				p.Number("retirement_income_goal"), p.Number("retirement_income_goal")*spendingScale)
		},
		Delta: func(p models.Profile) models.Patch {
			return models.Patch{"retirement_income_goal": p.Number("retirement_income_goal") * spendingScale}
		},
	},
}

// Lookup returns the scenario with the given id.
func Lookup(id string) (Scenario, bool) {
	for _, sc := range Catalog {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scenario{}, false
}

// Applicable filters the catalog by the current profile, preserving order.
func Applicable(p models.Profile) []Scenario {
	var out []Scenario
	for _, sc := range Catalog {
		if sc.Applies(p) {
			out = append(out, sc)
		}
	}
	return out
}
