package gaps

import (
	"fmt"

	"github.com/nestegg-labs/nestegg/models"
)

// Definition describes one profile gap: when it applies, what to ask, and
// the quick answers on offer. Definitions are immutable and shared across
// sessions; Catalog order is the order questions are asked in.
type Definition struct {
	ID        string
	Category  string
	Applies   func(models.Profile) bool
	Question  func(models.Profile) string
	Options   []models.Suggestion
	AllowSkip bool
}

func staticQuestion(text string) func(models.Profile) string {
	return func(models.Profile) string { return text }
}

// Catalog is the full ordered set of gap definitions. A nil Suggestion.Value
// resolves the gap without contributing data, same as an explicit skip.
var Catalog = []Definition{
	{
		ID:       "social_security",
		Category: "Social Security",
		Applies: func(p models.Profile) bool {
			return p.Number("ss_benefit_at_fra") == 0
		},
		Question: staticQuestion("Have you checked your estimated Social Security benefit? This can significantly impact your retirement income."),
		Options: []models.Suggestion{
			{Label: "Yes, about $2,000/month", Value: models.Patch{"ss_benefit_at_fra": 2000.0}},
			{Label: "Yes, about $3,000/month", Value: models.Patch{"ss_benefit_at_fra": 3000.0}},
			{Label: "I haven't checked yet"},
			{Label: "I don't expect SS benefits", Value: models.Patch{"ss_benefit_at_fra": 0.0}},
		},
		AllowSkip: true,
	},
	{
		ID:       "pension",
		Category: "Pension",
		Applies: func(p models.Profile) bool {
			return p.Number("pension_annual_benefit") == 0
		},
		Question: staticQuestion("Do you have a pension or defined benefit plan from an employer?"),
		Options: []models.Suggestion{
			{Label: "Yes, about $20,000/year", Value: models.Patch{"pension_annual_benefit": 20000.0, "pension_start_age": 65.0}},
			{Label: "Yes, about $40,000/year", Value: models.Patch{"pension_annual_benefit": 40000.0, "pension_start_age": 65.0}},
			{Label: "No pension", Value: models.Patch{"pension_annual_benefit": 0.0}},
		},
		AllowSkip: true,
	},
	{
		ID:       "healthcare",
		Category: "Healthcare",
		Applies: func(p models.Profile) bool {
			return p.Number("retirement_age") < 65 && p.Number("hc_pre_medicare_premium") < 6000
		},
		Question: func(p models.Profile) string {
			return fmt.Sprintf("Since you plan to retire at %.0f, before Medicare eligibility at 65, have you budgeted for health insurance?", p.Number("retirement_age"))
		},
		Options: []models.Suggestion{
			{Label: "ACA marketplace plan (~$12k/yr)", Value: models.Patch{"hc_pre_medicare_premium": 12000.0, "hc_pre_medicare_oop": 4000.0}},
			{Label: "COBRA coverage (~$18k/yr)", Value: models.Patch{"hc_pre_medicare_premium": 18000.0, "hc_pre_medicare_oop": 3000.0}},
			{Label: "Spouse's employer plan", Value: models.Patch{"hc_pre_medicare_premium": 6000.0, "hc_pre_medicare_oop": 2000.0}},
			{Label: "I'll work until 65 for insurance"},
		},
		AllowSkip: true,
	},
	{
		ID:       "risk_tolerance",
		Category: "Risk Tolerance",
		Applies: func(p models.Profile) bool {
			return p.Number("risk_tolerance") == 5
		},
		Question: staticQuestion("How would you describe your investment risk tolerance?"),
		Options: []models.Suggestion{
			{Label: "Conservative (preserve capital)", Value: models.Patch{"risk_tolerance": 3.0}},
			{Label: "Moderate (balanced growth)", Value: models.Patch{"risk_tolerance": 5.0}},
			{Label: "Aggressive (maximum growth)", Value: models.Patch{"risk_tolerance": 8.0}},
		},
		AllowSkip: true,
	},
	{
		ID:       "employer_match",
		Category: "Savings",
		Applies: func(p models.Profile) bool {
			return p.Number("annual_income") > 50000 && p.Number("employer_match_percent") == 0
		},
		Question: staticQuestion("Does your employer offer a 401(k) match? This is free money you don't want to leave on the table!"),
		Options: []models.Suggestion{
			{Label: "Yes, 3% match", Value: models.Patch{"employer_match_percent": 3.0, "employer_match_limit": 6000.0}},
			{Label: "Yes, 6% match", Value: models.Patch{"employer_match_percent": 6.0, "employer_match_limit": 12000.0}},
			{Label: "No employer match", Value: models.Patch{"employer_match_percent": 0.0}},
			{Label: "Self-employed / no 401k"},
		},
		AllowSkip: true,
	},
}

// Lookup returns the catalog definition for an id, if one exists. Remote
// question lists may contain ids outside the catalog.
func Lookup(id string) (Definition, bool) {
	for _, def := range Catalog {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// AsQuestion renders a definition into the wire question shape.
func (d Definition) AsQuestion(p models.Profile) models.Question {
	return models.Question{
		ID:           d.ID,
		Question:     d.Question(p),
		QuestionType: d.Category,
		Suggestions:  d.Options,
	}
}
