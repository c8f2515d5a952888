package analysis

import (
	"context"
	"fmt"
	"log"

	"github.com/nestegg-labs/nestegg/models"
	"github.com/nestegg-labs/nestegg/provider"
	"github.com/nestegg-labs/nestegg/utils"
)

// targetSavingsRate is the rate below which we nudge the user to save more.
const targetSavingsRate = 0.15

// Analyzer turns a profile plus opaque simulation results into a
// plain-language summary. It prefers the remote advisory service and falls
// back to a deterministic local generator, so it never fails outright.
type Analyzer struct {
	advisor provider.Advisor // nil means always generate locally
	logger  *log.Logger
}

func New(advisor provider.Advisor, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.New(log.Writer(), "[ANALYZE] ", log.LstdFlags)
	}
	return &Analyzer{advisor: advisor, logger: logger}
}

// Analyze reads simulation results (success_probability plus a statistics
// map) and produces a summary, up to four recommendations, and a risk
// narrative.
func (a *Analyzer) Analyze(ctx context.Context, profile models.Profile, results map[string]any) models.AnalysisResult {
	if a.advisor != nil {
		res, err := a.advisor.Analyze(ctx, profile, results)
		if err == nil {
			return *res
		}
		a.logger.Printf("remote analysis failed, generating locally: %v", err)
	}
	return Generate(profile, results)
}

// Generate is the local analysis generator. Deterministic and pure.
func Generate(profile models.Profile, results map[string]any) models.AnalysisResult {
	successProb := number(results, "success_probability")
	stats, _ := results["statistics"].(map[string]any)
	median := number(stats, "median")
	var95 := number(stats, "var_95")

	yearsToRetire := int(profile.Number("retirement_age") - profile.Number("current_age"))
	riskTolerance := profile.Number("risk_tolerance")
	annualIncome := profile.Number("annual_income")
	monthlyContrib := profile.Number("monthly_contribution")

	return models.AnalysisResult{
		Summary:         summarize(successProb, median, var95),
		Recommendations: recommend(profile, successProb, yearsToRetire, annualIncome, monthlyContrib),
		RiskAssessment:  riskNarrative(riskTolerance, yearsToRetire),
		ConfidenceScore: 0.85,
	}
}

func summarize(successProb, median, var95 float64) string {
	pct := utils.FormatPercent(successProb)
	switch {
	case successProb >= 0.9:
		return fmt.Sprintf("Your financial plan shows strong results with a %s probability of success. You're well-positioned to meet your retirement goals with a projected median portfolio value of %s.", pct, utils.FormatCurrency(median))
	case successProb >= 0.7:
		return fmt.Sprintf("Your financial plan shows a %s probability of success, which is within a reasonable range but has room for improvement. Consider the recommendations below to strengthen your position.", pct)
	case successProb >= 0.5:
		return fmt.Sprintf("With a %s probability of success, your current plan has significant risks. The 5th percentile outcome shows a portfolio value of %s, indicating potential shortfalls. Action is recommended.", pct, utils.FormatCurrency(var95))
	default:
		return fmt.Sprintf("Your current plan shows only a %s probability of meeting your retirement goals. This requires immediate attention and significant adjustments to your savings strategy.", pct)
	}
}

func recommend(profile models.Profile, successProb float64, yearsToRetire int, annualIncome, monthlyContrib float64) []models.Recommendation {
	var recs []models.Recommendation

	if matchPct := profile.Number("employer_match_percent"); matchPct > 0 {
		recs = append(recs, models.Recommendation{
			Title:       "Maximize Employer Match",
			Description: fmt.Sprintf("Ensure you're contributing enough to capture the full %.0f%% employer match up to %s - this is essentially free money.", matchPct, utils.FormatCurrency(profile.Number("employer_match_limit"))),
			Impact:      "high",
			Category:    "savings",
		})
	}

	var savingsRate float64
	if annualIncome > 0 {
		savingsRate = monthlyContrib * 12 / annualIncome
	}
	if savingsRate < targetSavingsRate {
		impact := "medium"
		if successProb < 0.7 {
			impact = "high"
		}
		recs = append(recs, models.Recommendation{
			Title:       "Increase Savings Rate",
			Description: fmt.Sprintf("Your current savings rate is approximately %.0f%% of income. Consider increasing to 15-20%% to improve your retirement outlook.", savingsRate*100),
			Impact:      impact,
			Category:    "savings",
		})
	}

	if yearsToRetire > 20 {
		recs = append(recs, models.Recommendation{
			Title:       "Leverage Time Horizon",
			Description: fmt.Sprintf("With %d years until retirement, you have time to recover from market downturns. Consider maintaining growth-oriented investments.", yearsToRetire),
			Impact:      "medium",
			Category:    "risk",
		})
	} else if yearsToRetire <= 10 {
		recs = append(recs, models.Recommendation{
			Title:       "Begin Transition Planning",
			Description: fmt.Sprintf("With only %d years until retirement, start gradually shifting toward more conservative investments to protect your gains.", yearsToRetire),
			Impact:      "high",
			Category:    "risk",
		})
	}

	totalDebt := profile.Number("mortgage_balance") + profile.Number("other_debts")
	if totalDebt > annualIncome*2 && annualIncome > 0 {
		recs = append(recs, models.Recommendation{
			Title:       "Prioritize Debt Reduction",
			Description: fmt.Sprintf("Your total debt of %s is significant. Consider accelerating debt payoff, especially high-interest debts.", utils.FormatCurrency(totalDebt)),
			Impact:      "high",
			Category:    "debt",
		})
	}

	if len(recs) < 3 {
		recs = append(recs, models.Recommendation{
			Title:       "Review Asset Allocation",
			Description: fmt.Sprintf("With a risk tolerance of %.0f/10, ensure your portfolio allocation matches your comfort level and goals.", profile.Number("risk_tolerance")),
			Impact:      "medium",
			Category:    "risk",
		})
	}
	if len(recs) < 4 {
		recs = append(recs, models.Recommendation{
			Title:       "Build Emergency Fund",
			Description: "Maintain 3-6 months of expenses in liquid savings before aggressive investing to avoid early withdrawals.",
			Impact:      "medium",
			Category:    "savings",
		})
	}
	if len(recs) > 4 {
		recs = recs[:4]
	}
	return recs
}

func riskNarrative(riskTolerance float64, yearsToRetire int) string {
	var text string
	switch {
	case riskTolerance <= 3:
		text = fmt.Sprintf("Your conservative risk tolerance (%.0f/10) prioritizes capital preservation. ", riskTolerance)
	case riskTolerance <= 7:
		text = fmt.Sprintf("Your moderate risk tolerance (%.0f/10) balances growth and stability. ", riskTolerance)
	default:
		text = fmt.Sprintf("Your aggressive risk tolerance (%.0f/10) favors growth over stability. ", riskTolerance)
	}

	switch {
	case yearsToRetire > 20:
		text += "Given your long time horizon, you may be able to tolerate more risk if desired."
	case yearsToRetire > 10:
		text += "This is appropriate for your time horizon."
	default:
		text += "Consider reducing risk as you approach retirement to protect your accumulated savings."
	}
	return text
}

func number(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
