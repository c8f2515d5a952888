package models

// Profile is a flat mapping of financial-planning fields to values.
// It is owned by the profile store; everything in this package treats it as
// read-only and expresses changes as a Patch.
type Profile map[string]any

// Patch is a partial field->value mapping to be merged into a Profile by its
// owner. A nil Patch means "no change".
type Patch map[string]any

// Suggestion is a predefined quick answer offered alongside a discovery
// question. Value carries the profile patch the answer implies; a nil Value
// acknowledges the question without contributing data.
type Suggestion struct {
	Label string `json:"label"`
	Value Patch  `json:"value,omitempty"`
}

// Question is a single discovery question in the shape the advisory service
// returns. Locally generated questions use the same shape so downstream
// consumers cannot tell the source apart.
type Question struct {
	ID           string       `json:"id"`
	Question     string       `json:"question"`
	QuestionType string       `json:"question_type"`
	Suggestions  []Suggestion `json:"suggestions"`
}

// Recommendation is a single piece of advice from the analysis surface.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`   // high, medium, low
	Category    string `json:"category"` // savings, retirement, risk, debt
}

// AnalysisResult is the response shape of the analysis surface.
type AnalysisResult struct {
	Summary         string           `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	RiskAssessment  string           `json:"risk_assessment"`
	ConfidenceScore float64          `json:"confidence_score"`
}

// DiscoveryResult is the raw success payload of the remote advisory service.
type DiscoveryResult struct {
	Questions         []Question `json:"questions"`
	CompletenessScore float64    `json:"completeness_score"`
	Insights          []string   `json:"insights"`
	Recommendations   []string   `json:"recommendations"`
}

// FieldDefault pairs a profile field with the value it holds when the user
// has not told us anything about it.
type FieldDefault struct {
	Field   string
	Default float64
}

// ImportantFields are the fields the completeness score is computed over,
// in a fixed order, each with its known default.
var ImportantFields = []FieldDefault{
	{"current_age", 35},
	{"retirement_age", 65},
	{"current_savings", 0},
	{"annual_income", 0},
	{"monthly_contribution", 0},
	{"risk_tolerance", 5},
	{"ss_benefit_at_fra", 0},
	{"pension_annual_benefit", 0},
	{"retirement_income_goal", 80000},
	{"legacy_goal", 0},
	{"hc_pre_medicare_premium", 0},
	{"employer_match_percent", 0},
}

// fieldDefaults indexes ImportantFields plus the remaining profile fields
// that have a non-obvious default.
var fieldDefaults = func() map[string]float64 {
	m := map[string]float64{
		"life_expectancy":      90,
		"pension_start_age":    65,
		"hc_pre_medicare_oop":  3000,
		"employer_match_limit": 6000,
	}
	for _, fd := range ImportantFields {
		m[fd.Field] = fd.Default
	}
	return m
}()

// DefaultValue returns the registered default for a field, or zero when the
// field has no registered default.
func DefaultValue(field string) float64 {
	return fieldDefaults[field]
}

// DefaultProfile returns a fresh profile with every registered field set to
// its default value.
func DefaultProfile() Profile {
	p := make(Profile, len(fieldDefaults))
	for field, def := range fieldDefaults {
		p[field] = def
	}
	return p
}

// Number reads a field as a float64, tolerating the integer and float shapes
// JSON decoding produces. A missing or non-numeric field reads as the
// field's registered default.
func (p Profile) Number(field string) float64 {
	v, ok := p[field]
	if !ok {
		return DefaultValue(field)
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	default:
		return DefaultValue(field)
	}
}

// Has reports whether the field is present with a numeric value.
func (p Profile) Has(field string) bool {
	switch p[field].(type) {
	case float64, float32, int, int64, int32:
		return true
	default:
		return false
	}
}

// Merge returns a new profile with the patch applied over the base. Neither
// input is mutated; the result shares no top-level storage with base.
func Merge(base Profile, patch Patch) Profile {
	out := make(Profile, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of the patch. Cloning a nil patch yields nil.
func (p Patch) Clone() Patch {
	if p == nil {
		return nil
	}
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
