package session_models

// TurnHit is a transcript search result.
type TurnHit struct {
	TurnID string  `json:"turn_id"`
	Author string  `json:"author"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
}
