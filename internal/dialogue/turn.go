package dialogue

import (
	"time"

	"github.com/google/uuid"

	"github.com/nestegg-labs/nestegg/models"
)

// Author identifies who produced a conversation turn.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Turn is one entry in the session transcript. Turns are append-only and
// never mutated after creation.
type Turn struct {
	ID          string              `json:"id"`
	Author      Author              `json:"author"`
	Text        string              `json:"text"`
	QuestionID  string              `json:"attached_question_id,omitempty"`
	Suggestions []models.Suggestion `json:"attached_suggestions,omitempty"`
	CanSkip     bool                `json:"can_skip,omitempty"`
	ShowWhatIf  bool                `json:"show_what_if,omitempty"`
	Choices     []string            `json:"choices,omitempty"`
	Degraded    bool                `json:"degraded,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func newTurn(author Author, text string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}
