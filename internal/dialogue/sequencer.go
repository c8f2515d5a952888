package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/nestegg-labs/nestegg/internal/discovery"
	"github.com/nestegg-labs/nestegg/internal/gaps"
	"github.com/nestegg-labs/nestegg/models"
)

// Phase is the sequencer's explicit conversation state.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseIntroduced     Phase = "introduced"
	PhaseAwaitingAnswer Phase = "awaiting_answer"
	PhaseAdvancing      Phase = "advancing"
	PhaseConcluded      Phase = "concluded"
)

const (
	ChoiceStart  = "start"
	ChoiceReview = "review"
)

var (
	// ErrAlreadyStarted rejects a second session start.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrNotAwaiting rejects an answer when no question is outstanding.
	ErrNotAwaiting = errors.New("no question is awaiting an answer")
	// ErrUnknownChoice rejects entry choices other than start/review.
	ErrUnknownChoice = errors.New("unknown entry choice")
	// ErrConcluded rejects question-flow events after conclusion. A
	// concluded session stays open for what-if interactions only.
	ErrConcluded = errors.New("session question flow has concluded")
)

// ProfileOwner is the external owner of the profile. Patches are applied
// atomically; the owner makes them visible on the next read.
type ProfileOwner interface {
	Profile(ctx context.Context) (models.Profile, error)
	ApplyPatch(ctx context.Context, patch models.Patch) error
}

// Discoverer yields discovery snapshots. It never fails; degraded operation
// is reported through the snapshot's source mode.
type Discoverer interface {
	Fetch(ctx context.Context, profile models.Profile, answered map[string]bool) discovery.Snapshot
}

// State is the per-session conversation state the sequencer drives. The
// answered set grows monotonically within a session and resets only when a
// new session starts.
type State struct {
	Phase    Phase           `json:"phase"`
	Answered map[string]bool `json:"answered"`
	Turns    []Turn          `json:"turns"`
	Score    float64         `json:"score"`
	Degraded bool            `json:"degraded"`
}

// NewState returns an idle state with an empty answered set.
func NewState() *State {
	return &State{Phase: PhaseIdle, Answered: make(map[string]bool)}
}

// Sequencer owns the turn-by-turn conversation. It processes one event at a
// time; callers must serialize events per session (the session object
// rejects overlapping actions). Each event computes at most one patch,
// against the profile snapshot read at the start of handling.
type Sequencer struct {
	disc   Discoverer
	logger *log.Logger
}

func New(disc Discoverer, logger *log.Logger) *Sequencer {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEQ] ", log.LstdFlags)
	}
	return &Sequencer{disc: disc, logger: logger}
}

// Start transitions Idle -> Introduced. The introductory turn is produced
// synchronously from the local gap analyzer; no remote call is made. With
// zero local gaps the session concludes immediately with a completion turn
// carrying no actions.
func (s *Sequencer) Start(st *State, profile models.Profile) error {
	if st.Phase != PhaseIdle {
		return ErrAlreadyStarted
	}

	open := gaps.Open(profile, st.Answered)
	if len(open) == 0 {
		turn := newTurn(AuthorAssistant, "Your profile looks complete — nice work. Run a simulation whenever you're ready to see your projected outcomes.")
		st.Turns = append(st.Turns, turn)
		st.Phase = PhaseConcluded
		return nil
	}

	turn := newTurn(AuthorAssistant, introText(len(open)))
	turn.Choices = []string{ChoiceStart, ChoiceReview}
	st.Turns = append(st.Turns, turn)
	st.Phase = PhaseIntroduced
	return nil
}

func introText(open int) string {
	switch {
	case open <= 2:
		return "Your plan is in good shape — just a couple of details would sharpen it. Want to go through them?"
	case open <= 5:
		return "I have a few questions that will make your plan more accurate. Ready when you are."
	default:
		return "Let's walk through your plan together. I'll ask one question at a time, and you can skip anything that doesn't apply."
	}
}

// Choose handles the entry choice on the introductory turn. "start" begins
// asking; "review" emits a profile-summary turn surfacing insights and
// recommendations from a discovery fetch before the first question.
func (s *Sequencer) Choose(ctx context.Context, st *State, owner ProfileOwner, choice string) error {
	if st.Phase == PhaseConcluded {
		return ErrConcluded
	}
	if st.Phase != PhaseIntroduced {
		return fmt.Errorf("entry choice in phase %s: %w", st.Phase, ErrUnknownChoice)
	}

	switch choice {
	case ChoiceStart:
		return s.askNext(ctx, st, owner, nil)
	case ChoiceReview:
		profile, err := owner.Profile(ctx)
		if err != nil {
			return err
		}
		snap := s.disc.Fetch(ctx, profile, st.Answered)
		st.Turns = append(st.Turns, s.summaryTurn(snap))
		return s.askNext(ctx, st, owner, &snap)
	default:
		return fmt.Errorf("%q: %w", choice, ErrUnknownChoice)
	}
}

func (s *Sequencer) summaryTurn(snap discovery.Snapshot) Turn {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's where your plan stands today — about %.0f%% complete.", snap.CompletenessScore*100)
	for _, insight := range snap.Insights {
		b.WriteString("\n• ")
		b.WriteString(insight)
	}
	for _, rec := range snap.Recommendations {
		b.WriteString("\n→ ")
		b.WriteString(rec)
	}
	turn := newTurn(AuthorAssistant, b.String())
	turn.Degraded = snap.Source == discovery.SourceLocalFallback
	return turn
}

// Answer handles a quick-answer selection while a question is outstanding.
// An option carrying a patch forwards it to the profile owner and produces
// a short acknowledgment; an option without a patch resolves the gap
// silently, exactly like a skip. The patch lands before any session state
// changes: a failed apply leaves the question outstanding so it is asked
// again.
func (s *Sequencer) Answer(ctx context.Context, st *State, owner ProfileOwner, questionID string, answer models.Suggestion) error {
	if st.Phase == PhaseConcluded {
		return ErrConcluded
	}
	if st.Phase != PhaseAwaitingAnswer {
		return ErrNotAwaiting
	}

	if answer.Value != nil {
		if err := owner.ApplyPatch(ctx, answer.Value); err != nil {
			return err
		}
	}

	if answer.Label != "" {
		st.Turns = append(st.Turns, newTurn(AuthorUser, answer.Label))
	}
	st.Answered[questionID] = true
	if answer.Value != nil {
		st.Turns = append(st.Turns, newTurn(AuthorAssistant, "Got it — I've updated your plan."))
	}
	return s.askNext(ctx, st, owner, nil)
}

// Skip resolves the outstanding question without any profile change.
func (s *Sequencer) Skip(ctx context.Context, st *State, owner ProfileOwner, questionID string) error {
	return s.Answer(ctx, st, owner, questionID, models.Suggestion{})
}

// FreeText accepts arbitrary user input. It never fails validation and
// never resolves a gap. Typed before choosing an entry option, it acts as
// an implicit "start".
func (s *Sequencer) FreeText(ctx context.Context, st *State, owner ProfileOwner, text string) error {
	st.Turns = append(st.Turns, newTurn(AuthorUser, text))
	if st.Phase == PhaseIntroduced {
		return s.askNext(ctx, st, owner, nil)
	}
	st.Turns = append(st.Turns, newTurn(AuthorAssistant, "Thanks — I've noted that. You can pick one of the options above, or skip."))
	return nil
}

// Retry re-invokes discovery and re-presents the current question. It is
// the manual action behind the degraded-mode banner.
func (s *Sequencer) Retry(ctx context.Context, st *State, owner ProfileOwner) error {
	if st.Phase == PhaseConcluded {
		return ErrConcluded
	}
	if st.Phase != PhaseAwaitingAnswer {
		return ErrNotAwaiting
	}
	return s.askNext(ctx, st, owner, nil)
}

// askNext runs the Advancing transition: fetch a snapshot, re-filter its
// questions against the answered set (the remote list may lag), and either
// present the first open question or conclude. A discovery failure cannot
// reach here; the discoverer always yields a usable snapshot.
func (s *Sequencer) askNext(ctx context.Context, st *State, owner ProfileOwner, snap *discovery.Snapshot) error {
	st.Phase = PhaseAdvancing

	if snap == nil {
		profile, err := owner.Profile(ctx)
		if err != nil {
			return err
		}
		fetched := s.disc.Fetch(ctx, profile, st.Answered)
		snap = &fetched
	}
	st.Score = snap.CompletenessScore
	st.Degraded = snap.Source == discovery.SourceLocalFallback

	var next *models.Question
	for i := range snap.OpenQuestions {
		if !st.Answered[snap.OpenQuestions[i].ID] {
			next = &snap.OpenQuestions[i]
			break
		}
	}

	if next == nil {
		turn := newTurn(AuthorAssistant, "That covers everything I wanted to ask. Want to explore some what-if scenarios?")
		turn.ShowWhatIf = true
		turn.Degraded = st.Degraded
		st.Turns = append(st.Turns, turn)
		st.Phase = PhaseConcluded
		return nil
	}

	turn := newTurn(AuthorAssistant, next.Question)
	turn.QuestionID = next.ID
	turn.Suggestions = next.Suggestions
	turn.CanSkip = allowSkip(next.ID)
	turn.Degraded = st.Degraded
	st.Turns = append(st.Turns, turn)
	st.Phase = PhaseAwaitingAnswer
	return nil
}

// allowSkip consults the local catalog; questions outside it (remote-only
// ids) are always skippable.
func allowSkip(id string) bool {
	if def, ok := gaps.Lookup(id); ok {
		return def.AllowSkip
	}
	return true
}
