package models

import (
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
)

// StoredEvent is one row of state_events. Seq orders the replay.
type StoredEvent struct {
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Seq          int       `json:"seq" db:"seq"`
	Type         string    `json:"type" db:"type"`
	Section      int       `json:"section" db:"section"`
	Round        int       `json:"round" db:"round"`
	Match        int       `json:"match" db:"match"`
	Score        []int     `json:"score" db:"score"`
	SubmittedBy  *int      `json:"submitted_by,omitempty" db:"submitted_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (e StoredEvent) MatchID() brackets.ID {
	return brackets.ID{Section: e.Section, Round: e.Round, Match: e.Match}
}

func (e StoredEvent) ToState() brackets.StateEvent {
	return brackets.StateEvent{Type: e.Type, ID: e.MatchID(), Score: e.Score}
}

// SlotState is what is known about one side of a match that is being reported.
type SlotState string

const (
	SlotPending   SlotState = "pending"
	SlotScored    SlotState = "scored"
	SlotForfeited SlotState = "forfeited"
)

// MatchProgress stages per-side scores until a match can be resolved. Scores
// holds a value only where States is SlotScored.
type MatchProgress struct {
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	MatchID      brackets.ID `json:"match_id" db:"-"`
	States       []SlotState `json:"states" db:"states"`
	Scores       []int       `json:"scores" db:"scores"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// NewMatchProgress returns an all-pending progress row for a match with n slots.
func NewMatchProgress(tournamentID int, id brackets.ID, n int) *MatchProgress {
	states := make([]SlotState, n)
	for i := range states {
		states[i] = SlotPending
	}
	return &MatchProgress{TournamentID: tournamentID, MatchID: id, States: states, Scores: make([]int, n)}
}

// MatchView is a match as shown to clients: engine state, opponent names and
// whatever has been staged so far.
type MatchView struct {
	ID        brackets.ID    `json:"id"`
	Label     string         `json:"label"`
	Opponents []int          `json:"opponents"`
	Names     []string       `json:"names"`
	Score     []int          `json:"score,omitempty"`
	Playable  bool           `json:"playable"`
	Progress  *MatchProgress `json:"progress,omitempty"`
}
