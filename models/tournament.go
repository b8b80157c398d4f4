package models

import (
	"encoding/json"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
)

// TournamentStatus соответствует колонке status в таблице tournaments.
type TournamentStatus string

const (
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
)

// Tournament is the persisted header of one bracket. The engine state itself
// is never stored: it is rebuilt from Kind, NumPlayers, Settings and the
// event log.
type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Kind        brackets.Kind    `json:"kind" db:"kind"`
	NumPlayers  int              `json:"num_players" db:"num_players"`
	Settings    json.RawMessage  `json:"settings,omitempty" db:"settings"`
	Status      TournamentStatus `json:"status" db:"status"`
	CreatedBy   *int             `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	ArchiveKey  *string          `json:"-" db:"archive_key"`
	ArchiveURL  *string          `json:"archive_url,omitempty" db:"-"`

	// Заполняются сервисом, в таблице не хранятся
	Seeds []BracketSeed `json:"seeds,omitempty" db:"-"`
}

func (t *Tournament) IsLocked() bool {
	return t.Status == StatusCompleted
}
