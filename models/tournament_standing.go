package models

import "time"

// Standing is the final placement of one seed, written when the tournament
// completes.
type Standing struct {
	TournamentID  int       `json:"tournament_id" db:"tournament_id"`
	Seed          int       `json:"seed" db:"seed"`
	Opponent      string    `json:"opponent,omitempty" db:"-"`
	Wins          int       `json:"wins" db:"wins"`
	PointsFor     int       `json:"points_for" db:"points_for"`
	PointsAgainst int       `json:"points_against" db:"points_against"`
	Position      int       `json:"position" db:"position"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
