package models

// BracketSeed maps a seed number to the opponent it stands for. Assigned once
// when the tournament is created.
type BracketSeed struct {
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	Seed         int    `json:"seed" db:"seed"`
	Opponent     string `json:"opponent" db:"opponent"`
	Forfeited    bool   `json:"forfeited" db:"-"`
}

// SeedNames indexes seeds by number.
func SeedNames(seeds []BracketSeed) map[int]string {
	out := make(map[int]string, len(seeds))
	for _, s := range seeds {
		out[s.Seed] = s.Opponent
	}
	return out
}
