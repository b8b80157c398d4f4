package services

import (
	"testing"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/stretchr/testify/assert"
)

func stagedProgress(tournamentID int, m brackets.Match, scores map[int]int) *models.MatchProgress {
	p := models.NewMatchProgress(tournamentID, m.ID, len(m.Opponents))
	for i, seed := range m.Opponents {
		if v, ok := scores[seed]; ok {
			p.States[i], p.Scores[i] = models.SlotScored, v
		}
	}
	return p
}

func TestSlotStatesForfeitWins(t *testing.T) {
	m := brackets.Match{Opponents: []int{1, 2, 3}}
	p := stagedProgress(1, m, map[int]int{1: 4, 2: 10})

	got := slotStates(m, p, map[int]bool{2: true})
	assert.Equal(t, []models.SlotState{models.SlotScored, models.SlotForfeited, models.SlotPending}, got)

	got = slotStates(m, nil, nil)
	assert.Equal(t, []models.SlotState{models.SlotPending, models.SlotPending, models.SlotPending}, got)
}

func TestResolveScores(t *testing.T) {
	duel := brackets.Match{Opponents: []int{1, 2}}
	group := brackets.Match{Opponents: []int{1, 3, 6, 8}}
	mixed := brackets.Match{Opponents: []int{6, 1, 3, 8}}

	tests := []struct {
		name          string
		match         brackets.Match
		scores        map[int]int
		forfeits      map[int]bool
		lowerIsBetter bool
		want          []int
		ok            bool
	}{
		{
			name:  "nothing known",
			match: duel,
		},
		{
			name:   "one side reported",
			match:  duel,
			scores: map[int]int{1: 3},
		},
		{
			name:   "both sides reported",
			match:  duel,
			scores: map[int]int{1: 3, 2: 1},
			want:   []int{3, 1},
			ok:     true,
		},
		{
			name:     "lone pending side wins by forfeit",
			match:    duel,
			forfeits: map[int]bool{2: true},
			want:     []int{1, 0},
			ok:       true,
		},
		{
			name:          "lone pending side wins by forfeit, lower is better",
			match:         duel,
			forfeits:      map[int]bool{1: true},
			lowerIsBetter: true,
			want:          []int{2, 1},
			ok:            true,
		},
		{
			name:     "both forfeited, lower seed is less bad",
			match:    duel,
			forfeits: map[int]bool{1: true, 2: true},
			want:     []int{0, -1},
			ok:       true,
		},
		{
			name:     "stale report of a forfeited side is ignored",
			match:    duel,
			scores:   map[int]int{1: 3, 2: 10},
			forfeits: map[int]bool{2: true},
			want:     []int{3, 2},
			ok:       true,
		},
		{
			name:     "forfeit below the worst reported score",
			match:    group,
			scores:   map[int]int{1: 4, 3: 3, 6: 2},
			forfeits: map[int]bool{8: true},
			want:     []int{4, 3, 2, 1},
			ok:       true,
		},
		{
			name:          "forfeit below the worst reported score, lower is better",
			match:         group,
			scores:        map[int]int{1: 1, 3: 2, 6: 3},
			forfeits:      map[int]bool{8: true},
			lowerIsBetter: true,
			want:          []int{1, 2, 3, 4},
			ok:            true,
		},
		{
			name:     "several forfeits are spaced by seed",
			match:    mixed,
			scores:   map[int]int{6: 5, 3: 2},
			forfeits: map[int]bool{1: true, 8: true},
			want:     []int{5, 1, 2, 0},
			ok:       true,
		},
		{
			name:     "two sides still pending",
			match:    group,
			scores:   map[int]int{1: 4},
			forfeits: map[int]bool{8: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p *models.MatchProgress
			if tt.scores != nil {
				p = stagedProgress(1, tt.match, tt.scores)
			}
			got, ok := resolveScores(tt.match, p, tt.forfeits, tt.lowerIsBetter)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
