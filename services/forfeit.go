package services

import (
	"cmp"
	"slices"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
)

// slotStates merges what was staged for m with the current forfeits. A
// forfeited seed's slot is SlotForfeited whatever was reported for it.
func slotStates(m brackets.Match, p *models.MatchProgress, forfeits map[int]bool) []models.SlotState {
	states := make([]models.SlotState, len(m.Opponents))
	for i, seed := range m.Opponents {
		switch {
		case forfeits[seed]:
			states[i] = models.SlotForfeited
		case p != nil && i < len(p.States) && p.States[i] == models.SlotScored:
			states[i] = models.SlotScored
		default:
			states[i] = models.SlotPending
		}
	}
	return states
}

// resolveScores builds the full score vector of m if enough is known. Forfeited
// opponents get synthetic scores strictly worse than anything real, spaced by
// seed so the lowest seed is the least bad and forfeits never tie.
func resolveScores(m brackets.Match, p *models.MatchProgress, forfeits map[int]bool, lowerIsBetter bool) ([]int, bool) {
	states := slotStates(m, p, forfeits)

	var active, scored, forfeited []int
	for i, s := range states {
		switch s {
		case models.SlotForfeited:
			forfeited = append(forfeited, i)
		case models.SlotScored:
			active = append(active, i)
			scored = append(scored, i)
		default:
			active = append(active, i)
		}
	}

	// worse steps one score away from the best towards the bad end
	worse := func(from, steps int) int {
		if lowerIsBetter {
			return from + steps
		}
		return from - steps
	}

	score := make([]int, len(m.Opponents))
	switch {
	case len(scored) > 0 && len(scored) == len(active):
		worst := p.Scores[scored[0]]
		for _, i := range scored {
			score[i] = p.Scores[i]
			if lowerIsBetter {
				worst = max(worst, p.Scores[i])
			} else {
				worst = min(worst, p.Scores[i])
			}
		}
		placeBySeed(m, forfeited, score, func(k int) int { return worse(worst, k+1) })

	case len(active) == 1 && len(forfeited) > 0:
		score[active[0]] = 1
		placeBySeed(m, forfeited, score, func(k int) int { return worse(1, k+1) })

	case len(active) == 0:
		placeBySeed(m, forfeited, score, func(k int) int { return worse(0, k) })

	default:
		return nil, false
	}
	return score, true
}

// placeBySeed assigns value(k) to the k-th slot of slots ordered by seed.
func placeBySeed(m brackets.Match, slots []int, score []int, value func(k int) int) {
	ordered := slices.Clone(slots)
	slices.SortFunc(ordered, func(a, b int) int { return cmp.Compare(m.Opponents[a], m.Opponents[b]) })
	for k, slot := range ordered {
		score[slot] = value(k)
	}
}
