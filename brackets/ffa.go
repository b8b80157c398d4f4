package brackets

import (
	"cmp"
	"slices"
)

type FFAOptions struct {
	// Sizes is the target group size of every round. Defaults to a single
	// round with everybody in one group.
	Sizes []int `json:"sizes,omitempty"`
	// Advancers is how many players per group move on after each round
	// except the last.
	Advancers []int `json:"advancers,omitempty"`
	// Limit, when set, is how many players the final round must separate
	// from the rest.
	Limit              int  `json:"limit,omitempty"`
	LowerScoreIsBetter bool `json:"lower_score_is_better,omitempty"`
}

func (o FFAOptions) withDefaults(numPlayers int) FFAOptions {
	if len(o.Sizes) == 0 {
		o.Sizes = []int{numPlayers}
	}
	o.Sizes = slices.Clone(o.Sizes)
	o.Advancers = slices.Clone(o.Advancers)
	return o
}

// FFA is the grouped multi-round engine. Only the first round is seeded up
// front; later rounds are allocated empty and filled once the previous
// round is complete.
type FFA struct {
	sizes     []int
	advancers []int
	limit     int
}

func validateFFA(numPlayers int, opts FFAOptions) error {
	if numPlayers < 2 {
		return invalidOptions("number of players must be at least 2, got %d", numPlayers)
	}
	if len(opts.Sizes) != len(opts.Advancers)+1 {
		return invalidOptions("advancers must have exactly one less element than sizes")
	}
	if opts.Limit < 0 {
		return invalidOptions("limit must not be negative")
	}

	np, groups := numPlayers, 0
	for i, size := range opts.Sizes {
		if size < 2 {
			return invalidOptions("group size in round %d must be at least 2", i+1)
		}
		grps := Group(np, size)
		smallest := np
		for _, g := range grps {
			smallest = min(smallest, len(g))
		}
		if smallest < 2 {
			return invalidOptions("round %d would have groups of fewer than 2 players", i+1)
		}
		groups = len(grps)
		if i == len(opts.Advancers) {
			break
		}
		adv := opts.Advancers[i]
		if adv < 1 {
			return invalidOptions("must advance at least one player per group in round %d", i+1)
		}
		if adv >= smallest {
			return invalidOptions("must advance fewer players than the smallest group in round %d", i+1)
		}
		np = groups * adv
	}
	if opts.Limit > 0 {
		if opts.Limit%groups != 0 {
			return invalidOptions("number of groups in the final round must divide the limit")
		}
		if opts.Limit >= np {
			return invalidOptions("limit must be less than the number of players in the final round")
		}
	}
	return nil
}

// NewFFA builds a grouped tournament for numPlayers seeds.
func NewFFA(numPlayers int, opts FFAOptions) (*Tournament, error) {
	opts = opts.withDefaults(numPlayers)
	if err := validateFFA(numPlayers, opts); err != nil {
		return nil, err
	}
	f := &FFA{sizes: opts.Sizes, advancers: opts.Advancers, limit: opts.Limit}
	return newTournament(f, numPlayers, opts.LowerScoreIsBetter, f.makeMatches(numPlayers))
}

// RestoreFFA rebuilds a free-for-all tournament from its event log.
func RestoreFFA(numPlayers int, opts FFAOptions, events []StateEvent) (*Tournament, error) {
	t, err := NewFFA(numPlayers, opts)
	if err != nil {
		return nil, err
	}
	if err := t.replay(events); err != nil {
		return nil, err
	}
	return t, nil
}

func (f *FFA) kind() Kind { return KindFFA }

func (f *FFA) NumRounds() int { return len(f.sizes) }
func (f *FFA) Limit() int     { return f.limit }

// Advancers returns how many players per group leave round r for the next
// one; zero for the final round.
func (f *FFA) Advancers(round int) int {
	if round < 1 || round > len(f.advancers) {
		return 0
	}
	return f.advancers[round-1]
}

func (f *FFA) makeMatches(numPlayers int) []*Match {
	var ms []*Match
	np := numPlayers
	for i, size := range f.sizes {
		grps := Group(np, size)
		for j, grp := range grps {
			ps := grp
			if i > 0 {
				ps = make([]int, len(grp))
			}
			ms = append(ms, &Match{ID: ID{Section: 1, Round: i + 1, Match: j + 1}, Opponents: ps})
		}
		if i < len(f.advancers) {
			np = len(grps) * f.advancers[i]
		}
	}
	return ms
}

func roundScored(round []*Match) bool {
	for _, m := range round {
		if !m.Scored() {
			return false
		}
	}
	return true
}

func (f *FFA) progress(t *Tournament, m *Match) error {
	r := m.ID.Round
	adv := f.Advancers(r)
	round := t.roundMatches(1, r)
	if adv == 0 || !roundScored(round) {
		return nil
	}

	var top []placed
	for _, rm := range round {
		top = append(top, t.rank(rm)[:adv]...)
	}
	// re-seed the advancers across groups for the next round
	slices.SortFunc(top, t.comparePlaced)

	next := t.roundMatches(1, r+1)
	grps := Group(len(top), f.sizes[r])
	if len(grps) != len(next) {
		return corrupt(ID{Section: 1, Round: r + 1, Match: len(grps)}, "next round group")
	}
	for k, grp := range grps {
		if len(grp) != len(next[k].Opponents) {
			return corrupt(next[k].ID, "next round slot count of")
		}
		for j, s := range grp {
			next[k].Opponents[j] = top[s-1].seed
		}
	}
	return nil
}

// safe while the next round has not been scored at all.
func (f *FFA) safe(t *Tournament, m *Match) bool {
	for _, n := range t.roundMatches(1, m.ID.Round+1) {
		if n.Scored() {
			return false
		}
	}
	return true
}

func (f *FFA) verify(t *Tournament, m *Match, score []int) string {
	adv := f.Advancers(m.ID.Round)
	sorted := t.sortScores(score)
	if adv > 0 && sorted[adv] == sorted[adv-1] {
		return "ambiguous scores: cannot decide who advances"
	}
	if adv == 0 && f.limit > 0 {
		groups := len(t.roundMatches(1, m.ID.Round))
		cutoff := f.limit / groups
		if cutoff > 0 && cutoff < len(sorted) && sorted[cutoff] == sorted[cutoff-1] {
			return "ambiguous scores: cannot decide who makes the limit"
		}
	}
	return ""
}

func (f *FFA) early(t *Tournament) bool { return false }

func (f *FFA) next(t *Tournament, id ID) []ID {
	if f.Advancers(id.Round) == 0 || !roundScored(t.roundMatches(1, id.Round)) {
		return nil
	}
	var out []ID
	for _, m := range t.roundMatches(1, id.Round+1) {
		out = append(out, m.ID)
	}
	return out
}

func (f *FFA) stats(t *Tournament, res map[int]*Result, m *Match) {
	if !m.Scored() || !m.Playable() {
		return
	}
	adv := f.Advancers(m.ID.Round)
	ranked := t.rank(m)
	best := ranked[0].score
	for j, e := range ranked {
		r, ok := res[e.seed]
		if !ok {
			continue
		}
		r.PointsFor += e.score
		r.PointsAgainst += abs(best - e.score)
		if (adv > 0 && j < adv) || (adv == 0 && e.score == best) {
			r.Wins++
		}
	}
}

// sort walks the rounds in order. Everybody who reached a round is first
// tied at the size of that round, then the players knocked out of its
// scored matches are spread below the advancers by their place in the match.
func (f *FFA) sort(t *Tournament, res []*Result) {
	byseed := make(map[int]*Result, len(res))
	for _, r := range res {
		byseed[r.Seed] = r
	}

	for r := 1; r <= len(f.sizes); r++ {
		round := t.roundMatches(1, r)
		views := make([]Match, len(round))
		for i, m := range round {
			views[i] = *m
		}
		players := Players(views)
		for _, s := range players {
			if e, ok := byseed[s]; ok {
				e.Position = len(players)
			}
		}

		adv := f.Advancers(r)
		var tiers [][]int
		for _, m := range round {
			if !m.Scored() || !m.Playable() {
				continue
			}
			ranked := t.rank(m)
			tie := 0
			for j := range ranked {
				if j == 0 || ranked[j].score != ranked[j-1].score {
					tie = j
				}
				if j < adv {
					continue
				}
				tier := max(tie, adv) - adv
				for len(tiers) <= tier {
					tiers = append(tiers, nil)
				}
				tiers[tier] = append(tiers[tier], ranked[j].seed)
			}
		}

		pos := adv*len(round) + 1
		for _, tier := range tiers {
			for _, s := range tier {
				if e, ok := byseed[s]; ok {
					e.Position = pos
				}
			}
			pos += len(tier)
		}
	}

	slices.SortStableFunc(res, func(a, b *Result) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		if c := cmp.Compare(b.PointsFor-b.PointsAgainst, a.PointsFor-a.PointsAgainst); c != 0 {
			return c
		}
		return cmp.Compare(a.Seed, b.Seed)
	})
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
