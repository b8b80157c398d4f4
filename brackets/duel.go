package brackets

import (
	"fmt"
	"math/bits"
	"slices"
)

// Bracket is the section of a duel match.
type Bracket int

const (
	WinnerBracket Bracket = 1
	LoserBracket  Bracket = 2
)

const maxDuelPlayers = 1024

const (
	wb = int(WinnerBracket)
	lb = int(LoserBracket)
)

type DuelOptions struct {
	// Last is the bracket the tournament finishes in: WinnerBracket for
	// single elimination, LoserBracket for double elimination.
	Last Bracket `json:"last,omitempty"`
	// Short drops the bronze final (single) or the second grand final (double).
	Short              bool `json:"short,omitempty"`
	LowerScoreIsBetter bool `json:"lower_score_is_better,omitempty"`
}

func (o DuelOptions) withDefaults() DuelOptions {
	if o.Last == 0 {
		o.Last = WinnerBracket
	}
	return o
}

// Duel is the single/double elimination engine.
type Duel struct {
	p     int // bracket power: 2^p slots in the first round
	last  Bracket
	short bool
}

func validateDuel(numPlayers int, opts DuelOptions) error {
	switch {
	case opts.Last != WinnerBracket && opts.Last != LoserBracket:
		return invalidOptions("last must be the winner bracket (1) or the loser bracket (2), got %d", opts.Last)
	case numPlayers < 2:
		return invalidOptions("number of players must be at least 2, got %d", numPlayers)
	case numPlayers > maxDuelPlayers:
		return invalidOptions("number of players must be at most %d, got %d", maxDuelPlayers, numPlayers)
	case opts.Last == LoserBracket && numPlayers < 4:
		return invalidOptions("double elimination needs at least 4 players, got %d", numPlayers)
	}
	return nil
}

// NewDuel builds an elimination bracket for numPlayers seeds. First round
// walkovers are resolved immediately.
func NewDuel(numPlayers int, opts DuelOptions) (*Tournament, error) {
	opts = opts.withDefaults()
	if err := validateDuel(numPlayers, opts); err != nil {
		return nil, err
	}
	d := &Duel{
		p:     bits.Len(uint(numPlayers - 1)),
		last:  opts.Last,
		short: opts.Short,
	}
	t, err := newTournament(d, numPlayers, opts.LowerScoreIsBetter, d.makeMatches(numPlayers))
	if err != nil {
		return nil, err
	}
	for _, m := range t.roundMatches(wb, 1) {
		if m.HasWalkover() {
			m.Score = d.walkoverScore(t, m)
			if err := d.progress(t, m); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// RestoreDuel rebuilds a duel tournament from its event log.
func RestoreDuel(numPlayers int, opts DuelOptions, events []StateEvent) (*Tournament, error) {
	t, err := NewDuel(numPlayers, opts)
	if err != nil {
		return nil, err
	}
	if err := t.replay(events); err != nil {
		return nil, err
	}
	return t, nil
}

func (d *Duel) kind() Kind { return KindDuel }

func (d *Duel) Power() int        { return d.p }
func (d *Duel) Last() Bracket     { return d.last }
func (d *Duel) IsShort() bool     { return d.short }
func (d *Duel) isDouble() bool    { return d.last == LoserBracket }
func (d *Duel) grandFinal() ID    { return ID{Section: lb, Round: 2*d.p - 1, Match: 1} }
func (d *Duel) grandFinalTwo() ID { return ID{Section: lb, Round: 2 * d.p, Match: 1} }

// BracketOf names the bracket of id, "WB" or "LB".
func (d *Duel) BracketOf(id ID) string {
	if id.Section == lb {
		return "LB"
	}
	return "WB"
}

// Label names id the way brackets are usually printed, e.g. "WB R1 M2".
func (d *Duel) Label(id ID) string {
	return fmt.Sprintf("%s R%d M%d", d.BracketOf(id), id.Round, id.Match)
}

// evenSeed returns the lower-half seed of first round match i (1-indexed)
// in a bracket of 2^p slots, so that seeds 1 and 2 can only meet in the
// final, 1..4 only in the semis, and so on.
func evenSeed(i, p int) int {
	k := bits.Len(uint(i)) - 1
	r := i - 1<<k
	if r == 0 {
		return 1 << (p - k)
	}
	nr := i - 2*r
	l := bits.Len(uint(nr))
	rev := int(bits.Reverse(uint(nr)) >> (bits.UintSize - l))
	return rev<<(p-l) + 1<<(p-k-1)
}

func firstRoundSeeds(i, p int) [2]int {
	even := evenSeed(i, p)
	return [2]int{1<<p + 1 - even, even}
}

func (d *Duel) makeMatches(numPlayers int) []*Match {
	var ms []*Match
	for r := 1; r <= d.p; r++ {
		for g := 1; g <= 1<<(d.p-r); g++ {
			ps := []int{NoOpponent, NoOpponent}
			if r == 1 {
				s := firstRoundSeeds(g, d.p)
				for i, seed := range s {
					if seed > numPlayers {
						seed = Walkover
					}
					ps[i] = seed
				}
			}
			ms = append(ms, &Match{ID: ID{Section: wb, Round: r, Match: g}, Opponents: ps})
		}
	}

	switch {
	case d.isDouble():
		// loser bracket rounds shrink every second round
		for r := 1; r <= 2*d.p-2; r++ {
			for g := 1; g <= 1<<(d.p-1-(r+1)/2); g++ {
				ms = append(ms, &Match{ID: ID{Section: lb, Round: r, Match: g}, Opponents: []int{NoOpponent, NoOpponent}})
			}
		}
		ms = append(ms, &Match{ID: d.grandFinal(), Opponents: []int{NoOpponent, NoOpponent}})
		if !d.short {
			ms = append(ms, &Match{ID: d.grandFinalTwo(), Opponents: []int{NoOpponent, NoOpponent}})
		}
	case !d.short && d.p > 1:
		// bronze final
		ms = append(ms, &Match{ID: ID{Section: lb, Round: 1, Match: 1}, Opponents: []int{NoOpponent, NoOpponent}})
	}
	return ms
}

// Right returns where the winner of id goes and into which slot.
func (d *Duel) Right(id ID) (ID, int, bool) {
	p, r, g := d.p, id.Round, id.Match
	if id.Section == wb {
		if r == p {
			if d.isDouble() {
				return d.grandFinal(), 0, true
			}
			return ID{}, 0, false
		}
		return ID{Section: wb, Round: r + 1, Match: (g + 1) / 2}, (g + 1) % 2, true
	}

	if !d.isDouble() {
		return ID{}, 0, false // bronze final
	}
	switch {
	case r >= 2*p:
		return ID{}, 0, false
	case r == 2*p-1:
		if d.short {
			return ID{}, 0, false
		}
		return d.grandFinalTwo(), 0, true
	case r == 2*p-2:
		return d.grandFinal(), 1, true
	case r%2 == 1:
		// odd rounds feed the bottom slot; the top one takes a winner bracket dropout
		return ID{Section: lb, Round: r + 1, Match: g}, 1, true
	default:
		return ID{Section: lb, Round: r + 1, Match: (g + 1) / 2}, (g + 1) % 2, true
	}
}

// Down returns where the loser of id goes and into which slot.
func (d *Duel) Down(id ID) (ID, int, bool) {
	p, r, g := d.p, id.Round, id.Match
	if id.Section == lb {
		if d.isDouble() && !d.short && r == 2*p-1 {
			return d.grandFinalTwo(), 1, true
		}
		return ID{}, 0, false
	}

	if !d.isDouble() {
		if !d.short && p > 1 && r == p-1 {
			return ID{Section: lb, Round: 1, Match: 1}, (g + 1) % 2, true
		}
		return ID{}, 0, false
	}
	if r == 1 {
		return ID{Section: lb, Round: 1, Match: (g + 1) / 2}, (g + 1) % 2, true
	}
	// Every other round the dropouts enter in reverse order, which keeps
	// them away from the loser bracket half they came from.
	m := g
	if r%2 == 0 {
		m = 1<<(p-r) + 1 - g
	}
	return ID{Section: lb, Round: 2 * (r - 1), Match: m}, 0, true
}

func (d *Duel) next(t *Tournament, id ID) []ID {
	var out []ID
	if r, _, ok := d.Right(id); ok {
		out = append(out, r)
	}
	if dn, _, ok := d.Down(id); ok {
		out = append(out, dn)
	}
	return out
}

func (d *Duel) walkoverScore(t *Tournament, m *Match) []int {
	win := 0
	if m.Opponents[0] == Walkover {
		win = 1
	}
	score := []int{0, 0}
	if t.lowerScoreIsBetter {
		score[1-win] = 1
	} else {
		score[win] = 1
	}
	return score
}

func (d *Duel) winnerSlot(t *Tournament, m *Match) int {
	if t.better(m.Score[1], m.Score[0]) {
		return 1
	}
	return 0
}

// settledByChampion reports whether the winner bracket champion won the
// first grand final, making the second one unnecessary.
func (d *Duel) settledByChampion(t *Tournament, m *Match) bool {
	return d.isDouble() && !d.short && m.ID == d.grandFinal() && d.winnerSlot(t, m) == 0
}

func (d *Duel) progress(t *Tournament, m *Match) error {
	ws := d.winnerSlot(t, m)
	w, l := m.Opponents[ws], m.Opponents[1-ws]
	if d.settledByChampion(t, m) {
		w, l = NoOpponent, NoOpponent
	}
	if id, slot, ok := d.Right(m.ID); ok {
		if err := d.place(t, id, slot, w); err != nil {
			return err
		}
	}
	if id, slot, ok := d.Down(m.ID); ok {
		if err := d.place(t, id, slot, l); err != nil {
			return err
		}
	}
	return nil
}

// place puts seed into a slot and resolves the target when it became a
// walkover.
func (d *Duel) place(t *Tournament, id ID, slot int, seed int) error {
	m, ok := t.index[id]
	if !ok {
		return corrupt(id, "routing target")
	}
	m.Opponents[slot] = seed
	if seed == NoOpponent {
		m.Score = nil
		return nil
	}
	if m.HasWalkover() && !slices.Contains(m.Opponents, NoOpponent) {
		m.Score = d.walkoverScore(t, m)
		return d.progress(t, m)
	}
	return nil
}

// safe reports whether no later match has played with the outcome of m.
// Walkovers hand a seed straight on, so the walk continues through them.
func (d *Duel) safe(t *Tournament, m *Match) bool {
	queue := d.next(t, m.ID)
	seen := make(map[ID]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := t.index[id]
		if n == nil || seen[id] || !n.Scored() {
			continue
		}
		seen[id] = true
		if !n.HasWalkover() {
			return false
		}
		queue = append(queue, d.next(t, id)...)
	}
	return true
}

func (d *Duel) verify(t *Tournament, m *Match, score []int) string {
	if score[0] == score[1] {
		return "cannot draw a duel"
	}
	return ""
}

func (d *Duel) early(t *Tournament) bool {
	if !d.isDouble() || d.short {
		return false
	}
	gf := t.index[d.grandFinal()]
	return gf != nil && gf.Scored() && gf.Playable() && d.winnerSlot(t, gf) == 0
}

// placement is the worst final position of a seed that reached id.
func (d *Duel) placement(id ID) int {
	p := d.p
	if !d.isDouble() {
		if id.Section == lb {
			return 4 // bronze final
		}
		if !d.short && p > 1 && id.Round == p-1 {
			return 4 // semifinal losers still play for bronze
		}
		return 1<<(p-id.Round) + 1
	}
	if id.Section == wb {
		if id.Round == 1 {
			return lbPlacement(p, 1)
		}
		return lbPlacement(p, 2*(id.Round-1))
	}
	if id.Round >= 2*p-1 {
		return 2
	}
	return lbPlacement(p, id.Round)
}

// lbPlacement is the position of a seed knocked out in loser bracket round r.
func lbPlacement(p, r int) int {
	k := (r + 1) / 2
	if r%2 == 0 {
		return 1<<(p-k) + 1
	}
	return 3<<(p-k-1) + 1
}

// decides reports whether the winner of id gets the better of the two
// placements the match is played for.
func (d *Duel) decides(t *Tournament, m *Match) bool {
	if !d.isDouble() {
		return m.ID.Section == lb || m.ID.Round == d.p
	}
	switch m.ID {
	case d.grandFinal():
		return d.short || d.winnerSlot(t, m) == 0
	case d.grandFinalTwo():
		return true
	}
	return false
}

func (d *Duel) stats(t *Tournament, res map[int]*Result, m *Match) {
	pos := d.placement(m.ID)
	for _, s := range m.Opponents {
		if r, ok := res[s]; ok {
			r.Position = min(r.Position, pos)
		}
	}
	if !m.Scored() || slices.Contains(m.Opponents, NoOpponent) {
		return
	}

	ws := d.winnerSlot(t, m)
	w, l := res[m.Opponents[ws]], res[m.Opponents[1-ws]]
	if w != nil && d.decides(t, m) {
		w.Position = min(w.Position, pos-1)
	}
	if m.HasWalkover() || w == nil || l == nil {
		return
	}
	w.Wins++
	w.PointsFor += m.Score[ws]
	w.PointsAgainst += m.Score[1-ws]
	l.PointsFor += m.Score[1-ws]
	l.PointsAgainst += m.Score[ws]
}

func (d *Duel) sort(t *Tournament, res []*Result) {
	slices.SortStableFunc(res, comparePosition)
}
