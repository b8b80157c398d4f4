package brackets

import (
	"cmp"
	"fmt"
	"slices"
)

type Kind string

const (
	KindDuel Kind = "duel"
	KindFFA  Kind = "ffa"
)

// engine is what Duel and FFA implement on top of the shared Tournament.
// Routing is always recomputed from ids; matches never point at each other.
type engine interface {
	kind() Kind
	// progress routes the outcome of a freshly scored match.
	progress(t *Tournament, m *Match) error
	// safe reports whether m can be re-scored without invalidating a
	// later match that already consumed its outcome.
	safe(t *Tournament, m *Match) bool
	// verify returns a rejection reason for score, or "".
	verify(t *Tournament, m *Match, score []int) string
	// early reports completion before every match is scored.
	early(t *Tournament) bool
	stats(t *Tournament, res map[int]*Result, m *Match)
	sort(t *Tournament, res []*Result)
	// next lists the matches that can receive seeds from id.
	next(t *Tournament, id ID) []ID
}

// Tournament is the shared state of a bracket: the match arena and the
// event log. It is not safe for concurrent use; callers serialise writes
// per tournament.
type Tournament struct {
	engine             engine
	numPlayers         int
	lowerScoreIsBetter bool

	matches []*Match
	index   map[ID]*Match
	state   []StateEvent
}

func newTournament(e engine, numPlayers int, lowerScoreIsBetter bool, matches []*Match) (*Tournament, error) {
	slices.SortFunc(matches, func(a, b *Match) int { return a.ID.Compare(b.ID) })
	t := &Tournament{
		engine:             e,
		numPlayers:         numPlayers,
		lowerScoreIsBetter: lowerScoreIsBetter,
		matches:            matches,
		index:              make(map[ID]*Match, len(matches)),
	}
	for _, m := range matches {
		if _, dup := t.index[m.ID]; dup {
			return nil, corrupt(m.ID, "duplicate match")
		}
		t.index[m.ID] = m
	}
	if got := len(Players(t.Matches())); got != numPlayers {
		return nil, fmt.Errorf("%w: bracket holds %d players, expected %d", ErrCorruptBracket, got, numPlayers)
	}
	return t, nil
}

// replay applies events through the same pipeline as live scoring.
func (t *Tournament) replay(events []StateEvent) error {
	for i, ev := range events {
		if ev.Type != EventScore {
			return fmt.Errorf("%w: event %d has unknown type %q", ErrReplay, i, ev.Type)
		}
		if err := t.Score(ev.ID, ev.Score); err != nil {
			return fmt.Errorf("%w: event %d: %w", ErrReplay, i, err)
		}
	}
	return nil
}

func (t *Tournament) Kind() Kind               { return t.engine.kind() }
func (t *Tournament) NumPlayers() int          { return t.numPlayers }
func (t *Tournament) LowerScoreIsBetter() bool { return t.lowerScoreIsBetter }

// Duel returns the elimination engine when t is a duel tournament.
func (t *Tournament) Duel() (*Duel, bool) {
	d, ok := t.engine.(*Duel)
	return d, ok
}

// FFA returns the grouped engine when t is a free-for-all tournament.
func (t *Tournament) FFA() (*FFA, bool) {
	f, ok := t.engine.(*FFA)
	return f, ok
}

// Label is the display form of id: "WB R1 M2" for duels, "R1 M2" for FFA.
func (t *Tournament) Label(id ID) string {
	if d, ok := t.Duel(); ok {
		return d.Label(id)
	}
	return fmt.Sprintf("R%d M%d", id.Round, id.Match)
}

// State returns a copy of the event log.
func (t *Tournament) State() []StateEvent {
	out := make([]StateEvent, len(t.state))
	for i, ev := range t.state {
		out[i] = StateEvent{Type: ev.Type, ID: ev.ID, Score: slices.Clone(ev.Score)}
	}
	return out
}

func (t *Tournament) Matches() []Match {
	out := make([]Match, len(t.matches))
	for i, m := range t.matches {
		out[i] = m.clone()
	}
	return out
}

func (t *Tournament) FindMatch(id ID) (Match, bool) {
	m, ok := t.index[id]
	if !ok {
		return Match{}, false
	}
	return m.clone(), true
}

func (t *Tournament) FindMatches(f Filter) []Match {
	var out []Match
	for _, m := range t.matches {
		if f.matches(m.ID) {
			out = append(out, m.clone())
		}
	}
	return out
}

func (t *Tournament) roundMatches(section, round int) []*Match {
	var out []*Match
	for _, m := range t.matches {
		if m.ID.Section == section && m.ID.Round == round {
			out = append(out, m)
		}
	}
	return out
}

// Sections lists the sections present, ascending.
func (t *Tournament) Sections() []int {
	var out []int
	for _, m := range t.matches {
		if !slices.Contains(out, m.ID.Section) {
			out = append(out, m.ID.Section)
		}
	}
	slices.Sort(out)
	return out
}

// Rounds groups the matches of section (0 for all) by round number.
func (t *Tournament) Rounds(section int) [][]Match {
	var rounds [][]Match
	last := ID{}
	for _, m := range t.matches {
		if section != 0 && m.ID.Section != section {
			continue
		}
		if len(rounds) == 0 || m.ID.Section != last.Section || m.ID.Round != last.Round {
			rounds = append(rounds, nil)
		}
		rounds[len(rounds)-1] = append(rounds[len(rounds)-1], m.clone())
		last = m.ID
	}
	return rounds
}

// CurrentRound returns the matches of the earliest round in section that
// still has a playable, unscored match.
func (t *Tournament) CurrentRound(section int) []Match {
	for _, m := range t.matches {
		if section != 0 && m.ID.Section != section {
			continue
		}
		if !m.Scored() && m.Playable() {
			return t.FindMatches(Filter{Section: m.ID.Section, Round: m.ID.Round})
		}
	}
	return nil
}

// NextRound returns the round after the current one in section that still
// has unscored matches.
func (t *Tournament) NextRound(section int) []Match {
	cur := t.CurrentRound(section)
	if len(cur) == 0 {
		return nil
	}
	after := cur[0].ID
	for _, m := range t.matches {
		if m.ID.Section != after.Section || m.ID.Round <= after.Round {
			continue
		}
		if !m.Scored() {
			return t.FindMatches(Filter{Section: m.ID.Section, Round: m.ID.Round})
		}
	}
	return nil
}

// MatchesFor returns every match seed has been placed in.
func (t *Tournament) MatchesFor(seed int) []Match {
	var out []Match
	for _, m := range t.matches {
		if m.Contains(seed) {
			out = append(out, m.clone())
		}
	}
	return out
}

// UpcomingFor returns the playable match seed still has to play.
func (t *Tournament) UpcomingFor(seed int) (Match, bool) {
	for _, m := range t.matches {
		if m.Contains(seed) && !m.Scored() && m.Playable() {
			return m.clone(), true
		}
	}
	return Match{}, false
}

// Next lists the matches id feeds into.
func (t *Tournament) Next(id ID) []ID {
	if _, ok := t.index[id]; !ok {
		return nil
	}
	return t.engine.next(t, id)
}

func (t *Tournament) IsDone() bool {
	for _, m := range t.matches {
		if !m.Scored() {
			return t.engine.early(t)
		}
	}
	return true
}

// Unscorable returns why score cannot be applied to id, or "" when it can.
// With allowPastRescore false an already scored match may only be replaced
// while nothing downstream has consumed its outcome.
func (t *Tournament) Unscorable(id ID, score []int, allowPastRescore bool) string {
	m, ok := t.index[id]
	if !ok {
		return fmt.Sprintf("match %s not found", id)
	}
	if m.HasWalkover() {
		return "cannot override score in a walkover match"
	}
	if !m.Playable() {
		return "players not ready"
	}
	if len(score) != len(m.Opponents) {
		return fmt.Sprintf("scores must have length %d", len(m.Opponents))
	}
	if m.Scored() && !allowPastRescore && !t.engine.safe(t, m) {
		return "cannot re-score a match whose outcome was already used"
	}
	return t.engine.verify(t, m, score)
}

// Score validates and applies score to id, appends it to the event log and
// routes the outcome. Validation failures return a *RejectedError and leave
// the tournament untouched.
func (t *Tournament) Score(id ID, score []int) error {
	if reason := t.Unscorable(id, score, true); reason != "" {
		return &RejectedError{ID: id, Reason: reason}
	}
	m := t.index[id]
	m.Score = slices.Clone(score)
	t.state = append(t.state, StateEvent{Type: EventScore, ID: id, Score: slices.Clone(score)})
	return t.engine.progress(t, m)
}

func (t *Tournament) Results() []Result {
	byseed := make(map[int]*Result, t.numPlayers)
	list := make([]*Result, 0, t.numPlayers)
	for s := 1; s <= t.numPlayers; s++ {
		r := &Result{Seed: s, Position: t.numPlayers}
		byseed[s] = r
		list = append(list, r)
	}
	for _, m := range t.matches {
		t.engine.stats(t, byseed, m)
	}
	t.engine.sort(t, list)

	out := make([]Result, len(list))
	for i, r := range list {
		out[i] = *r
	}
	return out
}

func (t *Tournament) ResultsFor(seed int) (Result, bool) {
	for _, r := range t.Results() {
		if r.Seed == seed {
			return r, true
		}
	}
	return Result{}, false
}

// better reports whether score a beats score b.
func (t *Tournament) better(a, b int) bool {
	if t.lowerScoreIsBetter {
		return a < b
	}
	return a > b
}

type placed struct {
	seed  int
	score int
}

// rank orders the opponents of a scored match best first, ties by seed.
func (t *Tournament) rank(m *Match) []placed {
	out := make([]placed, 0, len(m.Opponents))
	for i, s := range m.Opponents {
		out = append(out, placed{seed: s, score: m.Score[i]})
	}
	slices.SortFunc(out, t.comparePlaced)
	return out
}

func (t *Tournament) comparePlaced(a, b placed) int {
	switch {
	case t.better(a.score, b.score):
		return -1
	case t.better(b.score, a.score):
		return 1
	}
	return cmp.Compare(a.seed, b.seed)
}

// sortScores returns a copy of score ordered best first.
func (t *Tournament) sortScores(score []int) []int {
	out := slices.Clone(score)
	slices.SortFunc(out, func(a, b int) int {
		if t.lowerScoreIsBetter {
			return cmp.Compare(a, b)
		}
		return cmp.Compare(b, a)
	})
	return out
}

func comparePosition(a, b *Result) int {
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}
	return cmp.Compare(a.Seed, b.Seed)
}
