package brackets

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Opponent slot markers. Real seeds are always positive.
const (
	NoOpponent = 0  // winner/loser of an earlier match, not known yet
	Walkover   = -1 // slot that no seed will ever fill (bye)
)

// ID locates a match inside one tournament. The JSON shape is three integers
// so that stored event logs replay byte for byte.
type ID struct {
	Section int `json:"s"`
	Round   int `json:"r"`
	Match   int `json:"m"`
}

func (id ID) String() string {
	return fmt.Sprintf("S%d R%d M%d", id.Section, id.Round, id.Match)
}

// Less orders ids by section, then round, then match.
func (id ID) Less(other ID) bool {
	return id.Compare(other) < 0
}

func (id ID) Compare(other ID) int {
	if id.Section != other.Section {
		return id.Section - other.Section
	}
	if id.Round != other.Round {
		return id.Round - other.Round
	}
	return id.Match - other.Match
}

// ParseID accepts "S1 R2 M3", "WB R2 M3", "LB R2 M3", "R2 M3" (section 1)
// and the compact "1.2.3" form used in URLs.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if parts := strings.Split(s, "."); len(parts) == 3 {
		var nums [3]int
		for i, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 {
				return ID{}, fmt.Errorf("invalid match id %q", s)
			}
			nums[i] = n
		}
		return ID{Section: nums[0], Round: nums[1], Match: nums[2]}, nil
	}

	fields := strings.Fields(strings.ToUpper(s))
	id := ID{Section: 1}
	if len(fields) == 3 {
		switch f := fields[0]; {
		case f == "WB":
			id.Section = int(WinnerBracket)
		case f == "LB":
			id.Section = int(LoserBracket)
		case strings.HasPrefix(f, "S"):
			n, err := strconv.Atoi(f[1:])
			if err != nil || n < 1 {
				return ID{}, fmt.Errorf("invalid match id %q", s)
			}
			id.Section = n
		default:
			return ID{}, fmt.Errorf("invalid match id %q", s)
		}
		fields = fields[1:]
	}
	if len(fields) != 2 || !strings.HasPrefix(fields[0], "R") || !strings.HasPrefix(fields[1], "M") {
		return ID{}, fmt.Errorf("invalid match id %q", s)
	}
	r, err := strconv.Atoi(fields[0][1:])
	if err != nil || r < 1 {
		return ID{}, fmt.Errorf("invalid match id %q", s)
	}
	m, err := strconv.Atoi(fields[1][1:])
	if err != nil || m < 1 {
		return ID{}, fmt.Errorf("invalid match id %q", s)
	}
	id.Round, id.Match = r, m
	return id, nil
}

// Filter selects matches by the id fields that are set. Zero means any.
type Filter struct {
	Section int
	Round   int
	Match   int
}

func (f Filter) matches(id ID) bool {
	return (f.Section == 0 || f.Section == id.Section) &&
		(f.Round == 0 || f.Round == id.Round) &&
		(f.Match == 0 || f.Match == id.Match)
}

// Match is one game between two or more opponent slots. Score is nil until
// the match has been scored.
type Match struct {
	ID        ID    `json:"id"`
	Opponents []int `json:"p"`
	Score     []int `json:"m,omitempty"`
}

func (m *Match) Scored() bool {
	return m.Score != nil
}

// Playable reports whether every slot holds a real seed.
func (m *Match) Playable() bool {
	for _, p := range m.Opponents {
		if p <= NoOpponent {
			return false
		}
	}
	return true
}

func (m *Match) HasWalkover() bool {
	return slices.Contains(m.Opponents, Walkover)
}

func (m *Match) Contains(seed int) bool {
	return seed > 0 && slices.Contains(m.Opponents, seed)
}

// Slot returns the index of seed in the match, or -1.
func (m *Match) Slot(seed int) int {
	if seed <= 0 {
		return -1
	}
	return slices.Index(m.Opponents, seed)
}

func (m *Match) clone() Match {
	return Match{
		ID:        m.ID,
		Opponents: slices.Clone(m.Opponents),
		Score:     slices.Clone(m.Score),
	}
}

// Players returns the distinct real seeds found in matches, ascending.
func Players(matches []Match) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, m := range matches {
		for _, p := range m.Opponents {
			if p <= 0 {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// Result is the aggregate standing of one seed. While the tournament is in
// progress Position is the worst placement the seed can still end up with.
type Result struct {
	Seed          int `json:"seed"`
	Wins          int `json:"wins"`
	PointsFor     int `json:"for"`
	PointsAgainst int `json:"against"`
	Position      int `json:"pos"`
}

const EventScore = "score"

// StateEvent is one entry of the append-only log a tournament is rebuilt from.
type StateEvent struct {
	Type  string `json:"type"`
	ID    ID     `json:"id"`
	Score []int  `json:"score"`
}
