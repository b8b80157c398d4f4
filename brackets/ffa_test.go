package brackets

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ffaID(r, m int) ID { return ID{Section: 1, Round: r, Match: m} }

func TestFFAEightPlayersTwoRounds(t *testing.T) {
	tr, err := NewFFA(8, FFAOptions{Sizes: []int{4, 4}, Advancers: []int{2}})
	require.NoError(t, err)
	require.Len(t, tr.Matches(), 3)

	r1 := tr.FindMatches(Filter{Round: 1})
	require.Len(t, r1, 2)
	assert.Equal(t, []int{1, 3, 6, 8}, r1[0].Opponents)
	assert.Equal(t, []int{2, 4, 5, 7}, r1[1].Opponents)

	final, _ := tr.FindMatch(ffaID(2, 1))
	assert.Equal(t, []int{0, 0, 0, 0}, final.Opponents)

	require.NoError(t, tr.Score(ffaID(1, 1), []int{4, 3, 2, 1}))
	assert.Empty(t, tr.Next(ffaID(1, 1)))
	require.NoError(t, tr.Score(ffaID(1, 2), []int{1, 2, 3, 4}))
	assert.Equal(t, []ID{ffaID(2, 1)}, tr.Next(ffaID(1, 2)))
	assert.False(t, tr.IsDone())

	final, _ = tr.FindMatch(ffaID(2, 1))
	assert.Equal(t, []int{1, 7, 3, 5}, final.Opponents)
	assert.True(t, final.Playable())

	require.NoError(t, tr.Score(ffaID(2, 1), []int{10, 20, 30, 40}))
	assert.True(t, tr.IsDone())

	var seeds, positions []int
	for _, r := range tr.Results() {
		seeds = append(seeds, r.Seed)
		positions = append(positions, r.Position)
	}
	assert.Equal(t, []int{5, 3, 7, 1, 4, 6, 2, 8}, seeds)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 5, 7, 7}, positions)
}

func TestFFAAmbiguousAdvancementIsRejected(t *testing.T) {
	tr, err := NewFFA(8, FFAOptions{Sizes: []int{4, 4}, Advancers: []int{2}})
	require.NoError(t, err)

	reason := tr.Unscorable(ffaID(1, 1), []int{4, 3, 3, 1}, false)
	assert.Contains(t, reason, "ambiguous")

	err = tr.Score(ffaID(1, 1), []int{4, 3, 3, 1})
	assert.ErrorIs(t, err, ErrUnscorable)
	m, _ := tr.FindMatch(ffaID(1, 1))
	assert.False(t, m.Scored())
	assert.Empty(t, tr.State())

	// ties below the cut are fine
	require.NoError(t, tr.Score(ffaID(1, 1), []int{4, 3, 1, 1}))
}

func TestFFALimit(t *testing.T) {
	tr, err := NewFFA(8, FFAOptions{Sizes: []int{4}, Limit: 4})
	require.NoError(t, err)
	f, ok := tr.FFA()
	require.True(t, ok)
	assert.Equal(t, 4, f.Limit())
	assert.Equal(t, 1, f.NumRounds())

	assert.Contains(t, tr.Unscorable(ffaID(1, 1), []int{4, 3, 3, 1}, true), "limit")
	assert.Empty(t, tr.Unscorable(ffaID(1, 1), []int{4, 3, 2, 2}, true))
}

func TestFFALowerScoreIsBetter(t *testing.T) {
	tr, err := NewFFA(6, FFAOptions{Sizes: []int{3, 2}, Advancers: []int{1}, LowerScoreIsBetter: true})
	require.NoError(t, err)

	r1 := tr.FindMatches(Filter{Round: 1})
	require.Len(t, r1, 2)
	require.NoError(t, tr.Score(r1[0].ID, []int{72, 68, 70}))
	require.NoError(t, tr.Score(r1[1].ID, []int{65, 66, 71}))

	final, _ := tr.FindMatch(ffaID(2, 1))
	assert.ElementsMatch(t, []int{r1[0].Opponents[1], r1[1].Opponents[0]}, final.Opponents)
}

func TestFFARescoreSafety(t *testing.T) {
	tr, err := NewFFA(8, FFAOptions{Sizes: []int{4, 4}, Advancers: []int{2}})
	require.NoError(t, err)
	require.NoError(t, tr.Score(ffaID(1, 1), []int{4, 3, 2, 1}))
	require.NoError(t, tr.Score(ffaID(1, 2), []int{4, 3, 2, 1}))

	assert.Empty(t, tr.Unscorable(ffaID(1, 1), []int{1, 2, 3, 4}, false))
	require.NoError(t, tr.Score(ffaID(2, 1), []int{4, 3, 2, 1}))
	assert.Contains(t, tr.Unscorable(ffaID(1, 1), []int{1, 2, 3, 4}, false), "re-score")
}

func TestRestoreFFAReproducesState(t *testing.T) {
	opts := FFAOptions{Sizes: []int{5, 4}, Advancers: []int{2}}
	live, err := NewFFA(15, opts)
	require.NoError(t, err)

	for _, m := range live.FindMatches(Filter{Round: 1}) {
		score := make([]int, len(m.Opponents))
		for i := range score {
			score[i] = 10 * (len(score) - i)
		}
		require.NoError(t, live.Score(m.ID, score))
	}
	for _, m := range live.FindMatches(Filter{Round: 2}) {
		require.True(t, m.Playable())
		score := make([]int, len(m.Opponents))
		for i := range score {
			score[i] = i
		}
		require.NoError(t, live.Score(m.ID, score))
	}
	require.True(t, live.IsDone())

	// the log must survive a trip through storage
	raw, err := json.Marshal(live.State())
	require.NoError(t, err)
	var events []StateEvent
	require.NoError(t, json.Unmarshal(raw, &events))

	restored, err := RestoreFFA(15, opts, events)
	require.NoError(t, err)
	assert.Equal(t, live.Matches(), restored.Matches())
	assert.Equal(t, live.Results(), restored.Results())
}

func TestFFAOptionsValidation(t *testing.T) {
	cases := []struct {
		name string
		n    int
		opts FFAOptions
	}{
		{"one player", 1, FFAOptions{}},
		{"advancers length", 8, FFAOptions{Sizes: []int{4}, Advancers: []int{2}}},
		{"advance whole group", 8, FFAOptions{Sizes: []int{4, 4}, Advancers: []int{4}}},
		{"advance nobody", 8, FFAOptions{Sizes: []int{4, 4}, Advancers: []int{0}}},
		{"group of one", 8, FFAOptions{Sizes: []int{1}}},
		{"limit not divisible", 8, FFAOptions{Sizes: []int{4}, Limit: 3}},
		{"limit too large", 8, FFAOptions{Sizes: []int{4}, Limit: 8}},
		{"negative limit", 8, FFAOptions{Limit: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFFA(tc.n, tc.opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestFFADefaultsToOneGroup(t *testing.T) {
	tr, err := NewFFA(5, FFAOptions{})
	require.NoError(t, err)
	ms := tr.Matches()
	require.Len(t, ms, 1)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ms[0].Opponents)
	assert.Equal(t, "R1 M1", tr.Label(ms[0].ID))
	assert.Equal(t, KindFFA, tr.Kind())
}
