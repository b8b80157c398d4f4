package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournamentValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateTournamentInput
	}{
		{"missing name", CreateTournamentInput{Name: "  ", Kind: brackets.KindDuel, Opponents: []string{"a", "b", "c", "d"}}},
		{"too few opponents", CreateTournamentInput{Name: "cup", Kind: brackets.KindDuel, Opponents: []string{"a"}}},
		{"blank opponent", CreateTournamentInput{Name: "cup", Kind: brackets.KindFFA, Opponents: []string{"a", " "}}},
		{"duplicate opponent", CreateTournamentInput{Name: "cup", Kind: brackets.KindFFA, Opponents: []string{"Ann", "ann"}}},
		{"unknown kind", CreateTournamentInput{Name: "cup", Kind: "swiss", Opponents: []string{"a", "b"}}},
		{"double elimination too small", CreateTournamentInput{Name: "cup", Kind: brackets.KindDuel, Settings: json.RawMessage(`{"last":2}`), Opponents: []string{"a", "b", "c"}}},
		{"bad ffa settings", CreateTournamentInput{Name: "cup", Kind: brackets.KindFFA, Settings: json.RawMessage(`{"sizes":[1]}`), Opponents: []string{"a", "b", "c"}}},
		{"malformed settings", CreateTournamentInput{Name: "cup", Kind: brackets.KindFFA, Settings: json.RawMessage(`{"sizes":"x"}`), Opponents: []string{"a", "b", "c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.tournament.CreateTournament(context.Background(), organizer, tt.input)
			require.ErrorIs(t, err, ErrValidationFailed)
			assert.Empty(t, f.store.tournaments)
		})
	}
}

func TestCreateTournament(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tr, err := f.tournament.CreateTournament(ctx, organizer, CreateTournamentInput{
		Name:      " Spring Cup ",
		Kind:      brackets.KindDuel,
		Settings:  json.RawMessage(`{"short":true}`),
		Opponents: []string{"Ann", " Bob", "Cid", "Dee"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Spring Cup", tr.Name)
	assert.Equal(t, 4, tr.NumPlayers)
	assert.Equal(t, models.StatusActive, tr.Status)
	require.NotNil(t, tr.CreatedBy)
	assert.Equal(t, organizer.UserID, *tr.CreatedBy)
	require.Len(t, tr.Seeds, 4)
	assert.Equal(t, "Bob", tr.Seeds[1].Opponent)
	assert.Equal(t, 2, tr.Seeds[1].Seed)

	_, err = f.tournament.CreateTournament(ctx, organizer, CreateTournamentInput{
		Name: "Spring Cup", Kind: brackets.KindFFA, Opponents: []string{"a", "b"},
	})
	assert.ErrorIs(t, err, ErrTournamentNameConflict)
}

func TestGetTournament(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t, brackets.KindDuel, shortDuel, 4)

	_, err := f.scoring.SubmitScore(ctx, organizer, id, wbMatch(1, 1), 4, score(2))
	require.NoError(t, err)

	view, err := f.tournament.GetTournament(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, view.ID)
	assert.False(t, view.Done)
	assert.Len(t, view.Seeds, 4)
	assert.Equal(t, []brackets.ID{wbMatch(1, 1), wbMatch(1, 2)}, view.CurrentRound)
	require.Len(t, view.Matches, 3)

	first := view.Matches[0]
	assert.Equal(t, "WB R1 M1", first.Label)
	assert.Equal(t, []string{"P1", "P4"}, first.Names)
	assert.True(t, first.Playable)
	require.NotNil(t, first.Progress)
	assert.Equal(t, []models.SlotState{models.SlotPending, models.SlotScored}, first.Progress.States)
	assert.Nil(t, view.Matches[1].Progress)

	final := view.Matches[2]
	assert.False(t, final.Playable)
	assert.Equal(t, []string{"", ""}, final.Names)

	_, err = f.tournament.GetTournament(ctx, id+1)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGetTournamentCorruptLog(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t, brackets.KindDuel, shortDuel, 4)

	// a final before its semi finals cannot be replayed
	require.NoError(t, f.store.repos().Events.Append(ctx, nil, &models.StoredEvent{
		TournamentID: id, Type: brackets.EventScore, Section: 1, Round: 2, Match: 1, Score: []int{1, 0},
	}))

	_, err := f.tournament.GetTournament(ctx, id)
	assert.ErrorIs(t, err, ErrCorruptState)

	_, err = f.scoring.ScoreMatch(ctx, organizer, id, wbMatch(1, 1), []int{1, 0})
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestGetResultsWhileActive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t, brackets.KindDuel, shortDuel, 4)

	_, err := f.scoring.ScoreMatch(ctx, organizer, id, wbMatch(1, 1), []int{2, 1})
	require.NoError(t, err)

	results, err := f.tournament.GetResults(ctx, id)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, id, r.TournamentID)
		assert.NotEmpty(t, r.Opponent)
	}
	for _, r := range results {
		if r.Seed == 4 {
			assert.Equal(t, 3, r.Position)
		}
	}

	_, err = f.tournament.GetResults(ctx, id+1)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGetMatchesForSeed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t, brackets.KindDuel, shortDuel, 4)

	views, err := f.tournament.GetMatchesForSeed(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, wbMatch(1, 1), views[0].ID)

	_, err = f.scoring.ScoreMatch(ctx, organizer, id, wbMatch(1, 1), []int{2, 1})
	require.NoError(t, err)
	views, err = f.tournament.GetMatchesForSeed(ctx, id, 1)
	require.NoError(t, err)
	assert.Len(t, views, 2)

	_, err = f.tournament.GetMatchesForSeed(ctx, id, 5)
	assert.ErrorIs(t, err, ErrSeedNotFound)
}

func TestListTournaments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	duel := f.create(t, brackets.KindDuel, shortDuel, 4)
	f.create(t, brackets.KindFFA, "", 3)

	all, err := f.tournament.ListTournaments(ctx, repositories.ListTournamentsFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	kind := brackets.KindDuel
	duels, err := f.tournament.ListTournaments(ctx, repositories.ListTournamentsFilter{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, duels, 1)
	assert.Equal(t, duel, duels[0].ID)
}
