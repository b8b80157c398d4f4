package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"golang.org/x/sync/errgroup"
)

// Repositories bundles the stores both services work with.
type Repositories struct {
	Tournaments repositories.TournamentRepository
	Seeds       repositories.SeedRepository
	Events      repositories.EventRepository
	Progress    repositories.ProgressRepository
	Forfeits    repositories.ForfeitRepository
	Standings   repositories.StandingRepository
}

// Notifier pushes messages to spectators. *brackets.Hub implements it.
type Notifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

// tournamentState is everything needed to act on one tournament: the stored
// header plus the engine rebuilt from the event log.
type tournamentState struct {
	tournament *models.Tournament
	engine     *brackets.Tournament
	seeds      []models.BracketSeed
	events     []models.StoredEvent
	forfeits   map[int]bool
	progress   map[brackets.ID]*models.MatchProgress
}

// loadState reads the parts of a tournament and replays its log. Outside a
// transaction (exec == nil) the reads run in parallel; a transaction handle
// serves one query at a time.
func loadState(ctx context.Context, repos Repositories, exec repositories.SQLExecutor, t *models.Tournament) (*tournamentState, error) {
	st := &tournamentState{
		tournament: t,
		forfeits:   make(map[int]bool),
		progress:   make(map[brackets.ID]*models.MatchProgress),
	}
	var (
		forfeited []int
		staged    []models.MatchProgress
	)

	g, gCtx := errgroup.WithContext(ctx)
	if exec != nil {
		g.SetLimit(1)
	}
	g.Go(func() error {
		var err error
		st.seeds, err = repos.Seeds.ListByTournament(gCtx, exec, t.ID)
		if err != nil {
			return fmt.Errorf("failed to load seeds: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		st.events, err = repos.Events.ListByTournament(gCtx, exec, t.ID)
		if err != nil {
			return fmt.Errorf("failed to load events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		forfeited, err = repos.Forfeits.ListByTournament(gCtx, exec, t.ID)
		if err != nil {
			return fmt.Errorf("failed to load forfeits: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		staged, err = repos.Progress.ListByTournament(gCtx, exec, t.ID)
		if err != nil {
			return fmt.Errorf("failed to load staged scores: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, s := range forfeited {
		st.forfeits[s] = true
	}
	for i := range staged {
		st.progress[staged[i].MatchID] = &staged[i]
	}
	for i := range st.seeds {
		st.seeds[i].Forfeited = st.forfeits[st.seeds[i].Seed]
	}

	log := make([]brackets.StateEvent, len(st.events))
	for i, e := range st.events {
		log[i] = e.ToState()
	}
	engine, err := brackets.RestoreKind(t.Kind, t.NumPlayers, t.Settings, log)
	if err != nil {
		return nil, fmt.Errorf("%w: tournament %d: %w", ErrCorruptState, t.ID, err)
	}
	st.engine = engine
	return st, nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameConflict
	}
	return err
}

// rejection turns an engine refusal into a service error.
func rejection(id brackets.ID, reason string) error {
	if strings.HasPrefix(reason, "ambiguous") {
		return fmt.Errorf("%w: match %s: %s", ErrAmbiguousScore, id, reason)
	}
	return fmt.Errorf("%w: match %s: %s", ErrScoreRejected, id, reason)
}

func matchView(st *tournamentState, m brackets.Match) models.MatchView {
	names := models.SeedNames(st.seeds)
	v := models.MatchView{
		ID:        m.ID,
		Label:     st.engine.Label(m.ID),
		Opponents: m.Opponents,
		Names:     make([]string, len(m.Opponents)),
		Score:     m.Score,
		Playable:  m.Playable(),
	}
	for i, s := range m.Opponents {
		v.Names[i] = names[s]
	}
	if p, ok := st.progress[m.ID]; ok && !m.Scored() {
		view := *p
		view.States = slotStates(m, p, st.forfeits)
		v.Progress = &view
	}
	return v
}

func toStandings(st *tournamentState, results []brackets.Result) []models.Standing {
	names := models.SeedNames(st.seeds)
	out := make([]models.Standing, len(results))
	for i, r := range results {
		out[i] = models.Standing{
			TournamentID:  st.tournament.ID,
			Seed:          r.Seed,
			Opponent:      names[r.Seed],
			Wins:          r.Wins,
			PointsFor:     r.PointsFor,
			PointsAgainst: r.PointsAgainst,
			Position:      r.Position,
		}
	}
	return out
}
