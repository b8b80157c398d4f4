package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/Dosada05/bracket-engine/storage"
)

type CreateTournamentInput struct {
	Name      string          `json:"name"`
	Kind      brackets.Kind   `json:"kind"`
	Settings  json.RawMessage `json:"settings,omitempty"`
	Opponents []string        `json:"opponents"`
}

// TournamentView is a tournament with its bracket laid out for clients.
type TournamentView struct {
	*models.Tournament
	Matches      []models.MatchView `json:"matches"`
	CurrentRound []brackets.ID      `json:"current_round"`
	Done         bool               `json:"done"`
	Forfeits     []int              `json:"forfeits"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, actor models.Actor, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*TournamentView, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	GetResults(ctx context.Context, id int) ([]models.Standing, error)
	GetMatchesForSeed(ctx context.Context, id int, seed int) ([]models.MatchView, error)
}

type tournamentService struct {
	tx       repositories.Transactor
	repos    Repositories
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewTournamentService(tx repositories.Transactor, repos Repositories, uploader storage.FileUploader, logger *slog.Logger) TournamentService {
	return &tournamentService{tx: tx, repos: repos, uploader: uploader, logger: logger}
}

func validateCreateInput(input *CreateTournamentInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	if len(input.Opponents) < 2 {
		return fmt.Errorf("%w: at least 2 opponents are required", ErrValidationFailed)
	}
	seen := make(map[string]bool, len(input.Opponents))
	for i, o := range input.Opponents {
		o = strings.TrimSpace(o)
		if o == "" {
			return fmt.Errorf("%w: opponent %d has no name", ErrValidationFailed, i+1)
		}
		if seen[strings.ToLower(o)] {
			return fmt.Errorf("%w: opponent %q is listed twice", ErrValidationFailed, o)
		}
		seen[strings.ToLower(o)] = true
		input.Opponents[i] = o
	}
	return nil
}

// CreateTournament seeds opponents in the given order: the first one is seed 1.
func (s *tournamentService) CreateTournament(ctx context.Context, actor models.Actor, input CreateTournamentInput) (*models.Tournament, error) {
	if !actor.CanManage() {
		return nil, ErrForbiddenOperation
	}
	if err := validateCreateInput(&input); err != nil {
		return nil, err
	}
	// construction validates the settings before anything is stored
	if _, err := brackets.Build(input.Kind, len(input.Opponents), input.Settings); err != nil {
		if errors.Is(err, brackets.ErrInvalidOptions) || errors.Is(err, brackets.ErrUnknownKind) {
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}
		return nil, err
	}

	t := &models.Tournament{
		Name:       input.Name,
		Kind:       input.Kind,
		NumPlayers: len(input.Opponents),
		Settings:   input.Settings,
		Status:     models.StatusActive,
	}
	if actor.UserID > 0 {
		t.CreatedBy = &actor.UserID
	}

	err := s.tx.WithTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.repos.Tournaments.Create(ctx, exec, t); err != nil {
			return mapRepoError(err)
		}
		return s.repos.Seeds.CreateBatch(ctx, exec, t.ID, input.Opponents)
	})
	if err != nil {
		return nil, err
	}

	t.Seeds = make([]models.BracketSeed, len(input.Opponents))
	for i, o := range input.Opponents {
		t.Seeds[i] = models.BracketSeed{TournamentID: t.ID, Seed: i + 1, Opponent: o}
	}
	s.logger.Info("tournament created",
		slog.Int("tournament_id", t.ID), slog.String("kind", string(t.Kind)), slog.Int("players", t.NumPlayers))
	return t, nil
}

func (s *tournamentService) load(ctx context.Context, id int) (*tournamentState, error) {
	t, err := s.repos.Tournaments.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	st, err := loadState(ctx, s.repos, nil, t)
	if err != nil {
		if errors.Is(err, ErrCorruptState) {
			s.logger.Error("tournament does not replay", slog.Int("tournament_id", id), slog.Any("error", err))
		}
		return nil, err
	}
	return st, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*TournamentView, error) {
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	t := st.tournament
	t.Seeds = st.seeds
	if t.ArchiveKey != nil {
		if u := s.uploader.GetPublicURL(*t.ArchiveKey); u != "" {
			t.ArchiveURL = &u
		}
	}

	view := &TournamentView{
		Tournament:   t,
		Matches:      make([]models.MatchView, 0, len(st.engine.Matches())),
		CurrentRound: []brackets.ID{},
		Done:         st.engine.IsDone(),
		Forfeits:     []int{},
	}
	for _, m := range st.engine.Matches() {
		view.Matches = append(view.Matches, matchView(st, m))
	}
	for _, m := range st.engine.CurrentRound(0) {
		view.CurrentRound = append(view.CurrentRound, m.ID)
	}
	for _, sd := range st.seeds {
		if sd.Forfeited {
			view.Forfeits = append(view.Forfeits, sd.Seed)
		}
	}
	return view, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	list, err := s.repos.Tournaments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return list, nil
}

// GetResults returns the stored standings of a completed tournament and the
// live, minimum guaranteed placements of an active one.
func (s *tournamentService) GetResults(ctx context.Context, id int) ([]models.Standing, error) {
	t, err := s.repos.Tournaments.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if t.IsLocked() {
		standings, err := s.repos.Standings.ListByTournament(ctx, nil, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load standings: %w", err)
		}
		seeds, err := s.repos.Seeds.ListByTournament(ctx, nil, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load seeds: %w", err)
		}
		names := models.SeedNames(seeds)
		for i := range standings {
			standings[i].Opponent = names[standings[i].Seed]
		}
		return standings, nil
	}

	st, err := loadState(ctx, s.repos, nil, t)
	if err != nil {
		return nil, err
	}
	return toStandings(st, st.engine.Results()), nil
}

func (s *tournamentService) GetMatchesForSeed(ctx context.Context, id int, seed int) ([]models.MatchView, error) {
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if seed < 1 || seed > st.engine.NumPlayers() {
		return nil, ErrSeedNotFound
	}
	views := make([]models.MatchView, 0)
	for _, m := range st.engine.MatchesFor(seed) {
		views = append(views, matchView(st, m))
	}
	return views, nil
}
