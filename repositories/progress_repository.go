package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/lib/pq"
)

var ErrProgressNotFound = errors.New("match progress not found")

// ProgressRepository stores per-side scores that were reported before the
// match could be resolved.
type ProgressRepository interface {
	Get(ctx context.Context, exec SQLExecutor, tournamentID int, id brackets.ID) (*models.MatchProgress, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.MatchProgress, error)
	Upsert(ctx context.Context, exec SQLExecutor, progress *models.MatchProgress) error
	Delete(ctx context.Context, exec SQLExecutor, tournamentID int, id brackets.ID) error
}

type postgresProgressRepository struct {
	db *sql.DB
}

func NewPostgresProgressRepository(db *sql.DB) ProgressRepository {
	return &postgresProgressRepository{db: db}
}

func (r *postgresProgressRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func scanProgress(row interface{ Scan(...interface{}) error }) (*models.MatchProgress, error) {
	var (
		p      models.MatchProgress
		states pq.StringArray
		scores pq.Int64Array
	)
	err := row.Scan(&p.TournamentID, &p.MatchID.Section, &p.MatchID.Round, &p.MatchID.Match, &states, &scores, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgressNotFound
		}
		return nil, err
	}
	p.States = make([]models.SlotState, len(states))
	for i, s := range states {
		p.States[i] = models.SlotState(s)
	}
	p.Scores = fromIntArray(scores)
	return &p, nil
}

func (r *postgresProgressRepository) Get(ctx context.Context, exec SQLExecutor, tournamentID int, id brackets.ID) (*models.MatchProgress, error) {
	query := `
		SELECT tournament_id, section, round, match, states, scores, updated_at
		FROM match_progress
		WHERE tournament_id = $1 AND section = $2 AND round = $3 AND match = $4`
	return scanProgress(r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, id.Section, id.Round, id.Match))
}

func (r *postgresProgressRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.MatchProgress, error) {
	query := `
		SELECT tournament_id, section, round, match, states, scores, updated_at
		FROM match_progress
		WHERE tournament_id = $1
		ORDER BY section, round, match`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.MatchProgress, 0)
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

func (r *postgresProgressRepository) Upsert(ctx context.Context, exec SQLExecutor, p *models.MatchProgress) error {
	states := make(pq.StringArray, len(p.States))
	for i, s := range p.States {
		states[i] = string(s)
	}
	p.UpdatedAt = time.Now()
	query := `
		INSERT INTO match_progress (tournament_id, section, round, match, states, scores, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tournament_id, section, round, match)
		DO UPDATE SET states = EXCLUDED.states, scores = EXCLUDED.scores, updated_at = EXCLUDED.updated_at`
	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		p.TournamentID, p.MatchID.Section, p.MatchID.Round, p.MatchID.Match, states, intArray(p.Scores), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to stage scores for %s: %w", p.MatchID, err)
	}
	return nil
}

func (r *postgresProgressRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID int, id brackets.ID) error {
	query := `DELETE FROM match_progress WHERE tournament_id = $1 AND section = $2 AND round = $3 AND match = $4`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID, id.Section, id.Round, id.Match); err != nil {
		return fmt.Errorf("failed to clear staged scores for %s: %w", id, err)
	}
	return nil
}
