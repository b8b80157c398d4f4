package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/lib/pq"
)

type SeedRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, tournamentID int, opponents []string) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.BracketSeed, error)
}

type postgresSeedRepository struct {
	db *sql.DB
}

func NewPostgresSeedRepository(db *sql.DB) SeedRepository {
	return &postgresSeedRepository{db: db}
}

func (r *postgresSeedRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateBatch stores opponents[i] as seed i+1 in one statement.
func (r *postgresSeedRepository) CreateBatch(ctx context.Context, exec SQLExecutor, tournamentID int, opponents []string) error {
	if len(opponents) == 0 {
		return nil
	}
	query := `
		INSERT INTO bracket_seeds (tournament_id, seed, opponent)
		SELECT $1, s.ord, s.name
		FROM unnest($2::text[]) WITH ORDINALITY AS s(name, ord)`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID, pq.Array(opponents)); err != nil {
		return fmt.Errorf("failed to seed tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresSeedRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.BracketSeed, error) {
	query := `
		SELECT tournament_id, seed, opponent
		FROM bracket_seeds
		WHERE tournament_id = $1
		ORDER BY seed`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seeds := make([]models.BracketSeed, 0)
	for rows.Next() {
		var s models.BracketSeed
		if err := rows.Scan(&s.TournamentID, &s.Seed, &s.Opponent); err != nil {
			return nil, err
		}
		seeds = append(seeds, s)
	}
	return seeds, rows.Err()
}
