package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

type ForfeitRepository interface {
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]int, error)
	Add(ctx context.Context, exec SQLExecutor, tournamentID, seed int) error
	Remove(ctx context.Context, exec SQLExecutor, tournamentID, seed int) error
}

type postgresForfeitRepository struct {
	db *sql.DB
}

func NewPostgresForfeitRepository(db *sql.DB) ForfeitRepository {
	return &postgresForfeitRepository{db: db}
}

func (r *postgresForfeitRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresForfeitRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]int, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx,
		`SELECT seed FROM forfeits WHERE tournament_id = $1 ORDER BY seed`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seeds := make([]int, 0)
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seeds = append(seeds, s)
	}
	return seeds, rows.Err()
}

func (r *postgresForfeitRepository) Add(ctx context.Context, exec SQLExecutor, tournamentID, seed int) error {
	query := `INSERT INTO forfeits (tournament_id, seed) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID, seed); err != nil {
		return fmt.Errorf("failed to forfeit seed %d: %w", seed, err)
	}
	return nil
}

func (r *postgresForfeitRepository) Remove(ctx context.Context, exec SQLExecutor, tournamentID, seed int) error {
	query := `DELETE FROM forfeits WHERE tournament_id = $1 AND seed = $2`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID, seed); err != nil {
		return fmt.Errorf("failed to reinstate seed %d: %w", seed, err)
	}
	return nil
}
