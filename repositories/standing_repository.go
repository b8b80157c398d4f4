package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/models"
)

type StandingRepository interface {
	// ReplaceAll swaps the stored standings of a tournament for standings.
	ReplaceAll(ctx context.Context, exec SQLExecutor, tournamentID int, standings []models.Standing) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Standing, error)
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStandingRepository) ReplaceAll(ctx context.Context, exec SQLExecutor, tournamentID int, standings []models.Standing) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM standings WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to clear standings: %w", err)
	}

	query := `
		INSERT INTO standings (tournament_id, seed, wins, points_for, points_against, position, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	now := time.Now()
	for i := range standings {
		s := &standings[i]
		s.TournamentID = tournamentID
		s.UpdatedAt = now
		if _, err := executor.ExecContext(ctx, query,
			s.TournamentID, s.Seed, s.Wins, s.PointsFor, s.PointsAgainst, s.Position, s.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to store standing for seed %d: %w", s.Seed, err)
		}
	}
	return nil
}

func (r *postgresStandingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Standing, error) {
	query := `
		SELECT tournament_id, seed, wins, points_for, points_against, position, updated_at
		FROM standings
		WHERE tournament_id = $1
		ORDER BY position, seed`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Standing, 0)
	for rows.Next() {
		var s models.Standing
		if err := rows.Scan(&s.TournamentID, &s.Seed, &s.Wins, &s.PointsFor, &s.PointsAgainst, &s.Position, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
