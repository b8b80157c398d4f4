package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/lib/pq"
)

// EventRepository is the append-only score log a tournament is replayed from.
type EventRepository interface {
	Append(ctx context.Context, exec SQLExecutor, event *models.StoredEvent) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.StoredEvent, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Append assigns the next sequence number. Callers hold the tournament row
// lock, so two appends never race for the same seq.
func (r *postgresEventRepository) Append(ctx context.Context, exec SQLExecutor, e *models.StoredEvent) error {
	query := `
		INSERT INTO state_events (tournament_id, seq, type, section, round, match, score, submitted_by)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6, $7
		FROM state_events WHERE tournament_id = $1
		RETURNING seq, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		e.TournamentID, e.Type, e.Section, e.Round, e.Match, intArray(e.Score), e.SubmittedBy,
	).Scan(&e.Seq, &e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("concurrent append to tournament %d: %w", e.TournamentID, err)
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.StoredEvent, error) {
	query := `
		SELECT tournament_id, seq, type, section, round, match, score, submitted_by, created_at
		FROM state_events
		WHERE tournament_id = $1
		ORDER BY seq`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.StoredEvent, 0)
	for rows.Next() {
		var (
			e     models.StoredEvent
			score pq.Int64Array
		)
		if err := rows.Scan(&e.TournamentID, &e.Seq, &e.Type, &e.Section, &e.Round, &e.Match, &score, &e.SubmittedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Score = fromIntArray(score)
		events = append(events, e)
	}
	return events, rows.Err()
}
