package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// UnwindStore implements domain.UnwindStore using PostgreSQL.
type UnwindStore struct {
	pool *pgxpool.Pool
}

// NewUnwindStore creates a new UnwindStore backed by the given connection pool.
func NewUnwindStore(pool *pgxpool.Pool) *UnwindStore {
	return &UnwindStore{pool: pool}
}

// Upsert writes the job's current state. Rows are keyed by job ID so every
// transition overwrites the previous one.
func (s *UnwindStore) Upsert(ctx context.Context, j domain.UnwindJob) error {
	const query = `
		INSERT INTO unwind_jobs (
			id, tender_id, ticker, action, quantity, quantity_remaining,
			tender_price, profit_price, stop_loss_price, deadline_tick,
			tactic, state, error, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
		ON CONFLICT (id) DO UPDATE SET
			quantity_remaining = EXCLUDED.quantity_remaining,
			state              = EXCLUDED.state,
			error              = EXCLUDED.error,
			updated_at         = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		j.ID, j.TenderID, j.Ticker, string(j.Action), j.Quantity, j.QuantityRemaining,
		j.TenderPrice, j.ProfitPrice, j.StopLossPrice, j.DeadlineTick,
		string(j.Tactic), string(j.State), j.Error, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert unwind job %s: %w", j.ID, err)
	}
	return nil
}

// ListSince returns jobs updated at or after since, oldest first.
func (s *UnwindStore) ListSince(ctx context.Context, since time.Time) ([]domain.UnwindJob, error) {
	const query = `
		SELECT id, tender_id, ticker, action, quantity, quantity_remaining,
			tender_price, profit_price, stop_loss_price, deadline_tick,
			tactic, state, error, created_at, updated_at
		FROM unwind_jobs
		WHERE updated_at >= $1
		ORDER BY updated_at`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unwind jobs: %w", err)
	}
	jobs, err := pgx.CollectRows(rows, scanUnwindJob)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan unwind jobs: %w", err)
	}
	return jobs, nil
}

func scanUnwindJob(row pgx.CollectableRow) (domain.UnwindJob, error) {
	var j domain.UnwindJob
	var action, tactic, state string
	err := row.Scan(
		&j.ID, &j.TenderID, &j.Ticker, &action, &j.Quantity, &j.QuantityRemaining,
		&j.TenderPrice, &j.ProfitPrice, &j.StopLossPrice, &j.DeadlineTick,
		&tactic, &state, &j.Error, &j.CreatedAt, &j.UpdatedAt,
	)
	j.Action = domain.Action(action)
	j.Tactic = domain.UnwindTactic(tactic)
	j.State = domain.UnwindState(state)
	return j, err
}

// Compile-time interface check.
var _ domain.UnwindStore = (*UnwindStore)(nil)
