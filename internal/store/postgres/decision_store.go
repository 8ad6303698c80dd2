package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// DecisionStore implements domain.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a new DecisionStore backed by the given connection pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Insert appends a tender decision.
func (s *DecisionStore) Insert(ctx context.Context, d domain.TenderDecision) error {
	const query = `
		INSERT INTO tender_decisions (
			tender_id, ticker, action, quantity, price,
			reference_vwap, accepted, reason, net_position, gross_position,
			confirmation, tick, decided_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13
		)`

	_, err := s.pool.Exec(ctx, query,
		d.TenderID, d.Ticker, string(d.Action), d.Quantity, d.Price,
		d.ReferenceVWAP, d.Accepted, d.Reason, d.Net, d.Gross,
		string(d.Confirmation), d.Tick, d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert decision for tender %d: %w", d.TenderID, err)
	}
	return nil
}

// ListRecent returns up to limit decisions, newest first.
func (s *DecisionStore) ListRecent(ctx context.Context, limit int) ([]domain.TenderDecision, error) {
	const query = `
		SELECT tender_id, ticker, action, quantity, price,
			reference_vwap, accepted, reason, net_position, gross_position,
			confirmation, tick, decided_at
		FROM tender_decisions
		ORDER BY decided_at DESC, id DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions: %w", err)
	}
	defer rows.Close()

	var out []domain.TenderDecision
	for rows.Next() {
		var d domain.TenderDecision
		var action, confirmation string
		if err := rows.Scan(
			&d.TenderID, &d.Ticker, &action, &d.Quantity, &d.Price,
			&d.ReferenceVWAP, &d.Accepted, &d.Reason, &d.Net, &d.Gross,
			&confirmation, &d.Tick, &d.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan decision: %w", err)
		}
		d.Action = domain.Action(action)
		d.Confirmation = domain.Confirmation(confirmation)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list decisions rows: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.DecisionStore = (*DecisionStore)(nil)
