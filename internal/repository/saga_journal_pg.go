package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mzilka/tripbooker/internal/domain"
)

// StaleSaga is a bucket committed server-side whose saga never reached a
// terminal redirect: the process died or a later bucket faulted. These need
// operator attention; the tickets exist remotely and must not be re-created.
type StaleSaga struct {
	SagaID     uuid.UUID
	TicketKind domain.TicketKind
	TicketIDs  []int64
	RecordedAt time.Time
}

type SagaJournal interface {
	RecordBucket(ctx context.Context, sagaID uuid.UUID, kind domain.TicketKind, tickets []domain.TicketRef) error
	FinishSaga(ctx context.Context, sagaID uuid.UUID, redirect domain.Redirect) error
	UnfinishedSagas(ctx context.Context, olderThan time.Time) ([]StaleSaga, error)
}

type PGSagaJournal struct {
	db *pgxpool.Pool
}

func NewSagaJournal(db *pgxpool.Pool) SagaJournal {
	return &PGSagaJournal{db: db}
}

func (r *PGSagaJournal) RecordBucket(ctx context.Context, sagaID uuid.UUID, kind domain.TicketKind, tickets []domain.TicketRef) error {
	ids := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	_, err := r.db.Exec(ctx, `INSERT INTO saga_buckets (saga_id, ticket_kind, ticket_ids, recorded_at)
		VALUES ($1, $2, $3, now())`, sagaID, string(kind), ids)
	return err
}

func (r *PGSagaJournal) FinishSaga(ctx context.Context, sagaID uuid.UUID, redirect domain.Redirect) error {
	_, err := r.db.Exec(ctx, `INSERT INTO saga_outcomes (saga_id, redirect, finished_at)
		VALUES ($1, $2, now())
		ON CONFLICT (saga_id) DO UPDATE SET redirect = EXCLUDED.redirect, finished_at = now()`,
		sagaID, string(redirect))
	return err
}

func (r *PGSagaJournal) UnfinishedSagas(ctx context.Context, olderThan time.Time) ([]StaleSaga, error) {
	rows, err := r.db.Query(ctx, `SELECT b.saga_id, b.ticket_kind, b.ticket_ids, b.recorded_at
		FROM saga_buckets b
		LEFT JOIN saga_outcomes o ON o.saga_id = b.saga_id
		WHERE o.saga_id IS NULL AND b.recorded_at <= $1
		ORDER BY b.recorded_at`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []StaleSaga
	for rows.Next() {
		var s StaleSaga
		var kind string
		if err := rows.Scan(&s.SagaID, &kind, &s.TicketIDs, &s.RecordedAt); err != nil {
			return nil, err
		}
		s.TicketKind = domain.TicketKind(kind)
		stale = append(stale, s)
	}
	return stale, rows.Err()
}

var _ SagaJournal = (*PGSagaJournal)(nil)
