package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/comandaqr/ticket-gateway/internal/model"
)

// ScanEventsRepository persists decode attempts in ClickHouse for
// operator reporting. Writes are best effort at the call sites.
type ScanEventsRepository interface {
	Insert(ctx context.Context, ev model.ScanEvent) error
	ListByStation(ctx context.Context, stationID int64, outcome model.ScanOutcome, limit, offset int) ([]model.ScanEvent, error)
}

type scanEventsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewScanEventsRepository(ch *sqlx.DB) ScanEventsRepository {
	return &scanEventsRepository{ch: ch}
}

func (r *scanEventsRepository) Insert(ctx context.Context, ev model.ScanEvent) error {
	_, err := r.ch.ExecContext(ctx, `
		INSERT INTO ticketqr.scan_events
		    (id, station_id, session_id, path, outcome, ticket_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.StationID, ev.SessionID, ev.Path.String(), ev.Outcome.String(), ev.TicketCode, ev.CreatedAt)
	return err
}

func (r *scanEventsRepository) ListByStation(ctx context.Context, stationID int64, outcome model.ScanOutcome, limit, offset int) ([]model.ScanEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, station_id, session_id, path, outcome, ticket_code, created_at
		FROM ticketqr.scan_events
		WHERE station_id = ?
	`
	args := []any{stationID}

	if outcome != "" {
		q += " AND outcome = ?"
		args = append(args, outcome.String())
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.ScanEvent
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
