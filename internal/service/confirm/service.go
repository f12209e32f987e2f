package confirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/comandaqr/ticket-gateway/internal/decode"
	"github.com/comandaqr/ticket-gateway/internal/metrics"
	"github.com/comandaqr/ticket-gateway/internal/model"
	"github.com/comandaqr/ticket-gateway/internal/repository"
	"github.com/comandaqr/ticket-gateway/internal/util"
)

var ErrUnknownTicket = errors.New("unknown ticket code")

// Notifier is the outbound side of confirmation. The call never fails
// from the service's point of view; delivery is fire-and-forget.
type Notifier interface {
	Notify(phone, dishName string)
}

// Service turns a resolved decode into an order confirmation: resolve
// the ticket code, mark the order, record the scan event, and kick off
// the customer notification.
type Service struct {
	orders   repository.OrdersRepository
	events   repository.ScanEventsRepository
	notifier Notifier
	log      *zap.Logger
}

func New(
	orders repository.OrdersRepository,
	events repository.ScanEventsRepository,
	notifier Notifier,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		orders:   orders,
		events:   events,
		notifier: notifier,
		log:      log,
	}
}

var _ decode.Confirmer = (*Service)(nil)

// Confirm handles the single winning decode of a scan session.
func (s *Service) Confirm(ctx context.Context, ev decode.ConfirmEvent) error {
	ticket, err := s.orders.GetByTicketCode(ctx, ev.Code)
	if err != nil {
		metrics.ConfirmationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("ticket lookup: %w", err)
	}

	if ticket == nil {
		metrics.ConfirmationsTotal.WithLabelValues("unknown_code").Inc()
		s.RecordScan(ctx, ev.StationID, ev.SessionID, ev.Path, model.OutcomeUnknownCode, ev.Code)
		return ErrUnknownTicket
	}

	if err := s.orders.MarkConfirmed(ctx, ticket.OrderID); err != nil {
		metrics.ConfirmationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("mark confirmed: %w", err)
	}

	metrics.ConfirmationsTotal.WithLabelValues("confirmed").Inc()
	s.RecordScan(ctx, ev.StationID, ev.SessionID, ev.Path, model.OutcomeDecoded, ev.Code)

	s.log.Info("order confirmed",
		zap.Int64("order_id", ticket.OrderID),
		zap.String("dish", ticket.DishName),
		zap.String("path", ev.Path.String()),
	)

	if s.notifier != nil {
		s.notifier.Notify(ticket.CustomerPhone, ticket.DishName)
	}
	return nil
}

// RecordScan writes one audit row. Best effort: reporting must never
// break the scan flow, so failures are only logged.
func (s *Service) RecordScan(ctx context.Context, stationID int64, sessionID string, path model.ScanPath, outcome model.ScanOutcome, code string) {
	if s.events == nil {
		return
	}
	ev := model.ScanEvent{
		ID:         util.NewID(),
		StationID:  stationID,
		SessionID:  sessionID,
		Path:       path,
		Outcome:    outcome,
		TicketCode: code,
		CreatedAt:  time.Now(),
	}
	if err := s.events.Insert(ctx, ev); err != nil {
		s.log.Warn("scan event insert failed", zap.String("session", sessionID), zap.Error(err))
	}
}
