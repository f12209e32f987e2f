package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/comandaqr/ticket-gateway/internal/model"
)

// OrdersRepository resolves decoded ticket codes to order context and
// records confirmations.
type OrdersRepository interface {
	GetByTicketCode(ctx context.Context, code string) (*model.TicketContext, error)
	MarkConfirmed(ctx context.Context, orderID int64) error
}

type OrdersRepositoryImpl struct {
	db *sqlx.DB
}

func NewOrdersRepository(db *sqlx.DB) *OrdersRepositoryImpl {
	return &OrdersRepositoryImpl{db: db}
}

var _ OrdersRepository = (*OrdersRepositoryImpl)(nil)

// GetByTicketCode returns nil without error for unknown codes, which
// the caller reports as an actionable miss rather than a server fault.
func (r *OrdersRepositoryImpl) GetByTicketCode(ctx context.Context, code string) (*model.TicketContext, error) {
	var t model.TicketContext
	err := r.db.GetContext(ctx, &t, `
		SELECT o.id AS order_id,
		       o.ticket_code,
		       o.dish_name,
		       o.customer_name,
		       o.customer_phone,
		       o.status,
		       o.created_at
		  FROM orders o
		 WHERE o.ticket_code = ? LIMIT 1
	`, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *OrdersRepositoryImpl) MarkConfirmed(ctx context.Context, orderID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		   SET status = ?, updated_at = NOW()
		 WHERE id = ? AND status = ?
	`, model.OrderStatusConfirmed, orderID, model.OrderStatusPending)
	return err
}
