package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed || s == OrderStatusDelivered
}

// TicketContext is what a decoded ticket code resolves to: the order
// row plus the denormalized fields the notification template needs.
type TicketContext struct {
	OrderID       int64       `db:"order_id"`
	TicketCode    string      `db:"ticket_code"`
	DishName      string      `db:"dish_name"`
	CustomerName  string      `db:"customer_name"`
	CustomerPhone string      `db:"customer_phone"`
	Status        OrderStatus `db:"status"`
	CreatedAt     time.Time   `db:"created_at"`
}
