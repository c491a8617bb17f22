package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventOrderPaid          EventType = "order_paid"
	EventPaymentFailed      EventType = "order_payment_failed"
	EventOrderCancelled     EventType = "order_cancelled"
	EventOrderStatusChanged EventType = "order_status_changed"
)

// OrderEvent is published after a state change has been committed.
type OrderEvent struct {
	Type           EventType       `json:"type"`
	OrderID        string          `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	UserID         string          `json:"user_id"`
	Status         OrderStatus     `json:"status"`
	PreviousStatus OrderStatus     `json:"previous_status,omitempty"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Items          []StockLine     `json:"items,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewOrderEvent snapshots order for an event of type t.
func NewOrderEvent(t EventType, order *Order) OrderEvent {
	return OrderEvent{
		Type:          t,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
		Items:         order.StockLines(),
		Timestamp:     time.Now().UTC(),
	}
}
