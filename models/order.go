package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is snapshotted into the order at checkout.
type Address struct {
	FullName   string `json:"full_name" bson:"full_name" binding:"required"`
	Street     string `json:"street" bson:"street" binding:"required"`
	City       string `json:"city" bson:"city" binding:"required"`
	State      string `json:"state" bson:"state"`
	PostalCode string `json:"postal_code" bson:"postal_code" binding:"required"`
	Country    string `json:"country" bson:"country" binding:"required"`
	Phone      string `json:"phone,omitempty" bson:"phone,omitempty"`
}

// Order is shared by the Mongo and Postgres order stores. Items, prices and
// totals never change after creation.
type Order struct {
	ID              string          `json:"id" bson:"_id" gorm:"type:varchar(36);primaryKey"`
	OrderNumber     string          `json:"order_number" bson:"order_number" gorm:"type:varchar(40);uniqueIndex;not null"`
	UserID          string          `json:"user_id" bson:"user_id" gorm:"type:varchar(64);not null;index"`
	OrderDate       time.Time       `json:"order_date" bson:"order_date" gorm:"not null"`
	Items           []OrderItem     `json:"items" bson:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Subtotal        decimal.Decimal `json:"subtotal" bson:"subtotal" gorm:"type:numeric(12,2);not null"`
	Tax             decimal.Decimal `json:"tax" bson:"tax" gorm:"type:numeric(12,2);not null"`
	ShippingCharges decimal.Decimal `json:"shipping_charges" bson:"shipping_charges" gorm:"type:numeric(12,2);not null"`
	TotalAmount     decimal.Decimal `json:"total_amount" bson:"total_amount" gorm:"type:numeric(12,2);not null"`
	Status          OrderStatus     `json:"status" bson:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus   PaymentStatus   `json:"payment_status" bson:"payment_status" gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentMethod   PaymentMethod   `json:"payment_method" bson:"payment_method" gorm:"type:varchar(20);not null"`
	TransactionID   string          `json:"transaction_id,omitempty" bson:"transaction_id,omitempty" gorm:"type:varchar(64)"`
	CardLast4       string          `json:"card_last4,omitempty" bson:"card_last4,omitempty" gorm:"type:varchar(4)"`
	IsPaid          bool            `json:"is_paid" bson:"is_paid" gorm:"not null;default:false"`
	PaidAt          *time.Time      `json:"paid_at" bson:"paid_at"`
	ShippingAddress Address         `json:"shipping_address" bson:"shipping_address" gorm:"embedded;embeddedPrefix:shipping_"`
	BillingAddress  Address         `json:"billing_address" bson:"billing_address" gorm:"embedded;embeddedPrefix:billing_"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at" gorm:"autoUpdateTime"`
}

type OrderItem struct {
	ID        uint            `json:"-" bson:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" bson:"-" gorm:"type:varchar(36);not null;index"`
	ProductID string          `json:"product_id" bson:"product_id" gorm:"type:varchar(64);not null"`
	Name      string          `json:"name" bson:"name" gorm:"not null"`
	Image     string          `json:"image,omitempty" bson:"image,omitempty"`
	Quantity  int             `json:"quantity" bson:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" bson:"price" gorm:"type:numeric(12,2);not null"`
}

// StockLines returns the quantities recorded for each item.
func (o *Order) StockLines() []StockLine {
	lines := make([]StockLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// State returns the pair of statuses guarded by conditional updates.
func (o *Order) State() OrderState {
	return OrderState{Status: o.Status, PaymentStatus: o.PaymentStatus}
}

// OrderState is the expected status pair for a compare-and-set update.
type OrderState struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
}

type CheckoutItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest is the body of POST /checkout. When Items is empty the
// caller's cart is checked out.
type CheckoutRequest struct {
	Items           []CheckoutItem `json:"items" binding:"omitempty,dive"`
	ShippingAddress Address        `json:"shipping_address"`
	BillingAddress  *Address       `json:"billing_address"`
	PaymentMethod   PaymentMethod  `json:"payment_method" binding:"required,oneof=card cod"`
}

// PaymentRequest carries the card details for the simulated payment.
type PaymentRequest struct {
	CardNumber  string `json:"card_number"`
	CardHolder  string `json:"card_holder"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}
