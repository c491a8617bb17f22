package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID        string `json:"id" bson:"id"`
	ProductID string `json:"product_id" bson:"product_id"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Cart holds product references and quantities only. Prices are resolved
// when the cart is read.
type Cart struct {
	ID        string     `json:"id" bson:"_id"`
	UserID    string     `json:"user_id" bson:"user_id"`
	Items     []CartItem `json:"items" bson:"items"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// FindItem returns the line with the given id.
func (c *Cart) FindItem(itemID string) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return CartItem{}, false
}

// CartLine is a cart item resolved against live product data.
type CartLine struct {
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is what clients see when they read their cart.
type CartView struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Items         []CartLine     `json:"items"`
	TotalQuantity int            `json:"total_quantity"`
	Totals        PriceBreakdown `json:"totals"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type AddCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}
