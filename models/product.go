package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog record as seen by this service. Catalog CRUD lives
// elsewhere; only price, stock and availability matter here.
type Product struct {
	ID        string          `json:"id" bson:"_id"`
	Name      string          `json:"name" bson:"name"`
	Price     decimal.Decimal `json:"price" bson:"price"`
	Stock     int             `json:"stock" bson:"stock"`
	IsActive  bool            `json:"is_active" bson:"is_active"`
	Image     string          `json:"image,omitempty" bson:"image,omitempty"`
	UpdatedAt time.Time       `json:"updated_at" bson:"updated_at"`
}

// StockLine is a product quantity to reserve or restore.
type StockLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
