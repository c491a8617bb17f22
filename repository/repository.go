package repository

import (
	"context"
	"errors"
	"time"

	"github.com/keshav-const/BTP-sub000/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrItemNotFound      = errors.New("cart item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductInactive   = errors.New("product inactive")
	ErrDuplicateKey      = errors.New("duplicate key")
	// ErrConflict means a conditional update found the record in an
	// unexpected state.
	ErrConflict = errors.New("record changed concurrently")
)

// ProductRepository is the catalog store as seen by this service. Stock is
// only ever changed through the conditional helpers.
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)
	// DecrementStock subtracts qty only when the product is active and has
	// at least qty in stock. Fails with ErrNotFound, ErrProductInactive or
	// ErrInsufficientStock and leaves stock untouched otherwise.
	DecrementStock(ctx context.Context, id string, qty int) error
	IncrementStock(ctx context.Context, id string, qty int) error
}

// CartRepository stores one cart per user. Every mutation is a single
// atomic document update.
type CartRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID string, qty int) (*models.Cart, error)
	SetItemQuantity(ctx context.Context, userID, itemID string, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// OrderRepository persists orders. Create fails with ErrDuplicateKey when
// the order number is taken.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
	FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error)
	// Transition writes the mutable fields of next only if the stored order
	// is still in state from. Returns ErrConflict otherwise.
	Transition(ctx context.Context, next *models.Order, from models.OrderState) error
}

// IdempotencyStore maps client supplied idempotency keys to order ids.
type IdempotencyStore interface {
	// Claim reserves key. When the key is already held it returns the
	// stored value ("" while the first request is still running) and false.
	Claim(ctx context.Context, key string, ttl time.Duration) (existing string, claimed bool, err error)
	Complete(ctx context.Context, key, orderID string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// TxRunner runs fn atomically where the backing store supports it.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopTx runs fn directly.
type NoopTx struct{}

func (NoopTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Offset converts 1-based page and limit to a row offset.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
