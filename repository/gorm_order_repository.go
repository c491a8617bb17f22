package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/keshav-const/BTP-sub000/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository on Postgres. Items live in
// order_items and are always preloaded.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new instance of GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create inserts the order and its items in one transaction.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.first(ctx, "order_number = ?", orderNumber)
}

// FindByUserID retrieves orders for a specific user with pagination
func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ?", userID)
	return r.page(query, page, limit)
}

// FindAll retrieves all orders with pagination
func (r *GormOrderRepository) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	return r.page(r.db.WithContext(ctx).Model(&models.Order{}), page, limit)
}

// Transition updates the mutable columns with a WHERE on the expected
// status pair.
func (r *GormOrderRepository) Transition(ctx context.Context, next *models.Order, from models.OrderState) error {
	next.UpdatedAt = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND payment_status = ?", next.ID, from.Status, from.PaymentStatus).
		Updates(map[string]interface{}{
			"status":         next.Status,
			"payment_status": next.PaymentStatus,
			"transaction_id": next.TransactionID,
			"card_last4":     next.CardLast4,
			"is_paid":        next.IsPaid,
			"paid_at":        next.PaidAt,
			"cancelled_at":   next.CancelledAt,
			"delivered_at":   next.DeliveredAt,
			"updated_at":     next.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", next.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *GormOrderRepository) first(ctx context.Context, query string, arg interface{}) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where(query, arg).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) page(query *gorm.DB, page, limit int) ([]models.Order, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := []models.Order{}
	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(Offset(page, limit)).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// isUniqueViolation matches SQLSTATE 23505 when the dialector does not
// translate errors.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
