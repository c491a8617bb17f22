package services

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/keshav-const/BTP-sub000/common/errors"
	"github.com/keshav-const/BTP-sub000/common/logger"
	"github.com/keshav-const/BTP-sub000/events"
	"github.com/keshav-const/BTP-sub000/metrics"
	"github.com/keshav-const/BTP-sub000/models"
	awspkg "github.com/keshav-const/BTP-sub000/pkg/aws"
	"github.com/keshav-const/BTP-sub000/repository"
	"go.uber.org/zap"
)

type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

type OrderService struct {
	orders    repository.OrderRepository
	stock     *StockService
	tx        repository.TxRunner
	publisher events.Publisher
	metrics   metrics.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewOrderService(orders repository.OrderRepository, stock *StockService, tx repository.TxRunner, publisher events.Publisher, recorder metrics.Recorder, logger *zap.Logger) *OrderService {
	if tx == nil {
		tx = repository.NoopTx{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &OrderService{
		orders:    orders,
		stock:     stock,
		tx:        tx,
		publisher: publisher,
		metrics:   recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// GetOrder returns an order owned by userID.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.ErrAccessDenied
	}
	return order, nil
}

// GetOrderByNumber is the admin lookup by human-readable number.
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrOrderNotFound.WithDetail("order_number", orderNumber)
		}
		return nil, apperrors.Internal("Failed to load order", err)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string, page, limit int) (*OrderResponse, error) {
	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, apperrors.Internal("Failed to list orders", err)
	}
	return newOrderResponse(orders, total, page, limit), nil
}

func (s *OrderService) ListAllOrders(ctx context.Context, page, limit int) (*OrderResponse, error) {
	orders, total, err := s.orders.FindAll(ctx, page, limit)
	if err != nil {
		return nil, apperrors.Internal("Failed to list orders", err)
	}
	return newOrderResponse(orders, total, page, limit), nil
}

// CancelOrder cancels a pending or confirmed order owned by userID and puts
// its stock back.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(order.Status, models.StatusCancelled) {
		return nil, apperrors.InvalidStatusTransition(string(order.Status), string(models.StatusCancelled))
	}
	return s.apply(ctx, order, models.StatusCancelled)
}

// UpdateStatus is the admin override. Setting the current status again
// returns the order unchanged.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidRequest("unknown status " + string(status))
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	if !models.CanAdminSet(order.Status, status) {
		return nil, apperrors.InvalidStatusTransition(string(order.Status), string(status))
	}
	return s.apply(ctx, order, status)
}

// apply writes the new status with a compare-and-set on the current one.
// Cancellation restores stock first; a lost race takes it back again.
func (s *OrderService) apply(ctx context.Context, order *models.Order, to models.OrderStatus) (*models.Order, error) {
	from := order.State()
	now := s.now().UTC()

	next := *order
	next.Status = to
	next.UpdatedAt = now
	switch to {
	case models.StatusCancelled:
		next.CancelledAt = &now
	case models.StatusDelivered:
		next.DeliveredAt = &now
	}

	lines := order.StockLines()
	restoring := to == models.StatusCancelled

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if restoring {
			if err := s.stock.Release(ctx, lines); err != nil {
				return err
			}
		}
		if err := s.orders.Transition(ctx, &next, from); err != nil {
			if restoring && !repository.InTransaction(ctx) {
				if rerr := s.stock.Reserve(ctx, lines); rerr != nil {
					logger.FromContext(ctx, s.logger).Error("Failed to take back restored stock after lost status update",
						zap.String("order_id", order.ID), zap.Error(rerr))
				}
			}
			return casError(ctx, s.orders, order.ID, string(to), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(from.Status)),
		zap.String("to", string(to)))

	evt := models.NewOrderEvent(models.EventOrderStatusChanged, &next)
	metric := awspkg.MetricOrderStatusChange
	if restoring {
		evt.Type = models.EventOrderCancelled
		metric = awspkg.MetricOrdersCancelled
	}
	evt.PreviousStatus = from.Status
	if err := s.metrics.RecordCount(ctx, metric, map[string]string{"Outcome": string(to)}); err != nil {
		logger.FromContext(ctx, s.logger).Debug("metric not recorded", zap.String("metric", metric), zap.Error(err))
	}
	publish(ctx, s.publisher, s.logger, evt)
	return &next, nil
}

func (s *OrderService) load(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.OrderNotFound(orderID)
		}
		return nil, apperrors.Internal("Failed to load order", err)
	}
	return order, nil
}

// casError explains a failed compare-and-set using the order's current
// state.
func casError(ctx context.Context, orders repository.OrderRepository, orderID, to string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.OrderNotFound(orderID)
	case errors.Is(err, repository.ErrConflict):
		current, ferr := orders.FindByID(context.WithoutCancel(ctx), orderID)
		if ferr != nil {
			return apperrors.InvalidStatusTransition("unknown", to)
		}
		if current.PaymentStatus == models.PaymentCompleted && to == string(models.PaymentCompleted) {
			return apperrors.ErrAlreadyPaid
		}
		return apperrors.InvalidStatusTransition(string(current.Status), to)
	}
	return apperrors.Internal("Failed to update order", err)
}

func newOrderResponse(orders []models.Order, total int64, page, limit int) *OrderResponse {
	if orders == nil {
		orders = []models.Order{}
	}
	totalPages := calculateTotalPages(total, limit)
	return &OrderResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  totalPages,
			HasMore:     int64(page) < totalPages,
		},
	}
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
