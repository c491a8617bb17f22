package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/keshav-const/BTP-sub000/common/errors"
	"github.com/keshav-const/BTP-sub000/common/logger"
	"github.com/keshav-const/BTP-sub000/events"
	"github.com/keshav-const/BTP-sub000/metrics"
	"github.com/keshav-const/BTP-sub000/models"
	awspkg "github.com/keshav-const/BTP-sub000/pkg/aws"
	"github.com/keshav-const/BTP-sub000/repository"
	"go.uber.org/zap"
)

// DeclinedTestCard always fails authorization.
const DeclinedTestCard = "4000000000000002"

// PaymentService simulates a synchronous card authorization. Any card that
// passes the format check is approved except DeclinedTestCard.
type PaymentService struct {
	orders    repository.OrderRepository
	publisher events.Publisher
	metrics   metrics.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewPaymentService(orders repository.OrderRepository, publisher events.Publisher, recorder metrics.Recorder, logger *zap.Logger) *PaymentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &PaymentService{orders: orders, publisher: publisher, metrics: recorder, logger: logger, now: time.Now}
}

// Pay authorizes payment for an order owned by userID. A declined card
// still updates the order (payment failed) and the updated order is
// returned together with a PaymentDeclined error.
func (s *PaymentService) Pay(ctx context.Context, userID, orderID string, req *models.PaymentRequest) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.OrderNotFound(orderID)
		}
		return nil, apperrors.Internal("Failed to load order", err)
	}
	if order.UserID != userID {
		return nil, apperrors.ErrAccessDenied
	}
	if order.PaymentStatus == models.PaymentCompleted || order.IsPaid {
		return nil, apperrors.ErrAlreadyPaid
	}
	if order.Status == models.StatusCancelled {
		return nil, apperrors.InvalidStatusTransition(string(order.Status), string(models.StatusConfirmed))
	}

	card, err := normalizeCard(req.CardNumber)
	if err != nil {
		return nil, err
	}

	from := order.State()
	now := s.now().UTC()
	next := *order
	next.UpdatedAt = now
	next.CardLast4 = card[len(card)-4:]

	if card == DeclinedTestCard {
		return s.decline(ctx, &next, from)
	}

	if !models.CanTransitionPayment(from.PaymentStatus, models.PaymentCompleted) {
		return nil, apperrors.InvalidStatusTransition(string(from.PaymentStatus), string(models.PaymentCompleted))
	}
	next.PaymentStatus = models.PaymentCompleted
	next.IsPaid = true
	next.PaidAt = &now
	next.TransactionID = "txn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if next.Status == models.StatusPending {
		next.Status = models.StatusConfirmed
	}

	if err := s.orders.Transition(ctx, &next, from); err != nil {
		return nil, casError(ctx, s.orders, orderID, string(models.PaymentCompleted), err)
	}

	logger.FromContext(ctx, s.logger).Info("Payment completed",
		zap.String("order_id", next.ID),
		zap.String("user_id", userID),
		zap.String("transaction_id", next.TransactionID))
	s.record(ctx, awspkg.MetricPaymentSucceeded)
	evt := models.NewOrderEvent(models.EventOrderPaid, &next)
	evt.PreviousStatus = from.Status
	publish(ctx, s.publisher, s.logger, evt)
	return &next, nil
}

func (s *PaymentService) decline(ctx context.Context, next *models.Order, from models.OrderState) (*models.Order, error) {
	if !models.CanTransitionPayment(from.PaymentStatus, models.PaymentFailed) {
		return nil, apperrors.InvalidStatusTransition(string(from.PaymentStatus), string(models.PaymentFailed))
	}
	next.PaymentStatus = models.PaymentFailed
	next.TransactionID = ""

	if err := s.orders.Transition(ctx, next, from); err != nil {
		return nil, casError(ctx, s.orders, next.ID, string(models.PaymentFailed), err)
	}

	logger.FromContext(ctx, s.logger).Warn("Payment declined", zap.String("order_id", next.ID), zap.String("user_id", next.UserID))
	s.record(ctx, awspkg.MetricPaymentFailed)
	publish(ctx, s.publisher, s.logger, models.NewOrderEvent(models.EventPaymentFailed, next))
	return next, apperrors.ErrPaymentDeclined.WithDetail("order_id", next.ID)
}

func (s *PaymentService) record(ctx context.Context, name string) {
	if err := s.metrics.RecordCount(ctx, name, nil); err != nil {
		logger.FromContext(ctx, s.logger).Debug("metric not recorded", zap.String("metric", name), zap.Error(err))
	}
}

// normalizeCard strips spaces and dashes and checks for 13 to 19 digits.
func normalizeCard(number string) (string, error) {
	card := strings.NewReplacer(" ", "", "-", "").Replace(number)
	if len(card) < 13 || len(card) > 19 {
		return "", apperrors.InvalidPaymentDetails("card number must be 13 to 19 digits")
	}
	for _, r := range card {
		if r < '0' || r > '9' {
			return "", apperrors.InvalidPaymentDetails("card number must contain only digits")
		}
	}
	return card, nil
}
