package services

import (
	"context"
	"errors"
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

const (
	maxOrderNumberAttempts = 3

	DefaultIdempotencyTTL      = 24 * time.Hour
	DefaultIdempotencyClaimTTL = time.Minute
)

// CheckoutDeps wires the stores and side channels used by checkout.
// Idempotency may be nil, in which case Idempotency-Key headers are ignored.
//
// IdempotencyClaimTTL bounds how long an unfinished checkout holds its key,
// so a crashed attempt frees it quickly. IdempotencyTTL is how long the
// finished result is replayed.
type CheckoutDeps struct {
	Orders              repository.OrderRepository
	Carts               repository.CartRepository
	Stock               *StockService
	Tx                  repository.TxRunner
	Idempotency         repository.IdempotencyStore
	IdempotencyTTL      time.Duration
	IdempotencyClaimTTL time.Duration
	Publisher           events.Publisher
	Metrics             metrics.Recorder
	Pricing             PricingPolicy
	Logger              *zap.Logger
}

type CheckoutService struct {
	orders    repository.OrderRepository
	carts     repository.CartRepository
	stock     *StockService
	tx        repository.TxRunner
	idem      repository.IdempotencyStore
	idemTTL   time.Duration
	claimTTL  time.Duration
	publisher events.Publisher
	metrics   metrics.Recorder
	pricing   PricingPolicy
	logger    *zap.Logger

	now         func() time.Time
	orderNumber func(time.Time) string
}

func NewCheckoutService(d CheckoutDeps) *CheckoutService {
	s := &CheckoutService{
		orders:      d.Orders,
		carts:       d.Carts,
		stock:       d.Stock,
		tx:          d.Tx,
		idem:        d.Idempotency,
		idemTTL:     d.IdempotencyTTL,
		claimTTL:    d.IdempotencyClaimTTL,
		publisher:   d.Publisher,
		metrics:     d.Metrics,
		pricing:     d.Pricing,
		logger:      d.Logger,
		now:         time.Now,
		orderNumber: NewOrderNumber,
	}
	if s.tx == nil {
		s.tx = repository.NoopTx{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.idemTTL <= 0 {
		s.idemTTL = DefaultIdempotencyTTL
	}
	if s.claimTTL <= 0 {
		s.claimTTL = DefaultIdempotencyClaimTTL
	}
	return s
}

// Checkout turns the requested lines, or the user's cart when the request
// has none, into a pending order with stock taken. A non-empty
// idempotencyKey makes replays return the first order.
func (s *CheckoutService) Checkout(ctx context.Context, userID, idempotencyKey string, req *models.CheckoutRequest) (*models.Order, error) {
	if s.idem == nil || idempotencyKey == "" {
		return s.checkout(ctx, userID, req)
	}

	key := userID + ":" + idempotencyKey
	existing, claimed, err := s.idem.Claim(ctx, key, s.claimTTL)
	if err != nil {
		return nil, apperrors.Internal("Failed to claim idempotency key", err)
	}
	if !claimed {
		if existing == "" {
			return nil, apperrors.ErrCheckoutInProgress
		}
		logger.FromContext(ctx, s.logger).Info("Replaying checkout", zap.String("user_id", userID), zap.String("order_id", existing))
		order, err := s.orders.FindByID(ctx, existing)
		if err != nil {
			return nil, apperrors.Internal("Failed to load order", err)
		}
		return order, nil
	}

	order, err := s.checkout(ctx, userID, req)
	if err != nil {
		if rerr := s.idem.Release(context.WithoutCancel(ctx), key); rerr != nil {
			logger.FromContext(ctx, s.logger).Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(rerr))
		}
		return nil, err
	}
	if cerr := s.idem.Complete(context.WithoutCancel(ctx), key, order.ID, s.idemTTL); cerr != nil {
		logger.FromContext(ctx, s.logger).Warn("Failed to store idempotency result", zap.String("key", key), zap.Error(cerr))
	}
	return order, nil
}

func (s *CheckoutService) checkout(ctx context.Context, userID string, req *models.CheckoutRequest) (*models.Order, error) {
	start := s.now()

	if !req.PaymentMethod.Valid() {
		return nil, apperrors.InvalidRequest("payment_method must be card or cod")
	}

	lines, err := s.resolveLines(ctx, userID, req.Items)
	if err != nil {
		s.reject(ctx, userID, err)
		return nil, err
	}

	products, err := s.stock.Validate(ctx, lines)
	if err != nil {
		s.reject(ctx, userID, err)
		return nil, err
	}

	order := s.buildOrder(userID, req, lines, products)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stock.Reserve(ctx, lines); err != nil {
			return err
		}
		if err := s.persist(ctx, order); err != nil {
			// A failed transaction rolls the reservation back itself.
			if repository.InTransaction(ctx) {
				return err
			}
			if rerr := s.stock.Release(ctx, lines); rerr != nil {
				logger.FromContext(ctx, s.logger).Error("Failed to release stock after order persist failure",
					zap.String("order_id", order.ID), zap.Error(rerr))
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.reject(ctx, userID, err)
		return nil, err
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		logger.FromContext(ctx, s.logger).Warn("Failed to clear cart after checkout",
			zap.String("user_id", userID),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	logger.FromContext(ctx, s.logger).Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", userID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Duration("took", s.now().Sub(start)))
	s.recordLatency(ctx, start, "success")
	s.record(ctx, awspkg.MetricOrdersCreated, "success")
	s.record(ctx, awspkg.MetricCartCheckouts, "success")
	publish(ctx, s.publisher, s.logger, models.NewOrderEvent(models.EventOrderCreated, order))
	return order, nil
}

// resolveLines returns the requested lines, or the cart's when none were
// given, with duplicate products merged in first-seen order.
func (s *CheckoutService) resolveLines(ctx context.Context, userID string, items []models.CheckoutItem) ([]models.StockLine, error) {
	raw := make([]models.StockLine, 0, len(items))
	if len(items) > 0 {
		for _, it := range items {
			raw = append(raw, models.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	} else {
		cart, err := s.carts.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, apperrors.Internal("Failed to load cart", err)
		}
		for _, it := range cart.Items {
			raw = append(raw, models.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	}
	if len(raw) == 0 {
		return nil, apperrors.ErrEmptyCart
	}

	merged := make([]models.StockLine, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, l := range raw {
		if l.Quantity < 1 {
			return nil, apperrors.InvalidQuantity(l.Quantity)
		}
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

func (s *CheckoutService) buildOrder(userID string, req *models.CheckoutRequest, lines []models.StockLine, products map[string]*models.Product) *models.Order {
	now := s.now().UTC()

	items := make([]models.OrderItem, 0, len(lines))
	priced := make([]PricedLine, 0, len(lines))
	for _, l := range lines {
		p := products[l.ProductID]
		items = append(items, models.OrderItem{
			ProductID: l.ProductID,
			Name:      p.Name,
			Image:     p.Image,
			Quantity:  l.Quantity,
			Price:     p.Price,
		})
		priced = append(priced, PricedLine{UnitPrice: p.Price, Quantity: l.Quantity})
	}
	totals := s.pricing.Calculate(priced)

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	return &models.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		OrderDate:       now,
		Items:           items,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		ShippingCharges: totals.ShippingCharges,
		TotalAmount:     totals.Total,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// persist stores order, drawing a fresh order number when the previous one
// collides with an existing order.
func (s *CheckoutService) persist(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = s.orderNumber(s.now())
		err = s.orders.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return apperrors.Internal("Failed to create order", err)
		}
		logger.FromContext(ctx, s.logger).Warn("Order number collision, regenerating",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt))
	}
	return apperrors.Internal("Failed to allocate a unique order number", err)
}

func (s *CheckoutService) recordLatency(ctx context.Context, start time.Time, outcome string) {
	took := s.now().Sub(start)
	if err := s.metrics.RecordLatency(ctx, awspkg.MetricCheckoutLatency, took, map[string]string{"Outcome": outcome}); err != nil {
		logger.FromContext(ctx, s.logger).Debug("metric not recorded", zap.String("metric", awspkg.MetricCheckoutLatency), zap.Error(err))
	}
}

func (s *CheckoutService) reject(ctx context.Context, userID string, err error) {
	appErr := apperrors.From(err)
	if appErr.Code == apperrors.CodeInternal {
		logger.FromContext(ctx, s.logger).Error("Checkout failed", zap.String("user_id", userID), zap.Error(err))
	} else {
		logger.FromContext(ctx, s.logger).Info("Checkout rejected", zap.String("user_id", userID), zap.String("code", appErr.Code))
	}
	s.record(ctx, awspkg.MetricCheckoutRejected, appErr.Code)
}

func (s *CheckoutService) record(ctx context.Context, name, outcome string) {
	if err := s.metrics.RecordCount(ctx, name, map[string]string{"Outcome": outcome}); err != nil {
		logger.FromContext(ctx, s.logger).Debug("metric not recorded", zap.String("metric", name), zap.Error(err))
	}
}

// publish sends evt and only logs failures.
func publish(ctx context.Context, p events.Publisher, log *zap.Logger, evt models.OrderEvent) {
	if err := p.Publish(context.WithoutCancel(ctx), evt); err != nil {
		logger.FromContext(ctx, log).Warn("Failed to publish order event",
			zap.String("event_type", string(evt.Type)),
			zap.String("order_id", evt.OrderID),
			zap.Error(err))
	}
}
