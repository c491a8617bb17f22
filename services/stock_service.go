package services

import (
	"context"
	"errors"

	apperrors "github.com/keshav-const/BTP-sub000/common/errors"
	"github.com/keshav-const/BTP-sub000/common/logger"
	"github.com/keshav-const/BTP-sub000/metrics"
	"github.com/keshav-const/BTP-sub000/models"
	awspkg "github.com/keshav-const/BTP-sub000/pkg/aws"
	"github.com/keshav-const/BTP-sub000/repository"
	"go.uber.org/zap"
)

// StockService moves stock between the catalog and orders. Every change is
// a conditional single-product update in the catalog store; partial
// failures are compensated before returning.
type StockService struct {
	products repository.ProductRepository
	metrics  metrics.Recorder
	logger   *zap.Logger
}

func NewStockService(products repository.ProductRepository, recorder metrics.Recorder, logger *zap.Logger) *StockService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &StockService{products: products, metrics: recorder, logger: logger}
}

// Validate checks every line against current catalog data without
// mutating anything and returns the resolved products by id.
func (s *StockService) Validate(ctx context.Context, lines []models.StockLine) (map[string]*models.Product, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, apperrors.InvalidQuantity(l.Quantity)
		}
		ids = append(ids, l.ProductID)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("Failed to load products", err)
	}

	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, apperrors.ProductNotFound(l.ProductID)
		}
		if !p.IsActive {
			return nil, apperrors.ProductInactive(l.ProductID)
		}
		if p.Stock < l.Quantity {
			return nil, apperrors.InsufficientStock(l.ProductID, l.Quantity, p.Stock)
		}
	}
	return products, nil
}

// Reserve decrements stock for each line in order. If any decrement fails
// the lines already taken are put back and the failure is returned.
func (s *StockService) Reserve(ctx context.Context, lines []models.StockLine) error {
	for i, l := range lines {
		if err := s.products.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			logger.FromContext(ctx, s.logger).Warn("Stock reservation failed, compensating",
				zap.String("product_id", l.ProductID),
				zap.Int("quantity", l.Quantity),
				zap.Int("reserved_lines", i),
				zap.Error(err))
			s.compensate(ctx, lines[:i], s.products.IncrementStock)
			return s.reserveError(ctx, l, err)
		}
	}
	s.record(ctx, awspkg.MetricInventoryReserved, len(lines))
	return nil
}

// Release puts stock back for each line. On a failure the lines already
// released are taken again so the catalog ends where it started.
func (s *StockService) Release(ctx context.Context, lines []models.StockLine) error {
	for i, l := range lines {
		if err := s.products.IncrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			logger.FromContext(ctx, s.logger).Error("Stock release failed, compensating",
				zap.String("product_id", l.ProductID),
				zap.Int("quantity", l.Quantity),
				zap.Error(err))
			s.compensate(ctx, lines[:i], s.products.DecrementStock)
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.ProductNotFound(l.ProductID)
			}
			return apperrors.Internal("Failed to restore stock", err)
		}
	}
	s.record(ctx, awspkg.MetricInventoryReleased, len(lines))
	return nil
}

// compensate applies op to every line, logging lines it cannot fix. Inside
// a store transaction nothing is applied: the caller returns the error and
// the transaction discards every change.
func (s *StockService) compensate(ctx context.Context, lines []models.StockLine, op func(context.Context, string, int) error) {
	if len(lines) == 0 {
		return
	}
	if repository.InTransaction(ctx) {
		logger.FromContext(ctx, s.logger).Info("Stock compensation left to transaction rollback",
			zap.Int("lines", len(lines)))
		return
	}
	for _, l := range lines {
		if err := op(context.WithoutCancel(ctx), l.ProductID, l.Quantity); err != nil {
			logger.FromContext(ctx, s.logger).Error("Stock compensation failed; manual correction required",
				zap.String("product_id", l.ProductID),
				zap.Int("quantity", l.Quantity),
				zap.Error(err))
		}
	}
}

func (s *StockService) reserveError(ctx context.Context, l models.StockLine, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.ProductNotFound(l.ProductID)
	case errors.Is(err, repository.ErrProductInactive):
		return apperrors.ProductInactive(l.ProductID)
	case errors.Is(err, repository.ErrInsufficientStock):
		available := 0
		if p, ferr := s.products.FindByID(ctx, l.ProductID); ferr == nil {
			available = p.Stock
		}
		return apperrors.InsufficientStock(l.ProductID, l.Quantity, available)
	}
	return apperrors.Internal("Failed to reserve stock", err)
}

func (s *StockService) record(ctx context.Context, name string, lines int) {
	if lines == 0 {
		return
	}
	if err := s.metrics.RecordCount(ctx, name, nil); err != nil {
		logger.FromContext(ctx, s.logger).Debug("metric not recorded", zap.String("metric", name), zap.Error(err))
	}
}
