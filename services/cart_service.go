package services

import (
	"context"
	"errors"

	apperrors "github.com/keshav-const/BTP-sub000/common/errors"
	"github.com/keshav-const/BTP-sub000/common/logger"
	"github.com/keshav-const/BTP-sub000/models"
	"github.com/keshav-const/BTP-sub000/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	pricing  PricingPolicy
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, pricing PricingPolicy, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, products: products, pricing: pricing, logger: logger}
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.CartView, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load cart", err)
	}
	return s.Materialize(ctx, cart)
}

// AddItem adds qty of a product, summing with an existing line for the
// same product.
func (s *CartService) AddItem(ctx context.Context, userID string, req *models.AddCartItemRequest) (*models.CartView, error) {
	if req.Quantity < 1 {
		return nil, apperrors.InvalidQuantity(req.Quantity)
	}

	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ProductNotFound(req.ProductID)
		}
		return nil, apperrors.Internal("Failed to load product", err)
	}
	if !product.IsActive {
		return nil, apperrors.ProductInactive(req.ProductID)
	}

	cart, err := s.carts.AddItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return nil, apperrors.Internal("Failed to update cart", err)
	}
	logger.FromContext(ctx, s.logger).Info("Cart item added",
		zap.String("user_id", userID),
		zap.String("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity))
	return s.Materialize(ctx, cart)
}

// UpdateItem replaces the quantity of one line.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.CartView, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidQuantity(quantity)
	}
	cart, err := s.carts.SetItemQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		return nil, s.itemError(itemID, err)
	}
	return s.Materialize(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*models.CartView, error) {
	cart, err := s.carts.RemoveItem(ctx, userID, itemID)
	if err != nil {
		return nil, s.itemError(itemID, err)
	}
	return s.Materialize(ctx, cart)
}

// Clear empties the cart. Clearing an empty or missing cart succeeds.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return apperrors.Internal("Failed to clear cart", err)
	}
	return nil
}

// Materialize resolves the stored lines against current product data.
// Lines whose product is gone or inactive are left out of the view and its
// totals but stay in storage.
func (s *CartService) Materialize(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	view := &models.CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     make([]models.CartLine, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt,
	}

	ids := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}

	products := map[string]*models.Product{}
	if len(ids) > 0 {
		var err error
		products, err = s.products.FindByIDs(ctx, ids)
		if err != nil {
			return nil, apperrors.Internal("Failed to load products", err)
		}
	}

	priced := make([]PricedLine, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok || !p.IsActive || it.Quantity < 1 {
			logger.FromContext(ctx, s.logger).Debug("Dropping unresolved cart line",
				zap.String("cart_id", cart.ID),
				zap.String("product_id", it.ProductID))
			continue
		}
		view.Items = append(view.Items, models.CartLine{
			ItemID:    it.ID,
			ProductID: it.ProductID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     p.Price,
			Stock:     p.Stock,
			Quantity:  it.Quantity,
			LineTotal: p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
		view.TotalQuantity += it.Quantity
		priced = append(priced, PricedLine{UnitPrice: p.Price, Quantity: it.Quantity})
	}
	view.Totals = s.pricing.Calculate(priced)
	return view, nil
}

func (s *CartService) itemError(itemID string, err error) error {
	if errors.Is(err, repository.ErrItemNotFound) || errors.Is(err, repository.ErrNotFound) {
		return apperrors.ItemNotFound(itemID)
	}
	return apperrors.Internal("Failed to update cart", err)
}
