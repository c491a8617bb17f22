package controllers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/keshav-const/BTP-sub000/common/errors"
	"github.com/keshav-const/BTP-sub000/middleware"
	"github.com/keshav-const/BTP-sub000/models"
	"github.com/keshav-const/BTP-sub000/services"
)

// CartManager is the cart API served by *services.CartService.
type CartManager interface {
	GetCart(ctx context.Context, userID string) (*models.CartView, error)
	AddItem(ctx context.Context, userID string, req *models.AddCartItemRequest) (*models.CartView, error)
	UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.CartView, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*models.CartView, error)
	Clear(ctx context.Context, userID string) error
}

// Checkouter is served by *services.CheckoutService.
type Checkouter interface {
	Checkout(ctx context.Context, userID, idempotencyKey string, req *models.CheckoutRequest) (*models.Order, error)
}

// Payer is served by *services.PaymentService.
type Payer interface {
	Pay(ctx context.Context, userID, orderID string, req *models.PaymentRequest) (*models.Order, error)
}

// OrderManager is served by *services.OrderService.
type OrderManager interface {
	GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, userID string, page, limit int) (*services.OrderResponse, error)
	ListAllOrders(ctx context.Context, page, limit int) (*services.OrderResponse, error)
	CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error)
}

// respondError records err for the request logger and writes the error
// envelope.
func respondError(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	apperrors.Respond(ctx, err)
}

// requireUser returns the caller id or writes 401.
func requireUser(ctx *gin.Context) (string, bool) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		respondError(ctx, apperrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

// parsePaginationParams extracts and validates pagination parameters
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const MaxLimit = 100
	const DefaultPage = 1
	const DefaultLimit = 10

	pageInt := DefaultPage
	limitInt := DefaultLimit

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limitInt = l
		if limitInt > MaxLimit {
			limitInt = MaxLimit
		}
	}
	return pageInt, limitInt
}
