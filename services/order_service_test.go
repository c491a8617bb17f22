package services_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/keshav-const/BTP-sub000/common/errors"
	"github.com/keshav-const/BTP-sub000/models"
	"github.com/keshav-const/BTP-sub000/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeOrder(t *testing.T, f *fixture, userID string, items ...models.CheckoutItem) *models.Order {
	t.Helper()
	req := cartRequest()
	req.Items = items
	order, err := f.checkout.Checkout(context.Background(), userID, "", req)
	require.NoError(t, err)
	return order
}

func setStatus(f *fixture, id string, status models.OrderStatus) {
	f.orders.mu.Lock()
	defer f.orders.mu.Unlock()
	o := f.orders.byID[id]
	o.Status = status
	f.orders.byID[id] = o
}

func TestOrderService_CancelPendingRestoresStock(t *testing.T) {
	f := newFixture(product("A", "100", 5), product("B", "20", 1))
	order := placeOrder(t, f, "user-1",
		models.CheckoutItem{ProductID: "A", Quantity: 2},
		models.CheckoutItem{ProductID: "B", Quantity: 1})
	require.Equal(t, 3, f.products.stock("A"))

	cancelled, err := f.order.CancelOrder(context.Background(), "user-1", order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 5, f.products.stock("A"))
	assert.Equal(t, 1, f.products.stock("B"))
	assert.Contains(t, f.publisher.types(), models.EventOrderCancelled)

	_, err = f.order.CancelOrder(context.Background(), "user-1", order.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
	assert.Equal(t, 5, f.products.stock("A"))
}

func TestOrderService_CancelAfterShipmentFails(t *testing.T) {
	for _, status := range []models.OrderStatus{models.StatusShipped, models.StatusDelivered} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(product("A", "100", 5))
			order := placeOrder(t, f, "user-1", models.CheckoutItem{ProductID: "A", Quantity: 2})
			setStatus(f, order.ID, status)

			_, err := f.order.CancelOrder(context.Background(), "user-1", order.ID)

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.CodeInvalidStatusTransition, appErr.Code)
			assert.Equal(t, string(status), appErr.Details["from"])
			assert.Equal(t, 3, f.products.stock("A"))
		})
	}
}

func TestOrderService_Ownership(t *testing.T) {
	f := newFixture(product("A", "100", 5))
	order := placeOrder(t, f, "user-1", models.CheckoutItem{ProductID: "A", Quantity: 1})

	_, err := f.order.GetOrder(context.Background(), "user-2", order.ID)
	assert.ErrorIs(t, err, apperrors.ErrAccessDenied)

	_, err = f.order.CancelOrder(context.Background(), "user-2", order.ID)
	assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
	assert.Equal(t, 4, f.products.stock("A"))

	_, err = f.order.GetOrder(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestOrderService_CancelLosingRaceTakesStockBack(t *testing.T) {
	f := newFixture(product("A", "100", 5))
	order := placeOrder(t, f, "user-1", models.CheckoutItem{ProductID: "A", Quantity: 2})
	f.orders.transitionErr = repository.ErrConflict

	_, err := f.order.CancelOrder(context.Background(), "user-1", order.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
	assert.Equal(t, 3, f.products.stock("A"))
}

func TestOrderService_CancelFailsWhenRestoreFails(t *testing.T) {
	f := newFixture(product("A", "100", 5), product("B", "20", 5))
	order := placeOrder(t, f, "user-1",
		models.CheckoutItem{ProductID: "A", Quantity: 2},
		models.CheckoutItem{ProductID: "B", Quantity: 1})
	f.products.incrementErr["B"] = assert.AnError

	_, err := f.order.CancelOrder(context.Background(), "user-1", order.ID)
	assert.ErrorIs(t, err, apperrors.ErrInternalServer)

	assert.Equal(t, 3, f.products.stock("A"))
	assert.Equal(t, 4, f.products.stock("B"))
	stored, _ := f.orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestOrderService_AdminUpdateStatus(t *testing.T) {
	f := newFixture(product("A", "100", 5))
	ctx := context.Background()
	order := placeOrder(t, f, "user-1", models.CheckoutItem{ProductID: "A", Quantity: 1})

	shipped, err := f.order.UpdateStatus(ctx, order.ID, models.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, shipped.Status)

	// same status is a no-op
	transitions := f.orders.transitions
	same, err := f.order.UpdateStatus(ctx, order.ID, models.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, same.Status)
	assert.Equal(t, transitions, f.orders.transitions)

	_, err = f.order.UpdateStatus(ctx, order.ID, models.StatusCancelled)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

	_, err = f.order.UpdateStatus(ctx, order.ID, models.StatusPending)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

	delivered, err := f.order.UpdateStatus(ctx, order.ID, models.StatusDelivered)
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)
	assert.WithinDuration(t, time.Now(), *delivered.DeliveredAt, time.Minute)

	_, err = f.order.UpdateStatus(ctx, order.ID, models.StatusConfirmed)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

	_, err = f.order.UpdateStatus(ctx, order.ID, "lost")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	assert.Equal(t, 4, f.products.stock("A"))
}

func TestOrderService_AdminCancelRestoresStock(t *testing.T) {
	f := newFixture(product("A", "100", 5))
	order := placeOrder(t, f, "user-1", models.CheckoutItem{ProductID: "A", Quantity: 3})

	_, err := f.order.UpdateStatus(context.Background(), order.ID, models.StatusConfirmed)
	require.NoError(t, err)
	cancelled, err := f.order.UpdateStatus(context.Background(), order.ID, models.StatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.products.stock("A"))
}

func TestOrderService_GetOrderByNumber(t *testing.T) {
	f := newFixture(product("A", "100", 5))
	order := placeOrder(t, f, "user-1", models.CheckoutItem{ProductID: "A", Quantity: 1})

	found, err := f.order.GetOrderByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = f.order.GetOrderByNumber(context.Background(), "ORD-0")
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestOrderService_ListOrdersPagination(t *testing.T) {
	f := newFixture(product("A", "10", 50))
	for i := 0; i < 5; i++ {
		placeOrder(t, f, "user-1", models.CheckoutItem{ProductID: "A", Quantity: 1})
	}
	placeOrder(t, f, "user-2", models.CheckoutItem{ProductID: "A", Quantity: 1})

	resp, err := f.order.ListOrders(context.Background(), "user-1", 1, 2)
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 2)
	assert.Equal(t, int64(5), resp.Meta.TotalOrders)
	assert.Equal(t, int64(3), resp.Meta.TotalPages)
	assert.True(t, resp.Meta.HasMore)

	resp, err = f.order.ListOrders(context.Background(), "user-1", 3, 2)
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 1)
	assert.False(t, resp.Meta.HasMore)

	all, err := f.order.ListAllOrders(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(6), all.Meta.TotalOrders)

	empty, err := f.order.ListOrders(context.Background(), "nobody", 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty.Orders)
	assert.Equal(t, int64(0), empty.Meta.TotalPages)
}
