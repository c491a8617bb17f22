package models_test

import (
	"testing"

	"github.com/keshav-const/BTP-sub000/models"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition_FulfilmentPath(t *testing.T) {
	assert.True(t, models.CanTransition(models.StatusPending, models.StatusConfirmed))
	assert.True(t, models.CanTransition(models.StatusConfirmed, models.StatusShipped))
	assert.True(t, models.CanTransition(models.StatusShipped, models.StatusDelivered))
	assert.True(t, models.CanTransition(models.StatusPending, models.StatusCancelled))
	assert.True(t, models.CanTransition(models.StatusConfirmed, models.StatusCancelled))

	assert.False(t, models.CanTransition(models.StatusPending, models.StatusShipped))
	assert.False(t, models.CanTransition(models.StatusShipped, models.StatusCancelled))
	assert.False(t, models.CanTransition(models.StatusDelivered, models.StatusCancelled))
	assert.False(t, models.CanTransition(models.StatusCancelled, models.StatusPending))
	assert.False(t, models.CanTransition(models.StatusDelivered, models.StatusShipped))
}

func TestCanAdminSet(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.StatusPending, models.StatusShipped, true},
		{models.StatusPending, models.StatusDelivered, true},
		{models.StatusShipped, models.StatusConfirmed, true},
		{models.StatusConfirmed, models.StatusCancelled, true},
		{models.StatusShipped, models.StatusCancelled, false},
		{models.StatusDelivered, models.StatusCancelled, false},
		{models.StatusDelivered, models.StatusShipped, false},
		{models.StatusCancelled, models.StatusConfirmed, false},
		{models.StatusConfirmed, models.StatusPending, false},
		{models.StatusConfirmed, models.StatusConfirmed, false},
		{models.StatusPending, models.OrderStatus("lost"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, models.CanAdminSet(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransitionPayment(t *testing.T) {
	assert.True(t, models.CanTransitionPayment(models.PaymentPending, models.PaymentCompleted))
	assert.True(t, models.CanTransitionPayment(models.PaymentPending, models.PaymentFailed))
	assert.True(t, models.CanTransitionPayment(models.PaymentFailed, models.PaymentCompleted))
	assert.False(t, models.CanTransitionPayment(models.PaymentCompleted, models.PaymentFailed))
	assert.False(t, models.CanTransitionPayment(models.PaymentCompleted, models.PaymentCompleted))
}

func TestOrderStockLines(t *testing.T) {
	o := &models.Order{Items: []models.OrderItem{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 1},
	}}
	assert.Equal(t, []models.StockLine{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 1}}, o.StockLines())
}
