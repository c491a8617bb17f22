package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/keshav-const/BTP-sub000/common/errors"
	"github.com/keshav-const/BTP-sub000/models"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type CheckoutController struct {
	checkout Checkouter
	payment  Payer
}

func NewCheckoutController(checkout Checkouter, payment Payer) *CheckoutController {
	return &CheckoutController{checkout: checkout, payment: payment}
}

// Checkout places an order from the request items or the caller's cart.
func (cc *CheckoutController) Checkout(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req models.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, apperrors.InvalidRequest(err.Error()))
		return
	}

	order, err := cc.checkout.Checkout(ctx.Request.Context(), userID, ctx.GetHeader(IdempotencyKeyHeader), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"order": order})
}

// Pay runs the simulated card payment. A declined card answers 402 with
// the updated order next to the error.
func (cc *CheckoutController) Pay(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req models.PaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, apperrors.InvalidRequest(err.Error()))
		return
	}

	order, err := cc.payment.Pay(ctx.Request.Context(), userID, ctx.Param("orderId"), &req)
	if err != nil {
		if order != nil && errors.Is(err, apperrors.ErrPaymentDeclined) {
			appErr := apperrors.From(err)
			_ = ctx.Error(err)
			ctx.JSON(appErr.Status, gin.H{"error": appErr, "order": order})
			return
		}
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order, "message": "Payment successful"})
}
