package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/keshav-const/BTP-sub000/common/errors"
	"github.com/keshav-const/BTP-sub000/models"
)

type CartController struct {
	cart CartManager
}

func NewCartController(cart CartManager) *CartController {
	return &CartController{cart: cart}
}

// GetCart returns the caller's cart with live prices and totals.
func (cc *CartController) GetCart(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	view, err := cc.cart.GetCart(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"cart": view})
}

func (cc *CartController) AddItem(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req models.AddCartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, apperrors.InvalidRequest(err.Error()))
		return
	}
	view, err := cc.cart.AddItem(ctx.Request.Context(), userID, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"cart": view})
}

func (cc *CartController) UpdateItem(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req models.UpdateCartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, apperrors.InvalidRequest(err.Error()))
		return
	}
	view, err := cc.cart.UpdateItem(ctx.Request.Context(), userID, ctx.Param("itemId"), req.Quantity)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"cart": view})
}

func (cc *CartController) RemoveItem(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	view, err := cc.cart.RemoveItem(ctx.Request.Context(), userID, ctx.Param("itemId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"cart": view})
}

func (cc *CartController) ClearCart(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	if err := cc.cart.Clear(ctx.Request.Context(), userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
