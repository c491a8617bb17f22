package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable error codes returned to clients.
const (
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeProductNotFound         = "PRODUCT_NOT_FOUND"
	CodeProductInactive         = "PRODUCT_INACTIVE"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeItemNotFound            = "ITEM_NOT_FOUND"
	CodeOrderNotFound           = "ORDER_NOT_FOUND"
	CodeAccessDenied            = "ACCESS_DENIED"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeAlreadyPaid             = "ALREADY_PAID"
	CodeInvalidPaymentDetails   = "INVALID_PAYMENT_DETAILS"
	CodePaymentDeclined         = "PAYMENT_DECLINED"
	CodeEmptyCart               = "EMPTY_CART"
	CodeCheckoutInProgress      = "CHECKOUT_IN_PROGRESS"
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeInternal                = "INTERNAL_ERROR"
)

// Error represents an application error
type Error struct {
	Status  int                    `json:"-"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on the error code so callers can compare against the
// package-level sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new Error
func New(status int, code, message string, err error) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail returns a copy of e carrying an extra detail field.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// Sentinels usable with errors.Is. Constructors below attach details.
var (
	ErrInvalidQuantity         = New(http.StatusBadRequest, CodeInvalidQuantity, "Quantity must be a positive integer", nil)
	ErrProductNotFound         = New(http.StatusNotFound, CodeProductNotFound, "Product not found", nil)
	ErrProductInactive         = New(http.StatusConflict, CodeProductInactive, "Product is not available", nil)
	ErrInsufficientStock       = New(http.StatusConflict, CodeInsufficientStock, "Insufficient stock", nil)
	ErrItemNotFound            = New(http.StatusNotFound, CodeItemNotFound, "Cart item not found", nil)
	ErrOrderNotFound           = New(http.StatusNotFound, CodeOrderNotFound, "Order not found", nil)
	ErrAccessDenied            = New(http.StatusForbidden, CodeAccessDenied, "Access denied", nil)
	ErrInvalidStatusTransition = New(http.StatusConflict, CodeInvalidStatusTransition, "Invalid status transition", nil)
	ErrAlreadyPaid             = New(http.StatusConflict, CodeAlreadyPaid, "Order is already paid", nil)
	ErrInvalidPaymentDetails   = New(http.StatusBadRequest, CodeInvalidPaymentDetails, "Invalid payment details", nil)
	ErrPaymentDeclined         = New(http.StatusPaymentRequired, CodePaymentDeclined, "Payment was declined", nil)
	ErrEmptyCart               = New(http.StatusBadRequest, CodeEmptyCart, "Cart is empty", nil)
	ErrCheckoutInProgress      = New(http.StatusConflict, CodeCheckoutInProgress, "A checkout with this idempotency key is in progress", nil)
	ErrInvalidRequest          = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request", nil)
	ErrUnauthorized            = New(http.StatusUnauthorized, CodeUnauthorized, "Unauthorized", nil)
	ErrInternalServer          = New(http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
)

func InvalidQuantity(quantity int) *Error {
	return ErrInvalidQuantity.WithDetail("quantity", quantity)
}

func ProductNotFound(productID string) *Error {
	return ErrProductNotFound.WithDetail("product_id", productID)
}

func ProductInactive(productID string) *Error {
	return ErrProductInactive.WithDetail("product_id", productID)
}

// InsufficientStock reports the requested and available quantity for a product.
func InsufficientStock(productID string, requested, available int) *Error {
	e := ErrInsufficientStock.WithDetail("product_id", productID)
	e.Details["requested"] = requested
	e.Details["available"] = available
	e.Message = fmt.Sprintf("Insufficient stock for product %s: requested %d, available %d", productID, requested, available)
	return e
}

func ItemNotFound(itemID string) *Error {
	return ErrItemNotFound.WithDetail("item_id", itemID)
}

func OrderNotFound(orderID string) *Error {
	return ErrOrderNotFound.WithDetail("order_id", orderID)
}

// InvalidStatusTransition reports the current and attempted status.
func InvalidStatusTransition(from, to string) *Error {
	e := ErrInvalidStatusTransition.WithDetail("from", from)
	e.Details["to"] = to
	e.Message = fmt.Sprintf("Cannot change order status from %s to %s", from, to)
	return e
}

func InvalidPaymentDetails(reason string) *Error {
	e := ErrInvalidPaymentDetails.WithDetail("reason", reason)
	return e
}

func InvalidRequest(reason string) *Error {
	return ErrInvalidRequest.WithDetail("reason", reason)
}

// Internal wraps an infrastructure failure. The cause is kept for logging
// and never rendered.
func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, message, err)
}

// From converts any error into an *Error, defaulting to an internal error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}

// Respond writes err as the standard error envelope.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	c.AbortWithStatusJSON(appErr.Status, gin.H{"error": appErr})
}

// ErrorMiddleware renders the last error attached with c.Error.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err)
		}
	}
}
