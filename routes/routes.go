package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/keshav-const/BTP-sub000/common/auth"
	"github.com/keshav-const/BTP-sub000/controllers"
	"github.com/keshav-const/BTP-sub000/middleware"
)

type Controllers struct {
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Orders   *controllers.OrderController
}

// RegisterRoutes mounts the cart, checkout, order and admin APIs behind
// authentication.
func RegisterRoutes(r *gin.Engine, verifier *auth.TokenVerifier, trustGatewayHeaders bool, c Controllers) {
	authenticated := r.Group("/")
	authenticated.Use(middleware.AuthMiddleware(verifier, trustGatewayHeaders))

	cart := authenticated.Group("/cart")
	{
		cart.GET("", c.Cart.GetCart)
		cart.DELETE("", c.Cart.ClearCart)
		cart.POST("/items", c.Cart.AddItem)
		cart.PUT("/items/:itemId", c.Cart.UpdateItem)
		cart.DELETE("/items/:itemId", c.Cart.RemoveItem)
	}

	checkout := authenticated.Group("/checkout")
	{
		checkout.POST("", c.Checkout.Checkout)
		checkout.POST("/:orderId/pay", c.Checkout.Pay)
	}

	orders := authenticated.Group("/orders")
	{
		orders.GET("", c.Orders.GetOrders)
		orders.GET("/:id", c.Orders.GetOrderByID)
		orders.POST("/:id/cancel", c.Orders.CancelOrder)
	}

	admin := authenticated.Group("/admin/orders")
	admin.Use(middleware.AdminOnly())
	{
		admin.GET("", c.Orders.GetAllOrders)
		admin.GET("/number/:orderNumber", c.Orders.GetOrderByNumber)
		admin.PUT("/:id/status", c.Orders.UpdateOrderStatus)
	}
}
