package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/MikeMC777/ecom-checkout/docs"
	"github.com/MikeMC777/ecom-checkout/internal/cart"
	"github.com/MikeMC777/ecom-checkout/internal/httpx"
	"github.com/MikeMC777/ecom-checkout/internal/idempotency"
	"github.com/MikeMC777/ecom-checkout/internal/order"
)

type deps struct {
	Orders      *order.Service
	Carts       cart.Repository
	Idempotency idempotency.Store // nil disables Idempotency-Key replay
	Limiter     *httpx.RateLimiter
	JWTSecret   []byte
	CORSOrigins []string
	Log         *zap.Logger
}

func newRouter(d deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(d.Log), httpx.CORS(d.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/v1", httpx.Auth(d.JWTSecret))
	{
		v1.GET("/cart", getCartHandler(d.Carts))
		v1.POST("/cart/items", addCartItemHandler(d.Carts))
		v1.PUT("/cart/items/:product_id", setCartItemHandler(d.Carts))
		v1.DELETE("/cart/items/:product_id", removeCartItemHandler(d.Carts))

		checkout := []gin.HandlerFunc{}
		if d.Limiter != nil {
			checkout = append(checkout, d.Limiter.Middleware())
		}
		checkout = append(checkout, checkoutHandler(d.Orders, d.Idempotency, d.Log))
		v1.POST("/checkout", checkout...)

		v1.GET("/orders", listMyOrdersHandler(d.Orders))
		v1.GET("/orders/:id", getMyOrderHandler(d.Orders))
		v1.POST("/orders/:id/cancel", cancelMyOrderHandler(d.Orders))

		admin := v1.Group("/admin", httpx.RequireAdmin())
		admin.GET("/orders", adminListOrdersHandler(d.Orders))
		admin.GET("/orders/:id", adminGetOrderHandler(d.Orders))
		admin.PUT("/orders/:id/status", adminUpdateStatusHandler(d.Orders))
	}
	return r
}
