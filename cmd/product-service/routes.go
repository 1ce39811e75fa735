package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/MikeMC777/ecom-checkout/docs"
	"github.com/MikeMC777/ecom-checkout/internal/httpx"
	prod "github.com/MikeMC777/ecom-checkout/internal/product"
)

// newRouter serves catalog reads publicly; writes need an admin token.
func newRouter(repo prod.Repository, secret []byte, origins []string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(log), httpx.CORS(origins))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.InstanceName(docs.CatalogInstance)))

	v1 := r.Group("/v1")
	v1.GET("/products", listOnlyHandler(repo))
	v1.GET("/products/search", searchHandler(repo))
	v1.GET("/products/:id", getProductHandler(repo))

	admin := v1.Group("", httpx.Auth(secret), httpx.RequireAdmin())
	admin.POST("/products", createProductHandler(repo))
	admin.PUT("/products/:id", updateProductHandler(repo))
	admin.DELETE("/products/:id", deleteProductHandler(repo))
	return r
}
