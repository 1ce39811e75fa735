package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/ecom-checkout/internal/httpx"
	prod "github.com/MikeMC777/ecom-checkout/internal/product"
)

func paging(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parsePrice accepts non-negative amounts with at most two decimals.
func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.New("price must be a decimal string")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("price must be non-negative")
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Zero, errors.New("price must have at most 2 decimals")
	}
	return d, nil
}

// @Summary  List products
// @Tags     products
// @Produce  json
// @Param    limit  query int false "max 100"
// @Param    offset query int false "offset"
// @Success  200 {object} prod.ListResponse
// @Router   /products [get]
func listOnlyHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paging(c)
		items, err := repo.List(c.Request.Context(), prod.Query{Limit: limit, Offset: offset})
		if err != nil {
			httpx.Abort(c, http.StatusInternalServerError, "internal", "could not list products")
			return
		}
		c.JSON(http.StatusOK, prod.ListResponse{Limit: limit, Offset: offset, Items: items})
	}
}

// @Summary  Search products by name or description
// @Tags     products
// @Produce  json
// @Param    q      query string true  "at least 2 characters"
// @Param    limit  query int    false "max 100"
// @Param    offset query int    false "offset"
// @Success  200 {object} prod.ListResponse
// @Failure  400 {object} httpx.ErrorBody
// @Router   /products/search [get]
func searchHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.TrimSpace(c.Query("q"))
		if len([]rune(q)) < 2 {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "q must have at least 2 characters")
			return
		}
		limit, offset := paging(c)
		items, err := repo.List(c.Request.Context(), prod.Query{Q: q, Limit: limit, Offset: offset})
		if err != nil {
			httpx.Abort(c, http.StatusInternalServerError, "internal", "could not search products")
			return
		}
		c.JSON(http.StatusOK, prod.ListResponse{Q: q, Limit: limit, Offset: offset, Items: items})
	}
}

// @Summary  Get a product
// @Tags     products
// @Produce  json
// @Param    id path string true "product id"
// @Success  200 {object} prod.Product
// @Failure  404 {object} httpx.ErrorBody
// @Router   /products/{id} [get]
func getProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, prod.ErrNotFound) {
			httpx.Abort(c, http.StatusNotFound, "not_found", "product not found")
			return
		}
		if err != nil {
			httpx.Abort(c, http.StatusInternalServerError, "internal", "could not load product")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Create a product
// @Tags     products
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body prod.CreateProductRequest true "product"
// @Success  201 {object} prod.Product
// @Failure  400 {object} httpx.ErrorBody
// @Router   /products [post]
func createProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req prod.CreateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "invalid json")
			return
		}
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Price) == "" {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "name and price are required")
			return
		}
		if req.Stock < 0 {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "stock must be non-negative")
			return
		}
		price, err := parsePrice(req.Price)
		if err != nil {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		p := &prod.Product{
			ID:          uuid.NewString(),
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			ImageURL:    req.ImageURL,
			Price:       price,
			Stock:       req.Stock,
		}
		if err := repo.Create(c.Request.Context(), p); err != nil {
			httpx.Abort(c, http.StatusInternalServerError, "internal", "could not create product")
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// @Summary      Update a product
// @Description  Partial update; omitted fields keep their value. Orders already placed keep their own price snapshot.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "product id"
// @Param        body body prod.UpdateProductRequest true "fields to change"
// @Success      200 {object} prod.Product
// @Failure      400 {object} httpx.ErrorBody
// @Failure      404 {object} httpx.ErrorBody
// @Router       /products/{id} [put]
func updateProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req prod.UpdateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "invalid json")
			return
		}
		patch := prod.Patch{Name: req.Name, Description: req.Description, ImageURL: req.ImageURL, Stock: req.Stock}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "name must not be empty")
			return
		}
		if req.Stock != nil && *req.Stock < 0 {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "stock must be non-negative")
			return
		}
		if req.Price != nil {
			price, err := parsePrice(*req.Price)
			if err != nil {
				httpx.Abort(c, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
			patch.Price = &price
		}

		p, err := repo.Update(c.Request.Context(), c.Param("id"), patch)
		if errors.Is(err, prod.ErrNotFound) {
			httpx.Abort(c, http.StatusNotFound, "not_found", "product not found")
			return
		}
		if err != nil {
			httpx.Abort(c, http.StatusInternalServerError, "internal", "could not update product")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary      Delete a product
// @Description  Removes it from every cart; order lines keep their snapshot with a null product_id.
// @Tags         products
// @Security     BearerAuth
// @Param        id path string true "product id"
// @Success      204
// @Failure      404 {object} httpx.ErrorBody
// @Router       /products/{id} [delete]
func deleteProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := repo.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Abort(c, http.StatusInternalServerError, "internal", "could not delete product")
			return
		}
		if !ok {
			httpx.Abort(c, http.StatusNotFound, "not_found", "product not found")
			return
		}
		c.Status(http.StatusNoContent)
	}
}
