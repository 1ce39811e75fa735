package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MikeMC777/ecom-checkout/internal/cart"
	"github.com/MikeMC777/ecom-checkout/internal/httpx"
	"github.com/MikeMC777/ecom-checkout/internal/idempotency"
	"github.com/MikeMC777/ecom-checkout/internal/order"
	"github.com/MikeMC777/ecom-checkout/internal/pricing"
)

// writeError maps domain errors to status codes. Unknown errors become a
// generic retryable 500; nothing was committed in that case.
func writeError(c *gin.Context, err error) {
	var (
		pnf *order.ProductNotFoundError
		ins *order.InsufficientStockError
		inv *order.InvalidInputError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		httpx.Abort(c, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.As(err, &pnf):
		c.AbortWithStatusJSON(http.StatusConflict, httpx.ErrorBody{
			Error: err.Error(), Code: "product_not_found", ProductID: pnf.ProductID,
		})
	case errors.As(err, &ins):
		c.AbortWithStatusJSON(http.StatusConflict, httpx.ErrorBody{
			Error: err.Error(), Code: "insufficient_stock", ProductID: ins.ProductID,
			Available: &ins.Available, Requested: &ins.Requested,
		})
	case errors.As(err, &inv):
		c.AbortWithStatusJSON(http.StatusBadRequest, httpx.ErrorBody{
			Error: err.Error(), Code: "invalid_request", Field: inv.Field,
		})
	case errors.Is(err, order.ErrUnsupportedPaymentMethod):
		httpx.Abort(c, http.StatusBadRequest, "unsupported_payment_method", err.Error())
	case errors.Is(err, order.ErrInvalidTransition):
		httpx.Abort(c, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, order.ErrNotFound):
		httpx.Abort(c, http.StatusNotFound, "not_found", "order not found")
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, httpx.ErrorBody{
			Error: "could not complete the request, please retry", Code: "internal", Retryable: true,
		})
	}
}

func paging(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

//
// ---------- CART ----------
//

// CartLineView is one cart line with live product data.
type CartLineView struct {
	cart.Item
	LineTotal string `json:"line_total"`
}

// CartResponse body of GET /v1/cart.
// swagger:model CartResponse
type CartResponse struct {
	Version  string         `json:"version"`
	Items    []CartLineView `json:"items"`
	Subtotal string         `json:"subtotal"`
	Shipping string         `json:"shipping"`
	Tax      string         `json:"tax"`
	Total    string         `json:"total"`
}

// AddCartItemRequest payload of POST /v1/cart/items.
type AddCartItemRequest struct {
	ProductID string `json:"product_id" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Quantity  int    `json:"quantity"   example:"1"`
}

// SetQuantityRequest payload of PUT /v1/cart/items/:product_id.
type SetQuantityRequest struct {
	Quantity int `json:"quantity" example:"2"`
}

func cartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrQuantityTooLarge):
		httpx.Abort(c, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, cart.ErrProductNotFound):
		httpx.Abort(c, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, cart.ErrNotFound):
		httpx.Abort(c, http.StatusNotFound, "not_found", err.Error())
	default:
		writeError(c, err)
	}
}

// @Summary  Current cart with pricing preview
// @Tags     cart
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} CartResponse
// @Router   /cart [get]
func getCartHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.Items(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		views := make([]CartLineView, 0, len(items))
		lines := make([]pricing.Line, 0, len(items))
		for _, it := range items {
			l := pricing.Line{UnitPrice: it.Price, Quantity: it.Quantity}
			lines = append(lines, l)
			views = append(views, CartLineView{Item: it, LineTotal: l.Total().StringFixed(2)})
		}
		// an empty cart ships nothing
		sum := pricing.Summary{Subtotal: decimal.Zero, Shipping: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
		if len(lines) > 0 {
			sum = pricing.Calculate(lines)
		}
		sub, ship, tax, total := sum.Fixed()
		c.JSON(http.StatusOK, CartResponse{
			Version: order.APIVersion, Items: views,
			Subtotal: sub, Shipping: ship, Tax: tax, Total: total,
		})
	}
}

// @Summary  Add a product to the cart
// @Tags     cart
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body AddCartItemRequest true "line"
// @Success  201 {object} cart.Line
// @Failure  400 {object} httpx.ErrorBody
// @Failure  404 {object} httpx.ErrorBody
// @Router   /cart/items [post]
func addCartItemHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ProductID) == "" {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "product_id and quantity are required")
			return
		}
		if err := cart.CheckQuantity(req.Quantity); err != nil {
			cartError(c, err)
			return
		}
		l, err := repo.Add(c.Request.Context(), httpx.UserID(c), req.ProductID, req.Quantity)
		if err != nil {
			cartError(c, err)
			return
		}
		c.JSON(http.StatusCreated, l)
	}
}

// @Summary  Set the quantity of a cart line
// @Tags     cart
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    product_id path string true "product id"
// @Param    body body SetQuantityRequest true "quantity"
// @Success  200 {object} cart.Line
// @Failure  404 {object} httpx.ErrorBody
// @Router   /cart/items/{product_id} [put]
func setCartItemHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "invalid json")
			return
		}
		if err := cart.CheckQuantity(req.Quantity); err != nil {
			cartError(c, err)
			return
		}
		l, err := repo.SetQuantity(c.Request.Context(), httpx.UserID(c), c.Param("product_id"), req.Quantity)
		if err != nil {
			cartError(c, err)
			return
		}
		c.JSON(http.StatusOK, l)
	}
}

// @Summary  Remove a cart line
// @Tags     cart
// @Security BearerAuth
// @Param    product_id path string true "product id"
// @Success  204
// @Failure  404 {object} httpx.ErrorBody
// @Router   /cart/items/{product_id} [delete]
func removeCartItemHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := repo.Remove(c.Request.Context(), httpx.UserID(c), c.Param("product_id")); err != nil {
			cartError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

//
// ---------- CHECKOUT ----------
//

// @Summary      Place an order from the current cart
// @Description  Validates stock, prices the cart, creates the order and clears the cart atomically.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key header string false "replays the first response for a repeated key"
// @Param        body body order.CheckoutRequest true "shipping and payment"
// @Success      201 {object} order.CheckoutResponse
// @Failure      400 {object} httpx.ErrorBody
// @Failure      409 {object} httpx.ErrorBody
// @Failure      500 {object} httpx.ErrorBody
// @Router       /checkout [post]
func checkoutHandler(svc *order.Service, idem idempotency.Store, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "invalid json")
			return
		}
		ctx := c.Request.Context()
		uid := httpx.UserID(c)

		key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		if key != "" && idem != nil {
			key = uid + ":" + key
			rec, err := idem.Begin(ctx, key)
			switch {
			case errors.Is(err, idempotency.ErrInFlight):
				httpx.Abort(c, http.StatusConflict, "request_in_progress", err.Error())
				return
			case err != nil:
				log.Warn("idempotency unavailable", zap.Error(err))
				key = ""
			case rec != nil:
				c.Header("Idempotent-Replayed", "true")
				c.Data(rec.Status, "application/json; charset=utf-8", rec.Body)
				return
			}
		} else {
			key = ""
		}

		o, _, err := svc.PlaceOrder(ctx, order.PlaceOrderInput{
			UserID:          uid,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
			Notes:           req.Notes,
		})
		if err != nil {
			if key != "" {
				sctx, cancel := settleContext(ctx)
				if aerr := idem.Abort(sctx, key); aerr != nil {
					log.Warn("idempotency abort", zap.Error(aerr))
				}
				cancel()
			}
			writeError(c, err)
			return
		}

		resp := order.NewCheckoutResponse(o)
		if key != "" {
			body, _ := json.Marshal(resp)
			sctx, cancel := settleContext(ctx)
			if err := idem.Complete(sctx, key, idempotency.Record{Status: http.StatusCreated, Body: body}); err != nil {
				log.Warn("idempotency store", zap.Error(err))
			}
			cancel()
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// settleContext outlives the request: once the order is committed the
// stored response must be written even if the client has gone away.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
}

//
// ---------- CUSTOMER ORDERS ----------
//

// @Summary  List the caller's orders, newest first
// @Tags     orders
// @Produce  json
// @Security BearerAuth
// @Param    limit  query int false "max 100"
// @Param    offset query int false "offset"
// @Success  200 {object} order.OrderListResponse
// @Router   /orders [get]
func listMyOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paging(c)
		orders, err := svc.ListByUser(c.Request.Context(), httpx.UserID(c), limit, offset)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order.NewOrderListResponse(orders, limit, offset))
	}
}

// @Summary  Get one of the caller's orders with its lines
// @Tags     orders
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "order id"
// @Success  200 {object} order.OrderResponse
// @Failure  404 {object} httpx.ErrorBody
// @Router   /orders/{id} [get]
func getMyOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, items, err := svc.GetForUser(c.Request.Context(), httpx.UserID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order.NewOrderResponse(o, items))
	}
}

// @Summary  Cancel a pending order
// @Tags     orders
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "order id"
// @Success  200 {object} order.OrderResponse
// @Failure  404 {object} httpx.ErrorBody
// @Failure  409 {object} httpx.ErrorBody
// @Router   /orders/{id}/cancel [post]
func cancelMyOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		o, err := svc.CancelByCustomer(ctx, httpx.UserID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		_, items, err := svc.Get(ctx, o.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order.NewOrderResponse(o, items))
	}
}

//
// ---------- ADMIN ----------
//

// @Summary  List all orders
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Param    status query string false "filter by status"
// @Param    limit  query int    false "max 100"
// @Param    offset query int    false "offset"
// @Success  200 {object} order.OrderListResponse
// @Failure  400 {object} httpx.ErrorBody
// @Router   /admin/orders [get]
func adminListOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := order.ListQuery{}
		if s := c.Query("status"); s != "" {
			st, ok := order.ParseStatus(s)
			if !ok {
				httpx.Abort(c, http.StatusBadRequest, "invalid_status", "unknown status "+strconv.Quote(s))
				return
			}
			q.Status = st
		}
		q.Limit, q.Offset = paging(c)
		orders, err := svc.List(c.Request.Context(), q)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order.NewOrderListResponse(orders, q.Limit, q.Offset))
	}
}

// @Summary  Get any order with its lines
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "order id"
// @Success  200 {object} order.OrderResponse
// @Failure  404 {object} httpx.ErrorBody
// @Router   /admin/orders/{id} [get]
func adminGetOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, items, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order.NewOrderResponse(o, items))
	}
}

// @Summary      Update an order's status
// @Description  Delivered completes payment; cancelled restores stock. Delivered and cancelled orders are final.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "order id"
// @Param        body body order.UpdateStatusRequest true "new status"
// @Success      200 {object} order.OrderResponse
// @Failure      400 {object} httpx.ErrorBody
// @Failure      404 {object} httpx.ErrorBody
// @Failure      409 {object} httpx.ErrorBody
// @Router       /admin/orders/{id}/status [put]
func adminUpdateStatusHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Abort(c, http.StatusBadRequest, "invalid_request", "invalid json")
			return
		}
		st, ok := order.ParseStatus(strings.TrimSpace(req.Status))
		if !ok {
			httpx.Abort(c, http.StatusBadRequest, "invalid_status", "unknown status "+strconv.Quote(req.Status))
			return
		}
		ctx := c.Request.Context()
		o, err := svc.UpdateStatusByAdmin(ctx, c.Param("id"), st)
		if err != nil {
			writeError(c, err)
			return
		}
		_, items, err := svc.Get(ctx, o.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order.NewOrderResponse(o, items))
	}
}
