package api

import (
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	OrderNote       *string                `json:"order_note"`
}

type updateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// createOrder places an order from the caller's current cart
func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	caller := auth.FromGin(c)

	items, err := h.cart.GetCartItems(ctx, caller)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if req.OrderNote != nil && *req.OrderNote == "" {
		req.OrderNote = nil
	}

	result, err := h.orders.CreateOrder(ctx, caller, service.CreateOrderRequest{
		CartItems:       items,
		ShippingAddress: req.ShippingAddress,
		OrderNote:       req.OrderNote,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id":     result.OrderID,
		"total_amount": result.TotalAmount,
		"cart_cleared": result.CartCleared,
	})
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.GetUserOrders(c.Request.Context(), auth.FromGin(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrderByID(c.Request.Context(), auth.FromGin(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found", "code": "NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		h.badRequest(c, "status is required")
		return
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), auth.FromGin(c), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
