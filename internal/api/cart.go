package api

import (
	"net/http"

	"storefront/internal/auth"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) getCart(c *gin.Context) {
	items, err := h.cart.GetCartItems(c.Request.Context(), auth.FromGin(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var totalAmount int64
	var totalQuantity int
	for _, item := range items {
		totalAmount += item.Product.Price * int64(item.Quantity)
		totalQuantity += item.Quantity
	}

	c.JSON(http.StatusOK, gin.H{
		"items":          items,
		"total_amount":   totalAmount,
		"total_quantity": totalQuantity,
	})
}

func (h *Handler) getCartCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count": h.cart.GetCartItemCount(c.Request.Context(), auth.FromGin(c)),
	})
}

func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, err := h.cart.AddToCart(c.Request.Context(), auth.FromGin(c), req.ProductID, quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		h.badRequest(c, "quantity is required")
		return
	}

	item, err := h.cart.UpdateCartItem(c.Request.Context(), auth.FromGin(c), c.Param("id"), *req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	if err := h.cart.RemoveFromCart(c.Request.Context(), auth.FromGin(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.cart.ClearCart(c.Request.Context(), auth.FromGin(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
