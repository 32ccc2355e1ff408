package api

import (
	"net/http"
	"strconv"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.products.Categories()})
}

func (h *Handler) listProducts(c *gin.Context) {
	opts := service.ListProductsOptions{
		Category:  c.Query("category"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	var err error
	if raw := c.Query("page"); raw != "" {
		if opts.Page, err = strconv.Atoi(raw); err != nil {
			h.badRequest(c, "page must be a number")
			return
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if opts.PageSize, err = strconv.Atoi(raw); err != nil {
			h.badRequest(c, "page_size must be a number")
			return
		}
	}

	page, err := h.products.ListProducts(c.Request.Context(), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found", "code": "NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, product)
}
