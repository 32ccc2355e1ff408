package api

import (
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// confirmPayment is the return leg of the hosted payment widget
func (h *Handler) confirmPayment(c *gin.Context) {
	caller := auth.FromGin(c)
	if !caller.Authenticated() {
		// checked before the body so anonymous callers always see 401
		h.respondError(c, errAnonymous)
		return
	}

	var req service.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid payment information")
		return
	}

	resp, err := h.payments.ConfirmPayment(c.Request.Context(), caller, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
