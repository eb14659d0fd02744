package api

import (
	"context"
	"net/http"

	"github.com/Domenick1991/pitchbooking/internal/service/payment"
	"github.com/gin-gonic/gin"
)

type PaymentCallbackService interface {
	HandleCallback(ctx context.Context, token string) (*payment.CallbackResult, error)
}

type PaymentHandler struct {
	service PaymentCallbackService
}

type callbackRequest struct {
	Token string `json:"token" binding:"required"`
}

func NewPaymentHandler(service PaymentCallbackService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/callback", h.callback)
}

// callback is invoked by the payment provider after checkout. It must stay
// idempotent; the provider retries on non-2xx responses.
func (h *PaymentHandler) callback(c *gin.Context) {
	// The checkout form posts the token form-urlencoded; direct API
	// callers send JSON. Binding JSON first would drain the body and
	// leave nothing for the form parser.
	var req callbackRequest
	if c.ContentType() == "application/json" {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		req.Token = c.PostForm("token")
	}
	if req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	result, err := h.service.HandleCallback(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
