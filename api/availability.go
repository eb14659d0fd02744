package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Domenick1991/pitchbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type AvailabilityService interface {
	ListSlots(ctx context.Context, pitchID int64, date string) ([]domain.Slot, error)
}

type AvailabilityHandler struct {
	service AvailabilityService
}

func NewAvailabilityHandler(service AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	router.GET("/:pitchID/availability/:date", h.list)
}

func (h *AvailabilityHandler) list(c *gin.Context) {
	pitchID, err := strconv.ParseInt(c.Param("pitchID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pitch id"})
		return
	}

	slots, err := h.service.ListSlots(c.Request.Context(), pitchID, c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": slots})
}
