package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Domenick1991/pitchbooking/internal/service/slotlock"
	"github.com/gin-gonic/gin"
)

type LockService interface {
	Acquire(ctx context.Context, pitchID int64, slotStart time.Time, userID int64) (*slotlock.LockResult, error)
	Extend(ctx context.Context, pitchID int64, slotStart time.Time, userID int64) (*slotlock.LockResult, error)
	Release(ctx context.Context, pitchID int64, slotStart time.Time, userID int64) (bool, error)
	CheckRange(ctx context.Context, pitchID int64, start, end time.Time, userID int64, step time.Duration) (*slotlock.RangeResult, error)
}

type LockHandler struct {
	service LockService
}

type lockRequest struct {
	PitchID  int64     `json:"pitch_id" binding:"required"`
	DateTime time.Time `json:"date_time" binding:"required"`
}

type lockRangeRequest struct {
	PitchID     int64     `json:"pitch_id" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	StepMinutes int       `json:"step_minutes"`
}

func NewLockHandler(service LockService) *LockHandler {
	return &LockHandler{service: service}
}

func (h *LockHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.acquire)
	router.PUT("/", h.extend)
	router.DELETE("/", h.release)
	router.POST("/check", h.checkRange)
}

func (h *LockHandler) acquire(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Acquire(c.Request.Context(), req.PitchID, req.DateTime, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.Granted {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LockHandler) extend(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Extend(c.Request.Context(), req.PitchID, req.DateTime, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.Granted {
		c.JSON(http.StatusForbidden, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LockHandler) release(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	released, err := h.service.Release(c.Request.Context(), req.PitchID, req.DateTime, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": released})
}

func (h *LockHandler) checkRange(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req lockRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CheckRange(c.Request.Context(), req.PitchID, req.StartTime, req.EndTime, userID, time.Duration(req.StepMinutes)*time.Minute)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
