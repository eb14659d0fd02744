package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/pitchbooking/internal/domain"
	"github.com/Domenick1991/pitchbooking/internal/payment/iyzico"
	"github.com/Domenick1991/pitchbooking/internal/service/booking"
	"github.com/Domenick1991/pitchbooking/internal/service/payment"
	"github.com/gin-gonic/gin"
)

type BookingService interface {
	Create(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error)
	CreateManual(ctx context.Context, input booking.ManualBookingInput) (*domain.Booking, error)
	TransitionStatus(ctx context.Context, bookingID int64, newStatus domain.BookingStatus, actorID int64) (*domain.Booking, error)
	Delete(ctx context.Context, bookingID, actorID int64) error
}

type PaymentService interface {
	Initialize(ctx context.Context, bookingID int64, buyer iyzico.Buyer) (*payment.InitResult, error)
	Cancel(ctx context.Context, bookingID, userID int64) (int64, error)
}

type BookingHandler struct {
	bookings BookingService
	payments PaymentService
}

type createBookingRequest struct {
	PitchID       int64     `json:"pitch_id" binding:"required"`
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
	PaymentMethod string    `json:"payment_method"`
	BuyerName     string    `json:"buyer_name"`
	BuyerSurname  string    `json:"buyer_surname"`
	BuyerPhone    string    `json:"buyer_phone"`
	BuyerEmail    string    `json:"buyer_email"`
}

type manualBookingRequest struct {
	PitchID       int64     `json:"pitch_id" binding:"required"`
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
	TotalPrice    int64     `json:"total_price"`
	CustomerName  string    `json:"customer_name" binding:"required"`
	CustomerPhone string    `json:"customer_phone" binding:"required"`
	CustomerEmail string    `json:"customer_email"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type bookingResponse struct {
	ID            int64  `json:"id"`
	PitchID       int64  `json:"pitch_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	TotalPrice    int64  `json:"total_price"`
	DepositAmount int64  `json:"deposit_amount"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

func NewBookingHandler(bookings BookingService, payments PaymentService) *BookingHandler {
	return &BookingHandler{bookings: bookings, payments: payments}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.POST("/manual", h.createManual)
	router.PATCH("/:id/status", h.updateStatus)
	router.DELETE("/:id", h.delete)
	router.POST("/:id/cancel", h.cancel)
}

// create inserts a Pending booking and, for online payments, immediately
// opens the provider session so the caller gets a payment page URL back.
func (h *BookingHandler) create(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = domain.PaymentMethodOnline
	}

	created, err := h.bookings.Create(c.Request.Context(), booking.CreateBookingInput{
		PitchID:       req.PitchID,
		UserID:        userID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		PaymentMethod: method,
		CustomerEmail: req.BuyerEmail,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if method == domain.PaymentMethodBankTransfer {
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"data":    toBookingResponse(created),
			"message": "booking created, awaiting bank transfer confirmation by the facility",
		})
		return
	}

	initResult, err := h.payments.Initialize(c.Request.Context(), created.ID, iyzico.Buyer{
		ID:      strconv.FormatInt(userID, 10),
		Name:    req.BuyerName,
		Surname: req.BuyerSurname,
		Phone:   req.BuyerPhone,
		Email:   req.BuyerEmail,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": initResult})
}

func (h *BookingHandler) createManual(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	var req manualBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.bookings.CreateManual(c.Request.Context(), booking.ManualBookingInput{
		PitchID:       req.PitchID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		TotalPrice:    req.TotalPrice,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": toBookingResponse(created)})
}

func (h *BookingHandler) updateStatus(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.bookings.TransitionStatus(c.Request.Context(), bookingID, domain.BookingStatus(req.Status), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toBookingResponse(updated)})
}

func (h *BookingHandler) delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	if err := h.bookings.Delete(c.Request.Context(), bookingID, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	refund, err := h.payments.Cancel(c.Request.Context(), bookingID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "refund_amount": refund})
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		PitchID:       b.PitchID,
		StartTime:     b.StartTime.Format(time.RFC3339),
		EndTime:       b.EndTime.Format(time.RFC3339),
		TotalPrice:    b.TotalPrice,
		DepositAmount: b.DepositAmount,
		Status:        string(b.Status),
		PaymentMethod: string(b.PaymentMethod),
	}
}
