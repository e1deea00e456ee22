package handler

import (
	"net/http"

	"mentorly/internal/domain"
	"mentorly/internal/middleware"
	"mentorly/internal/models"
	"mentorly/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookings *service.BookingOrchestrator
	audit    AuditTrail
}

func NewBookingHandler(bookings *service.BookingOrchestrator, audit AuditTrail) *BookingHandler {
	return &BookingHandler{bookings: bookings, audit: audit}
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req struct {
		SlotID  string `json:"slot_id" binding:"required"`
		Message string `json:"message" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := middleware.GetUserID(c)
	b, err := h.bookings.Create(c.Request.Context(), service.CreateBookingRequest{
		SlotID:      req.SlotID,
		RequesterID: userID,
		Message:     req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit.record(c, userID, "booking_created", "booking", b.ID, gin.H{"slot_id": b.SlotID})
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListMine returns bookings received (mentor) or made (student). Optional ?state= filter.
// Mentors also get the number of requests still waiting on them.
func (h *BookingHandler) ListMine(c *gin.Context) {
	limit, offset := pagination(c)
	userID, role := middleware.GetUserID(c), middleware.GetRole(c)
	list, err := h.bookings.ListForUser(c.Request.Context(), userID, role, c.Query("state"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"bookings": list}
	if role == domain.RoleMentor {
		pending, err := h.bookings.PendingCount(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		resp["pending"] = pending
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) Confirm(c *gin.Context) {
	userID := middleware.GetUserID(c)
	b, err := h.bookings.Confirm(c.Request.Context(), service.ConfirmBookingRequest{BookingID: c.Param("id"), ActorID: userID})
	h.respondTransition(c, userID, "booking_confirmed", b, err)
}

func (h *BookingHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := middleware.GetUserID(c)
	b, err := h.bookings.Reject(c.Request.Context(), service.RejectBookingRequest{BookingID: c.Param("id"), ActorID: userID, Reason: req.Reason})
	h.respondTransition(c, userID, "booking_rejected", b, err)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	userID := middleware.GetUserID(c)
	b, err := h.bookings.Cancel(c.Request.Context(), service.CancelBookingRequest{BookingID: c.Param("id"), ActorID: userID})
	h.respondTransition(c, userID, "booking_cancelled", b, err)
}

func (h *BookingHandler) Complete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	b, err := h.bookings.Complete(c.Request.Context(), service.CompleteBookingRequest{BookingID: c.Param("id"), ActorID: userID})
	h.respondTransition(c, userID, "booking_completed", b, err)
}

func (h *BookingHandler) respondTransition(c *gin.Context, userID uint, action string, b *models.Booking, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit.record(c, userID, action, "booking", b.ID, gin.H{"state": b.State})
	c.JSON(http.StatusOK, b)
}
