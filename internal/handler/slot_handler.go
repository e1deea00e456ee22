package handler

import (
	"net/http"
	"time"

	"mentorly/internal/middleware"
	"mentorly/internal/service"

	"github.com/gin-gonic/gin"
)

type SlotHandler struct {
	catalog *service.SessionCatalog
	audit   AuditTrail
}

func NewSlotHandler(catalog *service.SessionCatalog, audit AuditTrail) *SlotHandler {
	return &SlotHandler{catalog: catalog, audit: audit}
}

// Create opens a slot for the authenticated mentor.
func (h *SlotHandler) Create(c *gin.Context) {
	var req struct {
		ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
		DurationMinutes int       `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = 60
	}
	ownerID := middleware.GetUserID(c)
	s, err := h.catalog.CreateSlot(c.Request.Context(), service.CreateSlotRequest{
		OwnerID:         ownerID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *SlotHandler) Get(c *gin.Context) {
	s, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ListOpen lists bookable slots, optionally for one mentor (?mentor_id=) and from a time (?from=RFC3339).
func (h *SlotHandler) ListOpen(c *gin.Context) {
	limit, offset := pagination(c)
	from := time.Now()
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		from = t
	}
	var mentorID uint
	if v := c.Query("mentor_id"); v != "" {
		id, err := parseUint(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mentor_id"})
			return
		}
		mentorID = id
	}
	list, err := h.catalog.ListOpen(c.Request.Context(), mentorID, from, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": list})
}

// ListMine lists every slot of the authenticated mentor, including closed ones.
func (h *SlotHandler) ListMine(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.catalog.ListByOwner(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": list})
}

func (h *SlotHandler) Deactivate(c *gin.Context) {
	userID := middleware.GetUserID(c)
	s, err := h.catalog.Deactivate(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit.record(c, userID, "slot_deactivated", "slot", s.ID, nil)
	c.JSON(http.StatusOK, s)
}
