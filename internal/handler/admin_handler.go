package handler

import (
	"net/http"

	"mentorly/internal/repository"
	"mentorly/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves operator views over the ledger and the audit log.
type AdminHandler struct {
	ledger *service.CreditLedger
	audit  *repository.AuditLogRepository
}

func NewAdminHandler(ledger *service.CreditLedger, audit *repository.AuditLogRepository) *AdminHandler {
	return &AdminHandler{ledger: ledger, audit: audit}
}

// UserCredits handles GET /admin/users/:id/credits.
func (h *AdminHandler) UserCredits(c *gin.Context) {
	userID, err := parseUint(c.Param("id"))
	if err != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	ctx := c.Request.Context()
	remaining, err := h.ledger.BalanceOf(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, offset := pagination(c)
	entries, err := h.ledger.Entries(ctx, userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "remaining": remaining, "entries": entries})
}

// Reconcile handles GET /admin/ledger/reconcile.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	mismatches, err := h.ledger.Reconcile(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if mismatches == nil {
		mismatches = []repository.BalanceMismatch{}
	}
	c.JSON(http.StatusOK, gin.H{"consistent": len(mismatches) == 0, "mismatches": mismatches})
}

// AuditTrail handles GET /admin/audit/:resource/:id.
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	rows, err := h.audit.ListByResource(c.Request.Context(), c.Param("resource"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": rows})
}
