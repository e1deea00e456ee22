package handler

import (
	"net/http"

	"mentorly/internal/middleware"
	"mentorly/internal/service"

	"github.com/gin-gonic/gin"
)

type CreditHandler struct {
	ledger *service.CreditLedger
}

func NewCreditHandler(ledger *service.CreditLedger) *CreditHandler {
	return &CreditHandler{ledger: ledger}
}

// GetBalance returns the current user's remaining session credit.
func (h *CreditHandler) GetBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	n, err := h.ledger.BalanceOf(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "remaining": n})
}

// ListLedger returns the current user's ledger entries, newest first.
func (h *CreditHandler) ListLedger(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.ledger.Entries(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": list})
}
