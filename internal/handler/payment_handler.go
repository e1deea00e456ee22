package handler

import (
	"net/http"

	"mentorly/internal/middleware"
	"mentorly/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	gateway *service.PaymentGateway
	audit   AuditTrail
}

func NewPaymentHandler(gateway *service.PaymentGateway, audit AuditTrail) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, audit: audit}
}

func (h *PaymentHandler) ListPackages(c *gin.Context) {
	list, err := h.gateway.Packages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": list})
}

// Prepare returns the order id and amount the client charges through the provider.
func (h *PaymentHandler) Prepare(c *gin.Context) {
	var req struct {
		PackageID string `json:"package_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	intent, err := h.gateway.PreparePayment(c.Request.Context(), service.PreparePaymentRequest{
		UserID:    middleware.GetUserID(c),
		PackageID: req.PackageID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

// Complete is called by the client after the provider charge succeeded.
func (h *PaymentHandler) Complete(c *gin.Context) {
	var req struct {
		PaymentKey string `json:"payment_key" binding:"required"`
		OrderID    string `json:"order_id" binding:"required"`
		Amount     int64  `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := middleware.GetUserID(c)
	p, err := h.gateway.CompletePayment(c.Request.Context(), service.CompletePaymentRequest{
		UserID:     userID,
		PaymentKey: req.PaymentKey,
		OrderID:    req.OrderID,
		Amount:     req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit.record(c, userID, "payment_completed", "payment", p.ID, gin.H{"order_id": p.OrderID, "sessions": p.SessionsGranted})
	c.JSON(http.StatusCreated, p)
}

func (h *PaymentHandler) History(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.gateway.History(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": list})
}
