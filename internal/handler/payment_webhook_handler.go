package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"mentorly/internal/domain"
	"mentorly/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentWebhookHandler struct {
	gateway *service.PaymentGateway
	audit   AuditTrail
	secret  string
}

func NewPaymentWebhookHandler(gateway *service.PaymentGateway, audit AuditTrail, secret string) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{gateway: gateway, audit: audit, secret: secret}
}

// Handle completes a payment on the provider's behalf. It expects JSON
// { "user_id", "payment_key", "order_id", "amount" } signed with X-Webhook-Signature.
// Redeliveries of an applied payment are acknowledged without effect.
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if h.secret == "" || !h.verifySignature(body, c.GetHeader("X-Webhook-Signature")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}
	var payload struct {
		UserID     uint   `json:"user_id"`
		PaymentKey string `json:"payment_key"`
		OrderID    string `json:"order_id"`
		Amount     int64  `json:"amount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := h.gateway.CompletePayment(c.Request.Context(), service.CompletePaymentRequest{
		UserID:     payload.UserID,
		PaymentKey: payload.PaymentKey,
		OrderID:    payload.OrderID,
		Amount:     payload.Amount,
	})
	if errors.Is(err, domain.ErrDuplicatePayment) {
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit.record(c, p.UserID, "payment_completed", "payment", p.ID, gin.H{"order_id": p.OrderID, "source": "webhook"})
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *PaymentWebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
