package handler

import (
	"encoding/json"

	"mentorly/internal/middleware"
	"mentorly/internal/models"
	"mentorly/internal/repository"

	"github.com/gin-gonic/gin"
)

// AuditTrail writes best-effort audit rows after a state change succeeded.
type AuditTrail struct {
	repo *repository.AuditLogRepository
}

func NewAuditTrail(repo *repository.AuditLogRepository) AuditTrail {
	return AuditTrail{repo: repo}
}

func (a AuditTrail) record(c *gin.Context, userID uint, action, resource, resourceID string, meta gin.H) {
	if a.repo == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		RequestID:  middleware.GetRequestID(c.Request.Context()),
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	if userID != 0 {
		entry.UserID = &userID
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			entry.Metadata = string(b)
		}
	}
	if err := a.repo.Create(c.Request.Context(), entry); err != nil {
		_ = c.Error(err)
	}
}
