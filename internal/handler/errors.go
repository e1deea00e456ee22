package handler

import (
	"net/http"
	"strconv"

	"mentorly/internal/domain"

	"github.com/gin-gonic/gin"
)

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:    http.StatusBadRequest,
	domain.KindNotFound:      http.StatusNotFound,
	domain.KindStateConflict: http.StatusConflict,
	domain.KindDuplicate:     http.StatusConflict,
	domain.KindAuthorization: http.StatusForbidden,
}

// respondError writes err as JSON. Unclassified errors become a bare 500 and
// are attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	if de, ok := domain.AsError(err); ok {
		if status, known := kindStatus[de.Kind]; known {
			c.JSON(status, gin.H{"error": de.Message, "code": de.Code})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseUint(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return uint(v), err
}
