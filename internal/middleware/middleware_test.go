package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mentorly/config"
	"mentorly/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestKeyedRateLimiterBurstThenDeny(t *testing.T) {
	l := NewKeyedRateLimiter(0.001, 2)
	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))
	// keys are independent
	require.True(t, l.Allow("b"))
}

func TestKeyedRateLimiterSweep(t *testing.T) {
	l := NewKeyedRateLimiter(1, 1)
	l.idle = 0
	l.Allow("a")
	time.Sleep(time.Millisecond)
	l.Sweep()
	require.Empty(t, l.limiters)
}

func TestAuthRequiredAndRoles(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "s", AccessExpiry: time.Minute, Issuer: "mentorly"}
	r := gin.New()
	r.Use(RequestID(), AuthRequired(cfg))
	r.GET("/who", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetRole(c)})
	})
	r.GET("/mentors-only", RequireRole("MENTOR"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusUnauthorized, do("/who", "").Code)
	require.Equal(t, http.StatusUnauthorized, do("/who", "garbage").Code)

	student, err := auth.GenerateAccessToken(cfg, 9, "s@example.com", "STUDENT")
	require.NoError(t, err)
	w := do("/who", student)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user_id":9,"role":"STUDENT"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	require.Equal(t, http.StatusForbidden, do("/mentors-only", student).Code)
	mentor, err := auth.GenerateAccessToken(cfg, 10, "m@example.com", "MENTOR")
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, do("/mentors-only", mentor).Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c.Request.Context()))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "abc-123", w.Body.String())
	require.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
