package router

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mentorly/config"
	"mentorly/internal/auth"
	"mentorly/internal/database"
	"mentorly/internal/domain"
	"mentorly/internal/models"
	"mentorly/internal/service"
	"mentorly/pkg/logger"
	"mentorly/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type testServer struct {
	r   *gin.Engine
	db  *gorm.DB
	cfg *config.Config
}

func setupRouterWithDB(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.NewSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedPackages(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	cfg := &config.Config{
		Server:  config.ServerConfig{Env: "test"},
		JWT:     config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: time.Hour, Issuer: "mentorly"},
		Payment: config.PaymentConfig{Provider: "stub", WebhookSecret: webhookSecret, Currency: "thb"},
	}
	r := Setup(cfg, Deps{
		DB:       db,
		Logger:   logger.Discard(),
		Verifier: payment.StubVerifier{},
		Meetings: service.NewRoomMeetingService("https://meet.test"),
		Events:   service.NoopPublisher{},
	})
	return &testServer{r: r, db: db, cfg: cfg}
}

func (s *testServer) token(t *testing.T, userID uint, role string) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(&s.cfg.JWT, userID, fmt.Sprintf("u%d@example.com", userID), role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func nextHour() time.Time {
	return time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)
}

func (s *testServer) buyCredits(t *testing.T, token, packageID, paymentKey string) {
	t.Helper()
	w := s.do(http.MethodPost, "/api/v1/payments/prepare", token, gin.H{"package_id": packageID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	intent := decode[service.PaymentIntent](t, w)

	w = s.do(http.MethodPost, "/api/v1/payments/complete", token, gin.H{
		"payment_key": paymentKey, "order_id": intent.OrderID, "amount": intent.Amount,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	s := setupRouterWithDB(t)
	mentor := s.token(t, 100, domain.RoleMentor)
	student := s.token(t, 1, domain.RoleStudent)

	// off-hour slot is refused
	w := s.do(http.MethodPost, "/api/v1/slots", mentor, gin.H{"scheduled_at": nextHour().Add(30 * time.Minute)})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_SCHEDULE", decode[errorBody](t, w).Code)

	// students cannot open slots
	w = s.do(http.MethodPost, "/api/v1/slots", student, gin.H{"scheduled_at": nextHour()})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/v1/slots", mentor, gin.H{"scheduled_at": nextHour(), "duration_minutes": 60})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	slot := decode[models.Slot](t, w)

	// no credit yet
	w = s.do(http.MethodPost, "/api/v1/bookings", student, gin.H{"slot_id": slot.ID})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "INSUFFICIENT_CREDIT", decode[errorBody](t, w).Code)

	s.buyCredits(t, student, "single", "stub_chrg_http")
	w = s.do(http.MethodGet, "/api/v1/me/credits", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user_id":1,"remaining":1}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/bookings", student, gin.H{"slot_id": slot.ID, "message": "switching to data engineering"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode[models.Booking](t, w)
	require.Equal(t, domain.BookingStatePending, booking.State)

	// the slot is now full
	other := s.token(t, 2, domain.RoleStudent)
	s.buyCredits(t, other, "single", "stub_chrg_other")
	w = s.do(http.MethodPost, "/api/v1/bookings", other, gin.H{"slot_id": slot.ID})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "SLOT_FULL", decode[errorBody](t, w).Code)

	// only the mentor may confirm
	w = s.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/confirm", student, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/confirm", mentor, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	confirmed := decode[models.Booking](t, w)
	require.Equal(t, domain.BookingStateConfirmed, confirmed.State)
	require.True(t, strings.HasPrefix(confirmed.MeetingReference, "https://meet.test/"+booking.ID))

	w = s.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/reject", mentor, gin.H{"reason": "too late"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "INVALID_STATE_TRANSITION", decode[errorBody](t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", student, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/me/credits/ledger", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ledger := decode[struct {
		Entries []models.LedgerEntry `json:"entries"`
	}](t, w)
	require.Len(t, ledger.Entries, 3)

	w = s.do(http.MethodGet, "/api/v1/me/bookings?state=CANCELLED", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[struct {
		Bookings []models.Booking `json:"bookings"`
	}](t, w)
	require.Len(t, mine.Bookings, 1)

	w = s.do(http.MethodGet, "/api/v1/me/bookings", mentor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	incoming := decode[struct {
		Bookings []models.Booking `json:"bookings"`
		Pending  int64            `json:"pending"`
	}](t, w)
	require.Len(t, incoming.Bookings, 1)
	require.Zero(t, incoming.Pending)

	var audits int64
	require.NoError(t, s.db.Model(&models.AuditLog{}).Where("resource = ? AND resource_id = ?", "booking", booking.ID).Count(&audits).Error)
	require.Equal(t, int64(3), audits)
}

func TestRejectNeedsReasonOverHTTP(t *testing.T) {
	s := setupRouterWithDB(t)
	mentor := s.token(t, 100, domain.RoleMentor)
	student := s.token(t, 1, domain.RoleStudent)

	w := s.do(http.MethodPost, "/api/v1/slots", mentor, gin.H{"scheduled_at": nextHour()})
	require.Equal(t, http.StatusCreated, w.Code)
	slot := decode[models.Slot](t, w)
	s.buyCredits(t, student, "single", "stub_1")
	w = s.do(http.MethodPost, "/api/v1/bookings", student, gin.H{"slot_id": slot.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	booking := decode[models.Booking](t, w)

	w = s.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/reject", mentor, gin.H{"reason": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "REASON_REQUIRED", decode[errorBody](t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/reject", mentor, gin.H{"reason": "not my expertise"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, domain.BookingStateRejected, decode[models.Booking](t, w).State)

	w = s.do(http.MethodGet, "/api/v1/bookings/missing", student, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDuplicatePaymentOverHTTP(t *testing.T) {
	s := setupRouterWithDB(t)
	student := s.token(t, 1, domain.RoleStudent)

	w := s.do(http.MethodPost, "/api/v1/payments/prepare", student, gin.H{"package_id": "bundle-5"})
	require.Equal(t, http.StatusCreated, w.Code)
	intent := decode[service.PaymentIntent](t, w)
	body := gin.H{"payment_key": "stub_dup", "order_id": intent.OrderID, "amount": intent.Amount}

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/payments/complete", student, body).Code)
	w = s.do(http.MethodPost, "/api/v1/payments/complete", student, body)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "DUPLICATE_PAYMENT", decode[errorBody](t, w).Code)

	w = s.do(http.MethodGet, "/api/v1/me/credits", student, nil)
	require.JSONEq(t, `{"user_id":1,"remaining":5}`, w.Body.String())
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentWebhook(t *testing.T) {
	s := setupRouterWithDB(t)
	student := s.token(t, 7, domain.RoleStudent)

	w := s.do(http.MethodPost, "/api/v1/payments/prepare", student, gin.H{"package_id": "single"})
	require.Equal(t, http.StatusCreated, w.Code)
	intent := decode[service.PaymentIntent](t, w)

	body, _ := json.Marshal(gin.H{"user_id": 7, "payment_key": "stub_wh", "order_id": intent.OrderID, "amount": intent.Amount})
	post := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(body))
		req.Header.Set("X-Webhook-Signature", sig)
		rec := httptest.NewRecorder()
		s.r.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusUnauthorized, post("bad").Code)

	w = post(sign(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"received":true}`, w.Body.String())

	// redelivery is acknowledged without a second credit
	w = post(sign(body))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"received":true,"duplicate":true}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/me/credits", student, nil)
	require.JSONEq(t, `{"user_id":7,"remaining":1}`, w.Body.String())
}

func TestHealthAndAuth(t *testing.T) {
	s := setupRouterWithDB(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/me/credits", "", nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/packages", "", nil).Code)
}

func TestAdminEndpoints(t *testing.T) {
	s := setupRouterWithDB(t)
	admin := s.token(t, 900, domain.RoleAdmin)
	student := s.token(t, 1, domain.RoleStudent)

	s.buyCredits(t, student, "bundle-5", "stub_chrg_admin")

	w := s.do(http.MethodGet, "/api/v1/admin/ledger/reconcile", student, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/users/1/credits", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	credits := decode[struct {
		Remaining int64                `json:"remaining"`
		Entries   []models.LedgerEntry `json:"entries"`
	}](t, w)
	require.Equal(t, int64(5), credits.Remaining)
	require.Len(t, credits.Entries, 1)
	require.Equal(t, domain.LedgerKindPurchase, credits.Entries[0].Kind)

	w = s.do(http.MethodGet, "/api/v1/admin/ledger/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"consistent":true,"mismatches":[]}`, w.Body.String())

	// drift the balance behind the ledger's back
	require.NoError(t, s.db.Model(&models.CreditBalance{}).Where("user_id = ?", 1).Update("remaining", 9).Error)
	w = s.do(http.MethodGet, "/api/v1/admin/ledger/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"consistent":false,"mismatches":[{"user_id":1,"remaining":9,"ledger_sum":5}]}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/admin/users/abc/credits", admin, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
