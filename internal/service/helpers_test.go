package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"mentorly/internal/database"
	"mentorly/internal/domain"
	"mentorly/internal/models"
	"mentorly/pkg/logger"
	"mentorly/pkg/payment"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedPackages(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

type fakeMeetings struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeMeetings) CreateMeeting(_ context.Context, bookingID string, participants []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, bookingID)
	return "https://meet.test/" + bookingID + "?p=" + strings.Join(participants, ","), nil
}

type recordingEvents struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingEvents) PublishJSON(_ context.Context, key string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

func (r *recordingEvents) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

type harness struct {
	db       *gorm.DB
	ledger   *CreditLedger
	catalog  *SessionCatalog
	gateway  *PaymentGateway
	bookings *BookingOrchestrator
	meetings *fakeMeetings
	events   *recordingEvents
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	log := logger.Discard()
	h := &harness{
		db:       db,
		ledger:   NewCreditLedger(db, log),
		catalog:  NewSessionCatalog(db, log),
		meetings: &fakeMeetings{},
		events:   &recordingEvents{},
	}
	h.gateway = NewPaymentGateway(db, h.ledger, payment.StubVerifier{}, "thb", h.events, log)
	h.bookings = NewBookingOrchestrator(db, h.catalog, h.ledger, h.meetings, h.events, log)
	return h
}

// fund gives the user n credits through a purchase entry.
func (h *harness) fund(t *testing.T, userID uint, n int64) {
	t.Helper()
	_, err := h.ledger.Credit(context.Background(), CreditRequest{
		UserID: userID, Amount: n, Kind: domain.LedgerKindPurchase, Description: "test funding",
	})
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, userID uint) int64 {
	t.Helper()
	n, err := h.ledger.BalanceOf(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func (h *harness) newSlot(t *testing.T, ownerID uint) *models.Slot {
	t.Helper()
	at := time.Now().UTC().Truncate(time.Hour).Add(48 * time.Hour)
	s, err := h.catalog.CreateSlot(context.Background(), CreateSlotRequest{
		OwnerID: ownerID, ScheduledAt: at, DurationMinutes: 60,
	})
	require.NoError(t, err)
	return s
}

func (h *harness) occupancy(t *testing.T, slotID string) int {
	t.Helper()
	s, err := h.catalog.Get(context.Background(), slotID)
	require.NoError(t, err)
	return s.Occupancy
}

func (h *harness) requireLedgerConsistent(t *testing.T) {
	t.Helper()
	mismatches, err := h.ledger.Reconcile(context.Background())
	require.NoError(t, err)
	require.Empty(t, mismatches)
}

func isKind(err error, kind domain.Kind) bool {
	return err != nil && domain.KindOf(err) == kind
}

var errMeetingDown = errors.New("meeting provider unavailable")
