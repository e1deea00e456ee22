package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mentorly/internal/domain"
	"mentorly/internal/models"
	"mentorly/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionCatalog manages mentors' bookable slots and their occupancy.
type SessionCatalog struct {
	db     *gorm.DB
	slots  *repository.SlotRepository
	logger *slog.Logger
}

func NewSessionCatalog(db *gorm.DB, logger *slog.Logger) *SessionCatalog {
	return &SessionCatalog{db: db, slots: repository.NewSlotRepository(db), logger: logger}
}

func (c *SessionCatalog) WithTx(tx *gorm.DB) *SessionCatalog {
	return &SessionCatalog{db: tx, slots: c.slots.WithTx(tx), logger: c.logger}
}

type CreateSlotRequest struct {
	OwnerID         uint
	ScheduledAt     time.Time
	DurationMinutes int
}

// CreateSlot opens a new active slot with capacity one. The start time must
// fall on an exact hour in its own location.
func (c *SessionCatalog) CreateSlot(ctx context.Context, req CreateSlotRequest) (*models.Slot, error) {
	at := req.ScheduledAt
	if at.IsZero() || at.Minute() != 0 || at.Second() != 0 || at.Nanosecond() != 0 {
		return nil, fmt.Errorf("scheduled at %s: %w", at.Format(time.RFC3339Nano), domain.ErrInvalidSchedule)
	}
	if req.DurationMinutes <= 0 {
		return nil, domain.ErrInvalidDuration
	}
	s := &models.Slot{
		ID:              uuid.NewString(),
		OwnerID:         req.OwnerID,
		ScheduledAt:     at.UTC(),
		DurationMinutes: req.DurationMinutes,
		Capacity:        domain.DefaultSlotCapacity,
		Occupancy:       0,
		Active:          true,
	}
	if err := c.slots.Create(context.WithoutCancel(ctx), s); err != nil {
		return nil, err
	}
	c.logger.Info("slot created", "slot_id", s.ID, "owner_id", s.OwnerID, "scheduled_at", s.ScheduledAt)
	return s, nil
}

// ReserveSlot takes the slot's seat in a single conditional update.
func (c *SessionCatalog) ReserveSlot(ctx context.Context, slotID string) error {
	ctx = context.WithoutCancel(ctx)
	ok, err := c.slots.IncrementOccupancy(ctx, slotID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	s, err := c.Get(ctx, slotID)
	if err != nil {
		return err
	}
	if !s.Active {
		return fmt.Errorf("reserve slot %s: %w", slotID, domain.ErrSlotInactive)
	}
	return fmt.Errorf("reserve slot %s: %w", slotID, domain.ErrSlotFull)
}

// ReleaseSlot gives the seat back. Releasing an empty slot is a no-op.
func (c *SessionCatalog) ReleaseSlot(ctx context.Context, slotID string) error {
	ok, err := c.slots.DecrementOccupancy(context.WithoutCancel(ctx), slotID)
	if err != nil {
		return err
	}
	if !ok {
		c.logger.Debug("release on empty slot ignored", "slot_id", slotID)
	}
	return nil
}

// Deactivate closes the slot to new reservations. Existing bookings keep their seat.
func (c *SessionCatalog) Deactivate(ctx context.Context, slotID string, actorID uint) (*models.Slot, error) {
	ctx = context.WithoutCancel(ctx)
	s, err := c.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if s.OwnerID != actorID {
		return nil, domain.ErrNotSlotOwner
	}
	if !s.Active {
		return s, nil
	}
	if err := c.slots.Deactivate(ctx, slotID); err != nil {
		return nil, err
	}
	s.Active = false
	c.logger.Info("slot deactivated", "slot_id", slotID)
	return s, nil
}

func (c *SessionCatalog) Get(ctx context.Context, slotID string) (*models.Slot, error) {
	s, err := c.slots.GetByID(ctx, slotID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("slot %s: %w", slotID, domain.ErrSlotNotFound)
	}
	return s, err
}

func (c *SessionCatalog) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Slot, error) {
	return c.slots.ListByOwner(ctx, ownerID, limit, offset)
}

// ListOpen returns bookable slots from `from` onwards, optionally for one mentor.
func (c *SessionCatalog) ListOpen(ctx context.Context, ownerID uint, from time.Time, limit, offset int) ([]models.Slot, error) {
	return c.slots.ListOpen(ctx, ownerID, from.UTC(), limit, offset)
}
