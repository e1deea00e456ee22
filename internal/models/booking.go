package models

import "time"

type Booking struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	SlotID           string    `gorm:"size:36;not null;index" json:"slot_id"`
	MentorID         uint      `gorm:"not null;index" json:"mentor_id"`
	RequesterID      uint      `gorm:"not null;index" json:"requester_id"`
	State            string    `gorm:"size:20;not null;index" json:"state"` // PENDING, CONFIRMED, REJECTED, CANCELLED, COMPLETED
	Message          string    `gorm:"type:text" json:"message"`
	RejectionReason  string    `gorm:"type:text" json:"rejection_reason,omitempty"`
	MeetingReference string    `gorm:"size:512" json:"meeting_reference,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Slot *Slot `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}
