package models

import "time"

type Slot struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID         uint      `gorm:"not null;index:idx_slots_owner_time" json:"owner_id"`
	ScheduledAt     time.Time `gorm:"not null;index:idx_slots_owner_time" json:"scheduled_at"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	Capacity        int       `gorm:"not null;default:1" json:"capacity"`
	Occupancy       int       `gorm:"not null;default:0" json:"occupancy"`
	Active          bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Slot) TableName() string {
	return "slots"
}
