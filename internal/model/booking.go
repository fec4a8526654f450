package model

import (
	"time"
)

// BookingStatus 预约状态
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCanceled  = "canceled"
)

type Booking struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	HostID     int64     `gorm:"not null;index" json:"host_id"`
	GuestName  string    `gorm:"size:100;not null" json:"guest_name"`
	GuestEmail string    `gorm:"size:100;not null" json:"guest_email"`
	Notes      string    `gorm:"type:text" json:"notes"`
	StartAt    time.Time `gorm:"not null;index" json:"start_at"`
	EndAt      time.Time `gorm:"not null" json:"end_at"`
	Status     string    `gorm:"size:20;default:pending;index" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}
