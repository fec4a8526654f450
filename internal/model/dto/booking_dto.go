package dto

import "time"

// CreateBookingRequest 访客提交的预约请求
type CreateBookingRequest struct {
	GuestName  string    `json:"guest_name" binding:"required,min=1,max=100"`
	GuestEmail string    `json:"guest_email" binding:"required,email"`
	Notes      string    `json:"notes,omitempty" binding:"omitempty,max=2000"`
	StartAt    time.Time `json:"start_at" binding:"required"`
	EndAt      time.Time `json:"end_at" binding:"required"`
}

// SlotItem 可预约时段
type SlotItem struct {
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}
