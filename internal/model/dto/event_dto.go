package dto

import "time"

// CreateEventRequest 创建日程请求
type CreateEventRequest struct {
	Title           string    `json:"title" binding:"required,min=1,max=200"`
	Description     string    `json:"description,omitempty" binding:"omitempty,max=2000"`
	Location        string    `json:"location,omitempty" binding:"omitempty,max=200"`
	Color           string    `json:"color,omitempty" binding:"omitempty,max=20"`
	StartAt         time.Time `json:"start_at" binding:"required"`
	EndAt           time.Time `json:"end_at" binding:"required"`
	AllDay          bool      `json:"all_day"`
	ReminderMinutes int       `json:"reminder_minutes" binding:"omitempty,min=0,max=10080"`
}

// UpdateEventRequest 更新日程请求（只更新出现的字段）
type UpdateEventRequest struct {
	Title           *string    `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
	Description     *string    `json:"description,omitempty" binding:"omitempty,max=2000"`
	Location        *string    `json:"location,omitempty" binding:"omitempty,max=200"`
	Color           *string    `json:"color,omitempty" binding:"omitempty,max=20"`
	StartAt         *time.Time `json:"start_at,omitempty"`
	EndAt           *time.Time `json:"end_at,omitempty"`
	AllDay          *bool      `json:"all_day,omitempty"`
	ReminderMinutes *int       `json:"reminder_minutes,omitempty" binding:"omitempty,min=0,max=10080"`
}

// ViewRange 日历视图的显示区间
type ViewRange struct {
	View string `json:"view"`
	From string `json:"from"`
	To   string `json:"to"`
}
