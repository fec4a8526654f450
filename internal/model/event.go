package model

import (
	"time"

	"gorm.io/gorm"
)

type Event struct {
	ID              int64          `gorm:"primaryKey" json:"id"`
	UserID          int64          `gorm:"not null;index" json:"user_id"`
	Title           string         `gorm:"size:200;not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Location        string         `gorm:"size:200" json:"location"`
	Color           string         `gorm:"size:20" json:"color"`
	StartAt         time.Time      `gorm:"not null;index" json:"start_at"`
	EndAt           time.Time      `gorm:"not null" json:"end_at"`
	AllDay          bool           `gorm:"default:false" json:"all_day"`
	ReminderMinutes int            `gorm:"default:0" json:"reminder_minutes"` // 0 表示不提醒
	ReminderSentAt  *time.Time     `json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Event) TableName() string {
	return "events"
}
