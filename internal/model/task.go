package model

import (
	"time"
)

type Task struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	UserID      int64      `gorm:"not null;index" json:"user_id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Notes       string     `gorm:"type:text" json:"notes"`
	DueAt       *time.Time `gorm:"index" json:"due_at,omitempty"`
	Priority    int        `gorm:"default:0" json:"priority"` // 0 普通, 1 重要, 2 紧急
	Completed   bool       `gorm:"default:false;index" json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}
