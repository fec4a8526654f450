package model

import (
	"time"
)

type Message struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	SenderID    int64      `gorm:"not null;index" json:"sender_id"`
	RecipientID int64      `gorm:"not null;index" json:"recipient_id"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`

	// 关联
	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
