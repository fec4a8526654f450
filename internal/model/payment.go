package model

import (
	"time"
)

// Payment 支付流水。order_id 唯一索引是幂等的关键：
// 同一笔 PayPal 订单重放时插入会冲突，转换写入方据此跳过。
type Payment struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	OrderID   string    `gorm:"size:100;not null;uniqueIndex" json:"order_id"`
	PlanType  PlanType  `gorm:"size:20;not null" json:"plan_type"`
	Amount    float64   `gorm:"type:decimal(10,2)" json:"amount"`
	Currency  string    `gorm:"size:10;default:USD" json:"currency"`
	Source    string    `gorm:"size:20;default:paypal" json:"source"` // paypal, simulate
	CreatedAt time.Time `json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
