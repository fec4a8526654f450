package model

import (
	"time"
)

// PlanType 计费周期类型
type PlanType string

const (
	PlanMonthly PlanType = "monthly"
	PlanYearly  PlanType = "yearly"
	PlanTest    PlanType = "test" // 沙箱验证用，有效期 1 小时
)

// SubscriptionStatus 订阅状态。trial_expired 只是读取时的派生状态，
// 不落库；存储层只保存这四种。
type SubscriptionStatus string

const (
	StatusTrial    SubscriptionStatus = "trial"
	StatusActive   SubscriptionStatus = "active"
	StatusExpired  SubscriptionStatus = "expired"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Subscription 每个用户最多一条生效记录（user_id 唯一索引保证 upsert 语义）
type Subscription struct {
	ID                 int64              `gorm:"primaryKey" json:"id"`
	UserID             int64              `gorm:"not null;uniqueIndex" json:"user_id"`
	PlanType           PlanType           `gorm:"size:20;not null;default:monthly" json:"plan_type"`
	Status             SubscriptionStatus `gorm:"size:20;not null;default:trial;index" json:"status"`
	TrialEndAt         *time.Time         `json:"trial_end_at,omitempty"` // 注册时写入一次，此后不变
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `gorm:"index" json:"current_period_end,omitempty"`
	LastPaymentRef     string             `gorm:"size:100" json:"last_payment_ref,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// validTransitions 允许的状态迁移：
// trial→active（付费转化）、active→active（续费）、
// trial/active→expired（到期）、任意→canceled（取消）
var validTransitions = map[[2]SubscriptionStatus]bool{
	{StatusTrial, StatusActive}:    true,
	{StatusActive, StatusActive}:   true,
	{StatusTrial, StatusExpired}:   true,
	{StatusActive, StatusExpired}:  true,
	{StatusExpired, StatusActive}:  true, // 过期后重新订阅
	{StatusTrial, StatusCanceled}:  true,
	{StatusActive, StatusCanceled}: true,
	{StatusExpired, StatusCanceled}: true,
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to SubscriptionStatus) bool {
	return validTransitions[[2]SubscriptionStatus{from, to}]
}
