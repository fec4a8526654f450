package dto

// 派生订阅状态取值。trial_expired / no_subscription / unknown
// 只存在于派生层，永远不会写回存储。
const (
	DerivedNoSubscription = "no_subscription"
	DerivedTrial          = "trial"
	DerivedTrialExpired   = "trial_expired"
	DerivedActive         = "active"
	DerivedExpired        = "expired"
	DerivedCanceled       = "canceled"
	DerivedUnknown        = "unknown"
)

// DerivedState 从订阅记录和当前时间计算出的只读视图
type DerivedState struct {
	Status                string `json:"status"`
	PlanType              string `json:"plan_type,omitempty"`
	DaysRemaining         int    `json:"days_remaining"`
	IsTrialExpired        bool   `json:"is_trial_expired"`
	IsSubscriptionExpired bool   `json:"is_subscription_expired"`
	Blocked               bool   `json:"blocked"` // 是否应拦截付费功能
	TrialEndAt            string `json:"trial_end_at,omitempty"`
	CurrentPeriodEnd      string `json:"current_period_end,omitempty"`
}

// PlanItem 套餐目录项
type PlanItem struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	ButtonID    string  `json:"button_id,omitempty"`
}

// CaptureRequest 前端结算组件 onApprove 回调转发的捕获请求
type CaptureRequest struct {
	OrderID  string `json:"order_id" binding:"required"`
	PlanType string `json:"plan_type" binding:"required,oneof=monthly yearly test"`
}

// WebhookEvent PayPal Webhook 事件（仅解出用到的字段）
type WebhookEvent struct {
	EventType string `json:"event_type" binding:"required"`
	Resource  struct {
		ID string `json:"id"`
	} `json:"resource"`
}

// SimulateRequest 管理端模拟支付请求（仅限 test 套餐验证流程）
type SimulateRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	PlanType string `json:"plan_type" binding:"required,oneof=monthly yearly test"`
	OrderID  string `json:"order_id" binding:"required"`
}
