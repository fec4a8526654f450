package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model"
)

var fixtureSeq int64

func nextSeq() int64 {
	return atomic.AddInt64(&fixtureSeq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	seq := nextSeq()
	email := fmt.Sprintf("test_%d_%d@example.com", time.Now().UnixNano(), seq)
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Username:      fmt.Sprintf("testuser_%d_%d", time.Now().UnixNano()%100000, seq),
		Email:         &email,
		PasswordHash:  &passwordHash,
		Timezone:      "UTC",
		EmailVerified: true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithTimezone 设置时区
func WithTimezone(tz string) func(*model.User) {
	return func(u *model.User) {
		u.Timezone = tz
	}
}

// TestSubscription 创建测试订阅（默认 trial，试用期 14 天）
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	trialEnd := time.Now().Add(14 * 24 * time.Hour)
	sub := &model.Subscription{
		UserID:     userID,
		PlanType:   model.PlanMonthly,
		Status:     model.StatusTrial,
		TrialEndAt: &trialEnd,
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithStatus 设置订阅状态
func WithStatus(status model.SubscriptionStatus) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}

// WithPlan 设置套餐类型
func WithPlan(plan model.PlanType) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.PlanType = plan
	}
}

// WithTrialEnd 设置试用到期时间
func WithTrialEnd(at time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.TrialEndAt = &at
	}
}

// WithPeriod 设置当前计费周期
func WithPeriod(start, end time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.CurrentPeriodStart = &start
		s.CurrentPeriodEnd = &end
	}
}

// TestEvent 创建测试日程
func TestEvent(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Event)) *model.Event {
	t.Helper()

	start := time.Now().Add(time.Hour)
	event := &model.Event{
		UserID:  userID,
		Title:   fmt.Sprintf("测试日程 %d", nextSeq()),
		StartAt: start,
		EndAt:   start.Add(time.Hour),
	}

	for _, opt := range opts {
		opt(event)
	}

	if err := db.Create(event).Error; err != nil {
		t.Fatalf("Failed to create test event: %v", err)
	}

	return event
}

// WithEventTime 设置日程起止时间
func WithEventTime(start, end time.Time) func(*model.Event) {
	return func(e *model.Event) {
		e.StartAt = start
		e.EndAt = end
	}
}

// WithReminder 设置提前提醒分钟数
func WithReminder(minutes int) func(*model.Event) {
	return func(e *model.Event) {
		e.ReminderMinutes = minutes
	}
}

// TestTask 创建测试任务
func TestTask(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Task)) *model.Task {
	t.Helper()

	task := &model.Task{
		UserID: userID,
		Title:  fmt.Sprintf("测试任务 %d", nextSeq()),
	}

	for _, opt := range opts {
		opt(task)
	}

	if err := db.Create(task).Error; err != nil {
		t.Fatalf("Failed to create test task: %v", err)
	}

	return task
}

// TestBooking 创建测试预约
func TestBooking(t *testing.T, db *gorm.DB, hostID int64, opts ...func(*model.Booking)) *model.Booking {
	t.Helper()

	start := time.Now().Add(24 * time.Hour)
	booking := &model.Booking{
		HostID:     hostID,
		GuestName:  "访客",
		GuestEmail: fmt.Sprintf("guest_%d@example.com", nextSeq()),
		StartAt:    start,
		EndAt:      start.Add(30 * time.Minute),
		Status:     model.BookingPending,
	}

	for _, opt := range opts {
		opt(booking)
	}

	if err := db.Create(booking).Error; err != nil {
		t.Fatalf("Failed to create test booking: %v", err)
	}

	return booking
}

// WithBookingTime 设置预约起止时间
func WithBookingTime(start, end time.Time) func(*model.Booking) {
	return func(b *model.Booking) {
		b.StartAt = start
		b.EndAt = end
	}
}

// WithBookingStatus 设置预约状态
func WithBookingStatus(status string) func(*model.Booking) {
	return func(b *model.Booking) {
		b.Status = status
	}
}

// TestMessage 创建测试消息
func TestMessage(t *testing.T, db *gorm.DB, senderID, recipientID int64, content string) *model.Message {
	t.Helper()

	message := &model.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
	}

	if err := db.Create(message).Error; err != nil {
		t.Fatalf("Failed to create test message: %v", err)
	}

	return message
}
