package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelUserNotification = "user_notification"
)

// 通知类型常量
const (
	KindEventReminder = "event_reminder"
	KindChatMessage   = "chat_message"
	KindBookingUpdate = "booking_update"
	KindBillingUpdate = "billing_update"
	KindTrialEnding   = "trial_ending"
)

// 通知类型对应的默认标题
var KindTitles = map[string]string{
	KindEventReminder: "日程提醒",
	KindChatMessage:   "新消息",
	KindBookingUpdate: "预约更新",
	KindBillingUpdate: "订阅状态变更",
	KindTrialEnding:   "试用期即将结束",
}

// NotificationMessage 用户通知消息
type NotificationMessage struct {
	Kind      string `json:"kind"`
	UserID    int64  `json:"user_id"`
	EventID   int64  `json:"event_id,omitempty"`
	BookingID int64  `json:"booking_id,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Body      string `json:"body,omitempty"`
	StartAt   string `json:"start_at,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishNotification 发布用户通知
func (p *Publisher) PublishNotification(ctx context.Context, msg *NotificationMessage) error {
	// 自动填充默认标题
	if msg.Title == "" && msg.Kind != "" {
		if title, ok := KindTitles[msg.Kind]; ok {
			msg.Title = title
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification message: %w", err)
	}

	return p.client.Publish(ctx, ChannelUserNotification, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅用户通知
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*NotificationMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelUserNotification)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var notification NotificationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &notification); err != nil {
				continue // 忽略解析错误
			}

			handler(&notification)
		}
	}
}
