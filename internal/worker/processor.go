package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/planhub/planhub_go_server/internal/pkg/email"
	"github.com/planhub/planhub_go_server/internal/pkg/pubsub"
	"github.com/planhub/planhub_go_server/internal/pkg/queue"
)

// maxRetries 邮件投递的最大重试次数
const maxRetries = 3

// Processor 提醒投递处理器，消费提醒队列并通知用户
type Processor struct {
	reminderQueue *queue.Queue
	emailService  *email.Service
	publisher     *pubsub.Publisher
}

// NewProcessor 创建提醒处理器
func NewProcessor(
	reminderQueue *queue.Queue,
	emailService *email.Service,
	publisher *pubsub.Publisher,
) *Processor {
	return &Processor{
		reminderQueue: reminderQueue,
		emailService:  emailService,
		publisher:     publisher,
	}
}

// Run 持续消费提醒队列，直到 ctx 取消
func (p *Processor) Run(ctx context.Context) {
	log.Println("Reminder processor started")

	for {
		select {
		case <-ctx.Done():
			log.Println("Reminder processor stopped")
			return
		default:
		}

		msg, err := p.reminderQueue.Pop(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Reminder processor stopped")
				return
			}
			log.Printf("Failed to pop reminder: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue // 超时，继续等待
		}

		if err := p.Process(ctx, msg); err != nil {
			log.Printf("Failed to process reminder for event %d: %v", msg.EventID, err)
			p.retry(ctx, msg)
		}
	}
}

// Process 投递单条提醒：WebSocket 通知 + 提醒邮件
func (p *Processor) Process(ctx context.Context, msg *queue.ReminderMessage) error {
	startAt := formatStartAt(msg.StartAt, msg.Timezone)

	// 站内通知尽力投递，用户离线时由邮件兜底
	if p.publisher != nil {
		err := p.publisher.PublishNotification(ctx, &pubsub.NotificationMessage{
			Kind:    pubsub.KindEventReminder,
			UserID:  msg.UserID,
			EventID: msg.EventID,
			Body:    fmt.Sprintf("「%s」将于 %s 开始", msg.Title, startAt),
			StartAt: msg.StartAt,
		})
		if err != nil {
			log.Printf("Failed to publish reminder notification for event %d: %v", msg.EventID, err)
		}
	}

	if p.emailService == nil || msg.Email == "" {
		return nil
	}

	if err := p.emailService.SendEventReminder(msg.Email, msg.Title, startAt); err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}

	log.Printf("Reminder delivered: event %d, user %d", msg.EventID, msg.UserID)
	return nil
}

// retry 重新入队，超过重试上限则丢弃
func (p *Processor) retry(ctx context.Context, msg *queue.ReminderMessage) {
	if msg.RetryCount >= maxRetries {
		log.Printf("Reminder for event %d dropped after %d retries", msg.EventID, msg.RetryCount)
		return
	}

	msg.RetryCount++
	if err := p.reminderQueue.Push(ctx, msg); err != nil {
		log.Printf("Failed to requeue reminder for event %d: %v", msg.EventID, err)
	}
}

// formatStartAt 将 RFC3339 时间格式化为用户时区的可读时间
func formatStartAt(startAt, timezone string) string {
	t, err := time.Parse(time.RFC3339, startAt)
	if err != nil {
		return startAt
	}

	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}

	return t.In(loc).Format("2006-01-02 15:04")
}
