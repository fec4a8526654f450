package cron

import (
	"context"
	"log"
	"time"

	"github.com/planhub/planhub_go_server/internal/pkg/email"
	"github.com/planhub/planhub_go_server/internal/pkg/pubsub"
	"github.com/planhub/planhub_go_server/internal/pkg/queue"
	"github.com/planhub/planhub_go_server/internal/repository"
	"github.com/planhub/planhub_go_server/internal/service"
)

// 试用即将到期的提前通知窗口
const trialNoticeWindow = 72 * time.Hour

type Service struct {
	billingService *service.BillingService
	subRepo        *repository.SubscriptionRepository
	eventRepo      *repository.EventRepository
	userRepo       *repository.UserRepository
	emailSvc       *email.Service
	publisher      *pubsub.Publisher
	reminderQueue  *queue.Queue
	stopChan       chan struct{}
	now            func() time.Time
}

func NewService(
	billingService *service.BillingService,
	subRepo *repository.SubscriptionRepository,
	eventRepo *repository.EventRepository,
	userRepo *repository.UserRepository,
	emailSvc *email.Service,
	publisher *pubsub.Publisher,
	reminderQueue *queue.Queue,
) *Service {
	return &Service{
		billingService: billingService,
		subRepo:        subRepo,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		emailSvc:       emailSvc,
		publisher:      publisher,
		reminderQueue:  reminderQueue,
		stopChan:       make(chan struct{}),
		now:            time.Now,
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runReminderEnqueue()
	go s.runLapsedSweep()
	go s.runTrialNotices()
	log.Println("Cron service started (reminders + subscription sweep + trial notices)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runReminderEnqueue 每分钟扫描到期提醒并入队
func (s *Service) runReminderEnqueue() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.EnqueueDueReminders()
		}
	}
}

// runLapsedSweep 每小时把计费周期已过的 active 订阅落库为 expired
func (s *Service) runLapsedSweep() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.billingService.SweepLapsedActive(); err != nil {
				log.Printf("Subscription sweep failed: %v", err)
			}
		}
	}
}

// runTrialNotices 每日 UTC 零点发送试用即将到期通知
func (s *Service) runTrialNotices() {
	now := s.now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	timer := time.NewTimer(nextMidnight.Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.SendTrialNotices()
			timer.Reset(24 * time.Hour)
		}
	}
}

// EnqueueDueReminders 扫描需要提醒的日程，推入队列并标记已发。
// 标记带 reminder_sent_at IS NULL 守卫，多实例下同一条只会入队一次。
func (s *Service) EnqueueDueReminders() int {
	if s.reminderQueue == nil {
		return 0
	}

	now := s.now()
	events, err := s.eventRepo.ListDueReminders(now, 200)
	if err != nil {
		log.Printf("Reminder scan failed: %v", err)
		return 0
	}

	ctx := context.Background()
	enqueued := 0
	for _, event := range events {
		user, err := s.userRepo.GetByID(event.UserID)
		if err != nil {
			log.Printf("Reminder enqueue: failed to load user %d: %v", event.UserID, err)
			continue
		}

		msg := &queue.ReminderMessage{
			EventID:  event.ID,
			UserID:   event.UserID,
			Title:    event.Title,
			StartAt:  event.StartAt.Format(time.RFC3339),
			RemindAt: now.Format(time.RFC3339),
			Timezone: user.Timezone,
		}
		if user.Email != nil {
			msg.Email = *user.Email
		}

		if err := s.reminderQueue.Push(ctx, msg); err != nil {
			log.Printf("Reminder enqueue: failed to push event %d: %v", event.ID, err)
			continue
		}
		if err := s.eventRepo.MarkReminderSent(event.ID, now); err != nil {
			log.Printf("Reminder enqueue: failed to mark event %d: %v", event.ID, err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		log.Printf("Enqueued %d event reminders", enqueued)
	}
	return enqueued
}

// SendTrialNotices 向试用期即将结束的用户发送提醒
func (s *Service) SendTrialNotices() int {
	now := s.now()
	subs, err := s.subRepo.ListTrialsEndingWithin(now, trialNoticeWindow)
	if err != nil {
		log.Printf("Trial notice scan failed: %v", err)
		return 0
	}

	notified := 0
	for _, sub := range subs {
		user, err := s.userRepo.GetByID(sub.UserID)
		if err != nil {
			log.Printf("Trial notice: failed to load user %d: %v", sub.UserID, err)
			continue
		}

		daysRemaining := int((sub.TrialEndAt.Sub(now).Hours() + 23) / 24)
		if daysRemaining < 1 {
			daysRemaining = 1
		}

		if s.emailSvc != nil && user.Email != nil {
			go func(to, username string, days int) {
				if err := s.emailSvc.SendTrialEnding(to, username, days); err != nil {
					log.Printf("Failed to send trial ending email to %s: %v", to, err)
				}
			}(*user.Email, user.Username, daysRemaining)
		}

		if s.publisher != nil {
			msg := &pubsub.NotificationMessage{
				Kind:   pubsub.KindTrialEnding,
				UserID: sub.UserID,
				Body:   "试用期即将结束，升级套餐以继续使用全部功能",
			}
			if err := s.publisher.PublishNotification(context.Background(), msg); err != nil {
				log.Printf("Failed to publish trial notice for user %d: %v", sub.UserID, err)
			}
		}
		notified++
	}

	if notified > 0 {
		log.Printf("Sent %d trial ending notices", notified)
	}
	return notified
}

// RunNow 立即执行一轮全部扫描（手动触发或测试用）
func (s *Service) RunNow() error {
	if _, err := s.billingService.SweepLapsedActive(); err != nil {
		return err
	}
	s.EnqueueDueReminders()
	s.SendTrialNotices()
	return nil
}
