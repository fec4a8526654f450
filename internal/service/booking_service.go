package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/config"
	"github.com/planhub/planhub_go_server/internal/model"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/email"
	"github.com/planhub/planhub_go_server/internal/pkg/pubsub"
	"github.com/planhub/planhub_go_server/internal/repository"
)

var (
	ErrBookingNotFound = errors.New("预约不存在")
	ErrBookingNotOwned = errors.New("无权操作该预约")
	ErrSlotTaken       = errors.New("该时段已被占用")
	ErrSlotInPast      = errors.New("不能预约过去的时段")
	ErrBookingSettled  = errors.New("预约已处理，不能重复操作")
	ErrHostNotFound    = errors.New("预约对象不存在")
)

type BookingService struct {
	bookingRepo *repository.BookingRepository
	eventRepo   *repository.EventRepository
	userRepo    *repository.UserRepository
	emailSvc    *email.Service
	publisher   *pubsub.Publisher
	cfg         *config.Config
	now         func() time.Time
}

func NewBookingService(
	bookingRepo *repository.BookingRepository,
	eventRepo *repository.EventRepository,
	userRepo *repository.UserRepository,
	emailSvc *email.Service,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		eventRepo:   eventRepo,
		userRepo:    userRepo,
		emailSvc:    emailSvc,
		publisher:   publisher,
		cfg:         cfg,
		now:         time.Now,
	}
}

// ListSlots 列出主人在指定日期的可预约时段。
// 已确认预约和主人自己的日程都会让时段不可用。
func (s *BookingService) ListSlots(hostID int64, day time.Time, tz *time.Location) ([]*dto.SlotItem, error) {
	if _, err := s.userRepo.GetByID(hostID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHostNotFound
		}
		return nil, err
	}

	if tz == nil {
		tz = time.UTC
	}

	slotMinutes := s.cfg.Booking.SlotMinutes
	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	startHour := s.cfg.Booking.DayStartHour
	endHour := s.cfg.Booking.DayEndHour
	if endHour <= startHour {
		startHour, endHour = 9, 18
	}

	local := day.In(tz)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), startHour, 0, 0, 0, tz)
	dayEnd := time.Date(local.Year(), local.Month(), local.Day(), endHour, 0, 0, 0, tz)

	bookings, err := s.bookingRepo.ListConfirmedByHostRange(hostID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListOverlapping(hostID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	now := s.now()
	slotLen := time.Duration(slotMinutes) * time.Minute

	var slots []*dto.SlotItem
	for start := dayStart; start.Add(slotLen).Before(dayEnd) || start.Add(slotLen).Equal(dayEnd); start = start.Add(slotLen) {
		end := start.Add(slotLen)
		if start.Before(now) {
			continue
		}
		if overlapsBooking(bookings, start, end) || overlapsEvent(events, start, end) {
			continue
		}
		slots = append(slots, &dto.SlotItem{
			StartAt: start.Format(time.RFC3339),
			EndAt:   end.Format(time.RFC3339),
		})
	}
	return slots, nil
}

func overlapsBooking(bookings []*model.Booking, start, end time.Time) bool {
	for _, b := range bookings {
		if b.StartAt.Before(end) && b.EndAt.After(start) {
			return true
		}
	}
	return false
}

func overlapsEvent(events []*model.Event, start, end time.Time) bool {
	for _, e := range events {
		if e.StartAt.Before(end) && e.EndAt.After(start) {
			return true
		}
	}
	return false
}

// Create 访客提交预约（无需登录）
func (s *BookingService) Create(hostID int64, req *dto.CreateBookingRequest) (*model.Booking, error) {
	if _, err := s.userRepo.GetByID(hostID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHostNotFound
		}
		return nil, err
	}

	if !req.EndAt.After(req.StartAt) {
		return nil, ErrInvalidTimeSpan
	}
	if req.StartAt.Before(s.now()) {
		return nil, ErrSlotInPast
	}

	// 与已确认预约或主人日程重叠即冲突
	conflicts, err := s.bookingRepo.ListConfirmedOverlapping(hostID, req.StartAt, req.EndAt)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, ErrSlotTaken
	}
	events, err := s.eventRepo.ListOverlapping(hostID, req.StartAt, req.EndAt)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 {
		return nil, ErrSlotTaken
	}

	booking := &model.Booking{
		HostID:     hostID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		Notes:      req.Notes,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Status:     model.BookingPending,
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		return nil, err
	}

	s.notifyHost(booking, "新预约待确认")
	return booking, nil
}

// Confirm 主人确认预约，向访客发送确认邮件并在日历上落一条日程
func (s *BookingService) Confirm(hostID, bookingID int64) (*model.Booking, error) {
	booking, err := s.getOwned(hostID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingPending {
		return nil, ErrBookingSettled
	}

	// 确认前再查一次冲突，pending 期间时段可能已被占用
	conflicts, err := s.bookingRepo.ListConfirmedOverlapping(hostID, booking.StartAt, booking.EndAt)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, ErrSlotTaken
	}

	if err := s.bookingRepo.UpdateStatus(bookingID, model.BookingConfirmed); err != nil {
		return nil, err
	}
	booking.Status = model.BookingConfirmed

	// 落进主人日历
	event := &model.Event{
		UserID:  hostID,
		Title:   "预约：" + booking.GuestName,
		StartAt: booking.StartAt,
		EndAt:   booking.EndAt,
		Color:   "#10b981",
	}
	if err := s.eventRepo.Create(event); err != nil {
		log.Printf("Failed to create calendar event for booking %d: %v", bookingID, err)
	}

	if s.emailSvc != nil {
		host, err := s.userRepo.GetByID(hostID)
		hostName := "对方"
		if err == nil {
			hostName = host.Username
		}
		go func(to, guest, hostName, startAt string) {
			if err := s.emailSvc.SendBookingConfirmation(to, guest, hostName, startAt); err != nil {
				log.Printf("Failed to send booking confirmation to %s: %v", to, err)
			}
		}(booking.GuestEmail, booking.GuestName, hostName, booking.StartAt.Format("2006-01-02 15:04"))
	}

	s.notifyHost(booking, "预约已确认")
	return booking, nil
}

// Cancel 主人取消预约
func (s *BookingService) Cancel(hostID, bookingID int64) (*model.Booking, error) {
	booking, err := s.getOwned(hostID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == model.BookingCanceled {
		return nil, ErrBookingSettled
	}

	if err := s.bookingRepo.UpdateStatus(bookingID, model.BookingCanceled); err != nil {
		return nil, err
	}
	booking.Status = model.BookingCanceled

	s.notifyHost(booking, "预约已取消")
	return booking, nil
}

// List 主人的预约列表
func (s *BookingService) List(hostID int64, status string, page, pageSize int) ([]*model.Booking, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.bookingRepo.ListByHost(hostID, status, page, pageSize)
}

func (s *BookingService) getOwned(hostID, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.HostID != hostID {
		return nil, ErrBookingNotOwned
	}
	return booking, nil
}

func (s *BookingService) notifyHost(booking *model.Booking, body string) {
	if s.publisher == nil {
		return
	}
	msg := &pubsub.NotificationMessage{
		Kind:      pubsub.KindBookingUpdate,
		UserID:    booking.HostID,
		BookingID: booking.ID,
		Body:      body,
		StartAt:   booking.StartAt.Format(time.RFC3339),
	}
	if err := s.publisher.PublishNotification(context.Background(), msg); err != nil {
		log.Printf("Failed to publish booking notification: %v", err)
	}
}
