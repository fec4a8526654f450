package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/repository"
)

var (
	ErrEventNotFound   = errors.New("日程不存在")
	ErrEventNotOwned   = errors.New("无权操作该日程")
	ErrInvalidTimeSpan = errors.New("结束时间必须晚于开始时间")
	ErrInvalidView     = errors.New("无效的视图类型")
)

type EventService struct {
	eventRepo *repository.EventRepository
}

func NewEventService(eventRepo *repository.EventRepository) *EventService {
	return &EventService{eventRepo: eventRepo}
}

// Create 创建日程
func (s *EventService) Create(userID int64, req *dto.CreateEventRequest) (*model.Event, error) {
	if !req.EndAt.After(req.StartAt) {
		return nil, ErrInvalidTimeSpan
	}

	event := &model.Event{
		UserID:          userID,
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		Color:           req.Color,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		AllDay:          req.AllDay,
		ReminderMinutes: req.ReminderMinutes,
	}

	if err := s.eventRepo.Create(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get 获取单条日程，校验归属
func (s *EventService) Get(userID, eventID int64) (*model.Event, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.UserID != userID {
		return nil, ErrEventNotOwned
	}
	return event, nil
}

// Update 更新日程，只更新出现的字段
func (s *EventService) Update(userID, eventID int64, req *dto.UpdateEventRequest) (*model.Event, error) {
	event, err := s.Get(userID, eventID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Location != nil {
		fields["location"] = *req.Location
	}
	if req.Color != nil {
		fields["color"] = *req.Color
	}
	if req.AllDay != nil {
		fields["all_day"] = *req.AllDay
	}

	startAt := event.StartAt
	endAt := event.EndAt
	if req.StartAt != nil {
		startAt = *req.StartAt
		fields["start_at"] = *req.StartAt
	}
	if req.EndAt != nil {
		endAt = *req.EndAt
		fields["end_at"] = *req.EndAt
	}
	if !endAt.After(startAt) {
		return nil, ErrInvalidTimeSpan
	}

	if req.ReminderMinutes != nil {
		fields["reminder_minutes"] = *req.ReminderMinutes
		// 提醒设置变化后重新发送
		fields["reminder_sent_at"] = nil
	} else if req.StartAt != nil {
		// 开始时间变化也需要重发提醒
		fields["reminder_sent_at"] = nil
	}

	if len(fields) > 0 {
		if err := s.eventRepo.UpdateFields(eventID, fields); err != nil {
			return nil, err
		}
	}

	return s.eventRepo.GetByID(eventID)
}

// Delete 删除日程（软删除）
func (s *EventService) Delete(userID, eventID int64) error {
	if _, err := s.Get(userID, eventID); err != nil {
		return err
	}
	return s.eventRepo.Delete(eventID)
}

// ListView 按日历视图查询日程。view 为 day/week/month，
// anchor 是视图内任意时刻，时区取用户配置。
func (s *EventService) ListView(userID int64, view string, anchor time.Time, tz *time.Location) ([]*model.Event, *dto.ViewRange, error) {
	if tz == nil {
		tz = time.UTC
	}
	local := anchor.In(tz)

	var from, to time.Time
	switch view {
	case "day":
		from = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
		to = from.AddDate(0, 0, 1)
	case "week":
		// 周一为一周起点
		weekday := int(local.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		from = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz).AddDate(0, 0, -(weekday - 1))
		to = from.AddDate(0, 0, 7)
	case "month":
		from = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, tz)
		to = from.AddDate(0, 1, 0)
	default:
		return nil, nil, ErrInvalidView
	}

	events, err := s.eventRepo.ListByRange(userID, from, to)
	if err != nil {
		return nil, nil, err
	}

	viewRange := &dto.ViewRange{
		View: view,
		From: from.Format(time.RFC3339),
		To:   to.Format(time.RFC3339),
	}
	return events, viewRange, nil
}
