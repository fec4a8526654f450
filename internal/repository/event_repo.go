package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(event *model.Event) error {
	return r.db.Create(event).Error
}

func (r *EventRepository) GetByID(id int64) (*model.Event, error) {
	var event model.Event
	err := r.db.Where("id = ?", id).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) Update(event *model.Event) error {
	return r.db.Save(event).Error
}

func (r *EventRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Event{}).Where("id = ?", id).Updates(fields).Error
}

func (r *EventRepository) Delete(id int64) error {
	return r.db.Delete(&model.Event{}, id).Error
}

// ListByRange 查询用户在时间区间内的日程（与区间有交集即命中）
func (r *EventRepository) ListByRange(userID int64, from, to time.Time) ([]*model.Event, error) {
	var events []*model.Event
	err := r.db.Where("user_id = ? AND start_at < ? AND end_at > ?", userID, to, from).
		Order("start_at ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListOverlapping 查询与指定区间重叠的日程（预约冲突检测用）
func (r *EventRepository) ListOverlapping(userID int64, from, to time.Time) ([]*model.Event, error) {
	var events []*model.Event
	err := r.db.Where("user_id = ? AND start_at < ? AND end_at > ?", userID, to, from).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListDueReminders 查询提醒时刻已到且尚未发送的日程
func (r *EventRepository) ListDueReminders(now time.Time, limit int) ([]*model.Event, error) {
	var events []*model.Event
	// remind_at = start_at - reminder_minutes，用表达式避免冗余列
	err := r.db.Where("reminder_minutes > 0 AND reminder_sent_at IS NULL AND start_at > ?", now).
		Order("start_at ASC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, err
	}

	due := make([]*model.Event, 0, len(events))
	for _, e := range events {
		remindAt := e.StartAt.Add(-time.Duration(e.ReminderMinutes) * time.Minute)
		if !remindAt.After(now) {
			due = append(due, e)
		}
	}
	return due, nil
}

// MarkReminderSent 标记提醒已发送（幂等，重复标记无副作用）
func (r *EventRepository) MarkReminderSent(id int64, sentAt time.Time) error {
	return r.db.Model(&model.Event{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", sentAt).Error
}

// PurgeDeletedBefore 物理删除指定时间之前软删除的日程，返回删除条数
func (r *EventRepository) PurgeDeletedBefore(before time.Time) (int64, error) {
	result := r.db.Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
		Delete(&model.Event{})
	return result.RowsAffected, result.Error
}
