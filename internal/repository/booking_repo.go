package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(booking *model.Booking) error {
	return r.db.Create(booking).Error
}

func (r *BookingRepository) GetByID(id int64) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.Where("id = ?", id).First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.Booking{}).Where("id = ?", id).Update("status", status).Error
}

// ListByHost 主人的预约列表，status 为空时不过滤
func (r *BookingRepository) ListByHost(hostID int64, status string, page, pageSize int) ([]*model.Booking, int64, error) {
	var bookings []*model.Booking
	var total int64

	query := r.db.Model(&model.Booking{}).Where("host_id = ?", hostID)

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("start_at ASC").Offset(offset).Limit(pageSize).Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

// ListConfirmedOverlapping 查询与指定区间重叠的已确认预约（冲突检测用）
func (r *BookingRepository) ListConfirmedOverlapping(hostID int64, from, to time.Time) ([]*model.Booking, error) {
	var bookings []*model.Booking
	err := r.db.Where("host_id = ? AND status = ? AND start_at < ? AND end_at > ?",
		hostID, model.BookingConfirmed, to, from).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListConfirmedByHostRange 查询主人在时间区间内的已确认预约（时段展示用）
func (r *BookingRepository) ListConfirmedByHostRange(hostID int64, from, to time.Time) ([]*model.Booking, error) {
	var bookings []*model.Booking
	err := r.db.Where("host_id = ? AND status = ? AND start_at >= ? AND start_at < ?",
		hostID, model.BookingConfirmed, from, to).
		Order("start_at ASC").Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
