package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model"
)

// ErrDuplicateOrder 同一 order_id 已存在支付流水
var ErrDuplicateOrder = errors.New("订单已处理")

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) GetByUserID(userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) Update(sub *model.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *SubscriptionRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Subscription{}).Where("id = ?", id).Updates(fields).Error
}

// ApplyPayment 在同一事务中写入支付流水并更新订阅。
// payments.order_id 的唯一索引保证同一订单重放时整个事务失败，
// 订阅不会被重复延期。
func (r *SubscriptionRepository) ApplyPayment(payment *model.Payment, sub *model.Subscription) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			if isDuplicateKeyError(err) {
				return ErrDuplicateOrder
			}
			return err
		}
		return tx.Save(sub).Error
	})
}

// GetPaymentByOrderID 查询支付流水（重放检测的快速路径）
func (r *SubscriptionRepository) GetPaymentByOrderID(orderID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("order_id = ?", orderID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPaymentsByUser 用户支付历史
func (r *SubscriptionRepository) ListPaymentsByUser(userID int64, page, pageSize int) ([]*model.Payment, int64, error) {
	var payments []*model.Payment
	var total int64

	query := r.db.Model(&model.Payment{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

// ListLapsedActive 查询已过当前周期但状态仍为 active 的订阅
func (r *SubscriptionRepository) ListLapsedActive(now time.Time, limit int) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("status = ? AND current_period_end IS NOT NULL AND current_period_end < ?",
		model.StatusActive, now).
		Limit(limit).Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// ListLapsedTrials 查询试用期已过但状态仍为 trial 的订阅（管理修复用，
// 派生层本就会拦截这些用户，落库只是收敛存储状态）
func (r *SubscriptionRepository) ListLapsedTrials(now time.Time, limit int) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("status = ? AND trial_end_at IS NOT NULL AND trial_end_at < ?",
		model.StatusTrial, now).
		Limit(limit).Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// ListTrialsEndingWithin 查询将在指定时间窗口内到期的试用订阅
func (r *SubscriptionRepository) ListTrialsEndingWithin(now time.Time, window time.Duration) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("status = ? AND trial_end_at IS NOT NULL AND trial_end_at > ? AND trial_end_at <= ?",
		model.StatusTrial, now, now.Add(window)).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// ExpireSubscription 将订阅落库为 expired（管理修复用，绕过派生逻辑）
func (r *SubscriptionRepository) ExpireSubscription(id int64) error {
	return r.db.Model(&model.Subscription{}).Where("id = ?", id).
		Update("status", model.StatusExpired).Error
}

// isDuplicateKeyError 识别唯一索引冲突（MySQL 1062 / SQLite UNIQUE）
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
