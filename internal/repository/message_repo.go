package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *model.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) GetByID(id int64) (*model.Message, error) {
	var message model.Message
	err := r.db.Preload("Sender").Where("id = ?", id).First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListConversation 两人之间的消息，按时间倒序分页
func (r *MessageRepository) ListConversation(userID, peerID int64, page, pageSize int) ([]*model.Message, int64, error) {
	var messages []*model.Message
	var total int64

	query := r.db.Model(&model.Message{}).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, peerID, peerID, userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Preload("Sender").Order("id DESC").
		Offset(offset).Limit(pageSize).Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// ListConversationHeads 用户参与的每个会话的最新一条消息
func (r *MessageRepository) ListConversationHeads(userID int64) ([]*model.Message, error) {
	var messages []*model.Message

	// 按对端分组取最大消息 ID，再回表取消息本体。
	// Group 子句不支持参数绑定，userID 为 int64 直接拼接。
	groupExpr := fmt.Sprintf("CASE WHEN sender_id = %d THEN recipient_id ELSE sender_id END", userID)
	subQuery := r.db.Model(&model.Message{}).
		Select("MAX(id)").
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Group(groupExpr)

	err := r.db.Preload("Sender").
		Where("id IN (?)", subQuery).
		Order("id DESC").Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkConversationRead 将对端发来的未读消息标记为已读
func (r *MessageRepository) MarkConversationRead(userID, peerID int64, readAt time.Time) error {
	return r.db.Model(&model.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND read_at IS NULL", peerID, userID).
		Update("read_at", readAt).Error
}

// UnreadCount 对端发来的未读消息数
func (r *MessageRepository) UnreadCount(userID, peerID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND read_at IS NULL", peerID, userID).
		Count(&count).Error
	return count, err
}

// TotalUnreadCount 所有未读消息数
func (r *MessageRepository) TotalUnreadCount(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Message{}).
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}
