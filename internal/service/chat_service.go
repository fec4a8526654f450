package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/pubsub"
	"github.com/planhub/planhub_go_server/internal/repository"
)

var (
	ErrRecipientNotFound = errors.New("接收者不存在")
	ErrSelfMessage       = errors.New("不能给自己发消息")
)

type ChatService struct {
	messageRepo *repository.MessageRepository
	userRepo    *repository.UserRepository
	publisher   *pubsub.Publisher
	now         func() time.Time
}

func NewChatService(messageRepo *repository.MessageRepository, userRepo *repository.UserRepository, publisher *pubsub.Publisher) *ChatService {
	return &ChatService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		now:         time.Now,
	}
}

// Send 发送私信并推送给在线的接收者
func (s *ChatService) Send(senderID int64, req *dto.SendMessageRequest) (*dto.MessageItem, error) {
	if senderID == req.RecipientID {
		return nil, ErrSelfMessage
	}

	if _, err := s.userRepo.GetByID(req.RecipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	message := &model.Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}

	// 回读带 Sender 关联的完整记录
	saved, err := s.messageRepo.GetByID(message.ID)
	if err != nil {
		return nil, err
	}

	item := buildMessageItem(saved)

	// 通过 pub/sub 推给接收者的 websocket 连接
	if s.publisher != nil {
		msg := &pubsub.NotificationMessage{
			Kind:      pubsub.KindChatMessage,
			UserID:    req.RecipientID,
			MessageID: saved.ID,
			Body:      saved.Content,
		}
		if err := s.publisher.PublishNotification(context.Background(), msg); err != nil {
			log.Printf("Failed to publish chat notification: %v", err)
		}
	}

	return item, nil
}

// ListConversation 拉取与某人的聊天记录，并将其来信标记已读
func (s *ChatService) ListConversation(userID, peerID int64, page, pageSize int) ([]*dto.MessageItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	messages, total, err := s.messageRepo.ListConversation(userID, peerID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	if err := s.messageRepo.MarkConversationRead(userID, peerID, s.now()); err != nil {
		log.Printf("Failed to mark conversation read for user %d: %v", userID, err)
	}

	items := make([]*dto.MessageItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, buildMessageItem(m))
	}
	return items, total, nil
}

// ListConversations 会话列表，按最近消息排序并附带未读数
func (s *ChatService) ListConversations(userID int64) ([]*dto.ConversationItem, error) {
	heads, err := s.messageRepo.ListConversationHeads(userID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ConversationItem, 0, len(heads))
	for _, head := range heads {
		peerID := head.SenderID
		if peerID == userID {
			peerID = head.RecipientID
		}

		peer, err := s.userRepo.GetByID(peerID)
		if err != nil {
			continue
		}

		unread, err := s.messageRepo.UnreadCount(userID, peerID)
		if err != nil {
			unread = 0
		}

		items = append(items, &dto.ConversationItem{
			Peer: &dto.MessageUser{
				ID:        peer.ID,
				Username:  peer.Username,
				AvatarURL: peer.AvatarURL,
			},
			LastMessage: head.Content,
			LastAt:      head.CreatedAt.Format(time.RFC3339),
			UnreadCount: unread,
		})
	}
	return items, nil
}

// UnreadCount 总未读数（导航栏角标用）
func (s *ChatService) UnreadCount(userID int64) (int64, error) {
	return s.messageRepo.TotalUnreadCount(userID)
}

func buildMessageItem(m *model.Message) *dto.MessageItem {
	item := &dto.MessageItem{
		ID:        m.ID,
		Content:   m.Content,
		Read:      m.ReadAt != nil,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
	if m.Sender != nil {
		item.Sender = &dto.MessageUser{
			ID:        m.Sender.ID,
			Username:  m.Sender.Username,
			AvatarURL: m.Sender.AvatarURL,
		}
	}
	return item
}
