package dto

// SendMessageRequest 发送私信请求
type SendMessageRequest struct {
	RecipientID int64  `json:"recipient_id" binding:"required"`
	Content     string `json:"content" binding:"required,min=1,max=2000"`
}

// MessageItem 消息项
type MessageItem struct {
	ID        int64        `json:"id"`
	Sender    *MessageUser `json:"sender"`
	Content   string       `json:"content"`
	Read      bool         `json:"read"`
	CreatedAt string       `json:"created_at"`
}

// MessageUser 消息里的用户信息
type MessageUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// ConversationItem 会话列表项
type ConversationItem struct {
	Peer        *MessageUser `json:"peer"`
	LastMessage string       `json:"last_message"`
	LastAt      string       `json:"last_at"`
	UnreadCount int64        `json:"unread_count"`
}
