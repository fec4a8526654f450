package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/planhub/planhub_go_server/internal/api/middleware"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/response"
	"github.com/planhub/planhub_go_server/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Send 发送私信
// POST /api/v1/messages
func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.chatService.Send(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfMessage):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrRecipientNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, item)
}

// Conversations 会话列表
// GET /api/v1/messages/conversations
func (h *ChatHandler) Conversations(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.chatService.ListConversations(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// Conversation 与某人的聊天记录
// GET /api/v1/messages/conversations/:peerID?page=1&page_size=50
func (h *ChatHandler) Conversation(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	peerID, err := strconv.ParseInt(c.Param("peerID"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	items, total, err := h.chatService.ListConversation(userID, peerID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// UnreadCount 总未读数
// GET /api/v1/messages/unread-count
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	count, err := h.chatService.UnreadCount(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"unread_count": count})
}
