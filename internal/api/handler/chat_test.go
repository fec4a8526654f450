package handler

import (
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/response"
	"github.com/planhub/planhub_go_server/internal/repository"
	"github.com/planhub/planhub_go_server/internal/service"
	"github.com/planhub/planhub_go_server/internal/testutil"
)

func setupChatHandler(t *testing.T) (*ChatHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	chatService := service.NewChatService(
		repository.NewMessageRepository(db),
		repository.NewUserRepository(db),
		nil,
	)
	h := NewChatHandler(chatService)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return h, db, cleanup
}

func TestChatHandler_Send(t *testing.T) {
	h, db, cleanup := setupChatHandler(t)
	defer cleanup()

	alice := testutil.TestUser(t, db)
	bob := testutil.TestUser(t, db)

	router := gin.New()
	router.POST("/messages", asUser(alice.ID), h.Send)

	t.Run("success", func(t *testing.T) {
		resp := parseResponse(t, performRequest(router, "POST", "/messages", dto.SendMessageRequest{
			RecipientID: bob.ID,
			Content:     "下午的会议改到三点",
		}))
		assert.Equal(t, response.CodeSuccess, resp.Code)
	})

	t.Run("self message", func(t *testing.T) {
		resp := parseResponse(t, performRequest(router, "POST", "/messages", dto.SendMessageRequest{
			RecipientID: alice.ID,
			Content:     "自言自语",
		}))
		assert.Equal(t, response.CodeParamError, resp.Code)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		resp := parseResponse(t, performRequest(router, "POST", "/messages", dto.SendMessageRequest{
			RecipientID: 99999,
			Content:     "有人吗",
		}))
		assert.Equal(t, response.CodeResourceNotFound, resp.Code)
	})
}

func TestChatHandler_ConversationFlow(t *testing.T) {
	h, db, cleanup := setupChatHandler(t)
	defer cleanup()

	alice := testutil.TestUser(t, db)
	bob := testutil.TestUser(t, db)
	testutil.TestMessage(t, db, bob.ID, alice.ID, "早上好")

	router := gin.New()
	router.GET("/messages/conversations", asUser(alice.ID), h.Conversations)
	router.GET("/messages/conversations/:peerID", asUser(alice.ID), h.Conversation)
	router.GET("/messages/unread-count", asUser(alice.ID), h.UnreadCount)

	resp := parseResponse(t, performRequest(router, "GET", "/messages/conversations", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)

	resp = parseResponse(t, performRequest(router, "GET",
		fmt.Sprintf("/messages/conversations/%d", bob.ID), nil))
	require.Equal(t, response.CodeSuccess, resp.Code)

	// 拉取会话后未读清零
	resp = parseResponse(t, performRequest(router, "GET", "/messages/unread-count", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), data["unread_count"])
}
