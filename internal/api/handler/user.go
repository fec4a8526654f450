package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/planhub/planhub_go_server/internal/api/middleware"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/response"
	"github.com/planhub/planhub_go_server/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// UpdateProfile 更新用户信息
// PUT /api/v1/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameExists) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "更新成功", user)
}

// UploadAvatar 上传头像
// POST /api/v1/user/avatar
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "请选择文件")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}

	avatarURL, err := h.userService.UploadAvatar(userID, file.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAvatarTooLarge):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrUnsupportedAvatar):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrStorageDisabled):
			response.ServerError(c, err.Error())
		default:
			response.ServerError(c, "上传失败")
		}
		return
	}

	response.SuccessWithMessage(c, "上传成功", gin.H{
		"avatar_url": avatarURL,
	})
}

// Search 按用户名前缀搜索用户（发起私信用）
// GET /api/v1/user/search?q=xxx
func (h *UserHandler) Search(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		response.ParamError(c, "请输入搜索关键词")
		return
	}

	users, err := h.userService.SearchUsers(keyword, 20)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, users)
}
