package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/planhub/planhub_go_server/internal/api/middleware"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/response"
	"github.com/planhub/planhub_go_server/internal/service"
)

type EventHandler struct {
	eventService *service.EventService
}

func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

// Create 创建日程
// POST /api/v1/events
func (h *EventHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	event, err := h.eventService.Create(userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimeSpan) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "创建成功", event)
}

// List 按视图拉取日程
// GET /api/v1/events?view=week&date=2024-03-13&tz=Asia/Shanghai
func (h *EventHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	view := c.DefaultQuery("view", "week")
	tz := loadTimezone(c.Query("tz"))

	anchor := time.Now().In(tz)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, tz)
		if err != nil {
			response.ParamError(c, "日期格式应为 YYYY-MM-DD")
			return
		}
		anchor = parsed
	}

	events, viewRange, err := h.eventService.ListView(userID, view, anchor, tz)
	if err != nil {
		if errors.Is(err, service.ErrInvalidView) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{
		"range":  viewRange,
		"events": events,
	})
}

// Get 获取单条日程
// GET /api/v1/events/:id
func (h *EventHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的日程ID")
		return
	}

	event, err := h.eventService.Get(userID, eventID)
	if err != nil {
		respondEventError(c, err)
		return
	}

	response.Success(c, event)
}

// Update 更新日程
// PUT /api/v1/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的日程ID")
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	event, err := h.eventService.Update(userID, eventID, &req)
	if err != nil {
		respondEventError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", event)
}

// Delete 删除日程
// DELETE /api/v1/events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的日程ID")
		return
	}

	if err := h.eventService.Delete(userID, eventID); err != nil {
		respondEventError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

func respondEventError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrEventNotOwned):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrInvalidTimeSpan):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

// loadTimezone 解析 IANA 时区名，解析失败回退 UTC
func loadTimezone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
