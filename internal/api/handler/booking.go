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

type BookingHandler struct {
	bookingService *service.BookingService
}

func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
	}
}

// ListSlots 查询某主人某天的可预约时段（访客可用，无需登录）
// GET /api/v1/schedule/:hostID/slots?date=2024-05-20&tz=Asia/Shanghai
func (h *BookingHandler) ListSlots(c *gin.Context) {
	hostID, err := strconv.ParseInt(c.Param("hostID"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户ID")
		return
	}

	tz := loadTimezone(c.Query("tz"))
	day := time.Now().In(tz)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, tz)
		if err != nil {
			response.ParamError(c, "日期格式应为 YYYY-MM-DD")
			return
		}
		day = parsed
	}

	slots, err := h.bookingService.ListSlots(hostID, day, tz)
	if err != nil {
		if errors.Is(err, service.ErrHostNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, slots)
}

// Create 访客提交预约（无需登录）
// POST /api/v1/schedule/:hostID/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	hostID, err := strconv.ParseInt(c.Param("hostID"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户ID")
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	booking, err := h.bookingService.Create(hostID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrHostNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrSlotTaken):
			response.ConflictError(c, err.Error())
		case errors.Is(err, service.ErrSlotInPast):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrInvalidTimeSpan):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "预约已提交，等待确认", booking)
}

// List 主人的预约列表
// GET /api/v1/bookings?status=pending&page=1&page_size=20
func (h *BookingHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := c.Query("status")

	bookings, total, err := h.bookingService.List(userID, status, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, bookings)
}

// Confirm 主人确认预约
// POST /api/v1/bookings/:id/confirm
func (h *BookingHandler) Confirm(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的预约ID")
		return
	}

	booking, err := h.bookingService.Confirm(userID, bookingID)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	response.SuccessWithMessage(c, "预约已确认", booking)
}

// Cancel 主人取消预约
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的预约ID")
		return
	}

	booking, err := h.bookingService.Cancel(userID, bookingID)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	response.SuccessWithMessage(c, "预约已取消", booking)
}

func respondBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookingNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrBookingNotOwned):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrBookingSettled):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrSlotTaken):
		response.ConflictError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
