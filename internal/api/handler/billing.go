package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/planhub/planhub_go_server/internal/api/middleware"
	"github.com/planhub/planhub_go_server/internal/model"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/response"
	"github.com/planhub/planhub_go_server/internal/service"
)

type BillingHandler struct {
	billingService *service.BillingService
}

func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// GetState 当前派生订阅状态
// GET /api/v1/billing/state
func (h *BillingHandler) GetState(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	state, err := h.billingService.GetState(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, state)
}

// GetPlans 套餐目录（前端结算页用）
// GET /api/v1/billing/plans
func (h *BillingHandler) GetPlans(c *gin.Context) {
	response.Success(c, h.billingService.GetPlans())
}

// Capture 前端结算组件 onApprove 后转发订单捕获
// POST /api/v1/billing/capture
func (h *BillingHandler) Capture(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	state, err := h.billingService.CapturePayPalOrder(c.Request.Context(), userID, &req)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅已生效", state)
}

// Webhook PayPal 异步通知，与前端捕获互为兜底
// POST /api/v1/billing/paypal/webhook
func (h *BillingHandler) Webhook(c *gin.Context) {
	var event dto.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	// 只处理订单完成事件，其余事件直接确认避免重复投递
	if event.EventType != "CHECKOUT.ORDER.COMPLETED" || event.Resource.ID == "" {
		response.Success(c, nil)
		return
	}

	if _, err := h.billingService.HandlePayPalWebhook(c.Request.Context(), event.Resource.ID); err != nil {
		respondBillingError(c, err)
		return
	}

	response.Success(c, nil)
}

// Cancel 取消订阅
// POST /api/v1/billing/cancel
func (h *BillingHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	state, err := h.billingService.Cancel(userID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅已取消", state)
}

// ListPayments 支付流水
// GET /api/v1/billing/payments?page=1&page_size=20
func (h *BillingHandler) ListPayments(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	payments, total, err := h.billingService.ListPayments(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, payments)
}

// Simulate 管理端模拟支付（沙箱验证转换流程，不经过 PayPal）
// POST /api/v1/admin/billing/simulate
func (h *BillingHandler) Simulate(c *gin.Context) {
	var req dto.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	state, err := h.billingService.ApplyPayment(
		req.UserID, req.OrderID, model.PlanType(req.PlanType), 0, "USD", "simulated")
	if err != nil {
		respondBillingError(c, err)
		return
	}

	response.SuccessWithMessage(c, "模拟支付已应用", state)
}

// Sweep 管理端手动触发过期订阅清扫
// POST /api/v1/admin/billing/sweep
func (h *BillingHandler) Sweep(c *gin.Context) {
	swept, err := h.billingService.SweepLapsedActive()
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"swept": swept})
}

func respondBillingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrSubscriptionNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrOrderNotVerified):
		response.PaymentError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
