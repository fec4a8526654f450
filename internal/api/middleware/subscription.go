package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/planhub/planhub_go_server/internal/pkg/response"
	"github.com/planhub/planhub_go_server/internal/service"
)

// SubscriptionGate 订阅状态门禁。派生状态为受限时拦截付费功能，
// 状态读取失败一律按受限处理。
func SubscriptionGate(billingService *service.BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		state, err := billingService.GetState(userID)
		if err != nil {
			response.SubscriptionError(c, "订阅状态校验失败")
			c.Abort()
			return
		}

		if state.Blocked {
			response.SubscriptionError(c, "试用期已结束或订阅已过期，请升级套餐")
			c.Abort()
			return
		}

		c.Next()
	}
}
