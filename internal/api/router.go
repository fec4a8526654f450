package api

import (
	"github.com/gin-gonic/gin"

	"github.com/planhub/planhub_go_server/config"
	"github.com/planhub/planhub_go_server/internal/api/handler"
	"github.com/planhub/planhub_go_server/internal/api/middleware"
	"github.com/planhub/planhub_go_server/internal/service"
)

type Router struct {
	authHandler      *handler.AuthHandler
	userHandler      *handler.UserHandler
	eventHandler     *handler.EventHandler
	taskHandler      *handler.TaskHandler
	bookingHandler   *handler.BookingHandler
	billingHandler   *handler.BillingHandler
	chatHandler      *handler.ChatHandler
	websocketHandler *handler.WebSocketHandler
	billingService   *service.BillingService
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	eventHandler *handler.EventHandler,
	taskHandler *handler.TaskHandler,
	bookingHandler *handler.BookingHandler,
	billingHandler *handler.BillingHandler,
	chatHandler *handler.ChatHandler,
	websocketHandler *handler.WebSocketHandler,
	billingService *service.BillingService,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		eventHandler:     eventHandler,
		taskHandler:      taskHandler,
		bookingHandler:   bookingHandler,
		billingHandler:   billingHandler,
		chatHandler:      chatHandler,
		websocketHandler: websocketHandler,
		billingService:   billingService,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/verify-email", r.authHandler.VerifyEmail)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 公开接口 - 套餐目录
		api.GET("/billing/plans", r.billingHandler.GetPlans)
		api.POST("/billing/paypal/webhook", r.billingHandler.Webhook)

		// 公开接口 - 访客预约
		schedule := api.Group("/schedule")
		{
			schedule.GET("/:hostID/slots", r.bookingHandler.ListSlots)
			schedule.POST("/:hostID/bookings", r.bookingHandler.Create)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			authenticated.GET("/auth/me", r.authHandler.Me)

			// 用户
			user := authenticated.Group("/user")
			{
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.POST("/avatar", r.userHandler.UploadAvatar)
				user.GET("/search", r.userHandler.Search)
			}

			// 订阅与支付
			billing := authenticated.Group("/billing")
			{
				billing.GET("/state", r.billingHandler.GetState)
				billing.POST("/capture", r.billingHandler.Capture)
				billing.POST("/cancel", r.billingHandler.Cancel)
				billing.GET("/payments", r.billingHandler.ListPayments)
			}

			// 付费功能：订阅受限时统一拦截
			premium := authenticated.Group("")
			premium.Use(middleware.SubscriptionGate(r.billingService))
			{
				// 日程
				events := premium.Group("/events")
				{
					events.POST("", r.eventHandler.Create)
					events.GET("", r.eventHandler.List)
					events.GET("/:id", r.eventHandler.Get)
					events.PUT("/:id", r.eventHandler.Update)
					events.DELETE("/:id", r.eventHandler.Delete)
				}

				// 任务
				tasks := premium.Group("/tasks")
				{
					tasks.POST("", r.taskHandler.Create)
					tasks.GET("", r.taskHandler.List)
					tasks.GET("/today", r.taskHandler.Today)
					tasks.PUT("/:id", r.taskHandler.Update)
					tasks.POST("/:id/complete", r.taskHandler.Complete)
					tasks.DELETE("/:id", r.taskHandler.Delete)
				}

				// 预约管理（主人侧）
				bookings := premium.Group("/bookings")
				{
					bookings.GET("", r.bookingHandler.List)
					bookings.POST("/:id/confirm", r.bookingHandler.Confirm)
					bookings.POST("/:id/cancel", r.bookingHandler.Cancel)
				}

				// 私信
				messages := premium.Group("/messages")
				{
					messages.POST("", r.chatHandler.Send)
					messages.GET("/conversations", r.chatHandler.Conversations)
					messages.GET("/conversations/:peerID", r.chatHandler.Conversation)
					messages.GET("/unread-count", r.chatHandler.UnreadCount)
				}
			}
		}

		// 管理接口
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(r.cfg.Admin.Token))
		{
			admin.POST("/billing/simulate", r.billingHandler.Simulate)
			admin.POST("/billing/sweep", r.billingHandler.Sweep)
		}
	}

	return engine
}
