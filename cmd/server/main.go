package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planhub/planhub_go_server/config"
	"github.com/planhub/planhub_go_server/internal/api"
	"github.com/planhub/planhub_go_server/internal/api/handler"
	"github.com/planhub/planhub_go_server/internal/database"
	"github.com/planhub/planhub_go_server/internal/pkg/cron"
	"github.com/planhub/planhub_go_server/internal/pkg/email"
	"github.com/planhub/planhub_go_server/internal/pkg/oauth"
	"github.com/planhub/planhub_go_server/internal/pkg/oss"
	"github.com/planhub/planhub_go_server/internal/pkg/paypal"
	"github.com/planhub/planhub_go_server/internal/pkg/pubsub"
	"github.com/planhub/planhub_go_server/internal/pkg/queue"
	"github.com/planhub/planhub_go_server/internal/pkg/ws"
	"github.com/planhub/planhub_go_server/internal/repository"
	"github.com/planhub/planhub_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 OSS（可选，未配置时头像上传不可用）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 初始化 PayPal（可选，未配置时支付捕获不可用）
	var verifier service.PayPalVerifier
	if cfg.PayPal.ClientID != "" && cfg.PayPal.Secret != "" {
		verifier = paypal.NewClient(&cfg.PayPal)
		log.Println("PayPal client initialized")
	}

	// 初始化 Queue 和 Pub/Sub
	reminderQueue := queue.NewQueue(rdb, cfg.Queue.ReminderQueue)
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)

	emailService := email.NewService(&cfg.Email)
	stateStore := oauth.NewStateStore(rdb)

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	eventRepo := repository.NewEventRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// 初始化 Service
	billingService := service.NewBillingService(subRepo, cfg, verifier)
	authService := service.NewAuthService(userRepo, billingService, emailService, cfg)
	userService := service.NewUserService(userRepo, ossClient)
	eventService := service.NewEventService(eventRepo)
	taskService := service.NewTaskService(taskRepo)
	bookingService := service.NewBookingService(bookingRepo, eventRepo, userRepo, emailService, publisher, cfg)
	chatService := service.NewChatService(messageRepo, userRepo, publisher)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService, stateStore)
	userHandler := handler.NewUserHandler(userService)
	eventHandler := handler.NewEventHandler(eventService)
	taskHandler := handler.NewTaskHandler(taskService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	billingHandler := handler.NewBillingHandler(billingService)
	chatHandler := handler.NewChatHandler(chatService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		eventHandler,
		taskHandler,
		bookingHandler,
		billingHandler,
		chatHandler,
		websocketHandler,
		billingService,
		cfg,
	)
	engine := router.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis 通知桥接到 WebSocket
	go func() {
		if err := subscriber.Subscribe(ctx, func(msg *pubsub.NotificationMessage) {
			wsHub.SendToUser(msg.UserID, &ws.Message{
				Type: msg.Kind,
				Data: msg,
			})
		}); err != nil && ctx.Err() == nil {
			log.Printf("Notification subscriber stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 启动定时任务（提醒入队、订阅状态巡检、试用到期通知）
	cronService := cron.NewService(billingService, subRepo, eventRepo, userRepo, emailService, publisher, reminderQueue)
	cronService.Start()

	// 启动 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal")

	cronService.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server shutdown complete")
}
