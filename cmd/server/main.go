// Package main 是服务端的入口点
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pitchlab-server/internal/cache"
	"pitchlab-server/internal/config"
	"pitchlab-server/internal/handler"
	"pitchlab-server/internal/middleware"
	"pitchlab-server/internal/model"
	"pitchlab-server/internal/repository"
	"pitchlab-server/internal/service"
	"pitchlab-server/internal/websocket"
	"pitchlab-server/pkg/jwt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// 加载配置
	cfg, err := config.Load("./configs")
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	initLogger(cfg)

	// 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		logrus.Fatalf("Failed to init database: %v", err)
	}

	// 自动迁移数据库表
	if err := autoMigrate(db); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化 Redis
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		logrus.Fatalf("Failed to init redis: %v", err)
	}

	// 初始化 JWT 服务
	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpire,
		cfg.JWT.RefreshExpire,
	)

	// 初始化 Repository 层
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	ideaRepo := repository.NewIdeaRepository(db)
	voteRepo := repository.NewVoteRepository(db)

	// 初始化 Service 层
	authService := service.NewAuthService(userRepo, jwtService, redisCache)
	roomService := service.NewRoomService(roomRepo, redisCache)
	voteService := service.NewVoteService(ideaRepo, voteRepo)
	collabService := service.NewCollabService(roomRepo, userRepo, messageRepo, ideaRepo, voteService)

	// 初始化 WebSocket Hub
	// Hub 和 CollabService 互相依赖：Hub 把客户端事件交给服务层处理，
	// 服务层通过 Hub 广播落库后的事件
	wsHub := websocket.NewHub(collabService, redisCache)
	collabService.SetBroadcaster(wsHub)
	go wsHub.Run() // 在单独的 goroutine 中运行

	// 初始化 AI 流水线
	qwenClient := service.NewQwenClient(cfg.AI.QwenAPIKey, cfg.AI.Model)
	aiService := service.NewAIService(qwenClient)
	aiPipeline := service.NewAIPipeline(aiService, messageRepo, userRepo, wsHub, cfg.AI.ScheduleDelay, cfg.AI.ContextMessages)
	collabService.SetPipeline(aiPipeline)

	// 预创建 AI 助手用户，避免首次增强时才建
	if err := seedAssistant(userRepo); err != nil {
		logrus.Fatalf("Failed to seed assistant user: %v", err)
	}

	// 初始化 Handler 层
	authHandler := handler.NewAuthHandler(authService)
	roomHandler := handler.NewRoomHandler(roomService)
	messageHandler := handler.NewMessageHandler(collabService)
	ideaHandler := handler.NewIdeaHandler(collabService)
	wsHandler := websocket.NewHandler(wsHub, cfg.JWT.Secret)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	router := gin.New()

	// 全局中间件
	router.Use(middleware.RecoveryMiddleware())            // 恢复 panic
	router.Use(middleware.LoggerMiddleware())              // 请求日志
	router.Use(middleware.CORSMiddleware(cfg.Server.CORS)) // CORS 来源来自配置

	// 注册路由
	registerRoutes(router, jwtService, redisCache, authHandler, roomHandler, messageHandler, ideaHandler, wsHandler)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// 在 goroutine 中启动服务器
	go func() {
		logrus.Infof("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// 创建关闭上下文，设置超时
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	// 关闭 Redis 连接
	if err := redisCache.Close(); err != nil {
		logrus.Warnf("Failed to close redis: %v", err)
	}

	logrus.Info("Server exited")
}

// initLogger 按配置初始化 logrus
func initLogger(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// initDatabase 初始化数据库连接
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	// 构建 DSN (Data Source Name)
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.MySQL.Username,
		cfg.MySQL.Password,
		cfg.MySQL.Host,
		cfg.MySQL.Port,
		cfg.MySQL.Database,
		cfg.MySQL.Charset,
	)

	// 配置 GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	// 连接数据库
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MySQL.MaxLifetime) * time.Second)

	logrus.Info("Database connected successfully")
	return db, nil
}

// autoMigrate 自动迁移数据库表
func autoMigrate(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.AutoMigrate(
		&model.User{},
		&model.Room{},
		&model.Message{},
		&model.Idea{},
		&model.Vote{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	logrus.Info("Database migrations completed")
	return nil
}

// seedAssistant 确保 AI 助手用户存在
func seedAssistant(users *repository.UserRepository) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assistant, err := users.GetAssistant(ctx, service.AssistantName)
	if err != nil {
		return err
	}
	if assistant != nil {
		return nil
	}
	return users.Create(ctx, &model.User{
		Name:    service.AssistantName,
		IsGuest: false,
	})
}

// registerRoutes 注册所有路由
func registerRoutes(
	router *gin.Engine,
	jwtService *jwt.JWTService,
	redisCache *cache.RedisCache,
	authHandler *handler.AuthHandler,
	roomHandler *handler.RoomHandler,
	messageHandler *handler.MessageHandler,
	ideaHandler *handler.IdeaHandler,
	wsHandler *websocket.Handler,
) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API 路由组
	api := router.Group("/api")

	// 认证相关（无需登录）
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/identify", authHandler.Identify) // 访客进入
		auth.POST("/refresh", authHandler.Refresh)   // 刷新 Token
	}

	// 登出需要登录态（要拿到当前 Token）
	api.POST("/auth/logout", middleware.AuthMiddleware(jwtService, redisCache), authHandler.Logout)

	// 用户相关（需要登录）
	users := api.Group("/users")
	users.Use(middleware.AuthMiddleware(jwtService, redisCache))
	{
		users.GET("/me", authHandler.GetMe)
	}

	// 房间相关（需要登录）
	rooms := api.Group("/rooms")
	rooms.Use(middleware.AuthMiddleware(jwtService, redisCache))
	{
		rooms.GET("", roomHandler.ListRooms)
		rooms.POST("", roomHandler.CreateRoom)
		rooms.GET("/:id", roomHandler.GetRoom)
	}

	// 消息相关（需要登录）
	messages := api.Group("/messages")
	messages.Use(middleware.AuthMiddleware(jwtService, redisCache))
	{
		messages.POST("", messageHandler.CreateMessage)
		messages.GET("/:roomId", messageHandler.ListMessages)
		messages.GET("/:roomId/latest", messageHandler.LatestMessages)
	}

	// 点子相关（需要登录）
	ideas := api.Group("/ideas")
	ideas.Use(middleware.AuthMiddleware(jwtService, redisCache))
	{
		ideas.POST("", ideaHandler.CreateIdea)
		ideas.GET("/:roomId", ideaHandler.ListIdeas)
		ideas.GET("/details/:id", ideaHandler.GetIdea)
		ideas.POST("/:id/vote", ideaHandler.Vote)
	}

	// WebSocket 路由
	wsHandler.RegisterRoutes(router)
}
