package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/hpnhann/event-planner-backend/api/swagger"
	"github.com/hpnhann/event-planner-backend/internal/handler"
	"github.com/hpnhann/event-planner-backend/internal/middleware"
	"github.com/hpnhann/event-planner-backend/internal/models"
	"github.com/hpnhann/event-planner-backend/internal/repository"
	"github.com/hpnhann/event-planner-backend/internal/service"
	"github.com/hpnhann/event-planner-backend/pkg/cache"
	"github.com/hpnhann/event-planner-backend/pkg/config"
	"github.com/hpnhann/event-planner-backend/pkg/database"
	"github.com/hpnhann/event-planner-backend/pkg/logger"
	corsmiddleware "github.com/hpnhann/event-planner-backend/pkg/middleware/cors"
	reqidmiddleware "github.com/hpnhann/event-planner-backend/pkg/middleware/requestid"
)

// @title Event Planner API
// @version 1.0.0
// @description Event management backend with registrations, attendance and streaks
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	auditSvc := service.NewAuditService(userRepo, logr, service.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
	})
	authSvc := service.NewAuthService(userRepo, validate, logr, auditSvc, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr, auditSvc)
	eventSvc := service.NewEventService(eventRepo, cacheRepo, validate, logr, auditSvc)
	streakSvc := service.NewStreakService(streakRepo, cacheRepo, logr, auditSvc, service.StreakConfig{
		LeaderboardSize:     cfg.Streaks.LeaderboardSize,
		LeaderboardCacheTTL: cfg.Streaks.LeaderboardCacheTTL,
	})
	registrationSvc := service.NewRegistrationService(registrationRepo, eventRepo, attendanceRepo, validate, logr, auditSvc)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, registrationRepo, eventRepo, streakSvc, validate, logr, auditSvc, service.AttendanceConfig{
		CheckInWindow: cfg.Attendance.CheckInWindow,
	})
	noticeSvc := service.NewNoticeService(noticeRepo, validate, logr, auditSvc)
	roleSvc := service.NewRoleService(roleRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, streakSvc, cacheRepo, metricsSvc, logr, service.DashboardConfig{
		Enabled:  cfg.Dashboard.Enabled,
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditSvc.Start(rootCtx)
	defer auditSvc.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc, metricsSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, metricsSvc)
	streakHandler := handler.NewStreakHandler(streakSvc)
	noticeHandler := handler.NewNoticeHandler(noticeSvc)
	roleHandler := handler.NewRoleHandler(roleSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), userHandler.List)
		users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
		users.GET("/:id", middleware.RBAC("ADMIN", "ORGANIZER", "SELF"), userHandler.Get)
		users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Deactivate)
		users.GET("/:id/streak", middleware.RBAC("ADMIN", "ORGANIZER", "SELF"), streakHandler.Get)
		users.POST("/:id/streak/reset", middleware.RequireRoles(models.RoleAdmin), streakHandler.Reset)
	}

	events := api.Group("/events")
	{
		events.GET("", middleware.OptionalJWT(authSvc), eventHandler.List)
		events.GET("/mine", middleware.JWT(authSvc), eventHandler.MyEvents)
		events.GET("/:id", middleware.OptionalJWT(authSvc), eventHandler.Get)

		organizer := events.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer))
		{
			organizer.POST("", eventHandler.Create)
			organizer.PUT("/:id", eventHandler.Update)
			organizer.DELETE("/:id", eventHandler.Delete)
			organizer.POST("/:id/publish", eventHandler.Publish)
			organizer.POST("/:id/complete", eventHandler.Complete)
			organizer.POST("/:id/cancel", eventHandler.Cancel)
			organizer.GET("/:id/attendances", attendanceHandler.ListByEvent)
			organizer.GET("/:id/attendances/stats", attendanceHandler.Stats)
			organizer.GET("/:id/attendances/export", attendanceHandler.Export)
		}

		participant := events.Group("", middleware.JWT(authSvc))
		{
			participant.DELETE("/:id/registration", registrationHandler.Unregister)
			participant.POST("/:id/check-in", attendanceHandler.CheckIn)
			participant.POST("/:id/check-out", attendanceHandler.CheckOut)
		}
	}

	registrations := api.Group("/registrations", middleware.JWT(authSvc))
	{
		registrations.POST("", registrationHandler.Register)
		registrations.GET("/mine", registrationHandler.Mine)
		registrations.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), registrationHandler.List)
		registrations.POST("/:id/approve", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), registrationHandler.Approve)
		registrations.POST("/:id/reject", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), registrationHandler.Reject)
		registrations.POST("/:id/cancel", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), registrationHandler.Cancel)
	}

	attendances := api.Group("/attendances", middleware.JWT(authSvc))
	{
		attendances.GET("/mine", attendanceHandler.History)
		attendances.PATCH("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), attendanceHandler.Amend)
	}

	streaks := api.Group("/streaks")
	{
		streaks.GET("/leaderboard", streakHandler.Leaderboard)
		streaks.GET("/mine", middleware.JWT(authSvc), streakHandler.Mine)
		streaks.GET("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), streakHandler.List)
	}

	notices := api.Group("/notices")
	{
		notices.GET("", middleware.OptionalJWT(authSvc), noticeHandler.List)
		notices.GET("/:id", middleware.OptionalJWT(authSvc), noticeHandler.Get)

		admin := notices.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer))
		{
			admin.POST("", noticeHandler.Create)
			admin.PUT("/:id", noticeHandler.Update)
			admin.POST("/:id/publish", noticeHandler.Publish)
			admin.POST("/:id/archive", noticeHandler.Archive)
			admin.DELETE("/:id", noticeHandler.Delete)
		}
	}

	roles := api.Group("/roles", middleware.JWT(authSvc))
	{
		roles.GET("", roleHandler.List)
		roles.GET("/:id", roleHandler.Get)
		roles.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), roleHandler.Create)
		roles.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), roleHandler.Update)
		roles.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), roleHandler.Delete)
	}

	api.GET("/dashboard", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), dashboardHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
