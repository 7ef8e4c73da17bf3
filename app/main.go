package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tupilates/config"
	"tupilates/delivery"
	"tupilates/metrics"
	"tupilates/middleware"
	"tupilates/repository"
	"tupilates/service"
	"tupilates/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

func main() {
	config.LoadEnv()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	utils.InitLogger(cfg.IsDevelopment())
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		utils.RegisterCustomValidations(v)
	}

	db, err := config.BootDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	redisClient, err := config.InitRedisDB(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Init repositories
	scheduleRepo := repository.NewScheduleRepository(db)
	conversationRepo := repository.NewConversationRedisRepository(redisClient)

	// Init services
	generatorService := service.NewGeneratorUseCase(scheduleRepo, cfg.Studio)
	capacityService := service.NewCapacityUseCase(scheduleRepo, cfg.Studio)
	allocationService := service.NewAllocationUseCase(scheduleRepo, cfg.Studio)
	bookingService := service.NewBookingUseCase(scheduleRepo, cfg.Studio)
	studentService := service.NewStudentUseCase(scheduleRepo, cfg.Studio)
	reportService := service.NewReportUseCase(scheduleRepo, cfg.Studio)
	conversationService := service.NewConversationUseCase(conversationRepo, allocationService, cfg.ChatTTL)

	middleware.InitRateLimiter(redisClient)

	scheduler, err := service.StartScheduler(cfg.Cron, generatorService, reportService)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Cron).Msg("invalid cron schedule")
	}

	app := gin.New()
	app.Use(gin.Recovery())
	config.InitMiddleware(app, cfg)

	app.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "ok"})
	})
	app.GET("/metrics", gin.WrapH(metrics.Handler()))

	delivery.NewScheduleHandler(app, generatorService, capacityService, reportService)
	delivery.NewStudentHandler(app, allocationService, bookingService, studentService)
	delivery.NewChatHandler(app, conversationService)

	srv := &http.Server{
		Addr:           ":" + cfg.AppPort,
		Handler:        app,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// wait for running jobs before closing the pool they use
	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("server forced to shutdown")
	}
	if err := redisClient.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close redis client")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info().Msg("server exited gracefully")
}
