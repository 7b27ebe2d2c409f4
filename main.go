// File: medimind/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medimind/config"
	"medimind/cron"
	"medimind/database"
	"medimind/database/repository"
	"medimind/handlers"
	"medimind/middleware"
	"medimind/routes"
	"medimind/services/alarm"
	"medimind/services/backend"
	"medimind/services/confirmation"
	"medimind/services/deferral"
	"medimind/services/device"
	"medimind/services/ledger"
	"medimind/services/notification"
	"medimind/services/trigger"
	"medimind/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	utils.InitializeLogger(config.IsProduction(), cfg.LogLevel)
	logger := utils.GetLogger()
	defer func() { _ = logger.Sync() }()

	if cfg.JWTSecret == "" {
		logger.Fatal("main: JWT_SECRET must be set")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// storage.
	mongoClient, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	db := mongoClient.Database(cfg.DatabaseName)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Sugar().Fatalf("main: failed to create indexes: %v", err)
	}

	ledgerRedis, err := utils.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisLedgerDB)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	queueRedisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
	queueClient := asynq.NewClient(queueRedisOpt)
	inspector := asynq.NewInspector(queueRedisOpt)

	fcm, err := utils.NewMessagingClient(ctx, cfg.FirebaseCredentialsFile)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}

	defaultLoc := utils.LoadLocation(cfg.DefaultTimezone, time.UTC)

	// repositories.
	alarmRepo := repository.NewMongoAlarmRepo(db)
	deviceRepo := repository.NewMongoDeviceRepo(db)

	// services.
	backendClient := backend.NewClient(cfg.BackendBaseURL, &http.Client{})
	deviceService := device.NewService(deviceRepo, defaultLoc, logger.Named("device"))

	notificationService, err := notification.NewDefaultNotificationService(fcm, deviceService, logger.Named("notification"))
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}

	alarmScheduler := alarm.NewScheduler(
		queueClient,
		inspector,
		alarmRepo,
		deviceService,
		notificationService,
		backendClient,
		logger.Named("alarm"),
	)
	deviceService.OnExactAlarmGranted(alarmScheduler)

	snoozeLedger := ledger.NewRedisLedger(ledgerRedis)
	registry := deferral.NewRegistry(ledgerRedis)
	deferralQueue := deferral.NewQueue(queueClient, inspector, registry, logger.Named("deferral"))
	deferralWorker := deferral.NewWorker(registry, snoozeLedger, notificationService, logger.Named("deferral"))

	triggerHandler := trigger.NewHandler(
		backendClient,
		notificationService,
		alarmScheduler,
		deviceService,
		trigger.NewRedisLeaseStore(ledgerRedis),
		cfg.TriggerBudget,
		logger.Named("trigger"),
	)

	confirmationService := confirmation.NewService(backendClient, snoozeLedger, deferralQueue, deviceService, logger.Named("confirmation"))

	// background work.
	worker := cron.NewReminderWorker(cron.WorkerConfig{
		Redis:       queueRedisOpt,
		Concurrency: cfg.WorkerConcurrency,
	}, triggerHandler, deferralWorker, logger.Named("worker"))
	worker.Start(ctx)

	sweep, err := cron.NewAlarmSweep(cfg.AlarmSweepCron, deviceService, alarmScheduler, logger.Named("sweep"))
	if err != nil {
		logger.Sugar().Fatalf("main: invalid ALARM_SWEEP_CRON %q: %v", cfg.AlarmSweepCron, err)
	}
	sweep.Start()

	queueRedis := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisQueueDB})
	health := utils.NewHealthMonitor([]*redis.Client{ledgerRedis, queueRedis}, mongoClient)
	health.Start(ctx, 30*time.Second)

	// http.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger.Named("http")))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	deviceHandler := handlers.NewDeviceHandler(deviceService)
	alarmHandler := handlers.NewAlarmHandler(alarmScheduler)
	reminderHandler := handlers.NewReminderHandler(confirmationService)

	handlerBundle := &handlers.HandlerBundle{
		JWTSecret:   []byte(cfg.JWTSecret),
		EnableDebug: !config.IsProduction(),

		RegisterDeviceHandler: deviceHandler.RegisterDeviceHandler,
		GetDeviceHandler:      deviceHandler.GetDeviceHandler,

		ScheduleAlarmHandler: alarmHandler.ScheduleAlarmHandler,
		ListAlarmsHandler:    alarmHandler.ListAlarmsHandler,
		CancelAlarmHandler:   alarmHandler.CancelAlarmHandler,
		ArmDailyHandler:      alarmHandler.ArmDailyHandler,

		PendingReminderHandler: reminderHandler.PendingHandler,
		ConfirmReminderHandler: reminderHandler.ConfirmHandler,
		SnoozeAllHandler:       reminderHandler.SnoozeAllHandler,

		FireTriggerHandler: handlers.NewDebugHandler(triggerHandler).FireTriggerHandler,
		HealthCheckHandler: handlers.NewHealthHandler(health).HealthCheckHandler,
	}
	routes.RegisterRoutes(router, handlerBundle)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.AppPort,
		Handler: router,
	}

	logger.Info("Starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}

	stop()
	sweep.Stop()
	worker.Shutdown()
	_ = queueClient.Close()
	_ = inspector.Close()
	_ = queueRedis.Close()
	_ = ledgerRedis.Close()
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}

	logger.Info("main: server stopped gracefully")
}
