package cron

import (
	"context"
	"time"

	"medimind/services/tasks"
	"medimind/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// WorkerConfig carries what the queue worker needs from the app config.
type WorkerConfig struct {
	Redis       asynq.RedisClientOpt
	Concurrency int
}

// ReminderWorker runs the alarm and deferral handlers off the asynq queues.
type ReminderWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	redis  *redis.Client
	logger *zap.Logger
}

func NewReminderWorker(cfg WorkerConfig, triggers, snoozes asynq.Handler, logger *zap.Logger) *ReminderWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	srv := asynq.NewServer(
		cfg.Redis,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				utils.QueueAlarms:  6,
				utils.QueueSnooze:  3,
				utils.QueueDefault: 1,
			},
			Logger:   logger.Sugar(),
			LogLevel: asynq.InfoLevel,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warn("Task failed", zap.String("type", task.Type()), zap.Error(err))
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeReminderTrigger, triggers)
	mux.Handle(tasks.TypeReminderSnooze, snoozes)

	return &ReminderWorker{
		srv: srv,
		mux: mux,
		redis: redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
		logger: logger,
	}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *ReminderWorker) Start(ctx context.Context) {
	go w.monitorRedisConnection(ctx)

	go func() {
		w.logger.Info("Starting reminder worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("Reminder worker failed to start",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Fatal("Reminder worker could not start")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}
	}()
}

// Shutdown waits for running handlers and stops the worker.
func (w *ReminderWorker) Shutdown() {
	w.srv.Shutdown()
	_ = w.redis.Close()
}

// monitorRedisConnection pings the queue redis periodically to surface
// outages in the logs.
func (w *ReminderWorker) monitorRedisConnection(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.redis.Ping(ctx).Err(); err != nil && ctx.Err() == nil {
				w.logger.Warn("Queue redis connection lost", zap.Error(err))
			}
		}
	}
}
