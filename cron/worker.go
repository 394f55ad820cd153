package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wayfarer/services/session"
	"wayfarer/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const reapSpec = "@every 5m"

// SessionReaper is implemented by session.Registry.
type SessionReaper interface {
	Terminate(ctx context.Context, sessionID, reason string) error
	ReapIdle(ctx context.Context, idle time.Duration) (int, error)
}

// SessionLookup is implemented by session.Store.
type SessionLookup interface {
	Get(ctx context.Context, sessionID string) (*session.Meta, error)
}

type WorkerOptions struct {
	Redis   asynq.RedisClientOpt
	IdleTTL time.Duration
}

// Worker runs the session background tasks: queued terminations and the
// periodic idle sweep.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	opts      WorkerOptions
	logger    *zap.Logger
}

func NewWorker(reaper SessionReaper, sessions SessionLookup, opts WorkerOptions, logger *zap.Logger) *Worker {
	srv := asynq.NewServer(
		opts.Redis,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeTerminateSession, handleTerminateTask(reaper, sessions, logger))
	mux.HandleFunc(tasks.TypeReapSessions, handleReapTask(reaper, opts.IdleTTL, logger))

	scheduler := asynq.NewScheduler(opts.Redis, &asynq.SchedulerOpts{Logger: logger.Sugar()})

	return &Worker{server: srv, scheduler: scheduler, mux: mux, opts: opts, logger: logger}
}

// Start launches the task server and, when an idle TTL is set, the reaper
// schedule. It returns once both are running.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start task worker: %w", err)
	}
	if w.opts.IdleTTL > 0 {
		if _, err := w.scheduler.Register(reapSpec, tasks.NewReapTask()); err != nil {
			return fmt.Errorf("schedule session reaper: %w", err)
		}
		if err := w.scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}
	go w.monitorRedisConnection(ctx)
	w.logger.Info("Task worker started", zap.Duration("idle_ttl", w.opts.IdleTTL))
	return nil
}

func (w *Worker) Shutdown() {
	if w.opts.IdleTTL > 0 {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
}

// handleTerminateTask stops the run a session was ended from. A session
// started again under the same id since then is left running.
func handleTerminateTask(reaper SessionReaper, sessions SessionLookup, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseTerminatePayload(task)
		if err != nil {
			logger.Error("Invalid terminate payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		meta, err := sessions.Get(ctx, p.SessionID)
		switch {
		case err == nil && p.StartRunID != "" && meta.RunID != p.StartRunID:
			logger.Info("Session restarted, skipping termination",
				zap.String("session_id", p.SessionID),
				zap.String("ended_run_id", p.StartRunID),
				zap.String("current_run_id", meta.RunID))
			return nil
		case err != nil && !errors.Is(err, session.ErrUnknownSession):
			return fmt.Errorf("load session %s: %w", p.SessionID, err)
		}
		if err := reaper.Terminate(ctx, p.SessionID, p.Reason); err != nil {
			logger.Warn("Terminate session failed", zap.String("session_id", p.SessionID), zap.Error(err))
			return err
		}
		logger.Info("Session workflow terminated", zap.String("session_id", p.SessionID), zap.String("reason", p.Reason))
		return nil
	}
}

func handleReapTask(reaper SessionReaper, idle time.Duration, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := reaper.ReapIdle(ctx, idle)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("Reaped idle sessions", zap.Int("count", n))
		}
		return nil
	}
}

// monitorRedisConnection pings the queue database to surface outages.
func (w *Worker) monitorRedisConnection(ctx context.Context) {
	client := redis.NewClient(&redis.Options{
		Addr:     w.opts.Redis.Addr,
		Password: w.opts.Redis.Password,
		DB:       w.opts.Redis.DB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil && ctx.Err() == nil {
				w.logger.Warn("Task queue Redis connection lost", zap.Error(err))
			}
		}
	}
}
