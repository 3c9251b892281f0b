// cmd/scheduler/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/ahjo"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/callback"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/aws"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/config"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/database"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/observability"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/dispatch"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/notify"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/scheduler"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting benefit integration scheduler")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected")

	// --- Stores ---
	db := pg.GetDB()
	apps := store.NewApplicationStore(db)
	batches := store.NewBatchStore(db)
	intLog := store.NewIntegrationLog(db)
	drafts := store.NewDraftStore(db)
	audit := store.NewAuditStore(db)
	retention := store.NewRetentionStore(db)
	lookups := store.NewLookupCache(redis.GetClient(), 24*time.Hour)

	// --- Case system client ---
	tokens := ahjo.NewTokenManager(cfg.Ahjo, log)
	client := ahjo.NewClient(cfg.Ahjo, tokens, log)

	// --- Notifier ---
	var events callback.Publisher = callback.NopPublisher{}
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		events = notify.NewNotifier(sesClient, cfg.Notifications, log)
		zapLog.Info("email notifications enabled")
	}

	// --- Dispatcher ---
	selector := dispatch.NewSelector(apps)
	dispatcher := dispatch.NewDispatcher(selector, client, tokens, intLog, drafts, log,
		cfg.Scheduler.WorkerPoolSize)

	// --- Callback server ---
	ahjoReconciler := callback.NewAhjoReconciler(apps, intLog, events, log)
	talpaReconciler := callback.NewTalpaReconciler(apps, batches, audit, events, log)
	server := callback.NewServer(ahjoReconciler, talpaReconciler, cfg.Callback, cfg.Talpa, log)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("callback server failed", zap.Error(err))
		}
	}()

	// --- Scheduled jobs ---
	dispatchJob := func(ctx context.Context) {
		dispatcher.RunCycle(ctx)
	}
	tokenJob := func(ctx context.Context) {
		if err := tokens.Refresh(ctx); err != nil {
			log.Warn("scheduled token refresh failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	dailyJob := func(ctx context.Context) {
		if purged, err := retention.PurgeAged(ctx, cfg.Scheduler.RetentionDays); err != nil {
			log.Error("retention purge failed", map[string]interface{}{"error": err.Error()})
		} else if purged > 0 {
			log.Info("retention purge completed", map[string]interface{}{"applications": purged})
		}

		refreshLookup(ctx, log, lookups, store.LookupDecisionMakers, client.ListDecisionMakers)
		refreshLookup(ctx, log, lookups, store.LookupSigners, client.ListSigners)
	}

	sched := scheduler.New(cfg.Scheduler, obs, log, dispatchJob, tokenJob, dailyJob)
	sched.Start(ctx)

	<-ctx.Done()
	zapLog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("callback server shutdown failed", zap.Error(err))
	}
	sched.Wait()
	zapLog.Info("scheduler stopped")
}

func refreshLookup(ctx context.Context, log logger.Logger, cache *store.LookupCache,
	name string, fetch func(context.Context) ([]models.LookupEntry, error)) {
	entries, err := fetch(ctx)
	if err != nil {
		log.Warn("lookup refresh failed", map[string]interface{}{
			"lookup": name,
			"error":  err.Error(),
		})
		return
	}
	if err := cache.Put(ctx, name, entries); err != nil {
		log.Warn("lookup cache write failed", map[string]interface{}{
			"lookup": name,
			"error":  err.Error(),
		})
	}
}
