// cmd/checkin-service/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"checkin-service/internal/common/auth"
	"checkin-service/internal/common/camunda"
	"checkin-service/internal/common/config"
	"checkin-service/internal/common/database"
	"checkin-service/internal/common/logger"
	"checkin-service/internal/common/observability"
	"checkin-service/internal/replies"
	"checkin-service/internal/store/cache"
	"checkin-service/internal/store/postgres"
	"checkin-service/internal/store/search"
	httptransport "checkin-service/internal/transport/http"
	"checkin-service/pkg/registry"

	grd "checkin-service/internal/workers/replies/get-request-detail"
	grq "checkin-service/internal/workers/replies/get-request-questions"
	grr "checkin-service/internal/workers/replies/get-request-replies"
	srr "checkin-service/internal/workers/replies/search-request-replies"
	sub "checkin-service/internal/workers/replies/submit-request-replies"
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
	zapLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting checkin service...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("observability partially initialised", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.String("path", cfg.Registry.Path), zap.Error(err))
	}

	ctx := context.Background()
	readiness := map[string]httptransport.ReadinessCheck{}

	// --- PostgreSQL ---
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
	readiness["postgres"] = pg.Ping
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	readiness["redis"] = rdb.Ping
	zapLog.Info("Redis connected successfully")

	deps := replies.ServiceDependencies{
		Store:  postgres.NewStore(pg.DB, log),
		Cache:  cache.NewReplyCache(rdb.Client, cfg.Cache.KeyPrefix, config.GetDuration(cfg.Cache.TTL)),
		Logger: log,
	}

	// --- Elasticsearch (optional) ---
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		index, err := search.NewReplyIndex(esClient.Client, cfg.Search.Index, cfg.Search.DefaultLimit)
		if err != nil {
			zapLog.Fatal("reply index setup failed", zap.Error(err))
		}
		if err := index.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("reply index creation failed", zap.String("index", cfg.Search.Index), zap.Error(err))
		}
		deps.Index = index
		readiness["elasticsearch"] = esClient.Ping
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", cfg.Search.Index))
	} else {
		zapLog.Info("Elasticsearch disabled, reply search unavailable")
	}

	service := replies.NewService(deps)

	// --- Identity ---
	var validator auth.TokenValidator
	if cfg.Auth.Keycloak.Enabled {
		validator = auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
		)
		zapLog.Info("Keycloak token validation enabled", zap.String("realm", cfg.Auth.Keycloak.Realm))
	} else {
		zapLog.Warn("Keycloak disabled, trusting profile header", zap.String("header", cfg.Auth.ProfileHeader))
	}

	// --- Zeebe workers (optional) ---
	var zeebeClient zbc.Client
	var jobWorkers []worker.JobWorker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebeClient, err = camunda.NewClient(camunda.ConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		readiness["zeebe"] = func(ctx context.Context) error {
			return camunda.HealthCheck(ctx, zeebeClient, 5*time.Second)
		}
		zapLog.Info("Zeebe client connected successfully")

		jobWorkers = startWorkers(cfg, zeebeClient, service, reg, obs, log)
		zapLog.Info("Workers registered", zap.Int("count", len(jobWorkers)))
	} else {
		zapLog.Info("Camunda disabled, serving HTTP API only")
	}

	// --- HTTP API ---
	handler := httptransport.NewHandler(service, log, httptransport.Options{
		Validator:      validator,
		ProfileHeader:  cfg.Auth.ProfileHeader,
		RequestTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		Readiness:      readiness,
	})
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      httptransport.NewRouter(handler),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	for _, w := range jobWorkers {
		w.Close()
		w.AwaitClose()
	}
	if zeebeClient != nil {
		if err := zeebeClient.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Checkin service stopped gracefully")
}

func startWorkers(cfg *config.Config, client zbc.Client, service *replies.Service, reg *registry.ActivityRegistry, obs *observability.Observability, log logger.Logger) []worker.JobWorker {
	handlers := []struct {
		taskType string
		handle   worker.JobHandler
	}{
		{
			sub.TaskType,
			sub.NewHandler(sub.LoadConfig(config.GetWorkerConfig(cfg, sub.TaskType)), service, reg, obs, log).Handle,
		},
		{
			grr.TaskType,
			grr.NewHandler(grr.LoadConfig(config.GetWorkerConfig(cfg, grr.TaskType)), service, reg, obs, log).Handle,
		},
		{
			grd.TaskType,
			grd.NewHandler(grd.LoadConfig(config.GetWorkerConfig(cfg, grd.TaskType)), service, reg, obs, log).Handle,
		},
		{
			grq.TaskType,
			grq.NewHandler(grq.LoadConfig(config.GetWorkerConfig(cfg, grq.TaskType)), service, reg, obs, log).Handle,
		},
		{
			srr.TaskType,
			srr.NewHandler(srr.LoadConfig(config.GetWorkerConfig(cfg, srr.TaskType), cfg.Search), service, reg, obs, log).Handle,
		},
	}

	var started []worker.JobWorker
	for _, h := range handlers {
		if _, ok := reg.Find(h.taskType); !ok {
			log.Warn("task type missing from activity registry, inputs will not be schema checked", map[string]interface{}{
				"taskType": h.taskType,
			})
		}
		if w := camunda.StartWorker(client, h.taskType, config.GetWorkerConfig(cfg, h.taskType), h.handle, log); w != nil {
			started = append(started, w)
		}
	}
	return started
}
