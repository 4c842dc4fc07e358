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

	"github.com/healthmate-sync/internal/application/document"
	"github.com/healthmate-sync/internal/application/notifier"
	"github.com/healthmate-sync/internal/application/queue"
	"github.com/healthmate-sync/internal/application/reminder"
	"github.com/healthmate-sync/internal/application/syncengine"
	"github.com/healthmate-sync/internal/config"
	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/infrastructure/dynamo"
	jwtinfra "github.com/healthmate-sync/internal/infrastructure/jwt"
	"github.com/healthmate-sync/internal/infrastructure/kv"
	"github.com/healthmate-sync/internal/infrastructure/reachability"
	s3infra "github.com/healthmate-sync/internal/infrastructure/s3"
	"github.com/healthmate-sync/internal/infrastructure/sns"
	"github.com/healthmate-sync/internal/pkg/clock"
	transporthttp "github.com/healthmate-sync/internal/transport/http"
	"github.com/healthmate-sync/internal/transport/http/handler"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	ctx := context.Background()

	// Local durable store for the offline queues and pending notifications.
	store, closeStore, err := openLocalStore(ctx, cfg)
	if err != nil {
		log.Fatalf("local store: %v", err)
	}
	defer closeStore()

	// Remote record store (creates the tables if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb client: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	records := dynamo.NewRecordStore(dynamoClient, map[string]string{
		domain.CollectionReminders: cfg.DynamoTables.Reminders,
		domain.CollectionDocuments: cfg.DynamoTables.Documents,
	})

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("s3 client: %v", err)
	}
	blobs := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// Notification presentation, falling back to the log without a target ARN.
	var presenter notifier.Presenter = sns.LogPresenter{}
	if p, err := sns.NewPresenter(ctx, cfg); err == nil {
		presenter = p
	} else {
		log.Printf("WARN: SNS presenter not available: %v", err)
	}

	// Without keys there is no provider: no request carries claims and every
	// profile-scoped route answers 401. Only the health check stays usable.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	gate := reachability.NewGate(cfg.ReachabilityURL, cfg.ReachabilityTimeout)

	scheduler := notifier.New(store, presenter, clock.Real())
	scheduler.PresentTimeout = cfg.PresentTimeout

	reminderQueue := queue.New(domain.CollectionReminders, store, queue.KeyReminders)
	documentQueue := queue.New(domain.CollectionDocuments, store, queue.KeyDocuments)

	reminderSvc := reminder.NewService(records, reminderQueue, gate, scheduler)
	documentSvc := document.NewService(records, blobs, documentQueue, gate)

	deps := &transporthttp.Deps{
		Reminders: reminderSvc,
		Documents: documentSvc,
		Engines: map[string]handler.Flusher{
			domain.CollectionReminders: syncengine.New(domain.CollectionReminders, reminderQueue, reminderSvc, gate),
			domain.CollectionDocuments: syncengine.New(domain.CollectionDocuments, documentQueue, documentSvc, gate),
		},
		Notifications: scheduler,
		Gate:          gate,
		JWTProvider:   jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, kv=%s)", cfg.AppPort, cfg.AppEnv, cfg.KVBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	// Persisted notifications stay on disk for the next restore.
	log.Printf("Stopped %d notification timers", scheduler.CancelAll())
	log.Println("Server stopped")
}

func openLocalStore(ctx context.Context, cfg *config.Config) (kv.Store, func(), error) {
	switch cfg.KVBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return kv.NewRedisStore(client, "healthmate:"), func() { _ = client.Close() }, nil
	case "sqlite", "":
		s, err := kv.OpenSQLite(ctx, cfg.KVSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown KV_BACKEND %q", cfg.KVBackend)
	}
}
