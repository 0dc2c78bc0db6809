package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"kvartal/internal/claims/handler"
	"kvartal/internal/claims/index"
	"kvartal/internal/claims/intake"
	"kvartal/internal/claims/review"
	"kvartal/internal/claims/roles"
	"kvartal/internal/claims/store"
	"kvartal/internal/directory"
	"kvartal/internal/files"
	"kvartal/internal/identity"
	"kvartal/internal/notify"
	"kvartal/internal/platform/config"
	"kvartal/internal/platform/httpserver"
	"kvartal/internal/platform/logger"
	"kvartal/internal/platform/metrics"
	"kvartal/internal/platform/middleware"
	platformredis "kvartal/internal/platform/redis"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Error("open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("postgres unreachable", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	// Identity collaborators. Without Redis the deployment runs open-loop:
	// no revocation checks, no admin features.
	validator := identity.NewValidator(cfg.JWTSigningKey)
	var revocation middleware.TokenRevocationChecker
	var features middleware.FeatureChecker = identity.NewStaticFeatureStore()
	if redisClient != nil {
		revocation = identity.NewRedisRevocationList(redisClient.Client)
		features = identity.NewRedisFeatureStore(redisClient.Client)
	}

	notifier, closeNotify, err := buildNotifier(ctx, cfg, log, m)
	if err != nil {
		log.Error("connect kafka", "error", err)
		os.Exit(1)
	}

	uploads, err := buildUploads(ctx, cfg)
	if err != nil {
		log.Error("configure s3 uploads", "error", err)
		os.Exit(1)
	}

	claimsStore := store.NewPostgres(db)
	tx := newClaimsPostgresTx(db)
	dir := directory.NewPostgres(db)
	rolesEngine := roles.NewEngine(log)

	intakeSvc := intake.NewService(claimsStore, tx, rolesEngine, notifier, m, log)
	reviewEngine := review.NewEngine(claimsStore, tx, rolesEngine, dir, notifier, m, log)
	indexSvc := index.NewService(claimsStore, tx, log)

	h := handler.New(intakeSvc, reviewEngine, indexSvc, dir, uploads,
		validator, revocation, features, log)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	h.Register(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("claims server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if worker, ok := notifier.(*notify.Worker); ok {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	closeNotify()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// buildNotifier returns a Kafka-backed notifier when brokers are configured
// and a discard notifier otherwise, plus a close func for the producer.
func buildNotifier(ctx context.Context, cfg config.Server, log *slog.Logger, m *metrics.Metrics) (notify.Notifier, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("kafka brokers not configured, notifications disabled")
		return notify.Discard{}, func() {}, nil
	}
	publisher, err := notify.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, nil, err
	}
	worker := notify.NewWorker(publisher, log, m, 0)
	return worker, publisher.Close, nil
}

// buildUploads wires presigned S3 uploads, or a disabled stub when no
// bucket is configured.
func buildUploads(ctx context.Context, cfg config.Server) (files.Storage, error) {
	if cfg.S3Bucket == "" {
		return files.Disabled{}, nil
	}
	return files.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3URLExpiry)
}
