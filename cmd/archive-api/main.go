package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/chilahati-archive-api/api/swagger"
	"github.com/noah-isme/chilahati-archive-api/internal/handler"
	"github.com/noah-isme/chilahati-archive-api/internal/repository"
	"github.com/noah-isme/chilahati-archive-api/internal/router"
	"github.com/noah-isme/chilahati-archive-api/internal/service"
	"github.com/noah-isme/chilahati-archive-api/pkg/cache"
	"github.com/noah-isme/chilahati-archive-api/pkg/config"
	"github.com/noah-isme/chilahati-archive-api/pkg/database"
	"github.com/noah-isme/chilahati-archive-api/pkg/export"
	"github.com/noah-isme/chilahati-archive-api/pkg/jobs"
	"github.com/noah-isme/chilahati-archive-api/pkg/logger"
	"github.com/noah-isme/chilahati-archive-api/pkg/mailer"
	"github.com/noah-isme/chilahati-archive-api/pkg/ratelimit"
	"github.com/noah-isme/chilahati-archive-api/pkg/storage"
)

// @title Chilahati Archive API
// @version 1.0.0
// @description Community archive of people, places and institutions of Chilahati
// @BasePath /api
// @schemes http https

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.NewHandle(cfg.Database, logr)
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	store, err := newMediaStorage(ctx, cfg.Media)
	if err != nil {
		logr.Fatal("failed to init media storage", zap.Error(err))
	}

	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	mediaRepo := repository.NewMediaRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	mux := jobs.NewMux()
	mailQueue := jobs.NewQueue("mail", mux.Dispatch, jobs.QueueConfig{
		Workers:    cfg.Mail.WorkerConcurrency,
		MaxRetries: cfg.Mail.WorkerRetries,
		RetryDelay: cfg.Mail.WorkerRetryDelay,
		Logger:     logr,
	})
	metrics.Registry().MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "mail_queue_pending",
		Help: "Mail jobs waiting for a worker",
	}, func() float64 {
		return float64(mailQueue.Pending())
	}))
	mailSvc := service.NewMailService(mailer.NewSender(cfg.Mail, logr), mailQueue, metrics, logr, service.MailServiceConfig{
		BaseURL:            cfg.AppBaseURL,
		ContributeReceiver: cfg.Mail.ContributeReceiver,
		VerificationTTL:    cfg.Account.VerificationTTL,
		ResetTokenTTL:      cfg.Account.ResetTokenTTL,
	})
	mailSvc.Register(mux)
	mailQueue.Start(ctx)
	defer mailQueue.Stop()

	authSvc := service.NewAuthService(userRepo, auditRepo, mailSvc, validator.New(), logr, service.AuthConfig{
		SessionSecret:   cfg.Session.Secret,
		SessionTTL:      cfg.Session.TTL,
		VerificationTTL: cfg.Account.VerificationTTL,
		ResetTokenTTL:   cfg.Account.ResetTokenTTL,
		BcryptCost:      cfg.Account.BcryptCost,
		Issuer:          "chilahati-archive",
	})
	userSvc := service.NewUserService(userRepo, auditRepo, authSvc, cacheSvc, logr, cfg.Account.BcryptCost)
	archiveSvc := service.NewArchiveService(archiveRepo, cacheSvc, auditRepo, metrics, logr, service.ArchiveServiceConfig{CacheTTL: cfg.Cache.TTL})
	searchSvc := service.NewSearchService(archiveRepo, metrics, logr)
	exportSvc := service.NewExportService(archiveRepo, logr, export.NewCSVExporter(), export.NewPDFExporter())
	mediaSvc := service.NewMediaService(mediaRepo, store, auditRepo, metrics, logr, service.MediaServiceConfig{
		MaxFileSize:   cfg.Media.MaxFileSizeBytes,
		AllowedMIMEs:  cfg.Media.AllowedMIMEs,
		PublicBaseURL: cfg.AppBaseURL,
		APIPrefix:     cfg.APIPrefix,
	})
	contributeSvc := service.NewContributeService(mailSvc, logr)

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = newLimiter(redisClient, cfg.RateLimit.Window, logr)
	}

	cookie := handler.SessionCookie{Name: cfg.Session.CookieName, Secure: cfg.Session.Secure}
	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		CookieName:     cfg.Session.CookieName,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowAnyOrigin: cfg.Env != config.EnvProduction,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Sessions:       authSvc,
		Limiter:        limiter,
		RateLimit:      cfg.RateLimit.Limit,
		Metrics:        metrics,
		Audit:          auditRepo,
		Logger:         logr,
	}, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc, cookie),
		User:       handler.NewUserHandler(userSvc, cookie),
		Archive:    handler.NewArchiveHandler(archiveSvc, exportSvc),
		Public:     handler.NewPublicHandler(archiveSvc),
		Search:     handler.NewSearchHandler(searchSvc),
		Media:      handler.NewMediaHandler(mediaSvc),
		Contribute: handler.NewContributeHandler(contributeSvc),
		Pages:      handler.NewPagesHandler(cfg.PagesDir, cfg.APIPrefix),
		Metrics:    handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type mediaStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

func newMediaStorage(ctx context.Context, cfg config.MediaConfig) (mediaStore, error) {
	if cfg.Driver == config.MediaDriverS3 {
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:     cfg.S3Bucket,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			PresignTTL: cfg.PresignTTL,
		})
	}
	return storage.NewLocalStorage(cfg.StorageDir)
}

func newLimiter(client *redis.Client, window time.Duration, logr *zap.Logger) ratelimit.Limiter {
	if client == nil {
		return ratelimit.NewInMemory(window)
	}
	return ratelimit.NewRedis(client, window, logr)
}
