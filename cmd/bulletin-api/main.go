package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/bulletin-api/api/swagger"
	"github.com/noah-isme/bulletin-api/internal/handler"
	"github.com/noah-isme/bulletin-api/internal/repository"
	"github.com/noah-isme/bulletin-api/internal/service"
	"github.com/noah-isme/bulletin-api/pkg/cache"
	"github.com/noah-isme/bulletin-api/pkg/config"
	"github.com/noah-isme/bulletin-api/pkg/database"
	"github.com/noah-isme/bulletin-api/pkg/export"
	"github.com/noah-isme/bulletin-api/pkg/logger"
	"github.com/noah-isme/bulletin-api/pkg/ratelimit"
	"github.com/noah-isme/bulletin-api/pkg/storage"
)

// @title Ward Bulletin API
// @version 1.0.0
// @description Bulletin editor, public bulletin pages and announcement submissions
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		if cfg.Editor.LocalStoreBackend != config.LocalStoreFilesystem {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		logr.Warn("redis unavailable, public cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	localStore, err := newLocalStore(cfg.Editor, redisClient)
	if err != nil {
		logr.Fatal("failed to init local store", zap.Error(err))
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := validator.New()
	if err := service.RegisterValidations(validate); err != nil {
		logr.Fatal("failed to register validations", zap.Error(err))
	}
	reporter := service.NewErrorReporter(logr, nil)

	bulletinRepo := repository.NewBulletinRepository(db)
	fieldRepo := repository.NewKeyedFieldRepository(db)
	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc,
			cfg.Public.CacheTTL, logr, cfg.Public.CacheEnabled)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	recordSvc := service.NewRecordService(bulletinRepo, fieldRepo, userRepo, logr, cfg.Editor.CallTimeout)
	draftSvc := service.NewDraftService(localStore, logr)
	templateSvc := service.NewTemplateService(templateRepo, draftSvc, validate, logr)
	publicSvc := service.NewPublicBulletinService(recordSvc, cacheSvc, cfg.Public.ReadTimeout, logr)
	editorSvc := service.NewEditorService(service.EditorServiceParams{
		Drafts:    draftSvc,
		Records:   recordSvc,
		Templates: templateSvc,
		Sessions:  authSvc,
		Public:    publicSvc,
		Metrics:   metricsSvc,
		Reporter:  reporter,
		Logger:    logr,
		Config: service.EditorServiceConfig{
			SaveTimeout:        cfg.Editor.SaveTimeout,
			SaveRetries:        cfg.Editor.SaveRetries,
			RetryBaseDelay:     cfg.Editor.RetryBaseDelay,
			DefaultTerminology: cfg.Editor.DefaultTerminology,
		},
	})
	submissionSvc := service.NewSubmissionService(submissionRepo, recordSvc, editorSvc, validate, logr)
	shareSvc := service.NewShareService(recordSvc, storage.NewSignedURLSigner(cfg.Share.SigningSecret, cfg.Share.LinkTTL), cfg.Share.BaseURL, logr)
	exportSvc := service.NewExportService(recordSvc, submissionSvc, logr, export.NewCSVExporter(), export.NewPDFExporter())

	publicLimiter := ratelimit.New(cfg.RateLimit.PublicMax, cfg.RateLimit.PublicWindow)
	strictLimiter := ratelimit.New(cfg.RateLimit.StrictMax, cfg.RateLimit.StrictWindow)
	publicLimiter.Start(ctx, cfg.RateLimit.SweepInterval)
	strictLimiter.Start(ctx, cfg.RateLimit.SweepInterval)

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		EnableDocs:     cfg.Env != config.EnvProduction,
		EnableMetrics:  metricsSvc != nil,
		Tokens:         authSvc,
		PublicLimiter:  publicLimiter,
		StrictLimiter:  strictLimiter,
		Metrics:        metricsSvc,
		Logger:         logr,
	}, handler.Handlers{
		Public:      handler.NewPublicHandler(publicSvc, shareSvc, cfg.Public.CacheTTL),
		Editor:      handler.NewEditorHandler(editorSvc),
		Bulletins:   handler.NewBulletinHandler(recordSvc, shareSvc, exportSvc, publicSvc, logr),
		Submissions: handler.NewSubmissionHandler(submissionSvc, exportSvc),
		Templates:   handler.NewTemplateHandler(templateSvc),
		Auth:        handler.NewAuthHandler(authSvc, editorSvc, logr),
		Metrics:     handler.NewMetricsHandler(metricsSvc, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "local_store", cfg.Editor.LocalStoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Editor.SaveTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func newLocalStore(cfg config.EditorConfig, client *redis.Client) (service.LocalStore, error) {
	if cfg.LocalStoreBackend == config.LocalStoreFilesystem {
		files, err := storage.NewLocalStorage(cfg.LocalStoreDir)
		if err != nil {
			return nil, err
		}
		return repository.NewFileLocalStore(files), nil
	}
	if client == nil {
		return nil, errors.New("redis local store requires a redis connection")
	}
	return repository.NewRedisLocalStore(client), nil
}
