package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/chapterhub/event-gallery/api/swagger"
	"github.com/chapterhub/event-gallery/internal/handler"
	internalmiddleware "github.com/chapterhub/event-gallery/internal/middleware"
	"github.com/chapterhub/event-gallery/internal/models"
	"github.com/chapterhub/event-gallery/internal/realtime"
	"github.com/chapterhub/event-gallery/internal/repository"
	"github.com/chapterhub/event-gallery/internal/service"
	"github.com/chapterhub/event-gallery/pkg/cache"
	"github.com/chapterhub/event-gallery/pkg/config"
	"github.com/chapterhub/event-gallery/pkg/database"
	"github.com/chapterhub/event-gallery/pkg/logger"
	corsmiddleware "github.com/chapterhub/event-gallery/pkg/middleware/cors"
	reqidmiddleware "github.com/chapterhub/event-gallery/pkg/middleware/requestid"
	"github.com/chapterhub/event-gallery/pkg/storage"
)

const (
	sweepGrace      = time.Hour
	shutdownTimeout = 15 * time.Second
)

// @title Chapter Event Gallery API
// @version 1.0.0
// @description Events, photos and video links for the chapter gallery.
// @BasePath /api/v1
// @schemes http https

func main() {
	printToken := flag.Bool("print-admin-token", false, "print an admin access token and exit")
	tokenName := flag.String("token-name", "operator", "name embedded in the printed token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "gallery-api")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	validate := validator.New()
	if err := models.RegisterValidations(validate); err != nil {
		logr.Fatal("failed to register validations", zap.Error(err))
	}

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		Enabled:           cfg.JWT.Enabled,
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "event-gallery",
	})
	if *printToken {
		issued, err := authSvc.IssueToken(models.IssueTokenRequest{Name: *tokenName, Role: models.RoleAdmin})
		if err != nil {
			logr.Fatal("failed to issue token", zap.Error(err))
		}
		fmt.Println(issued.AccessToken)
		return
	}
	if cfg.Env == config.EnvProduction && cfg.JWT.Secret == "dev_secret" {
		logr.Warn("JWT_SECRET is the development default")
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck
	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to migrate schema", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
			redisClient = nil
		}
	}

	store, err := storage.NewLocalStorage(cfg.Photos.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare photo storage", zap.Error(err))
	}

	hub := realtime.NewHub(logr.Named("stream"), nil)
	metricsSvc := service.NewMetricsService(hub.Subscribers)

	eventRepo := repository.NewEventRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "gallery", logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	photoSvc := service.NewPhotoService(store, metricsSvc, logr, service.PhotoConfig{
		PublicPath:   cfg.Photos.PublicPath,
		MaxFileSize:  cfg.Photos.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Photos.AllowedMIMEs,
	})

	var eventSvc *service.EventService
	var scheduler service.ThumbnailScheduler
	var thumbSvc *service.ThumbnailService
	if cfg.Thumbnails.Enabled {
		thumbSvc = service.NewThumbnailService(store, eventRepo, metricsSvc, logr.Named("thumbnails"), service.ThumbnailConfig{
			Width:      cfg.Thumbnails.Width,
			Height:     cfg.Thumbnails.Height,
			Workers:    cfg.Thumbnails.Workers,
			MaxRetries: cfg.Thumbnails.MaxRetries,
			RetryDelay: cfg.Thumbnails.RetryDelay,
			PublicPath: cfg.Photos.PublicPath,
		}, func(ctx context.Context, photo models.Photo) {
			eventSvc.InvalidateCache(ctx)
			hub.Publish(models.NewChangeNotice(photo.EventID, models.ChangeUpdated))
		})
		thumbSvc.Start(ctx)
		defer thumbSvc.Stop()
		scheduler = thumbSvc
	}

	eventSvc = service.NewEventService(eventRepo, photoSvc, scheduler, cacheSvc, hub, metricsSvc, validate, logr, service.EventServiceConfig{
		MaxPhotosPerEvent: cfg.Photos.MaxFilesPerEvent,
	})
	exportSvc := service.NewExportService(eventSvc, logr, nil, nil)
	calendarSvc := service.NewCalendarService(eventSvc, logr, service.CalendarConfig{
		Name:      "Chapter Events",
		ProductID: "-//chapterhub//event-gallery//EN",
		UIDDomain: "events.chapterhub",
	})

	sweeper := service.NewSweepService(store, eventRepo, metricsSvc, logr.Named("sweeper"), cfg.Photos.SweepSchedule, sweepGrace)
	if err := sweeper.Start(ctx); err != nil {
		logr.Fatal("failed to schedule photo sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	eventHandler := handler.NewEventHandler(eventSvc, logr)
	feedHandler := handler.NewFeedHandler(exportSvc, calendarSvc, hub, logr)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
		"postgres": eventRepo,
		"redis":    cacheRepo,
	})

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.Static(cfg.Photos.PublicPath, store.Dir())

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.ResponseMeta())
	api.Use(internalmiddleware.OptionalJWT(authSvc))

	events := api.Group("/events")
	events.GET("", eventHandler.List)
	events.GET("/export", feedHandler.Export)
	events.GET("/calendar.ics", feedHandler.Calendar)
	events.GET("/stream", feedHandler.Stream)
	events.GET("/:id", eventHandler.Get)

	limiter := internalmiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	mutate := func(action string, h gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, 5)
		if cfg.RateLimit.Enabled {
			chain = append(chain, limiter.Middleware())
		}
		chain = append(chain, internalmiddleware.RequireAdmin(authSvc)...)
		return append(chain, internalmiddleware.Audit(logr, action), h)
	}
	events.POST("", mutate("event.create", eventHandler.Create)...)
	events.PUT("/:id", mutate("event.update", eventHandler.Update)...)
	events.DELETE("/:id", mutate("event.delete", eventHandler.Delete)...)
	events.POST("/:id/photos", mutate("event.photos.add", eventHandler.AddPhotos)...)
	events.DELETE("/:id/photos", mutate("event.photos.delete", eventHandler.DeletePhotos)...)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "auth", cfg.JWT.Enabled, "cache", cacheSvc.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
