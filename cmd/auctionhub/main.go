package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"auctionhub/internal/auth"
	"auctionhub/internal/cache"
	"auctionhub/internal/config"
	cronrunner "auctionhub/internal/cron"
	"auctionhub/internal/db"
	"auctionhub/internal/extractor"
	"auctionhub/internal/feed"
	"auctionhub/internal/handler"
	"auctionhub/internal/lock"
	"auctionhub/internal/logger"
	"auctionhub/internal/models"
	gormrepository "auctionhub/internal/repository/gorm"
	"auctionhub/internal/service"

	_ "auctionhub/docs"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("AH_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("AH_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB, logger)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, using in-process cache and locks", zap.Error(err))
			_ = rc.Close()
		} else {
			redisClient = rc
			defer rc.Close()
		}
		cancel()
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.Cron.Location()
	locker := lock.New(cfg.Scrape.LockBackend, redisClient)
	fetcher := extractor.NewFetcher(cfg.HTTP, logger)
	registry := extractor.DefaultRegistry(fetcher, cfg.Aggregator, logger)
	events := service.NewRunEvents()

	scrapeSvc := &service.ScrapeService{
		Registry: registry,
		Lots:     store,
		Runs:     store,
		Locker:   locker,
		Logger:   logger,
		Config:   cfg.Scrape,
		Events:   events,
		BaseCtx:  ctx,
	}
	sweepSvc := &service.StatusSweepService{Lots: store, Logger: logger, Location: loc}
	querySvc := &service.LotQueryService{
		Repo:     store,
		Cache:    cache.New(cfg.Cache.Backend, redisClient),
		TTL:      cfg.Cache,
		Logger:   logger,
		Location: loc,
	}
	feedSvc := &service.FeedService{
		Lots:            store,
		Logger:          logger,
		Location:        loc,
		RefreshInterval: cfg.Feed.RefreshInterval,
	}
	if cfg.Feed.Enabled {
		feedSvc.Writer = &feed.Writer{Path: cfg.Feed.Path}
	}

	jwtAuth := auth.JWT{Secret: []byte(cfg.Admin.JWTSecret), TokenTTL: cfg.Admin.TokenTTL}
	if cfg.Admin.AuthDisabled {
		logger.Warn("admin auth disabled")
	} else if cfg.Admin.JWTSecret == "" {
		logger.Warn("admin jwt secret empty, admin api will reject every request")
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	lotHandler := &handler.LotHandler{Query: querySvc, Logger: logger}
	lotHandler.Register(engine)
	adminHandler := &handler.AdminHandler{
		Registry:     registry,
		Scrape:       scrapeSvc,
		Sweep:        sweepSvc,
		Feed:         feedSvc,
		Settings:     settingsSvc,
		Runs:         store,
		Events:       events,
		JWT:          jwtAuth,
		AuthDisabled: cfg.Admin.AuthDisabled,
		Stagger:      cfg.Scrape.Stagger,
		Logger:       logger,

		OriginPatterns: cfg.Admin.WSOriginPatterns,
	}
	adminHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, ctx, cronrunner.Options{
		Location: loc,
		Locker:   locker,
		LockTTL:  cfg.Scrape.LockTTL,
	})
	if cfg.Cron.Enabled {
		registerCronTasks(cronRunner, cfg, logger, settingsSvc, scrapeSvc, sweepSvc, feedSvc)
		cronRunner.Start()
		defer cronRunner.Stop()
	} else {
		logger.Info("cron disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	scrapeSvc.Wait()
}

func registerCronTasks(
	runner *cronrunner.Runner,
	cfg config.Config,
	logger *zap.Logger,
	settingsSvc *service.SystemSettingsService,
	scrapeSvc *service.ScrapeService,
	sweepSvc *service.StatusSweepService,
	feedSvc *service.FeedService,
) {
	add := func(name, spec string, job func(context.Context)) {
		if strings.TrimSpace(spec) == "" {
			logger.Info("cron task not scheduled", zap.String("task", name))
			return
		}
		if _, err := runner.AddNamed(name, spec, job); err != nil {
			logger.Fatal("cron add failed", zap.String("task", name), zap.String("spec", spec), zap.Error(err))
		}
	}

	add("scrape_all", cfg.Cron.ScrapeAll, func(ctx context.Context) {
		if !settingsSvc.IsEnabled(ctx, service.FeatureScrapeAll, true) {
			return
		}
		runs := scrapeSvc.RunAll(ctx, service.RunAllOptions{Stagger: cfg.Scrape.Stagger, Trigger: models.TriggerCron})
		logger.Info("cron scrape_all done", zap.Int("runs", len(runs)))
	})

	add("aggregator", cfg.Cron.Aggregator, func(ctx context.Context) {
		if !settingsSvc.IsEnabled(ctx, service.FeatureAggregator, true) {
			return
		}
		run, err := scrapeSvc.RunHouse(ctx, extractor.HouseAggregator, models.TriggerCron)
		if err != nil {
			logger.Warn("cron aggregator failed", zap.Error(err))
			return
		}
		if run.Status == models.RunFailed {
			return
		}
		if !settingsSvc.IsEnabled(ctx, service.FeatureFeed, true) {
			return
		}
		stats, err := feedSvc.Refresh(ctx)
		if err != nil {
			logger.Warn("cron feed refresh failed", zap.Error(err))
			return
		}
		logger.Info("cron feed refresh ok", zap.Int("lots", stats.Total), zap.String("path", cfg.Feed.Path))
	})

	add("status_sweep", cfg.Cron.StatusSweep, func(ctx context.Context) {
		if !settingsSvc.IsEnabled(ctx, service.FeatureStatusSweep, true) {
			return
		}
		n, err := sweepSvc.Run(ctx)
		if err != nil {
			logger.Warn("cron status sweep failed", zap.Error(err))
			return
		}
		logger.Info("cron status sweep ok", zap.Int64("marked_unsold", n))
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
