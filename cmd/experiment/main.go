package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pricelab/internal/experiment/application"
	"github.com/wyfcoding/pricelab/internal/experiment/domain"
	platformclient "github.com/wyfcoding/pricelab/internal/experiment/infrastructure/client"
	"github.com/wyfcoding/pricelab/internal/experiment/infrastructure/messaging"
	"github.com/wyfcoding/pricelab/internal/experiment/infrastructure/persistence/mysql"
	redisrepo "github.com/wyfcoding/pricelab/internal/experiment/infrastructure/persistence/redis"
	httphandler "github.com/wyfcoding/pricelab/internal/experiment/interfaces/http"
	"github.com/wyfcoding/pricelab/pkg/cache"
	configpkg "github.com/wyfcoding/pricelab/pkg/config"
	"github.com/wyfcoding/pricelab/pkg/db"
	"github.com/wyfcoding/pricelab/pkg/logger"
	"github.com/wyfcoding/pricelab/pkg/metrics"
	"github.com/wyfcoding/pricelab/pkg/middleware"
	"github.com/wyfcoding/pricelab/pkg/mq"
	"github.com/wyfcoding/pricelab/pkg/ratelimit"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/experiment/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := configpkg.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	log := logger.Get()

	// 3. Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&domain.Experiment{},
		&domain.Variant{},
		&domain.ProductAssociation{},
		&domain.TenantRotationSettings{},
	); err != nil {
		panic(fmt.Sprintf("migrate db failed: %v", err))
	}

	// 4. Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		panic(fmt.Sprintf("connect redis failed: %v", err))
	}
	defer redisCache.Close()

	// 5. Event publisher（Kafka 未启用时事件只省略，不影响主流程）
	var publisher domain.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			panic(fmt.Sprintf("create kafka producer failed: %v", err))
		}
		defer producer.Close()
		publisher = messaging.NewKafkaPublisher(producer)
	}

	// 6. Infrastructure & application wiring
	m := metrics.New("experiment")

	expRepo := mysql.NewExperimentRepository(database.DB)
	settingsRepo := mysql.NewSettingsRepository(database.DB)

	platform := platformclient.NewShopClient(platformclient.Config{
		BaseURL:     cfg.Platform.BaseURL,
		AccessToken: cfg.Platform.AccessToken,
		Timeout:     time.Duration(cfg.Platform.Timeout) * time.Second,
	})
	priceableCache := redisrepo.NewPriceableIDCache(redisCache, time.Duration(cfg.Platform.PriceableCacheTTL)*time.Minute)
	synchronizer := application.NewPriceSyncService(platform, priceableCache, log)

	appService := application.NewExperimentService(
		expRepo,
		settingsRepo,
		synchronizer,
		publisher,
		m,
		log,
		application.SchedulerConfig{
			TickInterval:   time.Duration(cfg.Scheduler.TickInterval) * time.Second,
			SyncTimeout:    time.Duration(cfg.Scheduler.SyncTimeout) * time.Second,
			RotationWindow: time.Duration(cfg.Scheduler.RotationWindow) * time.Minute,
		},
	)

	// 7. HTTP server
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), middleware.Recovery(), middleware.Metrics(m))
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		router.Use(middleware.RateLimit(limiter, cfg.RateLimit.Rate, cfg.RateLimit.Burst))
	}

	handler := httphandler.NewExperimentHandler(appService, settingsRepo)
	handler.RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 8. Start
	ctx := context.Background()
	if cfg.Scheduler.Enabled {
		appService.StartScheduler(ctx)
	}

	go func() {
		log.Info("Starting HTTP server", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	if cfg.Scheduler.Enabled {
		appService.StopScheduler()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	log.Info("Server exiting")
}
