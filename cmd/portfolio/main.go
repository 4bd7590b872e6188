package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/papertrading/internal/portfolio/application"
	"github.com/wyfcoding/papertrading/internal/portfolio/domain"
	"github.com/wyfcoding/papertrading/internal/portfolio/infrastructure/messaging"
	"github.com/wyfcoding/papertrading/internal/portfolio/infrastructure/persistence/memory"
	"github.com/wyfcoding/papertrading/internal/portfolio/infrastructure/persistence/mysql"
	redisrepo "github.com/wyfcoding/papertrading/internal/portfolio/infrastructure/persistence/redis"
	"github.com/wyfcoding/papertrading/internal/portfolio/infrastructure/pricing"
	"github.com/wyfcoding/papertrading/internal/portfolio/interfaces/consumer"
	httpserver "github.com/wyfcoding/papertrading/internal/portfolio/interfaces/http"
	"github.com/wyfcoding/papertrading/pkg/cache"
	"github.com/wyfcoding/papertrading/pkg/config"
	"github.com/wyfcoding/papertrading/pkg/db"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/metrics"
	"github.com/wyfcoding/papertrading/pkg/middleware"
	"github.com/wyfcoding/papertrading/pkg/mq"
)

const (
	fillsTopic  = "orders.filled"
	eventsTopic = "portfolio.events"
)

var configPath = flag.String("config", "configs/portfolio/config.toml", "config file path")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

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
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	ctx := context.Background()

	m := metrics.New(cfg.ServiceName)
	if err := m.Register(); err != nil {
		logger.Fatal(ctx, "failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "failed to start metrics server", "error", err)
		}
	}

	// 基础设施；DSN 为空时运行纯内存模式（本地模拟，不落库）
	var (
		positionRepo domain.PositionRepository
		orderRepo    domain.OrderRepository
		publisher    domain.EventPublisher
		txManager    application.TxManager
		redisCache   *cache.RedisCache
		relay        *messaging.OutboxRelay
	)

	if cfg.Database.DSN == "" {
		logger.Info(ctx, "running in memory mode, state will not be persisted")
		positions := memory.NewPositionRepository()
		orders := memory.NewOrderRepository()
		events := memory.NewEventPublisher()
		positionRepo = positions
		orderRepo = orders
		publisher = events
		txManager = memory.NewTxManager(positions, orders, events)
	} else {
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
			logger.Fatal(ctx, "failed to connect database", "error", err)
		}
		defer database.Close()

		if cfg.Environment == "dev" {
			if err := database.AutoMigrate(&mysql.PositionModel{}, &mysql.OrderModel{}, &messaging.OutboxMessage{}); err != nil {
				logger.Error(ctx, "failed to migrate database", "error", err)
			}
		}

		redisCache, err = cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to init redis", "error", err)
		}
		defer redisCache.Close()

		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to init kafka producer", "error", err)
		}
		defer producer.Close()

		positionRepo = redisrepo.NewCachedPositionRepository(mysql.NewPositionRepository(database.DB), redisCache)
		orderRepo = mysql.NewOrderRepository(database.DB)
		publisher = messaging.NewOutboxEventPublisher(database.DB)
		txManager = mysql.NewTxManager(database.DB)
		relay = messaging.NewOutboxRelay(database.DB, producer, eventsTopic)
	}

	var priceProvider domain.PriceProvider
	if redisCache != nil {
		priceProvider = pricing.NewRedisPriceProvider(redisCache)
	} else {
		priceProvider = pricing.NewStaticPriceProvider(nil)
	}

	service := application.NewPortfolioService(positionRepo, orderRepo, priceProvider, publisher, txManager, m)

	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.GinRecoveryMiddleware(), middleware.GinLoggingMiddleware(), middleware.GinCORSMiddleware())
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	httpserver.NewPortfolioHandler(service).RegisterRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		logger.Info(gctx, "http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		fillConsumer, err := mq.NewConsumer(mq.KafkaConfig{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			SessionTimeout: cfg.Kafka.SessionTimeout,
		}, fillsTopic)
		if err != nil {
			logger.Fatal(ctx, "failed to init kafka consumer", "error", err)
		}
		defer fillConsumer.Close()

		handler := consumer.NewFillHandler(service)
		g.Go(func() error {
			if err := fillConsumer.Consume(gctx, handler.Handle); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if relay != nil {
		g.Go(func() error {
			if err := relay.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "service exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "service stopped")
}
