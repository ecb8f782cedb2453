// Package main is the entry point for the work4food dispatch core.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/omniroute/work4food/internal/batch"
	"github.com/omniroute/work4food/internal/cache"
	"github.com/omniroute/work4food/internal/config"
	"github.com/omniroute/work4food/internal/cost"
	"github.com/omniroute/work4food/internal/events"
	"github.com/omniroute/work4food/internal/execution"
	"github.com/omniroute/work4food/internal/guarantee"
	"github.com/omniroute/work4food/internal/payment"
	"github.com/omniroute/work4food/internal/repository"
	"github.com/omniroute/work4food/internal/workestimate"
)

func main() {
	cfg := config.Load()

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting work4food dispatch core", zap.String("port", cfg.ServerPort))

	couriers := repository.NewMemoryCourierRepository()
	orders := repository.NewMemoryOrderRepository()
	batches := repository.NewMemoryBatchRepository()

	estimator := workestimate.New(cfg.PrepTimeMinutes, cfg.AgentSpeedKmph)
	calculator := cost.New(estimator)
	predictor := guarantee.New(guarantee.Config{
		InitialOmega: cfg.InitialOmega,
		OmegaMin:     cfg.OmegaMin,
		OmegaMax:     cfg.OmegaMax,
		Smoothing:    cfg.OmegaSmoothingAlpha,
		HistoryCap:   cfg.OmegaHistoryCap,
	})

	processor := batch.New(couriers, orders, batches, calculator, predictor, cfg.BatchWindow, logger, nil)
	processor.CarryForwardPending = cfg.CarryForwardPending
	executor := execution.New(couriers, orders, cfg.PayPerHour, logger, nil)
	finalizer := payment.New(couriers, cfg.PayPerHour, cfg.MinWage, logger)

	if publisher, err := newEventPublisher(cfg, logger); err != nil {
		logger.Warn("event publishing disabled, continuing without it", zap.Error(err))
	} else {
		processor.Events = publisher
		executor.Events = publisher
	}

	if redisClient, err := cache.NewClient(cache.Config{
		Addr:         cfg.RedisAddr(),
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}); err != nil {
		logger.Warn("roster cache and batch lock disabled, continuing without them", zap.Error(err))
	} else {
		processor.RosterCache = cache.NewRosterCache(redisClient)
		processor.Lock = cache.NewBatchLock(redisClient)
	}

	scheduler := batch.NewScheduler(cfg.BatchWindow, func(ctx context.Context, windowStart time.Time) {
		result, err := processor.ProcessBatch(ctx, windowStart)
		if err != nil {
			logger.Error("batch processing failed", zap.Error(err))
			return
		}
		roster, err := couriers.FindAvailable(ctx)
		if err != nil {
			logger.Error("failed to load roster for payment finalization", zap.Error(err))
			return
		}
		if _, err := finalizer.FinalizeAll(ctx, roster, result.GuaranteeRatio); err != nil {
			logger.Error("payment finalization failed", zap.Error(err))
		}
	}, logger, nil)

	stopScheduler := scheduler.Start(context.Background())
	defer stopScheduler()

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler)
	router.GET("/ready", readinessHandler)

	api := router.Group("/api/v1")
	{
		api.POST("/orders/:id/accept", acceptOrderHandler(executor))
		api.POST("/orders/:id/pickup", pickupOrderHandler(executor))
		api.POST("/orders/:id/deliver", deliverOrderHandler(executor))
		api.POST("/batches/trigger", triggerBatchHandler(processor))
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

func newEventPublisher(cfg *config.Config, logger *zap.Logger) (*events.Publisher, error) {
	client, err := events.NewClient(events.Config{
		Brokers:  cfg.KafkaBrokers,
		ClientID: "work4food",
	})
	if err != nil {
		return nil, err
	}
	return events.NewPublisher(client), nil
}

func initLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, _ := cfg.Build()
	return logger
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "work4food"})
}

func readinessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func acceptOrderHandler(executor *execution.Executor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			CourierID string `json:"courier_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		orderID, err := parseUUID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		courierID, err := parseUUID(body.CourierID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := executor.Accept(c.Request.Context(), orderID, courierID); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "accepted"})
	}
}

func pickupOrderHandler(executor *execution.Executor) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := parseUUID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := executor.Pickup(c.Request.Context(), orderID); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "picked_up"})
	}
}

func deliverOrderHandler(executor *execution.Executor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			ActualWorkHours float64 `json:"actual_work_hours" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		orderID, err := parseUUID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := executor.Deliver(c.Request.Context(), orderID, body.ActualWorkHours); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "delivered"})
	}
}

func triggerBatchHandler(processor *batch.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := processor.ProcessBatch(c.Request.Context(), time.Now().Add(-processor.WindowDuration))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
