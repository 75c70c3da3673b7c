package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/ride-booking/internal/api/handlers"
	"github.com/gocomet/ride-booking/internal/api/routes"
	"github.com/gocomet/ride-booking/internal/auth"
	"github.com/gocomet/ride-booking/internal/config"
	"github.com/gocomet/ride-booking/internal/domain/booking"
	"github.com/gocomet/ride-booking/internal/domain/driver"
	"github.com/gocomet/ride-booking/internal/events"
	"github.com/gocomet/ride-booking/internal/repository/memory"
	"github.com/gocomet/ride-booking/internal/repository/postgres"
	"github.com/gocomet/ride-booking/internal/service/lifecycle"
	"github.com/gocomet/ride-booking/internal/service/location"
	"github.com/gocomet/ride-booking/internal/service/matching"
	"github.com/gocomet/ride-booking/pkg/broker"
	"github.com/gocomet/ride-booking/pkg/cache"
	"github.com/gocomet/ride-booking/pkg/database"
	"github.com/gocomet/ride-booking/pkg/logger"
	"github.com/gocomet/ride-booking/pkg/monitoring"
	"github.com/gocomet/ride-booking/pkg/websocket"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting GoComet Ride-Booking Application",
		logger.String("env", cfg.Server.Env),
		logger.String("port", cfg.Server.Port),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("geo_backend", cfg.Geo.Backend),
	)

	// Initialize New Relic
	nrApp, err := monitoring.New(monitoring.Config{
		LicenseKey: cfg.NewRelic.LicenseKey,
		AppName:    cfg.NewRelic.AppName,
		Enabled:    cfg.NewRelic.Enabled,
		LogLevel:   cfg.NewRelic.LogLevel,
	})
	if err != nil {
		appLogger.Warn("Failed to initialize New Relic", logger.Err(err))
		nrApp = monitoring.Disabled()
	} else if nrApp.IsEnabled() {
		appLogger.Info("New Relic APM initialized successfully",
			logger.String("app_name", cfg.NewRelic.AppName),
			logger.Bool("enabled", true))
	} else {
		appLogger.Info("New Relic APM disabled")
	}
	defer nrApp.Shutdown(10 * time.Second)

	// Position index
	validator := location.Validator{AllowZero: cfg.Geo.AllowZeroCoordinates}
	var (
		index       location.Index
		redisClient *redis.Client
	)
	switch cfg.Geo.Backend {
	case "memory":
		index = location.NewMemoryIndex(cfg.Geo.Shards, validator)
		appLogger.Info("Using in-memory position index", logger.Int("shards", cfg.Geo.Shards))
	default:
		redisClient, err = cache.NewRedisClient(cache.Config{
			Host:        cfg.Redis.Host,
			Port:        cfg.Redis.Port,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			MaxRetries:  cfg.Redis.MaxRetries,
			PoolSize:    cfg.Redis.PoolSize,
			MinIdleConn: cfg.Redis.MinIdleConn,
			DialTimeout: cfg.Redis.DialTimeout,
			ReadTimeout: cfg.Redis.ReadTimeout,
		})
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", logger.Err(err))
		}
		defer cache.Close(redisClient)

		index = location.NewRedisIndex(redisClient, location.RedisKeys{
			Driver: cfg.Geo.DriverKey,
			Rider:  cfg.Geo.RiderKey,
		}, validator, cfg.Matching.MaxCandidates)
		appLogger.Info("Connected to Redis successfully")
	}

	// Booking, search and driver storage
	var (
		bookingRepo booking.Repository
		searchRepo  booking.SearchRepository
		driverRepo  driver.Repository
	)
	switch cfg.Storage.Driver {
	case "memory":
		bookingRepo = memory.NewBookingRepository()
		searchRepo = memory.NewSearchRepository()
		driverRepo = memory.NewDriverRepository()
		appLogger.Warn("Using in-memory storage, bookings are lost on restart")
	default:
		db := connectPostgres(cfg, appLogger)
		defer db.Close()

		bookingRepo = postgres.NewBookingRepository(db)
		searchRepo = postgres.NewSearchRepository(db)
		driverRepo = postgres.NewDriverRepository(db)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(appLogger)

	matcher := matching.NewService(index, driverRepo, appLogger, nrApp, matching.Config{
		DefaultRadiusKM: cfg.Matching.DefaultRadiusKM,
		MaxRadiusKM:     cfg.Matching.MaxRadiusKM,
		MaxCandidates:   cfg.Matching.MaxCandidates,
	})

	// Location frames pushed over the socket go through the same path as the HTTP endpoint
	wsHub.OnLocation(func(ctx context.Context, userID, userType string, lat, lng float64) error {
		_, err := matcher.UpdatePosition(ctx, auth.Identity{ID: userID, Role: auth.Role(userType)}, lat, lng)
		return err
	})
	go wsHub.Run()
	defer wsHub.Stop()

	// Booking events go to connected clients and, when enabled, to RabbitMQ
	publishers := events.Fanout{events.NewHubPublisher(wsHub)}
	if cfg.RabbitMQ.Enabled {
		mq, err := broker.New(broker.Config{
			Host:     cfg.RabbitMQ.Host,
			Port:     cfg.RabbitMQ.Port,
			User:     cfg.RabbitMQ.User,
			Password: cfg.RabbitMQ.Password,
			VHost:    cfg.RabbitMQ.VHost,
			Exchange: cfg.RabbitMQ.Exchange,
		}, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to RabbitMQ", logger.Err(err))
		}
		defer func() {
			if err := mq.Close(); err != nil {
				appLogger.Warn("Failed to close RabbitMQ", logger.Err(err))
			}
		}()

		publishers = append(publishers, events.NewBrokerPublisher(mq))
		appLogger.Info("Connected to RabbitMQ successfully", logger.String("exchange", cfg.RabbitMQ.Exchange))
	}

	bookings := lifecycle.NewService(bookingRepo, searchRepo, publishers, appLogger, nrApp, lifecycle.Config{
		CascadeScope: booking.CascadeScope(cfg.Booking.CascadeScope),
		PageLimit:    cfg.Booking.PageLimit,
	})

	// Initialize handlers with dependencies
	h := handlers.NewHandlers(matcher, bookings, wsHub, appLogger, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize)

	// Initialize Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	routes.SetupRoutes(router, h, routes.Options{
		JWT:            auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry),
		NewRelic:       nrApp,
		Redis:          redisClient,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
		AllowedHeaders: cfg.CORS.AllowedHeaders,
	})

	appLogger.Info("Routes configured successfully")

	// Create HTTP server
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("Server starting", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", logger.Err(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.Err(err))
	}

	appLogger.Info("Server stopped gracefully")
}

func connectPostgres(cfg *config.Config, appLogger *logger.Logger) *sql.DB {
	db, err := database.NewPostgresDB(database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		DBName:      cfg.Database.Name,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConnections,
		MaxIdle:     cfg.Database.MaxIdleConns,
		MaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		appLogger.Fatal("Failed to connect to PostgreSQL", logger.Err(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		appLogger.Fatal("Failed to apply schema", logger.Err(err))
	}

	appLogger.Info("Connected to PostgreSQL successfully")
	return db
}
