package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/misbar-ag/satwatch/internal/api/http"
	"github.com/misbar-ag/satwatch/internal/config"
	"github.com/misbar-ag/satwatch/internal/monitor"
	"github.com/misbar-ag/satwatch/internal/monitor/sources"
	"github.com/misbar-ag/satwatch/internal/scheduler"
	"github.com/misbar-ag/satwatch/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound observation-service calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Persistence gateway: Firestore when credentials are configured,
	// the seeded in-memory store otherwise.
	var gateway monitor.Store
	if cfg.UseFirestore {
		fs, err := store.NewFirestoreStore(context.Background())
		if err != nil {
			log.Fatalf("failed to init firestore gateway: %v", err)
		}
		defer fs.Close()
		gateway = fs
	} else {
		log.Println("INFO: FIREBASE_CREDENTIALS not set; using in-memory store with bundled sites")
		gateway = store.NewMemoryStore(store.DefaultSites(), cfg.StoreMaxHistory, cfg.StoreMaxAge)
	}

	// Scalar observation sources.
	sentinelHub := sources.NewSentinelHubClient(httpClient, cfg.SentinelHubClientID, cfg.SentinelHubClientSecret)

	scalarSources := []monitor.Source{
		sources.NewSentinelHubNDVI(sentinelHub),
		sources.NewSentinelHubCloudCover(sentinelHub),
		sources.NewNASAPowerTemperature(httpClient),
		sources.NewNASAGraceSoilMoisture(httpClient, cfg.EarthdataUsername, cfg.EarthdataPassword),
		sources.NewEarthEngineWaterUsage(httpClient, cfg.EarthEngineAPIKey),
	}

	// Imagery catalogs.
	imagerySources := []monitor.ImagerySource{
		sources.NewLandsatCatalog(httpClient),
		sources.NewCopernicusCatalog(httpClient),
	}

	// Core pipeline: per-site aggregator and fleet refresh controller.
	agg := monitor.NewAggregator(scalarSources, imagerySources, gateway, monitor.DefaultRetryPolicy(), nil)
	service := monitor.NewService(gateway, agg, cfg.RefreshInterval)

	// Scheduler that periodically refreshes the fleet.
	sched := scheduler.New(service, cfg.RefreshInterval, cfg.RefreshTimeout)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "satwatch",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "satwatch",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, gateway)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
