package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/yourusername/datacollector/internal/api/handlers"
	"github.com/yourusername/datacollector/internal/config"
	"github.com/yourusername/datacollector/internal/repository"
	"github.com/yourusername/datacollector/internal/store"
)

// @title Candle Collector API
// @version 1.0.0
// @description Read-only access to the collated OHLCV candle store: candles, coverage, and progress.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1

// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := repository.Connect(cfg.Database.URI, cfg.Database.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	log.Println("Connected to MongoDB successfully")

	candleStore, err := store.NewMongoStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize candle store: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "Candle Collector API",
		ServerHeader: "CandleCollector",
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	healthHandler := handlers.NewHealthHandler(db)
	candleHandler := handlers.NewCandleHandler(candleStore, cfg.Cycle)

	app.Get("/health", healthHandler.GetHealth)

	api := app.Group("/api/v1")
	api.Get("/health", healthHandler.GetHealth)
	api.Get("/candles", candleHandler.GetCandles)
	api.Get("/coverage", candleHandler.GetCoverage)
	api.Get("/quality", candleHandler.GetQuality)
	api.Get("/progress", candleHandler.GetProgress)

	address := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s", address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
