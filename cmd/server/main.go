package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/benbeisheim/chess-engine-backend/internal/config"
	"github.com/benbeisheim/chess-engine-backend/internal/controller"
	"github.com/benbeisheim/chess-engine-backend/internal/engine"
	"github.com/benbeisheim/chess-engine-backend/internal/service"
	"github.com/benbeisheim/chess-engine-backend/internal/storage"
)

func main() {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	log.SetLevel(cfg.Level())

	defaults := storage.DefaultPreferences()
	defaults.Difficulty, _ = engine.ParseDifficulty(cfg.DefaultDifficulty)
	store, err := storage.Open(cfg.DataDir, defaults)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	// Initialize services
	gameManager := service.NewGameManager(engine.New(cfg.EngineOptions()...), store, service.Options{
		EngineTimeout:       cfg.EngineTimeout,
		MatchmakingInterval: cfg.MatchmakingInterval,
	})
	defer gameManager.Close()
	gameService := service.NewGameService(gameManager, store)

	app := fiber.New(fiber.Config{
		AppName:               "chess-engine-backend",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, X-Player-ID",
		AllowMethods:     "GET, POST, PUT, OPTIONS",
		AllowCredentials: true,
	}))

	controller.Register(app, gameService, cfg.Origins())

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Errorw("shutdown", "err", err)
		}
	}()

	log.Infow("listening", "addr", cfg.Addr, "data", cfg.DataDir, "engineTimeout", cfg.EngineTimeout)
	if err := app.Listen(cfg.Addr); err != nil {
		log.Errorw("listen", "err", err)
	}
}
