package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fleetinventory/auth"
	"fleetinventory/config"
	"fleetinventory/db"
	"fleetinventory/logger"
	"fleetinventory/metrics"
	"fleetinventory/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migrations and exit")
	createUser := flag.String("create-user", "", "create a user given as username:password and exit")
	createToken := flag.String("create-token", "", "print the API token for a username, creating it if needed, and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(cfg)
	log := logger.GetLogger()
	defer log.Sync()

	metrics.InitMetrics(cfg.Metrics.Prefix)

	if err := db.InitDatabase(cfg, log); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	switch {
	case *migrateOnly:
		log.Info("Migrations applied")
		return
	case *createUser != "":
		if err := runCreateUser(cfg, log, *createUser); err != nil {
			log.Fatal("Failed to create user", zap.Error(err))
		}
		return
	case *createToken != "":
		if err := runCreateToken(cfg, log, *createToken); err != nil {
			log.Fatal("Failed to create token", zap.Error(err))
		}
		return
	}

	app := fiber.New(fiber.Config{
		AppName:               "fleetinventory",
		DisableStartupMessage: cfg.Server.Env == "production",
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	hub := routes.SetupRoutes(app, db.DB, cfg, log)

	go func() {
		addr := ":" + cfg.Server.Port
		log.Info("Starting server", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			log.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	hub.Close()
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Server exited")
}

func runCreateUser(cfg *config.Config, log *zap.Logger, credentials string) error {
	username, password, ok := strings.Cut(credentials, ":")
	if !ok {
		return errors.New("expected username:password")
	}
	svc := auth.NewService(db.DB, log, cfg.JWT)
	user, err := svc.CreateUser(context.Background(), auth.CreateUserInput{Username: username, Password: password})
	if err != nil {
		return err
	}
	log.Info("User created", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return nil
}

func runCreateToken(cfg *config.Config, log *zap.Logger, username string) error {
	svc := auth.NewService(db.DB, log, cfg.JWT)
	token, created, err := svc.GetOrCreateToken(context.Background(), username)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Generated token %s for user %s\n", token.Key, username)
	} else {
		fmt.Printf("Token %s already exists for user %s\n", token.Key, username)
	}
	return nil
}
