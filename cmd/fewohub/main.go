package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/FeWoHub/fewohub/app/repository"
	"github.com/FeWoHub/fewohub/internal/pkg/cache"
	"github.com/FeWoHub/fewohub/internal/pkg/database"
	"github.com/FeWoHub/fewohub/internal/pkg/env"
	"github.com/FeWoHub/fewohub/internal/pkg/jobqueue"
	"github.com/FeWoHub/fewohub/internal/pkg/router"
)

func main() {
	app := NewApplication()

	jobqueue.GetManager().Start()

	// Graceful shutdown: drain the queue before the listener dies.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		jobqueue.GetManager().Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "FeWoHub",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", ""),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
