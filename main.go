package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gabrielonicala/quillia/app/controllers"
	"github.com/gabrielonicala/quillia/app/repository"
	"github.com/gabrielonicala/quillia/internal/pkg/cache"
	"github.com/gabrielonicala/quillia/internal/pkg/characteraccess"
	"github.com/gabrielonicala/quillia/internal/pkg/charactermemory"
	"github.com/gabrielonicala/quillia/internal/pkg/credits"
	"github.com/gabrielonicala/quillia/internal/pkg/dailyusage"
	"github.com/gabrielonicala/quillia/internal/pkg/database"
	"github.com/gabrielonicala/quillia/internal/pkg/env"
	"github.com/gabrielonicala/quillia/internal/pkg/generation"
	"github.com/gabrielonicala/quillia/internal/pkg/journal"
	"github.com/gabrielonicala/quillia/internal/pkg/router"
	"github.com/gabrielonicala/quillia/internal/pkg/scenestore"
	"github.com/gabrielonicala/quillia/internal/pkg/statengine"
	"github.com/gabrielonicala/quillia/internal/pkg/sweep"
	"github.com/gabrielonicala/quillia/internal/pkg/textvault"
	"github.com/gabrielonicala/quillia/internal/pkg/usagestats"
)

func main() {
	app := NewApplication()

	// graceful shutdown on SIGINT/SIGTERM
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("[App] Shutting down")
		sweep.GetManager().Stop()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	vault, err := textvault.NewFromEnv()
	if err != nil {
		log.Fatalf("[App] Text vault setup failed: %v", err)
	}
	genClient, err := generation.NewClientFromEnv()
	if err != nil {
		log.Fatalf("[App] Generation client setup failed: %v", err)
	}
	sceneStore, err := scenestore.NewFromEnv()
	if err != nil {
		log.Fatalf("[App] Scene storage setup failed: %v", err)
	}

	db := database.GetDB()
	repos := repository.GetGlobalRepositories()

	creditsSvc := credits.NewServiceFromDB(db)
	usageSvc := dailyusage.NewServiceFromDB(db)
	accessSvc := characteraccess.NewService(repos.User, repos.Character)
	memorySvc := charactermemory.NewServiceFromDB(db)
	engineSvc := statengine.NewServiceFromDB(genClient, db)
	statsSvc := usagestats.NewService(repos.User, repos.Character, repos.Entry, vault)

	journalSvc := journal.NewService(journal.Deps{
		Users:      repos.User,
		Characters: repos.Character,
		Entries:    repos.Entry,
		Access:     accessSvc,
		Ledger:     creditsSvc,
		Usage:      usageSvc,
		Memory:     memorySvc,
		Engine:     engineSvc,
		Stats:      statsSvc,
		Stories:    genClient,
		Scenes:     genClient,
		SceneStore: sceneStore,
		Vault:      vault,
	})

	controllers.Initialize(&controllers.Services{
		Journal: journalSvc,
		Credits: creditsSvc,
		Usage:   usageSvc,
		Access:  accessSvc,
		Stats:   statsSvc,
	})

	sweep.Initialize(creditsSvc, accessSvc, usageSvc).Start()

	app := fiber.New(fiber.Config{
		AppName:   "Quillia",
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app)

	return app
}
