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

	"github.com/harborlist/harborlist/app/controllers"
	"github.com/harborlist/harborlist/app/repository"
	"github.com/harborlist/harborlist/internal/pkg/audit"
	"github.com/harborlist/harborlist/internal/pkg/billing"
	"github.com/harborlist/harborlist/internal/pkg/cache"
	"github.com/harborlist/harborlist/internal/pkg/capabilities"
	"github.com/harborlist/harborlist/internal/pkg/database"
	"github.com/harborlist/harborlist/internal/pkg/delegation"
	"github.com/harborlist/harborlist/internal/pkg/entitlements"
	"github.com/harborlist/harborlist/internal/pkg/env"
	"github.com/harborlist/harborlist/internal/pkg/membership"
	"github.com/harborlist/harborlist/internal/pkg/router"
	"github.com/harborlist/harborlist/internal/pkg/sweeper"
)

func main() {
	app, shutdown := NewApplication()

	// graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	shutdown()
	if err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires repositories, services, and the HTTP surface. The
// returned shutdown function stops background workers and flushes the audit
// buffer.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	auditWriter := audit.NewWriter(repos.Audit)
	resolver := entitlements.NewCachedResolver(entitlements.NewResolver(repos.Tier))

	membershipSvc := membership.NewService(repos.Account, repos.Tier, repos.SubAccount, billing.NewLogProcessor(), auditWriter)
	capabilitySvc := capabilities.NewService(repos.Account, repos.Capability, auditWriter)
	engine := delegation.NewEngine(repos.Account, repos.SubAccount, resolver, repos.Listing, auditWriter)
	subAccountMgr := delegation.NewManager(repos.Account, repos.SubAccount, repos.Listing, resolver, auditWriter)

	sweepMgr := sweeper.NewManager(sweeper.NewSweeper(repos.Account, membershipSvc))
	sweepMgr.Start()

	controllers.Setup(&controllers.Services{
		Resolver:     resolver,
		Membership:   membershipSvc,
		Capabilities: capabilitySvc,
		Engine:       engine,
		SubAccounts:  subAccountMgr,
		Sweep:        sweepMgr,
	})

	app := fiber.New(fiber.Config{
		AppName: "HarborList Entitlements",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", "admin"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app, func() {
		sweepMgr.Stop()
		auditWriter.Close()
	}
}
