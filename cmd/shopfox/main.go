package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/shopfox/shopfox/app/repository"
	"github.com/shopfox/shopfox/internal/pkg/cache"
	"github.com/shopfox/shopfox/internal/pkg/database"
	"github.com/shopfox/shopfox/internal/pkg/env"
	"github.com/shopfox/shopfox/internal/pkg/metrics/counter"
	"github.com/shopfox/shopfox/internal/pkg/payment"
	"github.com/shopfox/shopfox/internal/pkg/router"
)

func main() {
	app := NewApplication()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startExpirySweeper(ctx)
	startCounterFlusher(ctx)

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/shopfox to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "migrations"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "ShopFox",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}

func startExpirySweeper(ctx context.Context) {
	svc := payment.NewServiceFromDB(
		database.GetDB(),
		payment.NewStripeClientFromEnv(),
		env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""),
	)

	maxAge := time.Duration(envInt("CHECKOUT_SESSION_TTL_MINUTES", 30)) * time.Minute
	interval := time.Duration(envInt("CHECKOUT_SWEEP_INTERVAL_MINUTES", 1)) * time.Minute

	go payment.NewExpirySweeper(svc, maxAge, interval).Run(ctx)
}

func startCounterFlusher(ctx context.Context) {
	interval := time.Duration(envInt("COUNTER_FLUSH_INTERVAL_SECONDS", 60)) * time.Second

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := counter.FlushAll(); err != nil {
					log.Printf("Failed to flush view counters: %v", err)
				}
			}
		}
	}()
}

func envInt(key string, fallback int) int {
	v := env.GetEnv(key, "")
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
		log.Printf("Invalid value for %s, using default %d", key, fallback)
		return fallback
	}
	return n
}
