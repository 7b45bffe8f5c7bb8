package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/gabrielonicala/quillia/app/controllers"
	"github.com/gabrielonicala/quillia/internal/pkg/cache"
	"github.com/gabrielonicala/quillia/internal/pkg/env"
	"github.com/gabrielonicala/quillia/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        rateLimitMax(),
		Expiration: 1 * time.Minute,
		Storage:    limiterStorage(),
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		},
	}))

	v1 := api.Group("/v1")

	// Public routes
	v1.Post("/register", controllers.HandleRegister)
	v1.Get("/statistics", controllers.HandleSiteStatistics)

	// Everything below requires a valid API key
	auth := v1.Group("", middleware.APIKeyAuthMiddleware())

	auth.Get("/me", controllers.HandleGetAccount)

	auth.Post("/entries", controllers.HandleCreateEntry)
	auth.Get("/entries", controllers.HandleListEntries)
	auth.Get("/entries/:uuid", controllers.HandleGetEntry)

	auth.Get("/characters", controllers.HandleListCharacters)
	auth.Post("/characters", controllers.HandleCreateCharacter)
	auth.Get("/characters/active", controllers.HandleGetActiveCharacter)
	auth.Post("/characters/:id/activate", controllers.HandleActivateCharacter)
	auth.Get("/characters/:id/stats", controllers.HandleCharacterStats)
	auth.Delete("/characters/:id", controllers.HandleDeleteCharacter)

	auth.Get("/credits", controllers.HandleGetCredits)
	auth.Post("/credits/recharge", controllers.HandleDailyRecharge)
	auth.Post("/credits/starter-kit", controllers.HandlePurchaseStarterKit)
	auth.Post("/credits/character-slot", controllers.HandlePurchaseCharacterSlot)

	auth.Get("/limits", controllers.HandleGetLimits)
}

func rateLimitMax() int {
	if v, err := strconv.Atoi(env.GetEnv("API_RATE_LIMIT_PER_MINUTE", "120")); err == nil && v > 0 {
		return v
	}
	return 120
}

// limiterStorage backs the rate limiter with Redis so counts survive
// restarts and are shared across instances. Uses database 1, the main
// cache uses database 0.
func limiterStorage() *redisstorage.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
