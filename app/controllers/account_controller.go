package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gabrielonicala/quillia/app/repository"
	"github.com/gabrielonicala/quillia/internal/pkg/entitlements"
	"github.com/gabrielonicala/quillia/internal/pkg/statistics"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Timezone string `json:"timezone"`
}

// HandleRegister creates an account and returns the API key exactly once.
// Only its hash is stored, a lost key means issuing a new one.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := models.CreateUser(req.Username, req.Email, req.Password, req.Timezone)
	if err != nil {
		return badRequest(c, err.Error())
	}

	apiKey, err := newAPIKey()
	if err != nil {
		return internalError(c, "Failed to issue API key")
	}
	user.APIKeyHash = models.HashAPIKey(apiKey)

	repo := repository.GetGlobalRepositories().User
	if _, err := repo.GetByEmail(user.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Email already registered"})
	}
	if err := repo.Create(user); err != nil {
		log.Errorf("[Account] user creation failed: %v", err)
		return internalError(c, "Failed to create user")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Name,
		"email":    user.Email,
		"timezone": user.Timezone,
		"credits":  user.Credits,
		"api_key":  apiKey,
	})
}

// HandleGetAccount returns the authenticated user's profile and entitlement
// snapshot.
func HandleGetAccount(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	repo := repository.GetGlobalRepositories().User
	user, err := repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to load user")
	}

	return c.JSON(fiber.Map{
		"id":                        user.ID,
		"username":                  user.Name,
		"email":                     user.Email,
		"timezone":                  user.Timezone,
		"subscription_plan":         user.SubscriptionPlan,
		"subscription_status":       user.SubscriptionStatus,
		"subscription_ends_at":      formatTimePtr(user.SubscriptionEndsAt),
		"has_premium_access":        entitlements.HasPremiumAccess(user),
		"character_slots":           user.CharacterSlots,
		"active_character_id":       user.ActiveCharacterID,
		"credits":                   user.Credits,
		"has_purchased_starter_kit": user.HasPurchasedStarterKit,
		"created_at":                user.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// HandleSiteStatistics returns the cached public site totals.
func HandleSiteStatistics(c *fiber.Ctx) error {
	data := statistics.GetStatisticsData()
	return c.JSON(fiber.Map{
		"total_users":   data.TotalUsers,
		"total_entries": data.TotalEntries,
		"today_entries": data.TodayEntries,
	})
}

func newAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "qk_" + hex.EncodeToString(raw), nil
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
