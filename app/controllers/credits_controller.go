package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gabrielonicala/quillia/app/repository"
	"github.com/gabrielonicala/quillia/internal/pkg/credits"
	"github.com/gabrielonicala/quillia/internal/pkg/dailyusage"
)

// HandleGetCredits returns the ink vial balance and the fixed cost table.
func HandleGetCredits(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	user, err := repository.GetGlobalRepositories().User.GetByID(userID)
	if err != nil {
		return internalError(c, "Failed to load user")
	}

	canStarterKit, err := getServices().Credits.CanPurchaseStarterKit(userID)
	if err != nil {
		log.Warnf("[Credits] starter kit check failed for user %d: %v", userID, err)
	}

	return c.JSON(fiber.Map{
		"credits": user.Credits,
		"costs": fiber.Map{
			"chapter": credits.CostChapter,
			"scene":   credits.CostScene,
		},
		"can_purchase_starter_kit": canStarterKit,
		"last_daily_recharge":      formatTimePtr(user.LastDailyRecharge),
	})
}

// HandleDailyRecharge claims the daily recharge. Ineligible users get a
// no-op success with recharged=false.
func HandleDailyRecharge(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	result, err := getServices().Credits.ProcessDailyRecharge(userID)
	if err != nil {
		log.Errorf("[Credits] recharge failed for user %d: %v", userID, err)
		return internalError(c, "Recharge failed")
	}

	return c.JSON(fiber.Map{
		"recharged":   result.Recharged,
		"new_balance": result.NewBalance,
	})
}

type purchaseRequest struct {
	TransactionID string  `json:"transaction_id"`
	Price         float64 `json:"price"`
}

// HandlePurchaseStarterKit grants the one-time starter kit inside the
// 30-day signup window.
func HandlePurchaseStarterKit(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	eligible, err := getServices().Credits.CanPurchaseStarterKit(userID)
	if err != nil {
		return internalError(c, "Eligibility check failed")
	}
	if !eligible {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "not_eligible",
			"message": "Starter kit is only available once within 30 days of signup",
		})
	}

	balance, err := getServices().Credits.PurchaseStarterKit(userID, credits.StarterKitVials, txPtr(req.TransactionID), req.Price)
	if err != nil {
		log.Errorf("[Credits] starter kit purchase failed for user %d: %v", userID, err)
		return internalError(c, "Purchase failed")
	}

	return c.JSON(fiber.Map{"new_balance": balance})
}

// HandlePurchaseCharacterSlot adds one character slot.
func HandlePurchaseCharacterSlot(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := getServices().Credits.AddCharacterSlot(userID, txPtr(req.TransactionID), req.Price); err != nil {
		log.Errorf("[Credits] slot purchase failed for user %d: %v", userID, err)
		return internalError(c, "Purchase failed")
	}

	user, err := repository.GetGlobalRepositories().User.GetByID(userID)
	if err != nil {
		return internalError(c, "Failed to load user")
	}
	return c.JSON(fiber.Map{"character_slots": user.CharacterSlots})
}

// HandleGetLimits returns today's usage against the applicable limits plus
// the local-midnight reset countdown.
func HandleGetLimits(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	user, err := repository.GetGlobalRepositories().User.GetByID(userID)
	if err != nil {
		return internalError(c, "Failed to load user")
	}

	characterID := uint(c.QueryInt("character_id", 0))
	usage, err := getServices().Usage.UsageToday(user, characterID)
	if err != nil {
		log.Errorf("[Credits] usage lookup failed for user %d: %v", userID, err)
		return internalError(c, "Failed to load usage")
	}

	chapterCheck, err := getServices().Usage.CanCreateEntry(user, characterID, models.OutputTypeText)
	if err != nil {
		return internalError(c, "Limit check failed")
	}
	sceneCheck, err := getServices().Usage.CanCreateEntry(user, characterID, models.OutputTypeImage)
	if err != nil {
		return internalError(c, "Limit check failed")
	}

	return c.JSON(fiber.Map{
		"usage":            usage,
		"limit":            chapterCheck.Limit,
		"can_create_text":  chapterCheck.Allowed,
		"can_create_image": sceneCheck.Allowed,
		"next_reset":       dailyusage.NextResetTime(user.Timezone, time.Now()).UTC().Format(time.RFC3339),
		"regime":           getServices().Usage.Limits().Regime,
	})
}

func txPtr(transactionID string) *string {
	if transactionID == "" {
		return nil
	}
	return &transactionID
}
