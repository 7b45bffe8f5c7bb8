package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gabrielonicala/quillia/internal/pkg/journal"
)

type createEntryRequest struct {
	CharacterID uint   `json:"character_id"`
	Text        string `json:"text"`
	OutputType  string `json:"output_type"`
}

// HandleCreateEntry runs the full entry pipeline and maps the structured
// denials onto HTTP statuses.
func HandleCreateEntry(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req createEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.OutputType == "" {
		req.OutputType = string(models.OutputTypeText)
	}

	result, err := getServices().Journal.CreateEntry(c.UserContext(), journal.CreateEntryInput{
		UserID:      userID,
		CharacterID: req.CharacterID,
		Text:        req.Text,
		OutputType:  models.OutputType(req.OutputType),
	})
	if err != nil {
		return writeEntryError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"uuid":              result.Entry.UUID,
		"character_id":      result.Entry.CharacterID,
		"output_type":       result.Entry.OutputType,
		"reimagined_text":   result.ReimaginedText,
		"scene_image_url":   result.SceneImageURL,
		"remaining_credits": result.RemainingCredits,
		"exp_gained":        result.ExpGained,
		"new_level":         result.NewLevel,
		"leveled_up":        result.LeveledUp,
		"stat_changes":      result.StatChanges,
		"created_at":        result.Entry.CreatedAt,
	})
}

// HandleListEntries returns decrypted entries for one character, newest first.
func HandleListEntries(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	characterID, err := strconv.ParseUint(c.Query("character_id"), 10, 32)
	if err != nil || characterID == 0 {
		return badRequest(c, "character_id query parameter is required")
	}
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, err := getServices().Journal.ListEntries(userID, uint(characterID), offset, limit)
	if err != nil {
		if errors.Is(err, journal.ErrCharacterNotFound) {
			return notFound(c, "Character not found")
		}
		log.Errorf("[Entries] list failed for user %d: %v", userID, err)
		return internalError(c, "Failed to list entries")
	}

	return c.JSON(fiber.Map{"entries": entries, "offset": offset, "limit": limit})
}

// HandleGetEntry returns one decrypted entry by UUID.
func HandleGetEntry(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	entry, err := getServices().Journal.GetEntry(userID, c.Params("uuid"))
	if err != nil {
		if errors.Is(err, journal.ErrCharacterNotFound) {
			return notFound(c, "Entry not found")
		}
		return notFound(c, "Entry not found")
	}

	return c.JSON(entry)
}

// writeEntryError translates pipeline denials into API responses carrying
// the structured reason data.
func writeEntryError(c *fiber.Ctx, err error) error {
	var quotaErr *journal.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":   "daily_limit_reached",
			"message": quotaErr.Check.Reason,
			"usage":   quotaErr.Check.Usage,
			"limit":   quotaErr.Check.Limit,
		})
	}

	var creditErr *journal.InsufficientCreditsError
	if errors.As(err, &creditErr) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":            "insufficient_credits",
			"message":          creditErr.Error(),
			"current_credits":  creditErr.Result.CurrentCredits,
			"required_credits": creditErr.Result.RequiredCredits,
		})
	}

	if errors.Is(err, journal.ErrCharacterLocked) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "character_locked", "message": "This character requires a premium subscription"})
	}
	if errors.Is(err, journal.ErrCharacterNotFound) {
		return notFound(c, "Character not found")
	}

	log.Errorf("[Entries] creation failed: %v", err)
	return internalError(c, "Entry creation failed")
}
