package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gabrielonicala/quillia/app/repository"
	"github.com/gabrielonicala/quillia/internal/pkg/characteraccess"
)

type createCharacterRequest struct {
	Name       string `json:"name"`
	Theme      string `json:"theme"`
	Appearance string `json:"appearance"`
}

// HandleListCharacters returns the access-gated character list: accessible
// and locked sets plus slot totals.
func HandleListCharacters(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	access, err := getServices().Access.GetCharacterAccess(userID)
	if err != nil {
		log.Errorf("[Characters] access resolution failed for user %d: %v", userID, err)
		return internalError(c, "Failed to resolve character access")
	}

	return c.JSON(fiber.Map{
		"accessible":    characterViews(access.Accessible),
		"locked":        characterViews(access.Locked),
		"total_allowed": access.TotalAllowed,
		"total_owned":   access.TotalOwned,
	})
}

// HandleCreateCharacter creates a character within the user's slot capacity.
func HandleCreateCharacter(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req createCharacterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}
	if !models.IsKnownTheme(req.Theme) {
		return badRequest(c, "unknown theme")
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByID(userID)
	if err != nil {
		return internalError(c, "Failed to load user")
	}

	owned, err := repos.Character.CountByUser(userID)
	if err != nil {
		return internalError(c, "Failed to count characters")
	}
	if int(owned) >= user.CharacterSlots {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "slot_limit_reached",
			"message": "All character slots are in use",
			"slots":   user.CharacterSlots,
			"owned":   owned,
		})
	}

	character, err := models.NewCharacter(userID, req.Name, req.Theme)
	if err != nil {
		return badRequest(c, err.Error())
	}
	character.Appearance = req.Appearance

	if err := repos.Character.Create(character); err != nil {
		log.Errorf("[Characters] creation failed for user %d: %v", userID, err)
		return internalError(c, "Failed to create character")
	}

	// The first character becomes active automatically.
	if user.ActiveCharacterID == nil {
		if err := getServices().Access.SetActiveCharacter(userID, character.ID); err != nil {
			log.Warnf("[Characters] could not set first character active for user %d: %v", userID, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(characterView(*character))
}

// HandleActivateCharacter switches the user's active character. This is the
// only path that persists the choice.
func HandleActivateCharacter(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	characterID, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid character id")
	}

	if err := getServices().Access.SetActiveCharacter(userID, characterID); err != nil {
		if errors.Is(err, characteraccess.ErrCharacterLocked) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "character_locked", "message": "This character requires a premium subscription"})
		}
		return notFound(c, "Character not found")
	}

	return c.JSON(fiber.Map{"active_character_id": characterID})
}

// HandleGetActiveCharacter returns the effective active character, applying
// the read-time fallback for free users without persisting it.
func HandleGetActiveCharacter(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	character, err := getServices().Access.GetActiveCharacter(userID)
	if err != nil {
		return notFound(c, "No accessible character")
	}

	return c.JSON(characterView(*character))
}

// HandleDeleteCharacter deletes a character and its memory, entries and
// progression history.
func HandleDeleteCharacter(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	characterID, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid character id")
	}

	repos := repository.GetGlobalRepositories()
	character, err := repos.Character.GetByID(characterID)
	if err != nil || character.UserID != userID {
		return notFound(c, "Character not found")
	}

	if err := repos.Character.Delete(characterID); err != nil {
		log.Errorf("[Characters] deletion failed for character %d: %v", characterID, err)
		return internalError(c, "Failed to delete character")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleCharacterStats returns stats, progression and freshly recomputed
// streak/activity patterns for one character.
func HandleCharacterStats(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	characterID, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid character id")
	}

	repos := repository.GetGlobalRepositories()
	character, err := repos.Character.GetByID(characterID)
	if err != nil || character.UserID != userID {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Characters] load failed for character %d: %v", characterID, err)
		}
		return notFound(c, "Character not found")
	}

	stats, err := character.Stats()
	if err != nil {
		return internalError(c, "Failed to parse character stats")
	}

	patterns, err := getServices().Stats.RefreshPatterns(characterID)
	if err != nil {
		log.Warnf("[Characters] pattern refresh failed for character %d: %v", characterID, err)
	}

	usage, err := character.UsageStats()
	if err != nil {
		return internalError(c, "Failed to parse usage stats")
	}

	response := fiber.Map{
		"id":          character.ID,
		"name":        character.Name,
		"theme":       character.Theme,
		"level":       character.Level,
		"experience":  character.Experience,
		"stats":       stats,
		"usage_stats": usage,
	}
	if patterns != nil {
		response["current_streak"] = patterns.CurrentStreak
	}
	return c.JSON(response)
}

func characterView(character models.Character) fiber.Map {
	return fiber.Map{
		"id":         character.ID,
		"name":       character.Name,
		"theme":      character.Theme,
		"appearance": character.Appearance,
		"level":      character.Level,
		"experience": character.Experience,
		"created_at": character.CreatedAt,
	}
}

func characterViews(characters []models.Character) []fiber.Map {
	views := make([]fiber.Map, 0, len(characters))
	for _, character := range characters {
		views = append(views, characterView(character))
	}
	return views
}
