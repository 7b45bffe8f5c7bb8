package characteraccess

import (
	"errors"
	"fmt"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gabrielonicala/quillia/app/repository"
	"github.com/gabrielonicala/quillia/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2/log"
)

// ErrCharacterLocked is returned when a switch targets a character the
// user's current tier cannot access.
var ErrCharacterLocked = errors.New("character is locked")

// Service is the character access gate: it decides which characters a user
// may interact with and runs the administrative subscription sweeps.
type Service struct {
	users      repository.UserRepository
	characters repository.CharacterRepository
	now        func() time.Time
}

// NewService creates a character access gate from injected repositories.
func NewService(users repository.UserRepository, characters repository.CharacterRepository) *Service {
	return &Service{users: users, characters: characters, now: time.Now}
}

// GetCharacterAccess loads the user and their characters (oldest first) and
// resolves current visibility. Never mutates stored state.
func (s *Service) GetCharacterAccess(userID uint) (*Access, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("character access: load user %d: %w", userID, err)
	}
	characters, err := s.characters.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("character access: load characters for user %d: %w", userID, err)
	}
	return ResolveAccess(user, characters, entitlements.HasPremiumAccessAt(user, s.now())), nil
}

// GetActiveCharacter returns the stored active character if it is currently
// accessible, otherwise the first accessible character. The fallback is a
// read-time computation only and is never persisted.
func (s *Service) GetActiveCharacter(userID uint) (*models.Character, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("character access: load user %d: %w", userID, err)
	}
	characters, err := s.characters.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("character access: load characters for user %d: %w", userID, err)
	}

	access := ResolveAccess(user, characters, entitlements.HasPremiumAccessAt(user, s.now()))
	if len(access.Accessible) == 0 {
		return nil, nil
	}

	if user.ActiveCharacterID != nil && access.CanAccess(*user.ActiveCharacterID) {
		for i := range access.Accessible {
			if access.Accessible[i].ID == *user.ActiveCharacterID {
				return &access.Accessible[i], nil
			}
		}
	}
	return &access.Accessible[0], nil
}

// SetActiveCharacter persists the user's explicit character switch, subject
// to the character being accessible. This is the only code path that writes
// ActiveCharacterID on behalf of the user.
func (s *Service) SetActiveCharacter(userID, characterID uint) error {
	access, err := s.GetCharacterAccess(userID)
	if err != nil {
		return err
	}
	if !access.CanAccess(characterID) {
		return fmt.Errorf("character access: character %d for user %d: %w", characterID, userID, ErrCharacterLocked)
	}
	return s.users.UpdateColumns(userID, map[string]interface{}{"active_character_id": characterID})
}

// MigrateCharacterAccess recomputes every user's allowed character count from
// their current entitlement and shrinks character_slots to match; free users
// with no active character get their oldest character assigned. Characters
// beyond the new slot count are never deleted, only restricted from view.
// Idempotent; safe to re-run.
func (s *Service) MigrateCharacterAccess() error {
	ids, err := s.users.ListIDs()
	if err != nil {
		return fmt.Errorf("character access: list users: %w", err)
	}

	migrated := 0
	failed := 0
	for _, id := range ids {
		if err := s.migrateUser(id); err != nil {
			log.Errorf("[CharacterAccess] migration failed for user %d: %v", id, err)
			failed++
			continue
		}
		migrated++
	}
	log.Infof("[CharacterAccess] migration sweep: %d users processed, %d failed", migrated, failed)
	return nil
}

func (s *Service) migrateUser(userID uint) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	characters, err := s.characters.ListByUser(userID)
	if err != nil {
		return err
	}

	premium := entitlements.HasPremiumAccessAt(user, s.now())
	allowed := 1
	if premium && len(characters) > 1 {
		allowed = len(characters)
	}

	updates := make(map[string]interface{})
	if user.CharacterSlots != allowed {
		updates["character_slots"] = allowed
	}
	if !premium && user.ActiveCharacterID == nil && len(characters) > 0 {
		updates["active_character_id"] = characters[0].ID
	}
	if len(updates) == 0 {
		return nil
	}
	return s.users.UpdateColumns(userID, updates)
}

// CleanupExpiredSubscriptions downgrades users whose cancellation grace
// period has elapsed. ActiveCharacterID is deliberately left untouched: the
// previously chosen character remains the single accessible one after the
// downgrade, preserving continuity. Idempotent; per-user failures are logged
// and skipped.
func (s *Service) CleanupExpiredSubscriptions() (int, error) {
	expired, err := s.users.ListExpiredCanceled(s.now())
	if err != nil {
		return 0, fmt.Errorf("character access: list expired subscriptions: %w", err)
	}

	downgraded := 0
	for _, user := range expired {
		err := s.users.UpdateColumns(user.ID, map[string]interface{}{
			"subscription_plan":    models.SubscriptionPlanFree,
			"subscription_status":  models.SubscriptionStatusFree,
			"subscription_id":      nil,
			"subscription_ends_at": nil,
			"character_slots":      1,
		})
		if err != nil {
			log.Errorf("[CharacterAccess] downgrade failed for user %d: %v", user.ID, err)
			continue
		}
		downgraded++
		log.Infof("[CharacterAccess] downgraded user %d after expired %s subscription", user.ID, user.SubscriptionPlan)
	}
	return downgraded, nil
}
