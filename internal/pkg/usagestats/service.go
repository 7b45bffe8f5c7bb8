// Package usagestats maintains cumulative lifetime statistics per character:
// entry counts, word totals, streaks and activity patterns. Counts are
// bumped incrementally on entry creation; streaks and activity patterns are
// recomputed in full because they depend on what "today" is.
package usagestats

import (
	"fmt"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gabrielonicala/quillia/app/repository"
	"github.com/gabrielonicala/quillia/internal/pkg/textvault"
	"github.com/gofiber/fiber/v2/log"
)

// Service is the usage statistics aggregator.
type Service struct {
	users      repository.UserRepository
	characters repository.CharacterRepository
	entries    repository.EntryRepository
	vault      textvault.Vault
	now        func() time.Time
}

// NewService creates a usage statistics aggregator. The vault is used to
// decrypt stored entry text for word counting and may be nil in tests that
// pass plaintext.
func NewService(users repository.UserRepository, characters repository.CharacterRepository, entries repository.EntryRepository, vault textvault.Vault) *Service {
	return &Service{
		users:      users,
		characters: characters,
		entries:    entries,
		vault:      vault,
		now:        time.Now,
	}
}

// RecordEntry incrementally folds one freshly created entry into the
// character's stored statistics.
func (s *Service) RecordEntry(characterID uint, entry *models.JournalEntry) error {
	character, err := s.characters.GetByID(characterID)
	if err != nil {
		return fmt.Errorf("usage stats: load character %d: %w", characterID, err)
	}

	stats, err := character.UsageStats()
	if err != nil {
		return fmt.Errorf("usage stats: parse stats for character %d: %w", characterID, err)
	}

	stats.TotalAdventures++
	switch entry.OutputType {
	case models.OutputTypeImage:
		stats.ScenesGenerated++
	default:
		stats.StoriesCreated++
	}

	stats.TotalWordsWritten += CountWords(s.entryText(entry))

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	if stats.FirstAdventureDate == nil {
		stats.FirstAdventureDate = &createdAt
	}
	stats.LastAdventureDate = &createdAt
	stats.LastUpdated = s.now()

	if err := character.SetUsageStats(stats); err != nil {
		return err
	}
	return s.characters.Update(character)
}

// entryText returns the narrative text for word counting. Decryption
// failures fall back to the raw string so legacy plaintext rows still count.
func (s *Service) entryText(entry *models.JournalEntry) string {
	raw := entry.OriginalTextEnc
	if s.vault == nil {
		return raw
	}
	plain, err := s.vault.Decrypt(raw)
	if err != nil {
		log.Warnf("[UsageStats] decrypt failed for entry %s, counting raw text: %v", entry.UUID, err)
		return raw
	}
	return plain
}

// RefreshPatterns recomputes streaks and activity patterns for one
// character from its full entry history and persists the result. The
// stored longest streak only ever grows.
func (s *Service) RefreshPatterns(characterID uint) (*Patterns, error) {
	character, err := s.characters.GetByID(characterID)
	if err != nil {
		return nil, fmt.Errorf("usage stats: load character %d: %w", characterID, err)
	}
	user, err := s.users.GetByID(character.UserID)
	if err != nil {
		return nil, fmt.Errorf("usage stats: load user %d: %w", character.UserID, err)
	}

	timestamps, err := s.entries.ListTimestampsByCharacter(characterID)
	if err != nil {
		return nil, fmt.Errorf("usage stats: list entries for character %d: %w", characterID, err)
	}

	patterns := RecalculateStreaksAndPatterns(timestamps, user.Location(), s.now())

	stats, err := character.UsageStats()
	if err != nil {
		return nil, err
	}
	if patterns.LongestStreak > stats.LongestStreak {
		stats.LongestStreak = patterns.LongestStreak
	}
	stats.MostActiveDay = patterns.MostActiveDay
	stats.MostActiveHour = patterns.MostActiveHour
	stats.LastUpdated = s.now()

	if err := character.SetUsageStats(stats); err != nil {
		return nil, err
	}
	if err := s.characters.Update(character); err != nil {
		return nil, err
	}
	return &patterns, nil
}
