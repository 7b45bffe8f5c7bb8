package statengine

import (
	"encoding/json"
	"fmt"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// entrySnapshotMaxLen caps the source-text snapshot stored on each
// progression audit row.
const entrySnapshotMaxLen = 500

// Repository provides the DB operations used by the progression engine.
type Repository interface {
	GetCharacter(id uint) (*models.Character, error)
	SaveCharacter(character *models.Character) error
	CreateProgressions(rows []models.StatProgression) error
	UpdateEntryProgression(entryID uint, expGained int, statChangesJSON string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a progression repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetCharacter(id uint) (*models.Character, error) {
	var character models.Character
	if err := r.db.First(&character, id).Error; err != nil {
		return nil, err
	}
	return &character, nil
}

func (r *gormRepository) SaveCharacter(character *models.Character) error {
	return r.db.Save(character).Error
}

func (r *gormRepository) CreateProgressions(rows []models.StatProgression) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Create(&rows).Error
}

func (r *gormRepository) UpdateEntryProgression(entryID uint, expGained int, statChangesJSON string) error {
	return r.db.Model(&models.JournalEntry{}).Where("id = ?", entryID).Updates(map[string]interface{}{
		"exp_gained":        expGained,
		"stat_changes_json": statChangesJSON,
	}).Error
}

// Service is the stat evaluation & progression engine: it validates judge
// output, applies clamped deltas, writes the audit trail and recomputes
// level from total experience.
type Service struct {
	judge Judge
	repo  Repository
}

// NewService creates a progression engine from an injected judge and repository.
func NewService(judge Judge, repo Repository) *Service {
	return &Service{judge: judge, repo: repo}
}

// NewServiceFromDB creates a progression engine from a GORM DB handle.
func NewServiceFromDB(judge Judge, db *gorm.DB) *Service {
	return NewService(judge, NewRepository(db))
}

// ApplyResult reports one applied progression.
type ApplyResult struct {
	ExpGained int
	NewLevel  int
	LeveledUp bool
	Stats     models.CharacterStats
}

// Apply folds validated stat changes into the character: clamps each stat
// into 1..100, appends one immutable audit row per changed stat, grants
// experience and re-derives the level from the total. Persists the updated
// character and stores the progression summary on the originating entry.
func (s *Service) Apply(characterID, entryID uint, changes map[string]StatChange, originalText string) (*ApplyResult, error) {
	character, err := s.repo.GetCharacter(characterID)
	if err != nil {
		return nil, fmt.Errorf("stat engine: load character %d: %w", characterID, err)
	}

	stats, err := character.Stats()
	if err != nil {
		return nil, fmt.Errorf("stat engine: parse stats for character %d: %w", characterID, err)
	}

	snapshot := originalText
	if len(snapshot) > entrySnapshotMaxLen {
		snapshot = snapshot[:entrySnapshotMaxLen]
	}

	var rows []models.StatProgression
	for name, change := range changes {
		current, ok := stats[name]
		if !ok {
			// Validated changes should always match the theme vocabulary;
			// a stat missing from the blob gets seeded at the default.
			current = models.Stat{Value: models.DefaultStatValue}
		}

		newValue := current.Value + change.Change
		if newValue < 1 {
			newValue = 1
		} else if newValue > 100 {
			newValue = 100
		}
		if newValue == current.Value {
			continue
		}

		rows = append(rows, models.StatProgression{
			CharacterID: characterID,
			EntryID:     entryID,
			StatName:    name,
			OldValue:    current.Value,
			NewValue:    newValue,
			Change:      change.Change,
			Reason:      change.Reason,
			Confidence:  change.Confidence,
			EntryText:   snapshot,
		})
		current.Value = newValue
		stats[name] = current
	}

	expGained := ExperienceForEntry(changes)
	character.Experience += expGained
	oldLevel := character.Level
	character.Level = LevelForExperience(character.Experience)
	if err := character.SetStats(stats); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProgressions(rows); err != nil {
		return nil, fmt.Errorf("stat engine: record progressions for character %d: %w", characterID, err)
	}
	if err := s.repo.SaveCharacter(character); err != nil {
		return nil, fmt.Errorf("stat engine: save character %d: %w", characterID, err)
	}

	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateEntryProgression(entryID, expGained, string(changesJSON)); err != nil {
		return nil, fmt.Errorf("stat engine: store progression on entry %d: %w", entryID, err)
	}

	if character.Level > oldLevel {
		log.Infof("[StatEngine] character %d reached level %d", characterID, character.Level)
	}

	return &ApplyResult{
		ExpGained: expGained,
		NewLevel:  character.Level,
		LeveledUp: character.Level > oldLevel,
		Stats:     stats,
	}, nil
}
