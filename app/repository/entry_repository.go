package repository

import (
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"gorm.io/gorm"
)

// entryRepository implements the EntryRepository interface
type entryRepository struct {
	db *gorm.DB
}

// NewEntryRepository creates a new journal entry repository instance
func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &entryRepository{db: db}
}

// Create creates a new journal entry in the database
func (r *entryRepository) Create(entry *models.JournalEntry) error {
	return r.db.Create(entry).Error
}

// GetByUUID retrieves an entry by its public UUID
func (r *entryRepository) GetByUUID(uuid string) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	err := r.db.Where("uuid = ?", uuid).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByCharacter returns entries for a character, newest first
func (r *entryRepository) ListByCharacter(characterID uint, offset, limit int) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	err := r.db.Where("character_id = ?", characterID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ListTimestampsByCharacter returns only the creation timestamps of all
// entries for a character, newest first. Streak and activity-pattern
// recomputation needs nothing else and the full rows can be large.
func (r *entryRepository) ListTimestampsByCharacter(characterID uint) ([]time.Time, error) {
	var timestamps []time.Time
	err := r.db.Model(&models.JournalEntry{}).
		Where("character_id = ?", characterID).
		Order("created_at DESC").
		Pluck("created_at", &timestamps).Error
	return timestamps, err
}

// CountByCharacter returns the number of entries for a character
func (r *entryRepository) CountByCharacter(characterID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.JournalEntry{}).Where("character_id = ?", characterID).Count(&count).Error
	return count, err
}

// Count returns the total number of entries
func (r *entryRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.JournalEntry{}).Count(&count).Error
	return count, err
}

// CountSince returns the number of entries created at or after the given time
func (r *entryRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.JournalEntry{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// UpdateProgression stores the experience gained and serialized stat changes
// on the originating entry for later display.
func (r *entryRepository) UpdateProgression(entryID uint, expGained int, statChangesJSON string) error {
	return r.db.Model(&models.JournalEntry{}).Where("id = ?", entryID).Updates(map[string]interface{}{
		"exp_gained":        expGained,
		"stat_changes_json": statChangesJSON,
	}).Error
}
