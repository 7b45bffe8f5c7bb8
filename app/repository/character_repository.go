package repository

import (
	"github.com/gabrielonicala/quillia/app/models"
	"gorm.io/gorm"
)

// characterRepository implements the CharacterRepository interface
type characterRepository struct {
	db *gorm.DB
}

// NewCharacterRepository creates a new character repository instance
func NewCharacterRepository(db *gorm.DB) CharacterRepository {
	return &characterRepository{db: db}
}

// Create creates a new character in the database
func (r *characterRepository) Create(character *models.Character) error {
	return r.db.Create(character).Error
}

// GetByID retrieves a character by its ID
func (r *characterRepository) GetByID(id uint) (*models.Character, error) {
	var character models.Character
	err := r.db.First(&character, id).Error
	if err != nil {
		return nil, err
	}
	return &character, nil
}

// ListByUser returns all characters owned by the user, oldest first. The
// ordering is load-bearing: the access gate's "first created gets priority"
// tie-break relies on it.
func (r *characterRepository) ListByUser(userID uint) ([]models.Character, error) {
	var characters []models.Character
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&characters).Error
	return characters, err
}

// CountByUser returns the number of characters owned by the user
func (r *characterRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Character{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Update saves the full character record
func (r *characterRepository) Update(character *models.Character) error {
	return r.db.Save(character).Error
}

// Delete removes a character and cascades its memory and progression records
func (r *characterRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("character_id = ?", id).Delete(&models.CharacterMemory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("character_id = ?", id).Delete(&models.StatProgression{}).Error; err != nil {
			return err
		}
		if err := tx.Where("character_id = ?", id).Delete(&models.JournalEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Character{}, id).Error
	})
}
