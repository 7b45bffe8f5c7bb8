package repository

import (
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	UpdateColumns(id uint, columns map[string]interface{}) error
	ListIDs() ([]uint, error)
	ListExpiredCanceled(now time.Time) ([]models.User, error)
	Count() (int64, error)
}

// CharacterRepository defines the interface for character-related database operations
type CharacterRepository interface {
	Create(character *models.Character) error
	GetByID(id uint) (*models.Character, error)
	ListByUser(userID uint) ([]models.Character, error)
	CountByUser(userID uint) (int64, error)
	Update(character *models.Character) error
	Delete(id uint) error
}

// EntryRepository defines the interface for journal entry database operations
type EntryRepository interface {
	Create(entry *models.JournalEntry) error
	GetByUUID(uuid string) (*models.JournalEntry, error)
	ListByCharacter(characterID uint, offset, limit int) ([]models.JournalEntry, error)
	ListTimestampsByCharacter(characterID uint) ([]time.Time, error)
	CountByCharacter(characterID uint) (int64, error)
	Count() (int64, error)
	CountSince(since time.Time) (int64, error)
	UpdateProgression(entryID uint, expGained int, statChangesJSON string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User      UserRepository
	Character CharacterRepository
	Entry     EntryRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db),
		Character: NewCharacterRepository(db),
		Entry:     NewEntryRepository(db),
	}
}
