package repository

import (
	"strings"
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByAPIKeyHash resolves an API key hash to its user.
func (r *userRepository) GetByAPIKeyHash(hash string) (*models.User, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	if err := r.db.Where("api_key_hash = ? AND api_key_hash <> ''", trimmed).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves the full user record
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateColumns writes only the given columns for the user
func (r *userRepository) UpdateColumns(id uint, columns map[string]interface{}) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(columns).Error
}

// ListIDs returns the IDs of all users, for administrative sweeps
func (r *userRepository) ListIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.User{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// ListExpiredCanceled returns users on a paid plan whose cancellation grace
// period has elapsed.
func (r *userRepository) ListExpiredCanceled(now time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("subscription_status = ?", models.SubscriptionStatusCanceled).
		Where("subscription_plan IN ?", []string{
			models.SubscriptionPlanWeekly,
			models.SubscriptionPlanMonthly,
			models.SubscriptionPlanYearly,
		}).
		Where("subscription_ends_at IS NOT NULL AND subscription_ends_at < ?", now).
		Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
