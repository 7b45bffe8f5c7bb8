package credits

import (
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"gorm.io/gorm"
)

// Repository provides the DB operations used by the credit ledger. The
// decrement and recharge operations must be atomic at the storage layer: two
// concurrent requests must never both pass an affordability check against a
// stale balance.
type Repository interface {
	GetUser(id uint) (*models.User, error)
	// DeductCredits applies a conditional atomic decrement. It reports
	// whether the decrement was applied (balance was sufficient at the time
	// of the write) and the resulting balance.
	DeductCredits(userID uint, amount int) (applied bool, remaining int, err error)
	// AddCreditsWithPurchase increments the balance and appends the audit
	// row in one transaction, returning the new balance.
	AddCreditsWithPurchase(userID uint, amount int, purchase *models.CreditPurchase) (int, error)
	// StampDailyRecharge credits the recharge amount and stamps
	// last_daily_recharge, guarded so a concurrent duplicate call inside the
	// same 24h window is a no-op. eligibleBefore is now-24h.
	StampDailyRecharge(userID uint, amount int, now, eligibleBefore time.Time, purchase *models.CreditPurchase) (applied bool, newBalance int, err error)
	// AddCharacterSlotWithPurchase increments character_slots and appends
	// the audit row in one transaction.
	AddCharacterSlotWithPurchase(userID uint, purchase *models.CreditPurchase) error
	// MarkStarterKitPurchased flips the flag only if it was not already set.
	MarkStarterKitPurchased(userID uint) (applied bool, err error)
	ListUserIDs() ([]uint, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a credit ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) DeductCredits(userID uint, amount int) (bool, int, error) {
	// The balance guard lives in the WHERE clause so check and decrement are
	// one indivisible statement. RowsAffected == 0 means the balance was
	// insufficient at write time, no partial deduction.
	tx := r.db.Model(&models.User{}).
		Where("id = ? AND credits >= ?", userID, amount).
		UpdateColumn("credits", gorm.Expr("credits - ?", amount))
	if tx.Error != nil {
		return false, 0, tx.Error
	}

	var user models.User
	if err := r.db.Select("credits").First(&user, userID).Error; err != nil {
		return false, 0, err
	}
	return tx.RowsAffected > 0, user.Credits, nil
}

func (r *gormRepository) AddCreditsWithPurchase(userID uint, amount int, purchase *models.CreditPurchase) (int, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("credits", gorm.Expr("credits + ?", amount)).Error; err != nil {
			return err
		}
		return tx.Create(purchase).Error
	})
	if err != nil {
		return 0, err
	}

	var user models.User
	if err := r.db.Select("credits").First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.Credits, nil
}

func (r *gormRepository) StampDailyRecharge(userID uint, amount int, now, eligibleBefore time.Time, purchase *models.CreditPurchase) (bool, int, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Eligibility is re-checked inside the UPDATE itself so two
		// concurrent sweeps cannot both credit the same window.
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Where("(last_daily_recharge IS NULL AND created_at <= ?) OR last_daily_recharge <= ?", eligibleBefore, eligibleBefore).
			Updates(map[string]interface{}{
				"credits":             gorm.Expr("credits + ?", amount),
				"last_daily_recharge": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		return tx.Create(purchase).Error
	})
	if err != nil {
		return false, 0, err
	}

	var user models.User
	if err := r.db.Select("credits").First(&user, userID).Error; err != nil {
		return false, 0, err
	}
	return applied, user.Credits, nil
}

func (r *gormRepository) AddCharacterSlotWithPurchase(userID uint, purchase *models.CreditPurchase) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("character_slots", gorm.Expr("character_slots + ?", 1)).Error; err != nil {
			return err
		}
		return tx.Create(purchase).Error
	})
}

func (r *gormRepository) MarkStarterKitPurchased(userID uint) (bool, error) {
	tx := r.db.Model(&models.User{}).
		Where("id = ? AND has_purchased_starter_kit = ?", userID, false).
		UpdateColumn("has_purchased_starter_kit", true)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) ListUserIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.User{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}
