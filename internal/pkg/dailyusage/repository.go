package dailyusage

import (
	"time"

	"github.com/gabrielonicala/quillia/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the daily usage counter. The
// increment must be an atomic upsert: two concurrent generations for the same
// user and day must never both read count=N and both write N+1.
type Repository interface {
	IncrementUsage(userID, characterID uint, date time.Time, kind models.OutputType) error
	// UsageForUser sums the day's counters across all of the user's
	// characters (shared regime scope).
	UsageForUser(userID uint, date time.Time) (Usage, error)
	// UsageForCharacter reads the day's counters for one character
	// (per-character regime scope).
	UsageForCharacter(userID, characterID uint, date time.Time) (Usage, error)
	// DeleteUsageBefore purges rows older than the cutoff date key.
	DeleteUsageBefore(cutoff time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a daily usage repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) IncrementUsage(userID, characterID uint, date time.Time, kind models.OutputType) error {
	column := "chapters"
	row := models.DailyUsage{UserID: userID, CharacterID: characterID, UsageDate: date, Chapters: 1}
	if kind == models.OutputTypeImage {
		column = "scenes"
		row = models.DailyUsage{UserID: userID, CharacterID: characterID, UsageDate: date, Scenes: 1}
	}

	// Insert-or-increment in one statement; the unique key on
	// (user_id, character_id, usage_date) turns the conflict branch into an
	// atomic in-place increment.
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "character_id"},
			{Name: "usage_date"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column: gorm.Expr(column + " + 1"),
		}),
	}).Create(&row).Error
}

func (r *gormRepository) UsageForUser(userID uint, date time.Time) (Usage, error) {
	var usage Usage
	err := r.db.Model(&models.DailyUsage{}).
		Select("COALESCE(SUM(chapters), 0) AS chapters, COALESCE(SUM(scenes), 0) AS scenes").
		Where("user_id = ? AND usage_date = ?", userID, date).
		Scan(&usage).Error
	return usage, err
}

func (r *gormRepository) UsageForCharacter(userID, characterID uint, date time.Time) (Usage, error) {
	var usage Usage
	err := r.db.Model(&models.DailyUsage{}).
		Select("COALESCE(SUM(chapters), 0) AS chapters, COALESCE(SUM(scenes), 0) AS scenes").
		Where("user_id = ? AND character_id = ? AND usage_date = ?", userID, characterID, date).
		Scan(&usage).Error
	return usage, err
}

func (r *gormRepository) DeleteUsageBefore(cutoff time.Time) (int64, error) {
	tx := r.db.Where("usage_date < ?", cutoff).Delete(&models.DailyUsage{})
	return tx.RowsAffected, tx.Error
}
