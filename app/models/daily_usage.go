package models

import "time"

// DailyUsage counts chapter and scene generations for one user, character and
// local calendar day. UsageDate is a timezone-normalized UTC-midnight marker
// derived from the user's signup timezone, not a wall-clock UTC day. Rows are
// always written per character; the shared-limit regime simply sums them per
// user at query time.
type DailyUsage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_daily_usage_user_char_day" json:"user_id"`
	CharacterID uint      `gorm:"not null;uniqueIndex:idx_daily_usage_user_char_day" json:"character_id"`
	UsageDate   time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_usage_user_char_day;index" json:"usage_date"`
	Chapters    int       `gorm:"default:0" json:"chapters"`
	Scenes      int       `gorm:"default:0" json:"scenes"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
