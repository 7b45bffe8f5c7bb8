package models

import "time"

// StatProgression is one append-only audit row recording a single stat's
// change from a single journal entry. Rows are never mutated or deleted.
type StatProgression struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CharacterID uint      `gorm:"index;not null" json:"character_id"`
	EntryID     uint      `gorm:"index;not null" json:"entry_id"`
	StatName    string    `gorm:"type:varchar(50);not null" json:"stat_name"`
	OldValue    int       `gorm:"not null" json:"old_value"`
	NewValue    int       `gorm:"not null" json:"new_value"`
	Change      int       `gorm:"not null" json:"change"`
	Reason      string    `gorm:"type:text" json:"reason"`
	Confidence  float64   `gorm:"not null" json:"confidence"`
	EntryText   string    `gorm:"type:text" json:"entry_text"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
