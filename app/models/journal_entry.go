package models

import (
	"time"

	"gorm.io/gorm"
)

// OutputType distinguishes the two generation products: a text chapter or an
// image scene. It selects the credit cost and which daily counter is bumped.
type OutputType string

const (
	OutputTypeText  OutputType = "text"
	OutputTypeImage OutputType = "image"
)

// IsValid reports whether the output type is one of the two known kinds.
func (t OutputType) IsValid() bool {
	return t == OutputTypeText || t == OutputTypeImage
}

// JournalEntry is one diary entry plus its generated counterpart. Narrative
// text columns are stored encrypted; ExpGained and StatChangesJSON are filled
// in by the progression engine after the entry itself has been created.
type JournalEntry struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UUID              string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID            uint           `gorm:"index;not null" json:"user_id"`
	CharacterID       uint           `gorm:"index;not null" json:"character_id"`
	OriginalTextEnc   string         `gorm:"type:text" json:"-"`
	ReimaginedTextEnc string         `gorm:"type:text" json:"-"`
	OutputType        OutputType     `gorm:"type:varchar(10);default:'text'" json:"output_type"`
	SceneImageURL     string         `gorm:"type:varchar(500);default:''" json:"scene_image_url"`
	ExpGained         int            `gorm:"default:0" json:"exp_gained"`
	StatChangesJSON   string         `gorm:"type:text" json:"-"`
	CreatedAt         time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}
