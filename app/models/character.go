package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Stat is one themed attribute of a character, kept in the 1..100 range.
type Stat struct {
	Value       int    `json:"value"`
	Description string `json:"description"`
}

// CharacterStats maps stat name to current value. Stored serialized on the
// character row and validated against the theme vocabulary on every parse.
type CharacterStats map[string]Stat

// StoredUsageStats is the cumulative per-character statistics blob. All counts
// are monotonic non-decreasing; MostActiveDay/MostActiveHour are periodically
// recomputed from entry history and may move in either direction.
type StoredUsageStats struct {
	TotalAdventures   int        `json:"total_adventures"`
	StoriesCreated    int        `json:"stories_created"`
	ScenesGenerated   int        `json:"scenes_generated"`
	LongestStreak     int        `json:"longest_streak"`
	TotalWordsWritten int        `json:"total_words_written"`
	FirstAdventureDate *time.Time `json:"first_adventure_date"`
	LastAdventureDate  *time.Time `json:"last_adventure_date"`
	MostActiveDay      string     `json:"most_active_day"`
	MostActiveHour     int        `json:"most_active_hour"`
	LastUpdated        time.Time  `json:"last_updated"`
}

// Character is one journaling persona. Stats, experience and level are only
// ever mutated by the stat progression engine.
type Character struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"index;not null" json:"user_id"`
	Name           string         `gorm:"type:varchar(150)" json:"name"`
	Theme          string         `gorm:"type:varchar(50);default:'fantasy'" json:"theme"`
	Appearance     string         `gorm:"type:text" json:"appearance"`
	StatsJSON      string         `gorm:"type:text" json:"-"`
	Experience     int            `gorm:"default:0" json:"experience"`
	Level          int            `gorm:"default:1" json:"level"`
	UsageStatsJSON string         `gorm:"type:text" json:"-"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// NewCharacter seeds a character with the theme's default stats.
func NewCharacter(userID uint, name, theme string) (*Character, error) {
	if !IsKnownTheme(theme) {
		return nil, fmt.Errorf("unknown theme %q", theme)
	}

	stats := make(CharacterStats)
	for _, def := range StatDefinitionsForTheme(theme) {
		stats[def.Name] = Stat{Value: DefaultStatValue, Description: def.Description}
	}

	c := &Character{
		UserID: userID,
		Name:   name,
		Theme:  theme,
		Level:  1,
	}
	if err := c.SetStats(stats); err != nil {
		return nil, err
	}
	return c, nil
}

// Stats parses and validates the serialized stats blob. Unknown stat names are
// dropped and values clamped into 1..100 rather than trusted, so a corrupt
// blob can never leak out-of-range state into the progression engine.
func (c *Character) Stats() (CharacterStats, error) {
	stats := make(CharacterStats)
	if c.StatsJSON != "" {
		if err := json.Unmarshal([]byte(c.StatsJSON), &stats); err != nil {
			return nil, fmt.Errorf("character %d stats blob: %w", c.ID, err)
		}
	}

	valid := make(CharacterStats, len(stats))
	for name, stat := range stats {
		if !ThemeDefinesStat(c.Theme, name) {
			continue
		}
		if stat.Value < 1 {
			stat.Value = 1
		} else if stat.Value > 100 {
			stat.Value = 100
		}
		valid[name] = stat
	}
	return valid, nil
}

func (c *Character) SetStats(stats CharacterStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	c.StatsJSON = string(data)
	return nil
}

// UsageStats parses the serialized usage statistics blob, returning zeroed
// stats when none have been recorded yet.
func (c *Character) UsageStats() (*StoredUsageStats, error) {
	stats := &StoredUsageStats{MostActiveHour: -1}
	if c.UsageStatsJSON == "" {
		return stats, nil
	}
	if err := json.Unmarshal([]byte(c.UsageStatsJSON), stats); err != nil {
		return nil, fmt.Errorf("character %d usage stats blob: %w", c.ID, err)
	}
	return stats, nil
}

func (c *Character) SetUsageStats(stats *StoredUsageStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	c.UsageStatsJSON = string(data)
	return nil
}
