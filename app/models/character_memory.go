package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// WorldState holds the structured narrative facts remembered per character.
type WorldState struct {
	Relationships   map[string]string `json:"relationships"`
	Locations       []string          `json:"locations"`
	OngoingPlots    []string          `json:"ongoing_plots"`
	CharacterTraits []string          `json:"character_traits"`
}

// NewWorldState returns an empty-but-initialized world state.
func NewWorldState() WorldState {
	return WorldState{
		Relationships:   make(map[string]string),
		Locations:       []string{},
		OngoingPlots:    []string{},
		CharacterTraits: []string{},
	}
}

// RecentEntry is one slot of the bounded recent-entry ring, newest first.
type RecentEntry struct {
	ID             string    `json:"id"`
	OriginalText   string    `json:"original_text"`
	ReimaginedText string    `json:"reimagined_text"`
	CreatedAt      time.Time `json:"created_at"`
}

// CharacterMemory is the bounded narrative state per character: world-state
// facts, a size-capped running summary and a ring of the most recent entries.
// Created lazily on first access and following the character's lifecycle.
//
// The summary log is lossy by design: once compressed, older entries survive
// only as a count marker. Full history must always be reconstructed from the
// journal entry table, never from this blob.
type CharacterMemory struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CharacterID       uint      `gorm:"uniqueIndex;not null" json:"character_id"`
	WorldStateJSON    string    `gorm:"type:text" json:"-"`
	SummaryLog        string    `gorm:"type:text" json:"summary_log"`
	RecentEntriesJSON string    `gorm:"type:text" json:"-"`
	LastUpdated       time.Time `json:"last_updated"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *CharacterMemory) WorldState() (WorldState, error) {
	if m.WorldStateJSON == "" {
		return NewWorldState(), nil
	}
	var ws WorldState
	if err := json.Unmarshal([]byte(m.WorldStateJSON), &ws); err != nil {
		return WorldState{}, fmt.Errorf("character %d world state blob: %w", m.CharacterID, err)
	}
	if ws.Relationships == nil {
		ws.Relationships = make(map[string]string)
	}
	return ws, nil
}

func (m *CharacterMemory) SetWorldState(ws WorldState) error {
	data, err := json.Marshal(ws)
	if err != nil {
		return err
	}
	m.WorldStateJSON = string(data)
	return nil
}

func (m *CharacterMemory) RecentEntries() ([]RecentEntry, error) {
	if m.RecentEntriesJSON == "" {
		return []RecentEntry{}, nil
	}
	var entries []RecentEntry
	if err := json.Unmarshal([]byte(m.RecentEntriesJSON), &entries); err != nil {
		return nil, fmt.Errorf("character %d recent entries blob: %w", m.CharacterID, err)
	}
	return entries, nil
}

func (m *CharacterMemory) SetRecentEntries(entries []RecentEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	m.RecentEntriesJSON = string(data)
	return nil
}
